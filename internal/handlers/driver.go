package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridedesk/internal/models"
)

func (h HandlerSet) DriverDashboard(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	dash, err := h.dashboard.Driver(c.Request.Context(), user)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":              dash.Status,
		"latestDecision":      newVerificationResponse(dash.Verification),
		"deliveries":          newOrderStats(dash.Deliveries),
		"unreadNotifications": dash.Unread,
	})
}

func (h HandlerSet) ListDriverOrders(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	limit, _ := pagination(c)
	board, err := h.orders.ForDriver(c.Request.Context(), user.ID, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	available := newOrderList(board.Available)
	if user.Status != models.UserStatusVerified {
		available = []orderResponse{}
	}
	c.JSON(http.StatusOK, gin.H{
		"assigned":  newOrderList(board.Assigned),
		"available": available,
	})
}

func (h HandlerSet) ClaimOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	order, err := h.orders.Claim(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}

func (h HandlerSet) ShipOrder(c *gin.Context) {
	h.advanceOrder(c, models.OrderStatusShipped)
}

func (h HandlerSet) DeliverOrder(c *gin.Context) {
	h.advanceOrder(c, models.OrderStatusDelivered)
}

func (h HandlerSet) advanceOrder(c *gin.Context, to models.OrderStatus) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	order, err := h.orders.Advance(c.Request.Context(), user, c.Param("id"), to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}
