package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridedesk/internal/models"
	"ridedesk/internal/service"
)

func (h HandlerSet) AdminDashboard(c *gin.Context) {
	dash, err := h.dashboard.Admin(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	users := make(map[string]map[string]int, len(dash.Users))
	for role, byStatus := range dash.Users {
		counts := make(map[string]int, len(byStatus))
		for status, n := range byStatus {
			counts[string(status)] = n
		}
		users[string(role)] = counts
	}
	c.JSON(http.StatusOK, gin.H{
		"users":          users,
		"pendingReviews": dash.PendingReviews,
		"orders":         newOrderStats(dash.Orders),
	})
}

func (h HandlerSet) AdminListUsers(c *gin.Context) {
	limit, offset := pagination(c)
	users, err := h.users.List(c.Request.Context(), models.UserFilter{
		Role:   models.UserRole(c.Query("role")),
		Status: models.UserStatus(c.Query("status")),
		Search: c.Query("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]userResponse, 0, len(users))
	for _, u := range users {
		items = append(items, newUserResponse(u))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) AdminExportUsers(c *gin.Context) {
	format, err := service.ParseExportFormat(c.DefaultQuery("format", "csv"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	count, err := h.users.Export(c.Request.Context(), &buf, format, models.UserFilter{
		Role:   models.UserRole(c.Query("role")),
		Status: models.UserStatus(c.Query("status")),
		Search: c.Query("search"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	sendExport(c, "users", format, count, buf.Bytes())
}

func (h HandlerSet) AdminGetUser(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

type updateUserRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
	Status    *string `json:"status"`
}

func (h HandlerSet) AdminUpdateUser(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	input := service.UpdateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	}
	if req.Status != nil {
		status := models.UserStatus(*req.Status)
		input.Status = &status
	}
	user, err := h.users.Update(c.Request.Context(), actor.ID, c.Param("id"), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

func (h HandlerSet) AdminPendingVerifications(c *gin.Context) {
	limit, offset := pagination(c)
	pending, err := h.users.ListPending(c.Request.Context(), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]gin.H, 0, len(pending))
	for _, p := range pending {
		items = append(items, gin.H{
			"user":           newUserResponse(p.User),
			"latestDecision": newVerificationResponse(p.Verification),
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) AdminApprove(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	user, err := h.users.Approve(c.Request.Context(), actor.ID, c.Param("userId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h HandlerSet) AdminReject(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	var req rejectRequest
	// An empty body is a rejection without a reason.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	user, err := h.users.Reject(c.Request.Context(), actor.ID, c.Param("userId"), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

type deleteUserRequest struct {
	UserID string `json:"userId"`
}

func (h HandlerSet) AdminDeleteUser(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	var req deleteUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.users.DeleteUser(c.Request.Context(), actor.ID, req.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": result.Success, "message": result.Message})
}

func orderFilterFromQuery(c *gin.Context) models.OrderFilter {
	limit, offset := pagination(c)
	return models.OrderFilter{
		CustomerID: c.Query("customerId"),
		DriverID:   c.Query("driverId"),
		Status:     models.OrderStatus(c.Query("status")),
		Unassigned: c.Query("unassigned") == "true",
		Limit:      limit,
		Offset:     offset,
	}
}

func (h HandlerSet) AdminListOrders(c *gin.Context) {
	orders, err := h.orders.List(c.Request.Context(), orderFilterFromQuery(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": newOrderList(orders)})
}

// AdminExportOrders renders the whole filtered set; pagination parameters are ignored.
func (h HandlerSet) AdminExportOrders(c *gin.Context) {
	format, err := service.ParseExportFormat(c.DefaultQuery("format", "csv"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	filter := orderFilterFromQuery(c)
	filter.Limit, filter.Offset = 0, 0

	var buf bytes.Buffer
	count, err := h.orders.Export(c.Request.Context(), &buf, format, filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	sendExport(c, "orders", format, count, buf.Bytes())
}

func sendExport(c *gin.Context, name string, format service.ExportFormat, count int, data []byte) {
	filename := fmt.Sprintf("%s-%s.%s", name, time.Now().UTC().Format("2006-01-02"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("X-Total-Count", fmt.Sprint(count))
	c.Data(http.StatusOK, format.ContentType(), data)
}

type setOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Force  bool   `json:"force"`
}

func (h HandlerSet) AdminSetOrderStatus(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		return
	}
	var req setOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.orders.SetStatus(c.Request.Context(), actor.ID, c.Param("id"), models.OrderStatus(req.Status), req.Force)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}
