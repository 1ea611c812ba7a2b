package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridedesk/internal/models"
	"ridedesk/internal/service"
)

func (h HandlerSet) ClientDashboard(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	dash, err := h.dashboard.Client(c.Request.Context(), user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders":              newOrderStats(dash.Orders),
		"recentOrders":        newOrderList(dash.Recent),
		"unreadNotifications": dash.Unread,
	})
}

type menuItemRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description" binding:"required"`
	Price       float64 `json:"price" binding:"required"`
	ImageURL    string  `json:"imageUrl"`
}

func (r menuItemRequest) input() service.MenuItemInput {
	return service.MenuItemInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		ImageURL:    r.ImageURL,
	}
}

func (h HandlerSet) ListMenu(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	items, err := h.menu.List(c.Request.Context(), user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	resp := make([]menuItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, newMenuItemResponse(item))
	}
	c.JSON(http.StatusOK, gin.H{"items": resp})
}

func (h HandlerSet) CreateMenuItem(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req menuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	item, err := h.menu.Create(c.Request.Context(), user.ID, req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newMenuItemResponse(item))
}

func (h HandlerSet) UpdateMenuItem(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req menuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	item, err := h.menu.Update(c.Request.Context(), user.ID, c.Param("itemId"), req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newMenuItemResponse(item))
}

func (h HandlerSet) DeleteMenuItem(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.menu.Delete(c.Request.Context(), user.ID, c.Param("itemId")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) ListClientOrders(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	limit, offset := pagination(c)
	orders, err := h.orders.List(c.Request.Context(), models.OrderFilter{
		CustomerID: user.ID,
		Status:     models.OrderStatus(c.Query("status")),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": newOrderList(orders)})
}

type orderLineRequest struct {
	MenuItemID string  `json:"menuItemId"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity" binding:"required,min=1"`
	Price      float64 `json:"price"`
}

type createOrderRequest struct {
	Items           []orderLineRequest `json:"items" binding:"required,min=1,dive"`
	DeliveryAddress string             `json:"deliveryAddress" binding:"required,min=10"`
	Notes           string             `json:"notes"`
}

func (h HandlerSet) CreateOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	lines := make([]service.OrderLineInput, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, service.OrderLineInput{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			Price:      item.Price,
		})
	}
	order, err := h.orders.Create(c.Request.Context(), user, service.CreateOrderInput{
		Items:           lines,
		DeliveryAddress: req.DeliveryAddress,
		Notes:           req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newOrderResponse(order))
}

func (h HandlerSet) GetClientOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	order, err := h.orders.GetForCustomer(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}

func (h HandlerSet) CancelOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	order, err := h.orders.Cancel(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}
