package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"ridedesk/internal/security"
)

func (h HandlerSet) ListNotifications(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))
	limit, _ := pagination(c)

	list, err := h.notifications.List(c.Request.Context(), user.ID, unreadOnly, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	items := make([]notificationResponse, 0, len(list.Items))
	for _, n := range list.Items {
		items = append(items, notificationResponse{
			ID:        n.ID,
			Message:   n.Message,
			IsRead:    n.IsRead,
			Link:      n.Link,
			CreatedAt: n.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "unread": list.Unread})
}

func (h HandlerSet) MarkNotificationRead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) MarkAllNotificationsRead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	n, err := h.notifications.MarkAllRead(c.Request.Context(), user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

// EventsTicket issues the short-lived credential used to open the event stream.
func (h HandlerSet) EventsTicket(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	expiresAt := time.Now().Add(h.deps.TicketTTL)
	c.JSON(http.StatusOK, gin.H{
		"ticket":    security.IssueTicket(h.deps.TicketSecret, user.ID, expiresAt),
		"expiresAt": expiresAt.UTC(),
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

func (h HandlerSet) Events(c *gin.Context) {
	userID, err := security.VerifyTicket(h.deps.TicketSecret, c.Query("ticket"), time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_ticket"})
		return
	}

	up := upgrader
	up.CheckOrigin = h.checkOrigin
	conn, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("user_id", userID).Msg("websocket upgrade failed")
		return
	}
	h.deps.Hub.Serve(userID, conn)
}

func (h HandlerSet) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.deps.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.deps.AllowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}
