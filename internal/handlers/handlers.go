package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"ridedesk/internal/middleware"
	"ridedesk/internal/models"
	"ridedesk/internal/realtime"
	"ridedesk/internal/security"
	"ridedesk/internal/service"
)

// HealthCheck reports whether one backing dependency is reachable.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// Deps is everything the HTTP layer needs, built once by the api binary.
type Deps struct {
	Log              zerolog.Logger
	Environment      string
	Tokens           *security.TokenIssuer
	TicketSecret     string
	TicketTTL        time.Duration
	SignatureSecret  string
	RequireSignature bool
	MaxUploadBytes   int64
	AllowedOrigins   []string
	AuthLimiter      *middleware.RateLimiter

	Auth          *service.AuthService
	Users         *service.UserService
	Verification  *service.VerificationService
	Orders        *service.OrderService
	Menu          *service.MenuService
	Notifications *service.NotificationService
	Dashboard     *service.DashboardService

	UserLookup middleware.UserLookup
	Sessions   middleware.SessionLookup
	Nonces     middleware.NonceClaimer
	Hub        *realtime.Hub
	Checks     []HealthCheck
}

type HandlerSet struct {
	log  zerolog.Logger
	deps Deps

	auth          *service.AuthService
	users         *service.UserService
	verification  *service.VerificationService
	orders        *service.OrderService
	menu          *service.MenuService
	notifications *service.NotificationService
	dashboard     *service.DashboardService
}

func NewHandlerSet(deps Deps) HandlerSet {
	if deps.TicketTTL <= 0 {
		deps.TicketTTL = time.Minute
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 10 << 20
	}
	return HandlerSet{
		log:           deps.Log,
		deps:          deps,
		auth:          deps.Auth,
		users:         deps.Users,
		verification:  deps.Verification,
		orders:        deps.Orders,
		menu:          deps.Menu,
		notifications: deps.Notifications,
		dashboard:     deps.Dashboard,
	}
}

func (h HandlerSet) authenticated() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		middleware.Auth(h.deps.Tokens, h.deps.UserLookup, h.deps.Sessions),
		middleware.Signature(h.deps.SignatureSecret, h.deps.RequireSignature, h.deps.Nonces),
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")

	auth := v1.Group("/auth")
	auth.Use(h.deps.AuthLimiter.Handler())
	auth.POST("/register", h.RegisterUser)
	auth.POST("/login", h.Login)
	auth.POST("/oauth", h.OAuthLogin)
	auth.POST("/refresh", h.Refresh)
	auth.POST("/logout", h.Logout)

	protected := v1.Group("")
	protected.Use(h.authenticated()...)
	protected.GET("/auth/me", h.Me)
	protected.GET("/auth/sessions", h.ListSessions)
	protected.DELETE("/auth/sessions/:deviceId", h.RevokeSession)
	protected.GET("/notifications", h.ListNotifications)
	protected.POST("/notifications/read-all", h.MarkAllNotificationsRead)
	protected.POST("/notifications/:id/read", h.MarkNotificationRead)
	protected.POST("/events/ticket", h.EventsTicket)

	// Browsers cannot set headers on websocket upgrades, so the stream authenticates by ticket.
	v1.GET("/events", h.Events)

	client := protected.Group("/client")
	client.Use(middleware.RequireRoles(models.UserRoleClient))
	client.GET("/dashboard", h.ClientDashboard)
	client.GET("/menu", h.ListMenu)
	client.POST("/menu", h.CreateMenuItem)
	client.PUT("/menu/:itemId", h.UpdateMenuItem)
	client.DELETE("/menu/:itemId", h.DeleteMenuItem)
	client.GET("/orders", h.ListClientOrders)
	client.POST("/orders", h.CreateOrder)
	client.GET("/orders/:id", h.GetClientOrder)
	client.POST("/orders/:id/cancel", h.CancelOrder)

	driver := protected.Group("/driver")
	driver.Use(middleware.RequireRoles(models.UserRoleDriver))
	driver.GET("/dashboard", h.DriverDashboard)
	driver.GET("/orders", h.ListDriverOrders)
	deliveries := driver.Group("/orders/:id")
	deliveries.Use(middleware.RequireVerified())
	deliveries.POST("/claim", h.ClaimOrder)
	deliveries.POST("/ship", h.ShipOrder)
	deliveries.POST("/deliver", h.DeliverOrder)

	wizard := driver.Group("/verification")
	wizard.POST("", h.StartVerification)
	wizard.GET("", h.GetVerification)
	wizard.PUT("/vehicle", h.SelectVehicle)
	wizard.POST("/step", h.NavigateVerification)
	wizard.PUT("/captures/:captureType", h.AttachCapture)
	wizard.DELETE("/captures/:captureType", h.RetakeCapture)
	wizard.POST("/submit", h.SubmitVerification)

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireRoles(models.UserRoleAdmin))
	admin.GET("/dashboard", h.AdminDashboard)
	admin.GET("/users", h.AdminListUsers)
	admin.GET("/users/export", h.AdminExportUsers)
	admin.GET("/users/:id", h.AdminGetUser)
	admin.PATCH("/users/:id", h.AdminUpdateUser)
	admin.GET("/verifications/pending", h.AdminPendingVerifications)
	admin.POST("/verifications/:userId/approve", h.AdminApprove)
	admin.POST("/verifications/:userId/reject", h.AdminReject)
	admin.POST("/delete-user", h.AdminDeleteUser)
	admin.GET("/orders", h.AdminListOrders)
	admin.GET("/orders/export", h.AdminExportOrders)
	admin.PUT("/orders/:id/status", h.AdminSetOrderStatus)
}
