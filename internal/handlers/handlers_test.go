package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"ridedesk/internal/config"
	"ridedesk/internal/handlers"
	"ridedesk/internal/identity"
	"ridedesk/internal/ids"
	"ridedesk/internal/kyc"
	"ridedesk/internal/media/capture"
	"ridedesk/internal/models"
	"ridedesk/internal/realtime"
	"ridedesk/internal/security"
	"ridedesk/internal/service"
	"ridedesk/internal/service/memstore"
	"ridedesk/internal/wizard"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubEvaluator struct{}

func (stubEvaluator) Evaluate(context.Context, kyc.Submission) (kyc.Outcome, error) {
	return kyc.Outcome{Status: models.VerificationUnderReview, Decision: kyc.DecisionPassed}, nil
}

type env struct {
	store  *memstore.Store
	tokens *security.TokenIssuer
	hub    *realtime.Hub
	router *gin.Engine
}

func newEnv(t *testing.T, checks ...handlers.HealthCheck) *env {
	t.Helper()

	store := memstore.New()
	log := zerolog.Nop()
	tokens := security.NewTokenIssuer("access-secret", 15*time.Minute)
	numbers, err := ids.NewOrderNumbers(1)
	require.NoError(t, err)
	hub := realtime.NewHub(log)

	notifications := service.NewNotificationService(store.Notifications(), store.Events(), log)
	set := handlers.NewHandlerSet(handlers.Deps{
		Log:            log,
		Environment:    "test",
		Tokens:         tokens,
		TicketSecret:   "ticket-secret",
		MaxUploadBytes: 1 << 20,
		Auth: service.NewAuthService(store.Users(), store.Sessions(), identity.Disabled{}, tokens, config.SecurityConfig{
			JWTRefreshTTL: time.Hour,
			MaxSessions:   5,
		}, log),
		Users: service.NewUserService(store.Users(), store.Sessions(), store.Verifications(), store,
			identity.Disabled{}, store.Queue(), notifications, store.Events(), log),
		Verification: service.NewVerificationService(store.Users(), store.Drafts(), store.Objects(),
			capture.NewNormalizer(80), stubEvaluator{}, store.Verifications(), notifications, store.Events(), time.Second, log),
		Orders:        service.NewOrderService(store.Orders(), store.Menu(), numbers, store.Events(), log),
		Menu:          service.NewMenuService(store.Menu(), store.Events(), log),
		Notifications: notifications,
		Dashboard:     service.NewDashboardService(store.Users(), store.Orders(), store.Verifications(), store.Notifications()),
		UserLookup:    store.Users(),
		Sessions:      store.Sessions(),
		Hub:           hub,
		Checks:        checks,
	})

	router := gin.New()
	set.Register(&router.RouterGroup)
	return &env{store: store, tokens: tokens, hub: hub, router: router}
}

func (e *env) signIn(t *testing.T, role models.UserRole, status models.UserStatus) (models.User, string) {
	t.Helper()
	ctx := context.Background()
	user := models.User{
		ID:        ids.New(),
		Email:     ids.New() + "@example.com",
		FirstName: "Test",
		LastName:  string(role),
		Provider:  models.ProviderPassword,
		Role:      role,
		Status:    status,
	}
	require.NoError(t, e.store.Users().Create(ctx, user))
	session := models.Session{ID: ids.New(), UserID: user.ID, DeviceID: "dev-" + user.ID}
	require.NoError(t, e.store.Sessions().Create(ctx, session))
	token, err := e.tokens.Issue(user.ID, session.ID, session.DeviceID, string(role))
	require.NoError(t, err)
	return user, token
}

func (e *env) call(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) upload(t *testing.T, path, token string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "frame.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func body(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func pngFrame(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHealth(t *testing.T) {
	e := newEnv(t, handlers.HealthCheck{Name: "postgres", Ping: func(context.Context) error { return nil }})
	w := e.call(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok","checks":{"postgres":"ok"},"environment":"test"}`, w.Body.String())

	e = newEnv(t,
		handlers.HealthCheck{Name: "postgres", Ping: func(context.Context) error { return nil }},
		handlers.HealthCheck{Name: "redis", Ping: func(context.Context) error { return errors.New("down") }},
	)
	w = e.call(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Equal(t, "degraded", body(t, w)["status"])
}

func TestRegisterAndMe(t *testing.T) {
	e := newEnv(t)

	w := e.call(t, http.MethodPost, "/v1/auth/register", "", gin.H{
		"email":     "Ada@Example.com",
		"password":  "correct horse",
		"firstName": "Ada",
		"lastName":  "Lovelace",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	registered := body(t, w)
	token := registered["accessToken"].(string)
	require.NotEmpty(t, registered["refreshToken"])

	w = e.call(t, http.MethodGet, "/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := body(t, w)["user"].(map[string]any)
	require.Equal(t, "ada@example.com", user["email"])
	require.Equal(t, "client", user["role"])
	require.Equal(t, "verified", user["status"])

	w = e.call(t, http.MethodPost, "/v1/auth/register", "", gin.H{
		"email":     "ada@example.com",
		"password":  "another password",
		"firstName": "Ada",
	})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "email_taken", body(t, w)["error"])

	w = e.call(t, http.MethodPost, "/v1/auth/register", "", gin.H{"email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid_request", body(t, w)["error"])

	w = e.call(t, http.MethodPost, "/v1/auth/login", "", gin.H{"email": "ada@example.com", "password": "wrong password"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "invalid_credentials", body(t, w)["error"])
}

func TestRoleGroups(t *testing.T) {
	e := newEnv(t)
	_, client := e.signIn(t, models.UserRoleClient, models.UserStatusVerified)
	_, driver := e.signIn(t, models.UserRoleDriver, models.UserStatusVerified)

	require.Equal(t, http.StatusUnauthorized, e.call(t, http.MethodGet, "/v1/client/dashboard", "", nil).Code)
	require.Equal(t, http.StatusForbidden, e.call(t, http.MethodGet, "/v1/admin/users", client, nil).Code)
	require.Equal(t, http.StatusForbidden, e.call(t, http.MethodGet, "/v1/client/menu", driver, nil).Code)
	require.Equal(t, http.StatusForbidden, e.call(t, http.MethodGet, "/v1/driver/orders", client, nil).Code)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	e := newEnv(t)
	_, client := e.signIn(t, models.UserRoleClient, models.UserStatusVerified)
	_, admin := e.signIn(t, models.UserRoleAdmin, models.UserStatusVerified)
	_, driver := e.signIn(t, models.UserRoleDriver, models.UserStatusVerified)
	_, pending := e.signIn(t, models.UserRoleDriver, models.UserStatusPending)

	w := e.call(t, http.MethodPost, "/v1/client/menu", client, gin.H{
		"name":        "Focaccia",
		"description": "Ligurian flatbread",
		"price":       4.5,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	itemID := body(t, w)["id"].(string)

	w = e.call(t, http.MethodPost, "/v1/client/orders", client, gin.H{
		"items":           []gin.H{{"menuItemId": itemID, "quantity": 2}, {"name": "Water", "price": 1.25, "quantity": 1}},
		"deliveryAddress": "12 Harbour Street, Genoa",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := body(t, w)
	orderID := order["id"].(string)
	require.Equal(t, "Pending", order["status"])
	require.InDelta(t, 10.25, order["amount"], 0.001)

	w = e.call(t, http.MethodPost, "/v1/client/orders", client, gin.H{
		"items":           []gin.H{{"name": "Water", "price": 1.25, "quantity": 1}},
		"deliveryAddress": "short",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = e.call(t, http.MethodPost, "/v1/driver/orders/"+orderID+"/claim", pending, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "not_verified", body(t, w)["error"])

	w = e.call(t, http.MethodPut, "/v1/admin/orders/"+orderID+"/status", admin, gin.H{"status": "Processing"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.call(t, http.MethodGet, "/v1/driver/orders", driver, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, body(t, w)["available"], 1)

	w = e.call(t, http.MethodPost, "/v1/driver/orders/"+orderID+"/deliver", driver, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "not_order_owner", body(t, w)["error"])

	for _, action := range []string{"claim", "ship", "deliver"} {
		w = e.call(t, http.MethodPost, "/v1/driver/orders/"+orderID+"/"+action, driver, nil)
		require.Equal(t, http.StatusOK, w.Code, "%s: %s", action, w.Body.String())
	}

	w = e.call(t, http.MethodGet, "/v1/client/orders/"+orderID, client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Delivered", body(t, w)["status"])

	w = e.call(t, http.MethodPost, "/v1/client/orders/"+orderID+"/cancel", client, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "invalid_transition", body(t, w)["error"])

	w = e.call(t, http.MethodGet, "/v1/client/orders/missing", client, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "order_not_found", body(t, w)["error"])

	w = e.call(t, http.MethodGet, "/v1/client/dashboard", client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	dash := body(t, w)
	stats := dash["orders"].(map[string]any)
	require.EqualValues(t, 1, stats["total"])
	require.EqualValues(t, 1, stats["byStatus"].(map[string]any)["Delivered"])
	require.EqualValues(t, 0, stats["byStatus"].(map[string]any)["Cancelled"])
}

func TestAdminOrderStatusNeedsForce(t *testing.T) {
	e := newEnv(t)
	_, client := e.signIn(t, models.UserRoleClient, models.UserStatusVerified)
	_, admin := e.signIn(t, models.UserRoleAdmin, models.UserStatusVerified)

	w := e.call(t, http.MethodPost, "/v1/client/orders", client, gin.H{
		"items":           []gin.H{{"name": "Bread", "price": 3, "quantity": 1}},
		"deliveryAddress": "12 Harbour Street, Genoa",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	orderID := body(t, w)["id"].(string)

	w = e.call(t, http.MethodPut, "/v1/admin/orders/"+orderID+"/status", admin, gin.H{"status": "Delivered"})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "invalid_transition", body(t, w)["error"])

	w = e.call(t, http.MethodPut, "/v1/admin/orders/"+orderID+"/status", admin, gin.H{"status": "Delivered", "force": true})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Delivered", body(t, w)["status"])

	w = e.call(t, http.MethodPut, "/v1/admin/orders/"+orderID+"/status", admin, gin.H{"status": "Lost", "force": true})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid_order", body(t, w)["error"])
}

func TestAdminExportOrders(t *testing.T) {
	e := newEnv(t)
	_, client := e.signIn(t, models.UserRoleClient, models.UserStatusVerified)
	_, admin := e.signIn(t, models.UserRoleAdmin, models.UserStatusVerified)

	for i := 0; i < 3; i++ {
		w := e.call(t, http.MethodPost, "/v1/client/orders", client, gin.H{
			"items":           []gin.H{{"name": "Bread", "price": 3, "quantity": i + 1}},
			"deliveryAddress": "12 Harbour Street, Genoa",
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := e.call(t, http.MethodGet, "/v1/admin/orders/export?format=csv", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "orders-")
	require.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	require.Equal(t, "3", w.Header().Get("X-Total-Count"))
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 4)

	w = e.call(t, http.MethodGet, "/v1/admin/orders/export?format=pdf", admin, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "unsupported_format", body(t, w)["error"])
}

func TestAdminExportUsers(t *testing.T) {
	e := newEnv(t)
	_, admin := e.signIn(t, models.UserRoleAdmin, models.UserStatusVerified)
	e.signIn(t, models.UserRoleClient, models.UserStatusVerified)
	e.signIn(t, models.UserRoleDriver, models.UserStatusUnverified)

	w := e.call(t, http.MethodGet, "/v1/admin/users/export", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "users-")
	require.Equal(t, "3", w.Header().Get("X-Total-Count"))
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 4)

	w = e.call(t, http.MethodGet, "/v1/admin/users/export?role=driver&format=json", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "1", w.Header().Get("X-Total-Count"))

	_, client := e.signIn(t, models.UserRoleClient, models.UserStatusVerified)
	w = e.call(t, http.MethodGet, "/v1/admin/users/export", client, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminUsers(t *testing.T) {
	e := newEnv(t)
	adminUser, admin := e.signIn(t, models.UserRoleAdmin, models.UserStatusVerified)
	victim, victimToken := e.signIn(t, models.UserRoleClient, models.UserStatusVerified)

	w := e.call(t, http.MethodGet, "/v1/admin/users?role=client", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, body(t, w)["items"], 1)

	w = e.call(t, http.MethodPatch, "/v1/admin/users/"+victim.ID, admin, gin.H{"phone": "+39 010 555 0101"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "+39 010 555 0101", body(t, w)["phone"])

	w = e.call(t, http.MethodPatch, "/v1/admin/users/"+victim.ID, admin, gin.H{"status": "suspended"})
	require.Equal(t, http.StatusOK, w.Code)
	// Suspension signs the user out everywhere.
	w = e.call(t, http.MethodGet, "/v1/auth/me", victimToken, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.call(t, http.MethodPost, "/v1/admin/delete-user", admin, gin.H{"userId": adminUser.ID})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "cannot_delete_self", body(t, w)["error"])

	w = e.call(t, http.MethodPost, "/v1/admin/delete-user", admin, gin.H{"userId": victim.ID})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, body(t, w)["success"])

	w = e.call(t, http.MethodGet, "/v1/admin/users/"+victim.ID, admin, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "user_not_found", body(t, w)["error"])
}

func TestVerificationWizardOverHTTP(t *testing.T) {
	e := newEnv(t)
	driverUser, driver := e.signIn(t, models.UserRoleDriver, models.UserStatusUnverified)
	_, admin := e.signIn(t, models.UserRoleAdmin, models.UserStatusVerified)

	w := e.call(t, http.MethodGet, "/v1/driver/verification", driver, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "draft_not_found", body(t, w)["error"])

	w = e.call(t, http.MethodPost, "/v1/driver/verification", driver, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	draft := body(t, w)
	require.Equal(t, "vehicle-select", draft["stepName"])
	require.Len(t, draft["missing"], 7)
	require.Len(t, draft["captureSpecs"], 6)

	w = e.call(t, http.MethodPut, "/v1/driver/verification/vehicle", driver, gin.H{"vehicleType": "truck"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid_vehicle", body(t, w)["error"])

	w = e.call(t, http.MethodPut, "/v1/driver/verification/vehicle", driver, gin.H{"vehicleType": "car"})
	require.Equal(t, http.StatusOK, w.Code)

	frame := pngFrame(t)
	w = e.upload(t, "/v1/driver/verification/captures/licenseBack", driver, frame)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "wrong_step", body(t, w)["error"])

	for _, c := range models.CaptureOrder {
		step, ok := wizard.StepOf(c)
		require.True(t, ok)
		w = e.call(t, http.MethodPost, "/v1/driver/verification/step", driver, gin.H{"step": int(step)})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		w = e.upload(t, "/v1/driver/verification/captures/"+string(c), driver, frame)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	require.Empty(t, body(t, w)["missing"])

	w = e.upload(t, "/v1/driver/verification/captures/facePhoto", driver, []byte("plain text, not an image"))
	require.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = e.call(t, http.MethodPost, "/v1/driver/verification/submit", driver, nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	require.Equal(t, "pending", body(t, w)["userStatus"])

	w = e.call(t, http.MethodGet, "/v1/driver/dashboard", driver, nil)
	require.Equal(t, http.StatusOK, w.Code)
	dash := body(t, w)
	require.Equal(t, "pending", dash["status"])
	require.NotNil(t, dash["latestDecision"])

	w = e.call(t, http.MethodGet, "/v1/admin/verifications/pending", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := body(t, w)["items"].([]any)
	require.Len(t, items, 1)

	w = e.call(t, http.MethodPost, "/v1/admin/verifications/"+driverUser.ID+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "verified", body(t, w)["status"])

	w = e.call(t, http.MethodPost, "/v1/admin/verifications/"+driverUser.ID+"/reject", admin, gin.H{"reason": "blurry"})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "not_pending", body(t, w)["error"])

	w = e.call(t, http.MethodGet, "/v1/notifications?unread=true", driver, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, body(t, w)["items"])

	w = e.call(t, http.MethodPost, "/v1/notifications/read-all", driver, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 2, body(t, w)["updated"])
}

func TestEventStream(t *testing.T) {
	e := newEnv(t)
	user, token := e.signIn(t, models.UserRoleClient, models.UserStatusVerified)

	w := e.call(t, http.MethodGet, "/v1/events?ticket=forged", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "invalid_ticket", body(t, w)["error"])

	w = e.call(t, http.MethodPost, "/v1/events/ticket", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	ticket := body(t, w)["ticket"].(string)

	srv := httptest.NewServer(e.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events?ticket=" + ticket
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return e.hub.Subscribers(user.ID) == 1 }, time.Second, 10*time.Millisecond)

	ev, err := realtime.NewEvent(realtime.EventNotificationCreated, user.ID, gin.H{"message": "hello"})
	require.NoError(t, err)
	require.Equal(t, 1, e.hub.Deliver(ev))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got realtime.Event
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, realtime.EventNotificationCreated, got.Type)
	require.JSONEq(t, `{"message":"hello"}`, string(got.Payload))
}
