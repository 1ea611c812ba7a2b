package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ridedesk/internal/media/capture"
	"ridedesk/internal/models"
	"ridedesk/internal/service"
)

type userResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	DisplayName string    `json:"displayName"`
	Provider    string    `json:"provider"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		Phone:       u.Phone,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		DisplayName: u.DisplayName(),
		Provider:    string(u.Provider),
		Role:        string(u.Role),
		Status:      string(u.Status),
		CreatedAt:   u.CreatedAt,
	}
}

type orderResponse struct {
	ID              string             `json:"id"`
	Number          string             `json:"number"`
	CustomerID      string             `json:"customerId"`
	CustomerName    string             `json:"customerName"`
	CustomerEmail   string             `json:"customerEmail"`
	DriverID        *string            `json:"driverId"`
	Status          models.OrderStatus `json:"status"`
	Amount          float64            `json:"amount"`
	DeliveryAddress string             `json:"deliveryAddress"`
	Notes           string             `json:"notes,omitempty"`
	Items           []models.OrderItem `json:"items"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

func newOrderResponse(o models.Order) orderResponse {
	items := o.Items
	if items == nil {
		items = []models.OrderItem{}
	}
	return orderResponse{
		ID:              o.ID,
		Number:          o.Number,
		CustomerID:      o.CustomerID,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		DriverID:        o.DriverID,
		Status:          o.Status,
		Amount:          o.Amount,
		DeliveryAddress: o.DeliveryAddress,
		Notes:           o.Notes,
		Items:           items,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func newOrderList(orders []models.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, newOrderResponse(o))
	}
	return out
}

type orderStatsResponse struct {
	Total    int                        `json:"total"`
	Amount   float64                    `json:"amount"`
	ByStatus map[models.OrderStatus]int `json:"byStatus"`
}

func newOrderStats(s models.OrderStats) orderStatsResponse {
	by := make(map[models.OrderStatus]int, len(models.OrderStatuses))
	for _, status := range models.OrderStatuses {
		by[status] = s.ByStatus[status]
	}
	return orderStatsResponse{Total: s.Total, Amount: s.Amount, ByStatus: by}
}

type menuItemResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	ImageURL    string    `json:"imageUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func newMenuItemResponse(m models.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		ImageURL:    m.ImageURL,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

type notificationResponse struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	Link      string    `json:"link"`
	CreatedAt time.Time `json:"createdAt"`
}

type verificationResponse struct {
	ID            string                                       `json:"id"`
	VehicleType   models.VehicleType                           `json:"vehicleType"`
	Status        models.VerificationStatus                    `json:"status"`
	Decision      string                                       `json:"decision"`
	Documents     map[models.DocumentType]models.DocumentCheck `json:"documentResults"`
	Facial        models.FacialCheck                           `json:"facialResult"`
	ReviewedBy    *string                                      `json:"reviewedBy,omitempty"`
	ReviewedAt    *time.Time                                   `json:"reviewedAt,omitempty"`
	ReviewOutcome *models.ReviewOutcome                        `json:"reviewOutcome,omitempty"`
	CreatedAt     time.Time                                    `json:"createdAt"`
}

func newVerificationResponse(v *models.Verification) *verificationResponse {
	if v == nil {
		return nil
	}
	return &verificationResponse{
		ID:            v.ID,
		VehicleType:   v.VehicleType,
		Status:        v.Status,
		Decision:      v.Decision,
		Documents:     v.Documents,
		Facial:        v.Facial,
		ReviewedBy:    v.ReviewedBy,
		ReviewedAt:    v.ReviewedAt,
		ReviewOutcome: v.ReviewOutcome,
		CreatedAt:     v.CreatedAt,
	}
}

type draftResponse struct {
	ID          string             `json:"id"`
	VehicleType models.VehicleType `json:"vehicleType,omitempty"`
	Step        int                `json:"step"`
	StepName    string             `json:"stepName"`
	Phase       string             `json:"phase"`
	Completed   []string           `json:"completed"`
	Missing     []string           `json:"missing"`
	Captures    []capture.Spec     `json:"captureSpecs"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

func newDraftResponse(v service.DraftView) draftResponse {
	completed := make([]string, 0, len(v.Draft.Captures))
	for _, c := range models.CaptureOrder {
		if v.Draft.Captures[c] != "" {
			completed = append(completed, string(c))
		}
	}
	missing := v.Missing
	if missing == nil {
		missing = []string{}
	}
	return draftResponse{
		ID:          v.Draft.ID,
		VehicleType: v.Draft.VehicleType,
		Step:        int(v.Draft.Step),
		StepName:    v.Draft.Step.Name(),
		Phase:       string(v.Draft.Phase),
		Completed:   completed,
		Missing:     missing,
		Captures:    v.Specs,
		UpdatedAt:   v.Draft.UpdatedAt,
	}
}

// pagination reads page/perPage query parameters, capping perPage at 200.
func pagination(c *gin.Context) (limit, offset int) {
	limit = 50
	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}
	return limit, offset
}
