package service

import (
	"context"
	"io"
	"time"

	"ridedesk/internal/models"
)

var userExportHeader = []string{"ID", "Email", "First Name", "Last Name", "Phone", "Role", "Status", "Provider", "Created At"}

func userRecord(u models.User) []string {
	return []string{
		u.ID,
		u.Email,
		u.FirstName,
		u.LastName,
		u.Phone,
		string(u.Role),
		string(u.Status),
		string(u.Provider),
		u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type userDocument struct {
	ID        string              `json:"id"`
	Email     string              `json:"email"`
	FirstName string              `json:"firstName"`
	LastName  string              `json:"lastName"`
	Phone     string              `json:"phone"`
	Role      models.UserRole     `json:"role"`
	Status    models.UserStatus   `json:"status"`
	Provider  models.AuthProvider `json:"provider"`
	CreatedAt time.Time           `json:"createdAt"`
}

// Export writes every user matching filter. Credentials never leave the store.
func (s *UserService) Export(ctx context.Context, w io.Writer, format ExportFormat, filter models.UserFilter) (int, error) {
	if err := checkUserFilter(filter); err != nil {
		return 0, err
	}
	all, err := collectPages(func(limit, offset int) ([]models.User, error) {
		filter.Limit, filter.Offset = limit, offset
		return s.users.List(ctx, filter)
	})
	if err != nil {
		return 0, err
	}

	t := exportTable{sheet: "Users", header: userExportHeader}
	docs := make([]userDocument, 0, len(all))
	for _, u := range all {
		t.rows = append(t.rows, userRecord(u))
		docs = append(docs, userDocument{
			ID:        u.ID,
			Email:     u.Email,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Phone:     u.Phone,
			Role:      u.Role,
			Status:    u.Status,
			Provider:  u.Provider,
			CreatedAt: u.CreatedAt.UTC(),
		})
	}
	t.docs = docs
	return len(all), writeTable(w, format, t)
}
