package service_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"ridedesk/internal/models"
	"ridedesk/internal/service"
)

func TestExportUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "admin@example.com", models.UserRoleAdmin, models.UserStatusVerified)
	f.seedUser(t, "ana@example.com", models.UserRoleClient, models.UserStatusVerified)
	f.seedUser(t, "rider@example.com", models.UserRoleDriver, models.UserStatusPending)

	var buf bytes.Buffer
	n, err := f.users.Export(ctx, &buf, service.ExportCSV, models.UserFilter{})
	require.NoError(t, err)
	require.Equal(t, 3, n)
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	require.Equal(t, []string{"ID", "Email", "First Name", "Last Name", "Phone", "Role", "Status", "Provider", "Created At"}, records[0])

	buf.Reset()
	n, err = f.users.Export(ctx, &buf, service.ExportCSV, models.UserFilter{Role: models.UserRoleDriver})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	records, err = csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Equal(t, "rider@example.com", records[1][1])
	require.Equal(t, "pending", records[1][6])

	buf.Reset()
	_, err = f.users.Export(ctx, &buf, service.ExportXLSX, models.UserFilter{})
	require.NoError(t, err)
	book, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, "Users", book.Sheets[0].Name)
	require.Len(t, book.Sheets[0].Rows, 4)

	buf.Reset()
	_, err = f.users.Export(ctx, &buf, service.ExportJSON, models.UserFilter{})
	require.NoError(t, err)
	require.False(t, strings.Contains(buf.String(), "password"))
	var docs []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &docs))
	require.Len(t, docs, 3)

	_, err = f.users.Export(ctx, &buf, service.ExportCSV, models.UserFilter{Role: "pilot"})
	require.ErrorIs(t, err, service.ErrInvalidRole)
}
