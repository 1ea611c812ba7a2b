package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"ridedesk/internal/config"
	"ridedesk/internal/identity"
)

func TestNewProviderWithoutProjectIsDisabled(t *testing.T) {
	p, err := identity.NewProvider(context.Background(), config.FirebaseConfig{})
	require.NoError(t, err)
	require.IsType(t, identity.Disabled{}, p)

	_, err = p.VerifyIDToken(context.Background(), "token")
	require.ErrorIs(t, err, identity.ErrDisabled)
	require.NoError(t, p.DeleteUser(context.Background(), "uid"))
}
