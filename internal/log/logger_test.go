package log_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"ridedesk/internal/log"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.DebugLevel, log.ParseLevel("DEBUG"))
	require.Equal(t, zerolog.WarnLevel, log.ParseLevel(" warn "))
	require.Equal(t, zerolog.ErrorLevel, log.ParseLevel("error"))
	require.Equal(t, zerolog.InfoLevel, log.ParseLevel("verbose"))
}
