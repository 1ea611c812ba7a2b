package security_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ridedesk/internal/security"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := security.HashPasswordWithParams("correct horse", security.Argon2Params{
		Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16,
	})
	require.NoError(t, err)

	ok, err := security.VerifyPassword("correct horse", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = security.VerifyPassword("battery staple", hash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyPasswordRejectsMissingOrMalformedHash(t *testing.T) {
	ok, err := security.VerifyPassword("anything", nil)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = security.VerifyPassword("anything", []byte("$bcrypt$nope"))
	require.ErrorIs(t, err, security.ErrMalformedHash)
}

func TestTokenIssuer(t *testing.T) {
	issuer := security.NewTokenIssuer("secret", time.Minute)

	token, err := issuer.Issue("user-1", "session-1", "device-1", "driver")
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "session-1", claims.SessionID)
	require.Equal(t, "device-1", claims.DeviceID)
	require.Equal(t, "driver", claims.Role)

	_, err = security.NewTokenIssuer("other", time.Minute).Parse(token)
	require.ErrorIs(t, err, security.ErrInvalidToken)
}

func TestExpiredTokenRejected(t *testing.T) {
	issuer := security.NewTokenIssuer("secret", -time.Minute)
	token, err := issuer.Issue("user-1", "session-1", "device-1", "client")
	require.NoError(t, err)

	_, err = issuer.Parse(token)
	require.ErrorIs(t, err, security.ErrInvalidToken)
}

func TestRefreshTokenHash(t *testing.T) {
	token, hash, err := security.GenerateRefreshToken(32)
	require.NoError(t, err)
	require.Equal(t, hash, security.HashRefreshToken(token))
}

func TestSignedRequest(t *testing.T) {
	req := security.SignedRequest{
		DeviceID: "device-1",
		Method:   "post",
		Path:     "/api/v1/admin/delete-user",
		Body:     []byte(`{"userId":"u1"}`),
		Date:     "2024-05-01T10:00:00Z",
		Nonce:    "n1",
	}
	sig := req.Sign("secret")
	require.True(t, req.Verify("secret", sig))

	tampered := req
	tampered.Body = []byte(`{"userId":"u2"}`)
	require.False(t, tampered.Verify("secret", sig))
}

func TestSignatureHeaders(t *testing.T) {
	header := http.Header{}
	_, _, _, err := security.SignatureHeaders(header)
	require.ErrorIs(t, err, security.ErrMissingSignature)

	header.Set(security.HeaderDate, "d")
	header.Set(security.HeaderNonce, "n")
	header.Set(security.HeaderSignature, "s")
	date, nonce, sig, err := security.SignatureHeaders(header)
	require.NoError(t, err)
	require.Equal(t, []string{"d", "n", "s"}, []string{date, nonce, sig})
}

func TestTicket(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	ticket := security.IssueTicket("secret", "user-1", now.Add(time.Minute))

	userID, err := security.VerifyTicket("secret", ticket, now)
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)

	_, err = security.VerifyTicket("secret", ticket, now.Add(2*time.Minute))
	require.ErrorIs(t, err, security.ErrInvalidTicket)

	_, err = security.VerifyTicket("other", ticket, now)
	require.ErrorIs(t, err, security.ErrInvalidTicket)
}
