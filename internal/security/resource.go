package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidTicket = errors.New("invalid ticket")

func signParts(secret string, parts ...string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(parts, ":")))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// IssueTicket mints a short-lived credential for clients that cannot send an
// Authorization header, such as browser websockets.
func IssueTicket(secret, userID string, expiresAt time.Time) string {
	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	return strings.Join([]string{userID, exp, signParts(secret, "ticket", userID, exp)}, ".")
}

// VerifyTicket returns the user a ticket was issued to.
func VerifyTicket(secret, ticket string, now time.Time) (string, error) {
	parts := strings.Split(ticket, ".")
	if len(parts) != 3 || parts[0] == "" {
		return "", ErrInvalidTicket
	}

	expected := signParts(secret, "ticket", parts[0], parts[1])
	if !hmac.Equal([]byte(parts[2]), []byte(expected)) {
		return "", ErrInvalidTicket
	}

	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || now.Unix() > exp {
		return "", ErrInvalidTicket
	}
	return parts[0], nil
}
