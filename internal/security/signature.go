package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

const (
	HeaderSignature = "X-Ridedesk-Signature"
	HeaderDate      = "X-Ridedesk-Date"
	HeaderNonce     = "X-Ridedesk-Nonce"
)

var ErrMissingSignature = errors.New("missing signature headers")

// SignedRequest is the canonical form of a request signed by a device.
type SignedRequest struct {
	DeviceID string
	Method   string
	Path     string
	Query    string
	Body     []byte
	Date     string
	Nonce    string
}

func ComputeBodyHash(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func (r SignedRequest) canonical() string {
	return strings.Join([]string{
		r.DeviceID,
		strings.ToUpper(r.Method),
		r.Path,
		r.Query,
		ComputeBodyHash(r.Body),
		r.Date,
		r.Nonce,
	}, "\n")
}

func (r SignedRequest) Sign(secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(r.canonical()))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (r SignedRequest) Verify(secret, signature string) bool {
	return hmac.Equal([]byte(signature), []byte(r.Sign(secret)))
}

// SignatureHeaders pulls date, nonce and signature from a request.
func SignatureHeaders(header http.Header) (date, nonce, signature string, err error) {
	date = header.Get(HeaderDate)
	nonce = header.Get(HeaderNonce)
	signature = header.Get(HeaderSignature)

	if date == "" || nonce == "" || signature == "" {
		return "", "", "", ErrMissingSignature
	}
	return date, nonce, signature, nil
}
