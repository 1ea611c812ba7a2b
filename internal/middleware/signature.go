package middleware

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridedesk/internal/security"
)

const (
	signatureMaxAge  = 5 * time.Minute
	signatureMaxSkew = 2 * time.Minute
)

type NonceClaimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Signature verifies device-signed requests. When required is false, unsigned
// requests pass and signed ones are still checked.
func Signature(secret string, required bool, nonces NonceClaimer) gin.HandlerFunc {
	return func(c *gin.Context) {
		date, nonce, signature, err := security.SignatureHeaders(c.Request.Header)
		if err != nil {
			if !required {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "signature_required"})
			return
		}

		requestTime, err := time.Parse(time.RFC3339, date)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_date"})
			return
		}

		if time.Since(requestTime) > signatureMaxAge || time.Until(requestTime) > signatureMaxSkew {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "request_expired"})
			return
		}

		claims, ok := Claims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_access_claims"})
			return
		}

		rawBody, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(rawBody))

		req := security.SignedRequest{
			DeviceID: claims.DeviceID,
			Method:   c.Request.Method,
			Path:     c.Request.URL.EscapedPath(),
			Query:    c.Request.URL.Query().Encode(),
			Body:     rawBody,
			Date:     date,
			Nonce:    nonce,
		}
		if !req.Verify(secret, signature) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_signature"})
			return
		}

		fresh, err := nonces.Claim(c.Request.Context(), fmt.Sprintf("sig:%s:%s", claims.DeviceID, nonce), signatureMaxAge)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "nonce_store_unavailable"})
			return
		}
		if !fresh {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "replay_detected"})
			return
		}

		c.Next()
	}
}
