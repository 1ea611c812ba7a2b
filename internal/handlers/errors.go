package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridedesk/internal/identity"
	"ridedesk/internal/lifecycle"
	"ridedesk/internal/media/capture"
	"ridedesk/internal/media/sniffer"
	"ridedesk/internal/repository"
	"ridedesk/internal/service"
	"ridedesk/internal/wizard"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// Checked in order; the first match wins.
var errorMappings = []errorMapping{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{service.ErrUserSuspended, http.StatusForbidden, "user_suspended"},
	{service.ErrEmailTaken, http.StatusConflict, "email_taken"},
	{service.ErrInvalidEmail, http.StatusBadRequest, "invalid_email"},
	{service.ErrWeakPassword, http.StatusBadRequest, "weak_password"},
	{service.ErrInvalidRole, http.StatusBadRequest, "invalid_role"},
	{service.ErrEmailNotVerified, http.StatusForbidden, "email_not_verified"},
	{identity.ErrInvalidIDToken, http.StatusUnauthorized, "invalid_id_token"},
	{identity.ErrDisabled, http.StatusNotImplemented, "oauth_disabled"},

	{service.ErrCannotDeleteSelf, http.StatusBadRequest, "cannot_delete_self"},
	{service.ErrUserIDRequired, http.StatusBadRequest, "user_id_required"},
	{service.ErrNotPending, http.StatusConflict, "not_pending"},

	{service.ErrNotDriver, http.StatusForbidden, "not_driver"},
	{service.ErrAlreadySubmitted, http.StatusConflict, "already_submitted"},
	{service.ErrAlreadyVerified, http.StatusConflict, "already_verified"},
	{service.ErrSubmissionInFlight, http.StatusConflict, "submission_in_flight"},
	{service.ErrVerificationFailed, http.StatusBadGateway, "verification_failed"},
	{wizard.ErrDraftNotFound, http.StatusNotFound, "draft_not_found"},
	{wizard.ErrDraftLocked, http.StatusConflict, "draft_locked"},
	{wizard.ErrInvalidStep, http.StatusBadRequest, "invalid_step"},
	{wizard.ErrStepIncomplete, http.StatusConflict, "step_incomplete"},
	{wizard.ErrWrongStep, http.StatusConflict, "wrong_step"},
	{wizard.ErrInvalidVehicle, http.StatusBadRequest, "invalid_vehicle"},
	{wizard.ErrDraftIncomplete, http.StatusUnprocessableEntity, "draft_incomplete"},
	{capture.ErrUnknownCapture, http.StatusBadRequest, "unknown_capture"},
	{sniffer.ErrTypeMismatch, http.StatusUnsupportedMediaType, "content_type_mismatch"},
	{sniffer.ErrUnsupported, http.StatusUnsupportedMediaType, "unsupported_media_type"},
	{sniffer.ErrUnknownType, http.StatusUnsupportedMediaType, "unsupported_media_type"},

	{service.ErrInvalidOrder, http.StatusBadRequest, "invalid_order"},
	{service.ErrDriverNotVerified, http.StatusForbidden, "not_verified"},
	{service.ErrNotOrderOwner, http.StatusForbidden, "not_order_owner"},
	{service.ErrInvalidMenuItem, http.StatusBadRequest, "invalid_menu_item"},
	{service.ErrUnsupportedFormat, http.StatusBadRequest, "unsupported_format"},
	{lifecycle.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},

	{repository.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{repository.ErrOrderNotFound, http.StatusNotFound, "order_not_found"},
	{repository.ErrMenuItemNotFound, http.StatusNotFound, "menu_item_not_found"},
	{repository.ErrNotificationNotFound, http.StatusNotFound, "notification_not_found"},
	{repository.ErrVerificationNotFound, http.StatusNotFound, "verification_not_found"},
	{repository.ErrOrderConflict, http.StatusConflict, "order_conflict"},
	{repository.ErrStatusConflict, http.StatusConflict, "status_conflict"},
}

// respondError writes the mapped status and code for err. Unmapped errors are
// logged and reported as internal.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			body := gin.H{"error": m.code}
			if m.status == http.StatusBadRequest || m.status == http.StatusConflict ||
				m.status == http.StatusUnprocessableEntity || m.status == http.StatusUnsupportedMediaType {
				body["message"] = err.Error()
			}
			c.AbortWithStatusJSON(m.status, body)
			return
		}
	}

	h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
}
