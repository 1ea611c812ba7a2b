package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridedesk/internal/media/sniffer"
	"ridedesk/internal/models"
	"ridedesk/internal/service"
	"ridedesk/internal/wizard"
)

func (h HandlerSet) StartVerification(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	view, err := h.verification.Start(c.Request.Context(), user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newDraftResponse(view))
}

func (h HandlerSet) GetVerification(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	view, err := h.verification.Get(c.Request.Context(), user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDraftResponse(view))
}

type selectVehicleRequest struct {
	VehicleType string `json:"vehicleType" binding:"required"`
}

func (h HandlerSet) SelectVehicle(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req selectVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	view, err := h.verification.SelectVehicle(c.Request.Context(), user.ID, models.VehicleType(req.VehicleType))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDraftResponse(view))
}

type navigateRequest struct {
	Step int `json:"step" binding:"required"`
}

func (h HandlerSet) NavigateVerification(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	view, err := h.verification.Navigate(c.Request.Context(), user.ID, wizard.Step(req.Step))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDraftResponse(view))
}

// AttachCapture accepts one frame as the multipart field "file".
func (h HandlerSet) AttachCapture(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.deps.MaxUploadBytes)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file_too_large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_file"})
		return
	}
	if header.Size > h.deps.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file_too_large"})
		return
	}

	file, err := header.Open()
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.respondError(c, err)
		return
	}

	view, err := h.verification.AttachCapture(c.Request.Context(), user.ID, service.CaptureInput{
		Type:         models.CaptureType(c.Param("captureType")),
		Data:         data,
		DeclaredMIME: sniffer.MimeTypeFromHeader(header.Header),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDraftResponse(view))
}

func (h HandlerSet) RetakeCapture(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	view, err := h.verification.Retake(c.Request.Context(), user.ID, models.CaptureType(c.Param("captureType")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDraftResponse(view))
}

func (h HandlerSet) SubmitVerification(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	result, err := h.verification.Submit(c.Request.Context(), user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"status":     result.Status,
		"decision":   result.Decision,
		"userStatus": result.UserStatus,
	})
}
