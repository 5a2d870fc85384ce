package webhook

import (
	"net/http"

	"leaseline_backend/platform/httpkit"
	"leaseline_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
	val     *validator.Validator
}

func NewHandler(service *Service, val *validator.Validator) *Handler {
	return &Handler{service: service, val: val}
}

// HandleVoiceResult processes an inbound call result.
// POST /api/v1/webhook/voice/results
// Authenticated via X-Webhook-API-Key header (checked by middleware).
func (h *Handler) HandleVoiceResult(c *gin.Context) {
	var result CallResult
	if err := c.ShouldBindJSON(&result); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(result); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	if err := h.service.ProcessCallResult(c.Request.Context(), result); httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}
