package webhook

import (
	apphttp "leaseline_backend/internal/http"
	"leaseline_backend/platform/config"
	"leaseline_backend/platform/validator"
)

// Module is the voice-result intake module implementing http.Module.
type Module struct {
	handler *Handler
	cfg     config.WebhookConfig
}

func NewModule(service *Service, cfg config.WebhookConfig, val *validator.Validator) *Module {
	return &Module{
		handler: NewHandler(service, val),
		cfg:     cfg,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts the public webhook routes (API key auth, no JWT).
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/webhook")
	group.Use(APIKeyAuthMiddleware(m.cfg))
	group.POST("/voice/results", m.handler.HandleVoiceResult)
}

var _ apphttp.Module = (*Module)(nil)
