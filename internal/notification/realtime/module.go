package realtime

import (
	"time"

	apphttp "hirelocal_backend/internal/http"
	"hirelocal_backend/platform/config"
)

// Config combines the settings the real-time endpoints need.
type Config interface {
	config.RealtimeConfig
	GetPollInterval() time.Duration
	GetPollIntervalConnected() time.Duration
}

// Module exposes the socket and polling config endpoints.
type Module struct {
	handler *Handler
}

func NewModule(hub *Hub, cfg Config) *Module {
	return &Module{handler: NewHandler(hub, cfg.GetWSAllowedOrigins(), PollIntervals{
		Disconnected: cfg.GetPollInterval(),
		Connected:    cfg.GetPollIntervalConnected(),
	})}
}

func (m *Module) Name() string { return "realtime" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterPublicRoutes(ctx.V1)
	m.handler.RegisterRoutes(ctx.Protected)
}

var _ apphttp.Module = (*Module)(nil)
