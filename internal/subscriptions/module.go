// Package subscriptions provides the subscription ledger bounded context
// module.
package subscriptions

import (
	"hirelocal_backend/internal/events"
	apphttp "hirelocal_backend/internal/http"
	"hirelocal_backend/internal/subscriptions/handler"
	"hirelocal_backend/internal/subscriptions/payment"
	"hirelocal_backend/internal/subscriptions/plans"
	"hirelocal_backend/internal/subscriptions/repository"
	"hirelocal_backend/internal/subscriptions/service"
	"hirelocal_backend/platform/config"
	"hirelocal_backend/platform/logger"
	"hirelocal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the subscriptions bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule loads the plan catalog and wires the ledger.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, profiles service.Profiles, val *validator.Validator, cfg interface {
	config.MarketplaceConfig
	config.PaymentConfig
}, log *logger.Logger) (*Module, error) {
	catalog, err := plans.Load(cfg.GetPlanCatalogPath())
	if err != nil {
		return nil, err
	}
	if cfg.GetPaymentKeySecret() == "" {
		log.Warn("PAYMENT_KEY_SECRET is empty; every payment verification will be rejected")
	}

	svc := service.New(repository.New(pool), catalog, payment.NewHMACGateway(cfg), profiles, eventBus, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "subscriptions"
}

// Service exposes the ledger, which also answers the lead flow's plan checks.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts subscription routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/subscriptions"))
	m.handler.RegisterFreelancerRoutes(ctx.Protected.Group("/freelancers/:id"))
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
