// Package leads provides the lead bounded context module: creation and
// fan-out, the acceptance gate, interaction tracking and the missed sweep.
package leads

import (
	"hirelocal_backend/internal/events"
	apphttp "hirelocal_backend/internal/http"
	"hirelocal_backend/internal/leads/dispatch"
	"hirelocal_backend/internal/leads/handler"
	"hirelocal_backend/internal/leads/management"
	"hirelocal_backend/internal/leads/matching"
	"hirelocal_backend/internal/leads/ports"
	"hirelocal_backend/internal/leads/repository"
	"hirelocal_backend/internal/leads/tracker"
	"hirelocal_backend/platform/config"
	"hirelocal_backend/platform/lock"
	"hirelocal_backend/platform/logger"
	"hirelocal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FreelancerDirectory reads profiles and finds matches.
type FreelancerDirectory interface {
	ports.FreelancerReader
	ports.FreelancerFinder
}

// Deps are the collaborators the leads module borrows from other modules.
type Deps struct {
	Pool        *pgxpool.Pool
	Bus         events.Bus
	Validator   *validator.Validator
	Config      config.MarketplaceConfig
	Locker      lock.Locker
	Freelancers FreelancerDirectory
	Customers   ports.CustomerReader
	Categories  ports.CategoryReader
	Plans       ports.SubscriptionChecker
	Notifier    ports.Notifier
	Pusher      ports.RealtimePusher
	Log         *logger.Logger
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	management *management.Service
	tracker    *tracker.Service
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(d Deps) *Module {
	repo := repository.New(d.Pool)

	trk := tracker.New(repo, d.Plans, d.Notifier, d.Locker, d.Config.GetMissedLeadTimeout(), d.Log)
	dispatcher := dispatch.New(d.Notifier, d.Pusher, trk, d.Config.GetDispatchConcurrency(), d.Log)
	engine := matching.New(d.Freelancers, d.Config.GetMatchRequireAvailable())

	mgmt := management.New(management.Deps{
		Repo:        repo,
		Freelancers: d.Freelancers,
		Customers:   d.Customers,
		Categories:  d.Categories,
		Plans:       d.Plans,
		Matcher:     engine,
		Dispatcher:  dispatcher,
		Tracker:     trk,
		Notifier:    d.Notifier,
		Pusher:      d.Pusher,
		Bus:         d.Bus,
		PhoneRegion: d.Config.GetPhoneDefaultRegion(),
		Log:         d.Log,
	})

	return &Module{
		handler:    handler.New(mgmt, trk, d.Validator),
		management: mgmt,
		tracker:    trk,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// ManagementService returns the lead management service for external use.
func (m *Module) ManagementService() *management.Service {
	return m.management
}

// Tracker returns the interaction tracker, used by the scheduler to run
// the missed-lead sweep.
func (m *Module) Tracker() *tracker.Service {
	return m.tracker
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterFreelancerRoutes(ctx.Protected.Group("/freelancers/:id"), ctx.ActionRateLimiter.RateLimit())
	m.handler.RegisterAdminRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
