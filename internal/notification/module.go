// Package notification provides event handlers that turn domain events into
// durable in-app notifications, real-time pushes and emails. Domain modules
// publish events and never talk to these channels directly.
package notification

import (
	"context"
	"fmt"

	"hirelocal_backend/internal/email"
	"hirelocal_backend/internal/events"
	apphttp "hirelocal_backend/internal/http"
	notifhandler "hirelocal_backend/internal/notification/handler"
	"hirelocal_backend/internal/notification/inapp"
	usersrepo "hirelocal_backend/internal/users/repository"
	"hirelocal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Durable notification types written by this module.
const (
	TypeLeadAccepted           = "lead_accepted"
	TypeLeadCancelled          = "lead_cancelled"
	TypeSubscriptionActivated  = "subscription_activated"
	TypeSubscriptionExpired    = "subscription_expired"
	TypeSubscriptionReconcile  = "subscription_reconciliation"
	MessageLeadAccepted        = "lead_accepted"
	MessageSubscriptionChanged = "subscription_changed"

	roleAdmin = "admin"
)

// Publisher pushes a message to a user's live connection, if any.
type Publisher interface {
	Publish(userID uuid.UUID, msgType string, payload any) bool
}

// ContactReader resolves user contact data and role membership.
type ContactReader interface {
	GetContact(ctx context.Context, userID uuid.UUID) (usersrepo.Contact, error)
	ListIDsByRole(ctx context.Context, role string) ([]uuid.UUID, error)
}

// FreelancerOwners maps a freelancer profile to the user behind it.
type FreelancerOwners interface {
	OwnerUserID(ctx context.Context, freelancerID uuid.UUID) (uuid.UUID, error)
}

// Config provides the base URL used in links.
type Config interface {
	GetAppBaseURL() string
}

// Module handles all notification-related event subscriptions.
type Module struct {
	sender       email.Sender
	cfg          Config
	log          *logger.Logger
	pub          Publisher
	contacts     ContactReader
	owners       FreelancerOwners
	inAppService *inapp.Service
	inAppHandler *notifhandler.HTTPHandler
}

// New creates a new notification module backed by Postgres.
func New(pool *pgxpool.Pool, sender email.Sender, cfg Config, log *logger.Logger) *Module {
	return newModule(inapp.NewRepository(pool), sender, cfg, log)
}

func newModule(store inapp.Store, sender email.Sender, cfg Config, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	inAppSvc := inapp.NewService(store, log)
	return &Module{
		sender:       sender,
		cfg:          cfg,
		log:          log,
		inAppService: inAppSvc,
		inAppHandler: notifhandler.NewHTTPHandler(inAppSvc),
	}
}

func (m *Module) Name() string { return "notification" }

// RegisterRoutes registers notification center routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.inAppHandler.RegisterRoutes(ctx.Protected.Group("/notifications"))
}

// SetPublisher injects the real-time hub for pushes and unread counts.
func (m *Module) SetPublisher(pub Publisher) {
	m.pub = pub
	m.inAppService.SetPublisher(pub)
}

// SetContactReader injects the user lookups used for emails and admin fan-out.
func (m *Module) SetContactReader(r ContactReader) { m.contacts = r }

// SetFreelancerOwners injects the profile-to-user resolver.
func (m *Module) SetFreelancerOwners(o FreelancerOwners) { m.owners = o }

// InAppService exposes the in-app notification service for integration points.
func (m *Module) InAppService() *inapp.Service { return m.inAppService }

// RegisterHandlers subscribes to the relevant domain events on the bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadAccepted{}.EventName(), m)
	bus.Subscribe(events.LeadCancelled{}.EventName(), m)

	bus.Subscribe(events.SubscriptionActivated{}.EventName(), m)
	bus.Subscribe(events.SubscriptionExpired{}.EventName(), m)
	bus.Subscribe(events.SubscriptionReconciliationRequired{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadAccepted:
		return m.handleLeadAccepted(ctx, e)
	case events.LeadCancelled:
		return m.handleLeadCancelled(ctx, e)
	case events.SubscriptionActivated:
		return m.handleSubscriptionActivated(ctx, e)
	case events.SubscriptionExpired:
		return m.handleSubscriptionExpired(ctx, e)
	case events.SubscriptionReconciliationRequired:
		return m.handleReconciliationRequired(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleLeadAccepted(ctx context.Context, e events.LeadAccepted) error {
	link := fmt.Sprintf("/leads/%s", e.LeadID)

	if _, err := m.inAppService.Send(ctx, inapp.SendParams{
		UserID:  e.CustomerID,
		Type:    TypeLeadAccepted,
		Title:   "Your request was accepted",
		Message: fmt.Sprintf("%s accepted \"%s\" and will contact you shortly.", e.FreelancerName, e.LeadTitle),
		Link:    link,
	}); err != nil {
		return err
	}

	m.push(e.CustomerID, MessageLeadAccepted, map[string]any{
		"leadId": e.LeadID,
		"freelancer": map[string]any{
			"id":     e.FreelancerID,
			"name":   e.FreelancerName,
			"phone":  e.FreelancerPhone,
			"rating": e.FreelancerRating,
		},
	})

	contact, ok := m.contact(ctx, e.CustomerID)
	if !ok || contact.Email == "" {
		return nil
	}
	if err := m.sender.SendLeadAcceptedEmail(ctx, contact.Email, email.LeadAccepted{
		CustomerName:     contact.Name,
		LeadTitle:        e.LeadTitle,
		CategoryName:     e.CategoryName,
		FreelancerName:   e.FreelancerName,
		FreelancerPhone:  e.FreelancerPhone,
		FreelancerRating: e.FreelancerRating,
		LeadURL:          m.buildURL(link),
	}); err != nil {
		m.log.Error("failed to send lead accepted email", "leadId", e.LeadID, "error", err)
	}
	return nil
}

func (m *Module) handleLeadCancelled(ctx context.Context, e events.LeadCancelled) error {
	if e.AcceptedBy == nil {
		return nil
	}
	userID, ok := m.ownerOf(ctx, *e.AcceptedBy)
	if !ok {
		return nil
	}

	_, err := m.inAppService.Send(ctx, inapp.SendParams{
		UserID:  userID,
		Type:    TypeLeadCancelled,
		Title:   "Lead cancelled",
		Message: fmt.Sprintf("The customer cancelled \"%s\".", e.LeadTitle),
		Link:    fmt.Sprintf("/freelancers/%s/leads/history", *e.AcceptedBy),
	})
	return err
}

func (m *Module) handleSubscriptionActivated(ctx context.Context, e events.SubscriptionActivated) error {
	userID, ok := m.ownerOf(ctx, e.FreelancerID)
	if !ok {
		return nil
	}

	label := planLabel(e.Type)
	endDate := e.EndDate.Format("2 Jan 2006")
	if _, err := m.inAppService.Send(ctx, inapp.SendParams{
		UserID:  userID,
		Type:    TypeSubscriptionActivated,
		Title:   "Plan activated",
		Message: fmt.Sprintf("Your %s is active until %s.", label, endDate),
		Link:    "/subscriptions",
	}); err != nil {
		return err
	}
	m.push(userID, MessageSubscriptionChanged, map[string]any{
		"subscriptionId": e.SubscriptionID,
		"status":         "active",
	})

	contact, ok := m.contact(ctx, userID)
	if !ok || contact.Email == "" {
		return nil
	}
	if err := m.sender.SendSubscriptionActivatedEmail(ctx, contact.Email, email.SubscriptionActivated{
		FreelancerName: contact.Name,
		PlanLabel:      label,
		EndDate:        endDate,
		DashboardURL:   m.buildURL("/subscriptions"),
	}); err != nil {
		m.log.Error("failed to send subscription activated email", "subscriptionId", e.SubscriptionID, "error", err)
	}
	return nil
}

func (m *Module) handleSubscriptionExpired(ctx context.Context, e events.SubscriptionExpired) error {
	userID, ok := m.ownerOf(ctx, e.FreelancerID)
	if !ok {
		return nil
	}
	if _, err := m.inAppService.Send(ctx, inapp.SendParams{
		UserID:  userID,
		Type:    TypeSubscriptionExpired,
		Title:   "Plan expired",
		Message: fmt.Sprintf("Your %s has expired. Renew it to keep receiving its benefits.", planLabel(e.Type)),
		Link:    "/subscriptions",
	}); err != nil {
		return err
	}
	m.push(userID, MessageSubscriptionChanged, map[string]any{
		"subscriptionId": e.SubscriptionID,
		"status":         "expired",
	})
	return nil
}

// handleReconciliationRequired tells every admin that a captured payment
// could not be turned into an active subscription.
func (m *Module) handleReconciliationRequired(ctx context.Context, e events.SubscriptionReconciliationRequired) error {
	if m.contacts == nil {
		return nil
	}

	admins, err := m.contacts.ListIDsByRole(ctx, roleAdmin)
	if err != nil {
		m.log.Error("failed to list admins for reconciliation", "subscriptionId", e.SubscriptionID, "error", err)
		return err
	}

	var firstErr error
	for _, adminID := range admins {
		if _, err := m.inAppService.Send(ctx, inapp.SendParams{
			UserID:  adminID,
			Type:    TypeSubscriptionReconcile,
			Title:   "Payment needs reconciliation",
			Message: fmt.Sprintf("Payment %s for subscription %s was captured but not activated (%s).", e.PaymentID, e.SubscriptionID, e.ErrorType),
			Link:    "/admin/subscriptions/reconciliation",
		}); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *Module) push(userID uuid.UUID, msgType string, payload any) {
	if m.pub == nil {
		return
	}
	if !m.pub.Publish(userID, msgType, payload) {
		m.log.Debug("realtime push skipped", "userId", userID, "type", msgType)
	}
}

func (m *Module) contact(ctx context.Context, userID uuid.UUID) (usersrepo.Contact, bool) {
	if m.contacts == nil {
		return usersrepo.Contact{}, false
	}
	c, err := m.contacts.GetContact(ctx, userID)
	if err != nil {
		m.log.Warn("failed to load contact", "userId", userID, "error", err)
		return usersrepo.Contact{}, false
	}
	return c, true
}

func (m *Module) ownerOf(ctx context.Context, freelancerID uuid.UUID) (uuid.UUID, bool) {
	if m.owners == nil {
		return uuid.Nil, false
	}
	userID, err := m.owners.OwnerUserID(ctx, freelancerID)
	if err != nil {
		m.log.Warn("failed to resolve freelancer owner", "freelancerId", freelancerID, "error", err)
		return uuid.Nil, false
	}
	return userID, true
}

func (m *Module) buildURL(path string) string {
	if m.cfg == nil {
		return ""
	}
	return m.cfg.GetAppBaseURL() + path
}

func planLabel(t string) string {
	switch t {
	case "lead":
		return "lead plan"
	case "position":
		return "position plan"
	case "badge":
		return "badge plan"
	default:
		return "plan"
	}
}
