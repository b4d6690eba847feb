// Package service implements the subscription ledger: purchase, payment
// verification, activation with exclusivity re-checks, cancellation,
// expiry and the plan checks used by the lead flow.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hirelocal_backend/internal/events"
	"hirelocal_backend/internal/subscriptions/domain"
	"hirelocal_backend/internal/subscriptions/payment"
	"hirelocal_backend/internal/subscriptions/plans"
	"hirelocal_backend/internal/subscriptions/repository"
	"hirelocal_backend/platform/apperr"
	"hirelocal_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	expiryBatchSize    = 200
	maxExpiryBatches   = 50
	reconciliationPage = 100
)

// Profiles resolves the user who owns a freelancer profile.
type Profiles interface {
	OwnerUserID(ctx context.Context, freelancerID uuid.UUID) (uuid.UUID, error)
}

// Actor is the authenticated caller.
type Actor struct {
	UserID uuid.UUID
	Admin  bool
}

type Service struct {
	store    repository.Store
	catalog  *plans.Catalog
	gateway  payment.Gateway
	profiles Profiles
	bus      events.Bus
	log      *logger.Logger
}

func New(store repository.Store, catalog *plans.Catalog, gateway payment.Gateway, profiles Profiles, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		catalog:  catalog,
		gateway:  gateway,
		profiles: profiles,
		bus:      bus,
		log:      log,
	}
}

// CreateInput is a purchase request.
type CreateInput struct {
	FreelancerID uuid.UUID
	Type         domain.Type
	CategoryID   *uuid.UUID
	Area         *string
	Position     *int
	BadgeType    *string
}

// Created is the pending subscription and the order to pay.
type Created struct {
	Subscription domain.Subscription
	Order        payment.Order
}

// Catalog returns the plans on sale.
func (s *Service) Catalog() *plans.Catalog {
	return s.catalog
}

// CreateSubscription records a pending purchase after rejecting duplicates
// and taken positions. These checks are advisory; activation re-checks.
func (s *Service) CreateSubscription(ctx context.Context, actor Actor, in CreateInput) (Created, error) {
	if err := s.authorize(ctx, actor, in.FreelancerID); err != nil {
		return Created{}, err
	}
	params, slot, err := s.buildParams(in)
	if err != nil {
		return Created{}, err
	}

	dup, err := s.store.HasActiveScope(ctx, in.FreelancerID, params.ScopeKey)
	if err != nil {
		return Created{}, err
	}
	if dup {
		return Created{}, domain.ErrDuplicate(in.Type)
	}
	if slot != nil {
		if _, held, err := s.store.SlotHolder(ctx, *slot); err != nil {
			return Created{}, err
		} else if held {
			return Created{}, domain.ErrPositionTaken()
		}
	}

	order, err := s.gateway.CreateOrder(ctx, params.Amount, params.Currency, params.ID.String())
	if err != nil {
		return Created{}, fmt.Errorf("create payment order: %w", err)
	}
	params.PaymentOrderID = order.ID

	sub, err := s.store.Create(ctx, params)
	if err != nil {
		return Created{}, err
	}
	s.log.Info("subscription created", "subscriptionId", sub.ID, "freelancerId", sub.FreelancerID, "type", sub.Type, "orderId", order.ID)
	return Created{Subscription: sub, Order: order}, nil
}

func (s *Service) buildParams(in CreateInput) (repository.CreateParams, *domain.Slot, error) {
	if !in.Type.Valid() {
		return repository.CreateParams{}, nil, apperr.Validation("type must be lead, position or badge")
	}
	p := repository.CreateParams{ID: uuid.New(), FreelancerID: in.FreelancerID, Type: in.Type}

	var (
		position int
		badge    string
		slot     *domain.Slot
	)
	switch in.Type {
	case domain.TypePosition:
		if in.CategoryID == nil || in.Area == nil || strings.TrimSpace(*in.Area) == "" || in.Position == nil {
			return repository.CreateParams{}, nil, apperr.Validation("position plans need categoryId, area and position")
		}
		area := strings.TrimSpace(*in.Area)
		position = *in.Position
		p.CategoryID, p.Area, p.Position = in.CategoryID, &area, &position
		slot = &domain.Slot{CategoryID: *in.CategoryID, AreaKey: domain.AreaKey(area), Position: position}
		p.ScopeKey = domain.ScopeKey(in.Type, *in.CategoryID, area, "")
	case domain.TypeBadge:
		if in.BadgeType == nil || strings.TrimSpace(*in.BadgeType) == "" {
			return repository.CreateParams{}, nil, apperr.Validation("badge plans need badgeType")
		}
		badge = strings.ToLower(strings.TrimSpace(*in.BadgeType))
		p.BadgeType = &badge
		p.ScopeKey = domain.ScopeKey(in.Type, uuid.Nil, "", badge)
	default:
		p.ScopeKey = domain.ScopeKey(in.Type, uuid.Nil, "", "")
	}

	plan, err := s.catalog.Quote(in.Type, position, badge)
	if err != nil {
		return repository.CreateParams{}, nil, err
	}
	p.Amount, p.DurationDays, p.Currency = plan.Amount, plan.DurationDays, s.catalog.Currency
	return p, slot, nil
}

// VerifyInput is the checkout callback.
type VerifyInput struct {
	OrderID   string
	PaymentID string
	Signature string
}

// VerifyPayment checks the callback signature and activates the subscription.
func (s *Service) VerifyPayment(ctx context.Context, actor Actor, id uuid.UUID, in VerifyInput) (domain.Subscription, error) {
	sub, err := s.get(ctx, id)
	if err != nil {
		return domain.Subscription{}, err
	}
	if err := s.authorize(ctx, actor, sub.FreelancerID); err != nil {
		return domain.Subscription{}, err
	}
	if sub.PaymentOrderID == nil || *sub.PaymentOrderID != in.OrderID {
		return domain.Subscription{}, apperr.BadRequest("order does not belong to this subscription")
	}
	if !s.gateway.VerifySignature(in.OrderID, in.PaymentID, in.Signature) {
		s.log.Warn("payment signature rejected", "subscriptionId", id, "orderId", in.OrderID)
		return domain.Subscription{}, domain.ErrInvalidSignature()
	}
	return s.ActivateSubscription(ctx, id, in.PaymentID)
}

// ActivateSubscription flips a paid subscription to active. A conflict found
// here means the payment was captured for a plan that cannot go live, so
// the row is flagged for reconciliation and the caller gets a 409.
func (s *Service) ActivateSubscription(ctx context.Context, id uuid.UUID, paymentID string) (domain.Subscription, error) {
	res, err := s.store.Activate(ctx, id, paymentID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Subscription{}, apperr.NotFound("subscription not found")
	}
	if err != nil {
		return domain.Subscription{}, err
	}

	sub := res.Subscription
	switch res.Outcome {
	case repository.Activated:
		s.log.Info("subscription activated", "subscriptionId", sub.ID, "freelancerId", sub.FreelancerID, "type", sub.Type)
		var end time.Time
		if sub.EndDate != nil {
			end = *sub.EndDate
		}
		s.bus.Publish(ctx, events.SubscriptionActivated{
			BaseEvent:      events.NewBaseEvent(),
			SubscriptionID: sub.ID,
			FreelancerID:   sub.FreelancerID,
			Type:           string(sub.Type),
			EndDate:        end,
		})
		return sub, nil
	case repository.AlreadyActive:
		return sub, nil
	case repository.DuplicateScope:
		return domain.Subscription{}, s.reconcile(ctx, sub, paymentID, domain.DuplicateErrorType(sub.Type))
	case repository.SlotTaken:
		return domain.Subscription{}, s.reconcile(ctx, sub, paymentID, domain.ErrorTypePositionTaken)
	default:
		return domain.Subscription{}, s.reconcile(ctx, sub, paymentID, domain.ErrorTypeNotPending)
	}
}

func (s *Service) reconcile(ctx context.Context, sub domain.Subscription, paymentID, errorType string) error {
	if err := s.store.MarkReconciliation(ctx, sub.ID, paymentID, errorType); err != nil {
		s.log.Error("reconciliation flag not stored", "subscriptionId", sub.ID, "error", err)
	}
	s.log.Reconciliation(sub.ID.String(), sub.FreelancerID.String(), paymentID, errorType)
	s.bus.Publish(ctx, events.SubscriptionReconciliationRequired{
		BaseEvent:      events.NewBaseEvent(),
		SubscriptionID: sub.ID,
		FreelancerID:   sub.FreelancerID,
		PaymentID:      paymentID,
		ErrorType:      errorType,
	})
	return domain.ErrActivationConflict(errorType)
}

// CancelSubscription cancels a pending or active subscription of the caller.
func (s *Service) CancelSubscription(ctx context.Context, actor Actor, id uuid.UUID) (domain.Subscription, error) {
	sub, err := s.get(ctx, id)
	if err != nil {
		return domain.Subscription{}, err
	}
	if err := s.authorize(ctx, actor, sub.FreelancerID); err != nil {
		return domain.Subscription{}, err
	}
	cancelled, ok, err := s.store.Cancel(ctx, id, sub.FreelancerID)
	if err != nil {
		return domain.Subscription{}, err
	}
	if !ok {
		return domain.Subscription{}, apperr.Conflict(fmt.Sprintf("a %s subscription cannot be cancelled", sub.Status))
	}
	s.log.Info("subscription cancelled", "subscriptionId", id, "freelancerId", sub.FreelancerID)
	return cancelled, nil
}

// ExpireDue closes every active subscription past its end date.
func (s *Service) ExpireDue(ctx context.Context) (int, error) {
	total := 0
	for range maxExpiryBatches {
		expired, err := s.store.ExpireDue(ctx, expiryBatchSize)
		if err != nil {
			return total, err
		}
		for _, sub := range expired {
			s.bus.Publish(ctx, events.SubscriptionExpired{
				BaseEvent:      events.NewBaseEvent(),
				SubscriptionID: sub.ID,
				FreelancerID:   sub.FreelancerID,
				Type:           string(sub.Type),
			})
		}
		total += len(expired)
		if len(expired) < expiryBatchSize {
			break
		}
	}
	if total > 0 {
		s.log.Info("subscriptions expired", "count", total)
	}
	return total, nil
}

// ListForFreelancer lists every subscription of a freelancer, newest first.
func (s *Service) ListForFreelancer(ctx context.Context, actor Actor, freelancerID uuid.UUID) ([]domain.Subscription, error) {
	if err := s.authorize(ctx, actor, freelancerID); err != nil {
		return nil, err
	}
	return s.store.ListForFreelancer(ctx, freelancerID)
}

// Status summarizes the plan flags the clients branch on.
type Status struct {
	HasLeadPlan           bool `json:"hasLeadPlan"`
	HasActiveSubscription bool `json:"hasActiveSubscription"`
}

func (s *Service) Status(ctx context.Context, actor Actor, freelancerID uuid.UUID) (Status, error) {
	if err := s.authorize(ctx, actor, freelancerID); err != nil {
		return Status{}, err
	}
	lead, err := s.HasActiveLeadPlan(ctx, freelancerID)
	if err != nil {
		return Status{}, err
	}
	anyPlan, err := s.HasActiveSubscription(ctx, freelancerID)
	if err != nil {
		return Status{}, err
	}
	return Status{HasLeadPlan: lead, HasActiveSubscription: anyPlan}, nil
}

// ListReconciliation returns subscriptions waiting for an operator.
func (s *Service) ListReconciliation(ctx context.Context) ([]domain.Subscription, error) {
	return s.store.ListReconciliation(ctx, reconciliationPage)
}

// HasActiveLeadPlan is true while a lead plan is active and unexpired.
func (s *Service) HasActiveLeadPlan(ctx context.Context, freelancerID uuid.UUID) (bool, error) {
	return s.store.HasActive(ctx, freelancerID, domain.TypeLead)
}

// HasActiveSubscription is true while any plan is active and unexpired.
func (s *Service) HasActiveSubscription(ctx context.Context, freelancerID uuid.UUID) (bool, error) {
	return s.store.HasActive(ctx, freelancerID, "")
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (domain.Subscription, error) {
	sub, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Subscription{}, apperr.NotFound("subscription not found")
	}
	return sub, err
}

func (s *Service) authorize(ctx context.Context, actor Actor, freelancerID uuid.UUID) error {
	if actor.Admin {
		return nil
	}
	owner, err := s.profiles.OwnerUserID(ctx, freelancerID)
	if err != nil {
		return err
	}
	if owner != actor.UserID {
		return apperr.Forbidden("freelancer profile belongs to another user")
	}
	return nil
}
