// Package management implements the customer and freelancer facing lead
// operations: creation with fan-out, the acceptance gate, lifecycle changes,
// the polling feed, lead history and gated contact reveal.
package management

import (
	"context"
	"errors"
	"fmt"

	"hirelocal_backend/internal/events"
	"hirelocal_backend/internal/leads/dispatch"
	"hirelocal_backend/internal/leads/domain"
	"hirelocal_backend/internal/leads/matching"
	"hirelocal_backend/internal/leads/ports"
	"hirelocal_backend/internal/leads/repository"
	"hirelocal_backend/platform/apperr"
	"hirelocal_backend/platform/logger"
	"hirelocal_backend/platform/phone"
	"hirelocal_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	feedLimit            = 50
	defaultPageSize      = 20
	maxPageSize          = 100
	maxTitleLength       = 200
	maxDescriptionLength = 4000
	maxInquiryLength     = 2000
)

// Repository defines the data access the management service needs.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	ListHistory(ctx context.Context, freelancerID uuid.UUID, limit, offset int) ([]repository.HistoryItem, int, error)
}

// Matcher computes eligible freelancers for a lead.
type Matcher interface {
	Match(ctx context.Context, lead domain.Lead) ([]ports.Freelancer, error)
}

// Dispatcher fans a lead out to its matches.
type Dispatcher interface {
	Dispatch(ctx context.Context, lead domain.Lead, categoryName string, matches []ports.Freelancer) dispatch.Result
}

// Tracker closes interaction rows.
type Tracker interface {
	RecordAccepted(ctx context.Context, freelancerID, leadID uuid.UUID) error
	RecordMissed(ctx context.Context, freelancerID, leadID uuid.UUID, reason domain.MissedReason, notes *string) error
	RecordIgnored(ctx context.Context, freelancerID, leadID uuid.UUID, notes *string) error
}

// Deps groups the collaborators of the service.
type Deps struct {
	Repo        Repository
	Freelancers ports.FreelancerReader
	Customers   ports.CustomerReader
	Categories  ports.CategoryReader
	Plans       ports.SubscriptionChecker
	Matcher     Matcher
	Dispatcher  Dispatcher
	Tracker     Tracker
	Notifier    ports.Notifier
	Pusher      ports.RealtimePusher
	Bus         events.Bus
	PhoneRegion string
	Log         *logger.Logger
}

// Service handles lead management operations.
type Service struct {
	repo        Repository
	freelancers ports.FreelancerReader
	customers   ports.CustomerReader
	categories  ports.CategoryReader
	plans       ports.SubscriptionChecker
	matcher     Matcher
	dispatcher  Dispatcher
	tracker     Tracker
	notifier    ports.Notifier
	pusher      ports.RealtimePusher
	bus         events.Bus
	phoneRegion string
	log         *logger.Logger
}

// New creates a new lead management service.
func New(d Deps) *Service {
	return &Service{
		repo:        d.Repo,
		freelancers: d.Freelancers,
		customers:   d.Customers,
		categories:  d.Categories,
		plans:       d.Plans,
		matcher:     d.Matcher,
		dispatcher:  d.Dispatcher,
		tracker:     d.Tracker,
		notifier:    d.Notifier,
		pusher:      d.Pusher,
		bus:         d.Bus,
		phoneRegion: d.PhoneRegion,
		log:         d.Log,
	}
}

// Actor is the authenticated caller.
type Actor struct {
	UserID uuid.UUID
	Admin  bool
}

// CreateLeadInput is a customer's job request.
type CreateLeadInput struct {
	CategoryID  uuid.UUID
	Title       string
	Description string
	BudgetMin   int
	BudgetMax   int
	Location    string
	Pincode     *string
}

// CreateLeadResult is the lead plus the dispatch observability signal.
type CreateLeadResult struct {
	Lead             domain.Lead
	TotalFreelancers int
	Dispatch         dispatch.Result
	ErrorCount       int
}

// CreateLead stores the lead, then matches and notifies freelancers. Lead
// creation succeeds whatever happens during matching or dispatch.
func (s *Service) CreateLead(ctx context.Context, actor Actor, in CreateLeadInput) (CreateLeadResult, error) {
	in.Title = sanitize.Truncate(sanitize.Text(in.Title), maxTitleLength)
	in.Location = sanitize.Text(in.Location)
	if in.Title == "" || in.Location == "" {
		return CreateLeadResult{}, apperr.Validation("title and location are required")
	}
	if in.BudgetMin < 0 || in.BudgetMax < in.BudgetMin {
		return CreateLeadResult{}, apperr.Validation("budget range is invalid")
	}

	lead, err := s.repo.CreateLead(ctx, repository.CreateLeadParams{
		CustomerID:  actor.UserID,
		CategoryID:  in.CategoryID,
		Title:       in.Title,
		Description: sanitize.Truncate(sanitize.Text(in.Description), maxDescriptionLength),
		BudgetMin:   in.BudgetMin,
		BudgetMax:   in.BudgetMax,
		Location:    in.Location,
		Pincode:     in.Pincode,
	})
	if err != nil {
		return CreateLeadResult{}, err
	}
	s.log.Info("lead created", "leadId", lead.ID, "customerId", actor.UserID, "categoryId", lead.CategoryID, "location", lead.Location)

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		CustomerID: lead.CustomerID,
		CategoryID: lead.CategoryID,
		Location:   lead.Location,
	})

	// Fan-out must finish even if the customer disconnects.
	fanoutCtx := context.WithoutCancel(ctx)
	result := CreateLeadResult{Lead: lead}

	matches, err := s.matcher.Match(fanoutCtx, lead)
	if err != nil {
		s.log.Error("lead matching failed", "leadId", lead.ID, "error", err)
		result.ErrorCount = 1
		return result, nil
	}
	result.TotalFreelancers = len(matches)
	if len(matches) == 0 {
		s.log.Info("no freelancers matched lead", "leadId", lead.ID)
		return result, nil
	}

	result.Dispatch = s.dispatcher.Dispatch(fanoutCtx, lead, s.categoryName(fanoutCtx, lead.CategoryID), matches)
	result.ErrorCount = result.Dispatch.Failed
	return result, nil
}

// CustomerDetails is the acceptance reward.
type CustomerDetails struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

// AcceptResult is returned to the winning freelancer.
type AcceptResult struct {
	Lead     domain.Lead
	Customer CustomerDetails
}

// AcceptLead lets exactly one freelancer take a pending lead. The winner
// is decided by a single conditional update; every other caller gets
// ErrLeadTaken. The same winner retrying gets the customer details again.
func (s *Service) AcceptLead(ctx context.Context, actor Actor, freelancerID, leadID uuid.UUID) (AcceptResult, error) {
	lead, err := s.getLead(ctx, leadID)
	if err != nil {
		return AcceptResult{}, err
	}
	freelancer, err := s.ownedFreelancer(ctx, actor, freelancerID)
	if err != nil {
		return AcceptResult{}, err
	}
	if !matching.Eligible(freelancer, lead.CategoryID, lead.Location, false) {
		return AcceptResult{}, domain.ErrNotEligible()
	}

	if !lead.IsPending() {
		if lead.Status == domain.LeadAccepted && lead.AcceptedByFreelancer(freelancerID) {
			customer, err := s.customerDetails(ctx, lead)
			if err != nil {
				return AcceptResult{}, err
			}
			return AcceptResult{Lead: lead, Customer: customer}, nil
		}
		return AcceptResult{}, domain.ErrLeadTaken()
	}

	hasPlan, err := s.plans.HasActiveLeadPlan(ctx, freelancerID)
	if err != nil {
		return AcceptResult{}, fmt.Errorf("check lead plan: %w", err)
	}
	if !hasPlan {
		return AcceptResult{}, domain.ErrNeedsSubscription()
	}

	accepted, ok, err := s.repo.AcceptPending(ctx, leadID, freelancerID)
	if err != nil {
		return AcceptResult{}, err
	}
	if !ok {
		s.log.Info("lead acceptance lost race", "leadId", leadID, "freelancerId", freelancerID)
		return AcceptResult{}, domain.ErrLeadTaken()
	}
	s.log.Info("lead accepted", "leadId", leadID, "freelancerId", freelancerID)

	if err := s.tracker.RecordAccepted(ctx, freelancerID, leadID); err != nil {
		s.log.Warn("accepted interaction not recorded", "leadId", leadID, "freelancerId", freelancerID, "error", err)
	}

	s.bus.Publish(ctx, events.LeadAccepted{
		BaseEvent:        events.NewBaseEvent(),
		LeadID:           accepted.ID,
		LeadTitle:        accepted.Title,
		CustomerID:       accepted.CustomerID,
		FreelancerID:     freelancer.ID,
		FreelancerUserID: freelancer.UserID,
		FreelancerName:   freelancer.Name,
		FreelancerPhone:  phone.NormalizeE164In(freelancer.Phone, s.phoneRegion),
		FreelancerRating: freelancer.Rating,
		CategoryName:     freelancer.CategoryName,
	})

	customer, err := s.customerDetails(ctx, accepted)
	if err != nil {
		return AcceptResult{}, err
	}
	return AcceptResult{Lead: accepted, Customer: customer}, nil
}

// RespondInput carries a freelancer-initiated miss or ignore.
type RespondInput struct {
	Reason domain.MissedReason
	Notes  *string
}

// MarkMissed records that the freelancer could not take the lead.
func (s *Service) MarkMissed(ctx context.Context, actor Actor, freelancerID, leadID uuid.UUID, in RespondInput) error {
	if err := s.gateResponse(ctx, actor, freelancerID, leadID); err != nil {
		return err
	}
	return s.tracker.RecordMissed(ctx, freelancerID, leadID, in.Reason, in.Notes)
}

// MarkIgnored records that the freelancer dismissed the lead.
func (s *Service) MarkIgnored(ctx context.Context, actor Actor, freelancerID, leadID uuid.UUID, in RespondInput) error {
	if err := s.gateResponse(ctx, actor, freelancerID, leadID); err != nil {
		return err
	}
	return s.tracker.RecordIgnored(ctx, freelancerID, leadID, in.Notes)
}

func (s *Service) gateResponse(ctx context.Context, actor Actor, freelancerID, leadID uuid.UUID) error {
	if _, err := s.ownedFreelancer(ctx, actor, freelancerID); err != nil {
		return err
	}
	if _, err := s.getLead(ctx, leadID); err != nil {
		return err
	}
	hasPlan, err := s.plans.HasActiveLeadPlan(ctx, freelancerID)
	if err != nil {
		return fmt.Errorf("check lead plan: %w", err)
	}
	if !hasPlan {
		return domain.ErrNeedsSubscription()
	}
	return nil
}

// Feed is the polling fallback for a freelancer.
type Feed struct {
	Leads       []domain.Lead
	HasLeadPlan bool
}

// PendingFeed recomputes the pending leads matching the freelancer's
// category and area. It does not read interaction rows.
func (s *Service) PendingFeed(ctx context.Context, actor Actor, freelancerID uuid.UUID) (Feed, error) {
	freelancer, err := s.ownedFreelancer(ctx, actor, freelancerID)
	if err != nil {
		return Feed{}, err
	}
	hasPlan, err := s.plans.HasActiveLeadPlan(ctx, freelancerID)
	if err != nil {
		return Feed{}, fmt.Errorf("check lead plan: %w", err)
	}
	if freelancer.VerificationStatus != "approved" {
		return Feed{Leads: []domain.Lead{}, HasLeadPlan: hasPlan}, nil
	}

	leads, err := s.repo.ListPendingForArea(ctx, freelancer.CategoryID, freelancer.Area, feedLimit)
	if err != nil {
		return Feed{}, err
	}
	return Feed{Leads: leads, HasLeadPlan: hasPlan}, nil
}

// Page is a paginated slice.
type Page[T any] struct {
	Items    []T
	Total    int
	Page     int
	PageSize int
}

// History lists the freelancer's interaction rows, newest first.
func (s *Service) History(ctx context.Context, actor Actor, freelancerID uuid.UUID, page, pageSize int) (Page[repository.HistoryItem], error) {
	if _, err := s.ownedFreelancer(ctx, actor, freelancerID); err != nil {
		return Page[repository.HistoryItem]{}, err
	}
	page, pageSize = clampPage(page, pageSize)
	items, total, err := s.repo.ListHistory(ctx, freelancerID, pageSize, (page-1)*pageSize)
	if err != nil {
		return Page[repository.HistoryItem]{}, err
	}
	return Page[repository.HistoryItem]{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// CustomerPhone reveals the customer's phone to the freelancer who accepted
// the lead, while they hold an active subscription.
func (s *Service) CustomerPhone(ctx context.Context, actor Actor, freelancerID, leadID uuid.UUID) (CustomerDetails, error) {
	if _, err := s.ownedFreelancer(ctx, actor, freelancerID); err != nil {
		return CustomerDetails{}, err
	}
	lead, err := s.getLead(ctx, leadID)
	if err != nil {
		return CustomerDetails{}, err
	}

	active, err := s.plans.HasActiveSubscription(ctx, freelancerID)
	if err != nil {
		return CustomerDetails{}, fmt.Errorf("check subscription: %w", err)
	}
	if !active {
		return CustomerDetails{}, domain.ErrNeedsSubscription()
	}
	if !lead.AcceptedByFreelancer(freelancerID) {
		return CustomerDetails{}, domain.ErrNeedsAcceptance()
	}
	return s.customerDetails(ctx, lead)
}

// GetLead returns a lead to its customer, the freelancer who accepted it,
// or an admin.
func (s *Service) GetLead(ctx context.Context, actor Actor, leadID uuid.UUID) (domain.Lead, error) {
	lead, err := s.getLead(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if actor.Admin || lead.CustomerID == actor.UserID {
		return lead, nil
	}
	if lead.AcceptedBy != nil {
		winner, err := s.freelancers.GetFreelancer(ctx, *lead.AcceptedBy)
		if err == nil && winner.UserID == actor.UserID {
			return lead, nil
		}
	}
	return domain.Lead{}, apperr.Forbidden("lead belongs to another customer")
}

// ListMyLeads lists the customer's own leads.
func (s *Service) ListMyLeads(ctx context.Context, actor Actor, page, pageSize int) (Page[domain.Lead], error) {
	page, pageSize = clampPage(page, pageSize)
	leads, total, err := s.repo.ListByCustomer(ctx, actor.UserID, pageSize, (page-1)*pageSize)
	if err != nil {
		return Page[domain.Lead]{}, err
	}
	return Page[domain.Lead]{Items: leads, Total: total, Page: page, PageSize: pageSize}, nil
}

// CompleteLead marks an accepted lead as done.
func (s *Service) CompleteLead(ctx context.Context, actor Actor, leadID uuid.UUID) (domain.Lead, error) {
	lead, err := s.customerLead(ctx, actor, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if !domain.CanTransitionLead(lead.Status, domain.LeadCompleted) {
		return domain.Lead{}, apperr.Conflict(fmt.Sprintf("a %s lead cannot be completed", lead.Status))
	}
	updated, ok, err := s.repo.CompleteLead(ctx, leadID, lead.CustomerID)
	if err != nil {
		return domain.Lead{}, err
	}
	if !ok {
		return domain.Lead{}, apperr.Conflict("lead changed while completing")
	}
	return updated, nil
}

// CancelLead withdraws a pending or accepted lead.
func (s *Service) CancelLead(ctx context.Context, actor Actor, leadID uuid.UUID) (domain.Lead, error) {
	lead, err := s.customerLead(ctx, actor, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if !domain.CanTransitionLead(lead.Status, domain.LeadCancelled) {
		return domain.Lead{}, apperr.Conflict(fmt.Sprintf("a %s lead cannot be cancelled", lead.Status))
	}
	updated, ok, err := s.repo.CancelLead(ctx, leadID, lead.CustomerID)
	if err != nil {
		return domain.Lead{}, err
	}
	if !ok {
		return domain.Lead{}, apperr.Conflict("lead changed while cancelling")
	}

	s.bus.Publish(ctx, events.LeadCancelled{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     updated.ID,
		LeadTitle:  updated.Title,
		CustomerID: updated.CustomerID,
		AcceptedBy: updated.AcceptedBy,
	})
	return updated, nil
}

// InquiryResult reports whether a live channel received the inquiry.
type InquiryResult struct {
	Delivered bool
}

// SendInquiry lets a customer message a freelancer directly. The customer's
// phone is not shared.
func (s *Service) SendInquiry(ctx context.Context, actor Actor, freelancerID uuid.UUID, message string) (InquiryResult, error) {
	message = sanitize.Truncate(sanitize.Text(message), maxInquiryLength)
	if message == "" {
		return InquiryResult{}, apperr.Validation("message is required")
	}
	freelancer, err := s.freelancers.GetFreelancer(ctx, freelancerID)
	if err != nil {
		return InquiryResult{}, err
	}
	customer, err := s.customers.GetCustomerContact(ctx, actor.UserID)
	if err != nil {
		return InquiryResult{}, err
	}

	if err := s.notifier.Notify(ctx, ports.Notification{
		UserID:  freelancer.UserID,
		Type:    ports.NotificationInquiry,
		Title:   fmt.Sprintf("New inquiry from %s", customer.Name),
		Message: message,
		Link:    "/freelancer/inquiries",
	}); err != nil {
		return InquiryResult{}, err
	}

	delivered := s.pusher.Push(freelancer.UserID, ports.MessageNewInquiry, map[string]any{
		"customerId":   customer.ID,
		"customerName": customer.Name,
		"location":     customer.Location,
		"message":      message,
	})
	return InquiryResult{Delivered: delivered}, nil
}

func (s *Service) getLead(ctx context.Context, leadID uuid.UUID) (domain.Lead, error) {
	lead, err := s.repo.GetLead(ctx, leadID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, err
}

func (s *Service) customerLead(ctx context.Context, actor Actor, leadID uuid.UUID) (domain.Lead, error) {
	lead, err := s.getLead(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if lead.CustomerID != actor.UserID && !actor.Admin {
		return domain.Lead{}, apperr.Forbidden("lead belongs to another customer")
	}
	return lead, nil
}

func (s *Service) ownedFreelancer(ctx context.Context, actor Actor, freelancerID uuid.UUID) (ports.Freelancer, error) {
	freelancer, err := s.freelancers.GetFreelancer(ctx, freelancerID)
	if err != nil {
		return ports.Freelancer{}, err
	}
	if freelancer.UserID != actor.UserID && !actor.Admin {
		return ports.Freelancer{}, apperr.Forbidden("freelancer profile belongs to another user")
	}
	return freelancer, nil
}

func (s *Service) customerDetails(ctx context.Context, lead domain.Lead) (CustomerDetails, error) {
	contact, err := s.customers.GetCustomerContact(ctx, lead.CustomerID)
	if err != nil {
		return CustomerDetails{}, fmt.Errorf("load customer contact: %w", err)
	}
	location := contact.Location
	if location == "" {
		location = lead.Location
	}
	return CustomerDetails{
		Name:     contact.Name,
		Phone:    phone.NormalizeE164In(contact.Phone, s.phoneRegion),
		Location: location,
	}, nil
}

func (s *Service) categoryName(ctx context.Context, categoryID uuid.UUID) string {
	if s.categories == nil {
		return ""
	}
	name, err := s.categories.CategoryName(ctx, categoryID)
	if err != nil {
		s.log.Debug("category name lookup failed", "categoryId", categoryID, "error", err)
		return ""
	}
	return name
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
