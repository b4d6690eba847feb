package management

import (
	"context"
	"sort"
	"sync"
	"time"

	"hirelocal_backend/internal/events"
	"hirelocal_backend/internal/leads/dispatch"
	"hirelocal_backend/internal/leads/domain"
	"hirelocal_backend/internal/leads/matching"
	"hirelocal_backend/internal/leads/ports"
	"hirelocal_backend/internal/leads/repository"
	"hirelocal_backend/internal/leads/tracker"
	"hirelocal_backend/platform/apperr"
	"hirelocal_backend/platform/logger"

	"github.com/google/uuid"
)

type ikey struct{ f, l uuid.UUID }

// memRepo models the Postgres conditional writes under a single mutex.
type memRepo struct {
	mu           sync.Mutex
	leads        map[uuid.UUID]*domain.Lead
	interactions map[ikey]*domain.Interaction
}

func newMemRepo() *memRepo {
	return &memRepo{leads: map[uuid.UUID]*domain.Lead{}, interactions: map[ikey]*domain.Interaction{}}
}

func (r *memRepo) CreateLead(_ context.Context, p repository.CreateLeadParams) (domain.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	lead := domain.Lead{ID: uuid.New(), CustomerID: p.CustomerID, CategoryID: p.CategoryID, Title: p.Title,
		Description: p.Description, BudgetMin: p.BudgetMin, BudgetMax: p.BudgetMax, Location: p.Location,
		Pincode: p.Pincode, Status: domain.LeadPending, CreatedAt: now, UpdatedAt: now}
	r.leads[lead.ID] = &lead
	return lead, nil
}

func (r *memRepo) GetLead(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	return *lead, nil
}

func (r *memRepo) AcceptPending(_ context.Context, leadID, freelancerID uuid.UUID) (domain.Lead, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[leadID]
	if !ok || lead.Status != domain.LeadPending {
		return domain.Lead{}, false, nil
	}
	now := time.Now()
	lead.Status, lead.AcceptedBy, lead.AcceptedAt = domain.LeadAccepted, &freelancerID, &now
	return *lead, true, nil
}

func (r *memRepo) move(leadID, customerID uuid.UUID, to domain.LeadStatus, from ...domain.LeadStatus) (domain.Lead, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[leadID]
	if !ok || lead.CustomerID != customerID {
		return domain.Lead{}, false, nil
	}
	for _, f := range from {
		if lead.Status == f {
			lead.Status = to
			return *lead, true, nil
		}
	}
	return domain.Lead{}, false, nil
}

func (r *memRepo) CompleteLead(_ context.Context, leadID, customerID uuid.UUID) (domain.Lead, bool, error) {
	return r.move(leadID, customerID, domain.LeadCompleted, domain.LeadAccepted)
}

func (r *memRepo) CancelLead(_ context.Context, leadID, customerID uuid.UUID) (domain.Lead, bool, error) {
	return r.move(leadID, customerID, domain.LeadCancelled, domain.LeadPending, domain.LeadAccepted)
}

func (r *memRepo) ListByCustomer(_ context.Context, customerID uuid.UUID, limit, offset int) ([]domain.Lead, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Lead
	for _, l := range r.leads {
		if l.CustomerID == customerID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if offset >= total {
		return []domain.Lead{}, total, nil
	}
	end := min(offset+limit, total)
	return out[offset:end], total, nil
}

func (r *memRepo) ListPendingForArea(_ context.Context, categoryID uuid.UUID, area string, limit int) ([]domain.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Lead{}
	for _, l := range r.leads {
		if l.Status == domain.LeadPending && l.CategoryID == categoryID && domain.NormalizeArea(l.Location) == domain.NormalizeArea(area) {
			out = append(out, *l)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) ListHistory(_ context.Context, freelancerID uuid.UUID, limit, offset int) ([]repository.HistoryItem, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []repository.HistoryItem
	for k, it := range r.interactions {
		if k.f == freelancerID {
			l := r.leads[k.l]
			out = append(out, repository.HistoryItem{Interaction: *it, LeadTitle: l.Title, Location: l.Location, LeadStatus: l.Status})
		}
	}
	return out, len(out), nil
}

func (r *memRepo) InsertNotified(_ context.Context, f, l uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.interactions[ikey{f, l}]; ok {
		return false, nil
	}
	r.interactions[ikey{f, l}] = &domain.Interaction{FreelancerID: f, LeadID: l, Status: domain.InteractionNotified, NotifiedAt: time.Now()}
	return true, nil
}

func (r *memRepo) RecordTerminal(_ context.Context, p repository.TerminalParams) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	it, ok := r.interactions[ikey{p.FreelancerID, p.LeadID}]
	if !ok {
		r.interactions[ikey{p.FreelancerID, p.LeadID}] = &domain.Interaction{FreelancerID: p.FreelancerID, LeadID: p.LeadID,
			Status: p.Status, NotifiedAt: now, RespondedAt: &now, MissedReason: p.MissedReason, Notes: p.Notes}
		return true, nil
	}
	if it.Status != domain.InteractionNotified {
		return false, nil
	}
	it.Status, it.RespondedAt, it.MissedReason, it.Notes = p.Status, &now, p.MissedReason, p.Notes
	return true, nil
}

func (r *memRepo) SweepStale(context.Context, time.Time, int, string) ([]repository.MissedRow, error) {
	return nil, nil
}

func (r *memRepo) interaction(f, l uuid.UUID) (domain.Interaction, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.interactions[ikey{f, l}]
	if !ok {
		return domain.Interaction{}, false
	}
	return *it, true
}

type memFreelancers struct {
	byID map[uuid.UUID]ports.Freelancer
}

func (m *memFreelancers) GetFreelancer(_ context.Context, id uuid.UUID) (ports.Freelancer, error) {
	f, ok := m.byID[id]
	if !ok {
		return ports.Freelancer{}, apperr.NotFound("freelancer not found")
	}
	return f, nil
}

func (m *memFreelancers) FindMatching(context.Context, ports.MatchQuery) ([]ports.Freelancer, error) {
	out := make([]ports.Freelancer, 0, len(m.byID))
	for _, f := range m.byID {
		out = append(out, f)
	}
	return out, nil
}

type memCustomers map[uuid.UUID]ports.CustomerContact

func (m memCustomers) GetCustomerContact(_ context.Context, id uuid.UUID) (ports.CustomerContact, error) {
	c, ok := m[id]
	if !ok {
		return ports.CustomerContact{}, apperr.NotFound("user not found")
	}
	return c, nil
}

type memPlans struct {
	mu   sync.Mutex
	lead map[uuid.UUID]bool
	any  map[uuid.UUID]bool
}

func newMemPlans() *memPlans {
	return &memPlans{lead: map[uuid.UUID]bool{}, any: map[uuid.UUID]bool{}}
}

func (p *memPlans) grantLeadPlan(f uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lead[f], p.any[f] = true, true
}

func (p *memPlans) HasActiveLeadPlan(_ context.Context, f uuid.UUID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lead[f], nil
}

func (p *memPlans) HasActiveSubscription(_ context.Context, f uuid.UUID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.any[f], nil
}

// memNotifications is both the durable store and the real-time channel.
type memNotifications struct {
	mu     sync.Mutex
	rows   []ports.Notification
	online map[uuid.UUID]bool
	pushed []string
}

func (n *memNotifications) Notify(_ context.Context, notif ports.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rows = append(n.rows, notif)
	return nil
}

func (n *memNotifications) Push(user uuid.UUID, msgType string, _ any) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.online[user] {
		return false
	}
	n.pushed = append(n.pushed, msgType)
	return true
}

func (n *memNotifications) unread(user uuid.UUID, typ string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, r := range n.rows {
		if r.UserID == user && r.Type == typ {
			count++
		}
	}
	return count
}

type harness struct {
	svc         *Service
	repo        *memRepo
	freelancers *memFreelancers
	customers   memCustomers
	plans       *memPlans
	notes       *memNotifications
	bus         *events.InMemoryBus

	plumber  uuid.UUID
	customer ports.CustomerContact
}

func newHarness() *harness {
	log := logger.Nop()
	h := &harness{
		repo:        newMemRepo(),
		freelancers: &memFreelancers{byID: map[uuid.UUID]ports.Freelancer{}},
		customers:   memCustomers{},
		plans:       newMemPlans(),
		notes:       &memNotifications{online: map[uuid.UUID]bool{}},
		bus:         events.NewInMemoryBus(log),
		plumber:     uuid.New(),
	}
	h.customer = ports.CustomerContact{ID: uuid.New(), Name: "Asha Verma", Phone: "98290 12345", Location: "Malviya Nagar, Jaipur"}
	h.customers[h.customer.ID] = h.customer

	trk := tracker.New(h.repo, h.plans, h.notes, nil, 30*time.Minute, log)
	h.svc = New(Deps{
		Repo:        h.repo,
		Freelancers: h.freelancers,
		Customers:   h.customers,
		Plans:       h.plans,
		Matcher:     matching.New(h.freelancers, false),
		Dispatcher:  dispatch.New(h.notes, h.notes, trk, 4, log),
		Tracker:     trk,
		Notifier:    h.notes,
		Pusher:      h.notes,
		Bus:         h.bus,
		PhoneRegion: "IN",
		Log:         log,
	})
	return h
}

func (h *harness) addFreelancer(name, area, verification string) ports.Freelancer {
	f := ports.Freelancer{ID: uuid.New(), UserID: uuid.New(), Name: name, Phone: "+91 99887 76655",
		CategoryID: h.plumber, Area: area, VerificationStatus: verification, IsAvailable: true, Rating: 4.5}
	h.freelancers.byID[f.ID] = f
	return f
}

func (h *harness) customerActor() Actor { return Actor{UserID: h.customer.ID} }

func actorFor(f ports.Freelancer) Actor { return Actor{UserID: f.UserID} }

func (h *harness) createLead() CreateLeadResult {
	res, err := h.svc.CreateLead(context.Background(), h.customerActor(), CreateLeadInput{
		CategoryID: h.plumber, Title: "Leaking kitchen tap", BudgetMin: 1000, BudgetMax: 3000, Location: "Malviya Nagar",
	})
	if err != nil {
		panic(err)
	}
	return res
}
