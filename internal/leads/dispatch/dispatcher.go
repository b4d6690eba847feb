// Package dispatch fans a new lead out to its matched freelancers.
package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"hirelocal_backend/internal/leads/domain"
	"hirelocal_backend/internal/leads/ports"
	"hirelocal_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// InteractionRecorder creates the notified audit row for subscribed freelancers.
type InteractionRecorder interface {
	RecordNotified(ctx context.Context, freelancerID, leadID uuid.UUID) (bool, error)
}

// Result is the observability triple returned to the lead creator, plus the
// number of durable rows written.
type Result struct {
	Attempted int `json:"attempted"`
	Persisted int `json:"persisted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// LeadRing is the real-time payload of a lead_ring message. Customer
// contact details are never part of it.
type LeadRing struct {
	LeadID         uuid.UUID `json:"leadId"`
	CategoryID     uuid.UUID `json:"categoryId"`
	CategoryName   string    `json:"categoryName,omitempty"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	BudgetMin      int       `json:"budgetMin"`
	BudgetMax      int       `json:"budgetMax"`
	Location       string    `json:"location"`
	Pincode        *string   `json:"pincode,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	Sound          bool      `json:"sound"`
	RequiresAction bool      `json:"requiresAction"`
}

// Dispatcher is the Notification Dispatcher.
type Dispatcher struct {
	notifier    ports.Notifier
	pusher      ports.RealtimePusher
	recorder    InteractionRecorder
	concurrency int
	log         *logger.Logger
}

// New creates a dispatcher. concurrency bounds parallel per-freelancer work.
func New(notifier ports.Notifier, pusher ports.RealtimePusher, recorder InteractionRecorder, concurrency int, log *logger.Logger) *Dispatcher {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Dispatcher{
		notifier:    notifier,
		pusher:      pusher,
		recorder:    recorder,
		concurrency: concurrency,
		log:         log,
	}
}

// Dispatch notifies every match. Per freelancer it writes the durable
// notification, records the interaction for subscribed freelancers, then
// pushes lead_ring if a channel is open. Failures are counted, never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, lead domain.Lead, categoryName string, matches []ports.Freelancer) Result {
	ring := LeadRing{
		LeadID:         lead.ID,
		CategoryID:     lead.CategoryID,
		CategoryName:   categoryName,
		Title:          lead.Title,
		Description:    lead.Description,
		BudgetMin:      lead.BudgetMin,
		BudgetMax:      lead.BudgetMax,
		Location:       lead.Location,
		Pincode:        lead.Pincode,
		CreatedAt:      lead.CreatedAt,
		Sound:          true,
		RequiresAction: true,
	}

	var persisted, pushed, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for _, f := range matches {
		g.Go(func() error {
			p, ok, err := d.deliver(gctx, lead, ring, f)
			if err != nil {
				failed.Add(1)
			}
			if p {
				persisted.Add(1)
			}
			if ok {
				pushed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := Result{
		Attempted: len(matches),
		Persisted: int(persisted.Load()),
		Succeeded: int(pushed.Load()),
		Failed:    int(failed.Load()),
	}
	d.log.Dispatch(lead.ID.String(), res.Attempted, res.Persisted, res.Succeeded, res.Failed)
	return res
}

func (d *Dispatcher) deliver(ctx context.Context, lead domain.Lead, ring LeadRing, f ports.Freelancer) (persisted, pushed bool, err error) {
	notifyErr := d.notifier.Notify(ctx, ports.Notification{
		UserID:  f.UserID,
		Type:    ports.NotificationLead,
		Title:   "New lead near you",
		Message: fmt.Sprintf("%s in %s (budget %d-%d)", lead.Title, lead.Location, lead.BudgetMin, lead.BudgetMax),
		Link:    fmt.Sprintf("/freelancer/leads/%s", lead.ID),
	})
	if notifyErr != nil {
		d.log.Warn("lead notification not persisted",
			"leadId", lead.ID,
			"freelancerId", f.ID,
			"error", notifyErr,
		)
	}

	if _, recErr := d.recorder.RecordNotified(ctx, f.ID, lead.ID); recErr != nil {
		d.log.Warn("lead interaction not recorded",
			"leadId", lead.ID,
			"freelancerId", f.ID,
			"error", recErr,
		)
	}

	pushed = d.pusher.Push(f.UserID, ports.MessageLeadRing, ring)
	return notifyErr == nil, pushed, notifyErr
}
