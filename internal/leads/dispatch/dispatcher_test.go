package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"hirelocal_backend/internal/leads/domain"
	"hirelocal_backend/internal/leads/ports"
	"hirelocal_backend/platform/logger"

	"github.com/google/uuid"
)

type event struct {
	kind string
	user uuid.UUID
}

type journal struct {
	mu     sync.Mutex
	events []event
}

func (j *journal) add(kind string, user uuid.UUID) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, event{kind, user})
}

func (j *journal) kindsFor(user uuid.UUID) []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []string
	for _, e := range j.events {
		if e.user == user {
			out = append(out, e.kind)
		}
	}
	return out
}

type fakeNotifier struct {
	j       *journal
	failFor map[uuid.UUID]bool
}

func (n *fakeNotifier) Notify(_ context.Context, notif ports.Notification) error {
	if n.failFor[notif.UserID] {
		return errors.New("insert failed")
	}
	n.j.add("notify:"+notif.Type, notif.UserID)
	return nil
}

type fakePusher struct {
	j      *journal
	online map[uuid.UUID]bool
	mu     sync.Mutex
	ring   []LeadRing
}

func (p *fakePusher) Push(user uuid.UUID, msgType string, payload any) bool {
	if !p.online[user] {
		return false
	}
	p.mu.Lock()
	p.ring = append(p.ring, payload.(LeadRing))
	p.mu.Unlock()
	p.j.add("push:"+msgType, user)
	return true
}

type fakeRecorder struct {
	j       *journal
	userOf  map[uuid.UUID]uuid.UUID
	paid    map[uuid.UUID]bool
	failAll bool
}

func (r *fakeRecorder) RecordNotified(_ context.Context, f, _ uuid.UUID) (bool, error) {
	if r.failAll {
		return false, errors.New("interaction insert failed")
	}
	if !r.paid[f] {
		return false, nil
	}
	r.j.add("interaction", r.userOf[f])
	return true, nil
}

type fixture struct {
	j        *journal
	notifier *fakeNotifier
	pusher   *fakePusher
	recorder *fakeRecorder
	matches  []ports.Freelancer
}

func newFixture(n int) *fixture {
	j := &journal{}
	fx := &fixture{
		j:        j,
		notifier: &fakeNotifier{j: j, failFor: map[uuid.UUID]bool{}},
		pusher:   &fakePusher{j: j, online: map[uuid.UUID]bool{}},
		recorder: &fakeRecorder{j: j, userOf: map[uuid.UUID]uuid.UUID{}, paid: map[uuid.UUID]bool{}},
	}
	for range n {
		f := ports.Freelancer{ID: uuid.New(), UserID: uuid.New()}
		fx.recorder.userOf[f.ID] = f.UserID
		fx.matches = append(fx.matches, f)
	}
	return fx
}

func (fx *fixture) dispatcher() *Dispatcher {
	return New(fx.notifier, fx.pusher, fx.recorder, 3, logger.Nop())
}

func testLead() domain.Lead {
	return domain.Lead{ID: uuid.New(), CategoryID: uuid.New(), Title: "Leaking tap", Location: "Malviya Nagar", BudgetMin: 1000, BudgetMax: 3000}
}

func TestDispatchPersistsEvenWithoutChannels(t *testing.T) {
	fx := newFixture(5)
	res := fx.dispatcher().Dispatch(context.Background(), testLead(), "Plumber", fx.matches)

	if res != (Result{Attempted: 5, Persisted: 5, Succeeded: 0, Failed: 0}) {
		t.Fatalf("unexpected result %+v", res)
	}
	for _, f := range fx.matches {
		if kinds := fx.j.kindsFor(f.UserID); len(kinds) != 1 || kinds[0] != "notify:lead" {
			t.Fatalf("expected only a durable notification for %s, got %v", f.UserID, kinds)
		}
	}
}

func TestDispatchOrdersInteractionBeforePush(t *testing.T) {
	fx := newFixture(2)
	paid, free := fx.matches[0], fx.matches[1]
	fx.recorder.paid[paid.ID] = true
	fx.pusher.online[paid.UserID] = true
	fx.pusher.online[free.UserID] = true

	res := fx.dispatcher().Dispatch(context.Background(), testLead(), "Plumber", fx.matches)
	if res.Succeeded != 2 || res.Persisted != 2 {
		t.Fatalf("unexpected result %+v", res)
	}

	got := fx.j.kindsFor(paid.UserID)
	want := []string{"notify:lead", "interaction", "push:lead_ring"}
	if len(got) != len(want) {
		t.Fatalf("expected %v for subscribed freelancer, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v for subscribed freelancer, got %v", want, got)
		}
	}
	if kinds := fx.j.kindsFor(free.UserID); len(kinds) != 2 || kinds[1] != "push:lead_ring" {
		t.Fatalf("unsubscribed freelancer must be notified and pushed without interaction, got %v", kinds)
	}
	for _, ring := range fx.pusher.ring {
		if !ring.Sound || !ring.RequiresAction || ring.CategoryName != "Plumber" {
			t.Fatalf("unexpected ring payload %+v", ring)
		}
	}
}

func TestDispatchToleratesPartialFailure(t *testing.T) {
	fx := newFixture(3)
	fx.notifier.failFor[fx.matches[0].UserID] = true
	fx.recorder.failAll = true
	for _, f := range fx.matches {
		fx.recorder.paid[f.ID] = true
		fx.pusher.online[f.UserID] = true
	}

	res := fx.dispatcher().Dispatch(context.Background(), testLead(), "", fx.matches)
	if res != (Result{Attempted: 3, Persisted: 2, Succeeded: 3, Failed: 1}) {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestDispatchNoMatches(t *testing.T) {
	fx := newFixture(0)
	if res := fx.dispatcher().Dispatch(context.Background(), testLead(), "", nil); res != (Result{}) {
		t.Fatalf("expected zero result, got %+v", res)
	}
}
