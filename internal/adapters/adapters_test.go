package adapters

import (
	"context"
	"errors"
	"testing"

	freelancersrepo "hirelocal_backend/internal/freelancers/repository"
	"hirelocal_backend/internal/leads/ports"
	"hirelocal_backend/internal/notification/inapp"
	usersrepo "hirelocal_backend/internal/users/repository"
	"hirelocal_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeProfiles struct {
	byID    map[uuid.UUID]freelancersrepo.Profile
	filter  freelancersrepo.MatchFilter
	failErr error
}

func (f *fakeProfiles) GetByID(_ context.Context, id uuid.UUID) (freelancersrepo.Profile, error) {
	if f.failErr != nil {
		return freelancersrepo.Profile{}, f.failErr
	}
	p, ok := f.byID[id]
	if !ok {
		return freelancersrepo.Profile{}, freelancersrepo.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) FindMatching(_ context.Context, filter freelancersrepo.MatchFilter) ([]freelancersrepo.Profile, error) {
	f.filter = filter
	out := make([]freelancersrepo.Profile, 0, len(f.byID))
	for _, p := range f.byID {
		out = append(out, p)
	}
	return out, nil
}

func TestFreelancerDirectory(t *testing.T) {
	id, userID, categoryID := uuid.New(), uuid.New(), uuid.New()
	profiles := &fakeProfiles{byID: map[uuid.UUID]freelancersrepo.Profile{
		id: {ID: id, UserID: userID, Name: "Ravi", CategoryID: categoryID, Area: "Malviya Nagar", VerificationStatus: "approved", Rating: 4.5},
	}}
	d := NewFreelancerDirectory(profiles)
	ctx := context.Background()

	f, err := d.GetFreelancer(ctx, id)
	if err != nil || f.UserID != userID || f.Area != "Malviya Nagar" || f.Rating != 4.5 {
		t.Fatalf("unexpected freelancer %+v err=%v", f, err)
	}

	owner, err := d.OwnerUserID(ctx, id)
	if err != nil || owner != userID {
		t.Fatalf("owner: %v %v", owner, err)
	}

	if _, err := d.GetFreelancer(ctx, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}

	matches, err := d.FindMatching(ctx, ports.MatchQuery{CategoryID: categoryID, Area: "malviya nagar", RequireAvailable: true})
	if err != nil || len(matches) != 1 {
		t.Fatalf("matches: %v %v", matches, err)
	}
	if profiles.filter.Area != "malviya nagar" || !profiles.filter.RequireAvailable || profiles.filter.CategoryID != categoryID {
		t.Fatalf("filter not forwarded: %+v", profiles.filter)
	}

	profiles.failErr = errors.New("connection reset")
	if _, err := d.OwnerUserID(ctx, id); err == nil || apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected wrapped infrastructure error, got %v", err)
	}
}

type fakeUsers struct {
	contacts   map[uuid.UUID]usersrepo.Contact
	categories map[uuid.UUID]string
}

func (f fakeUsers) GetContact(_ context.Context, id uuid.UUID) (usersrepo.Contact, error) {
	c, ok := f.contacts[id]
	if !ok {
		return usersrepo.Contact{}, usersrepo.ErrNotFound
	}
	return c, nil
}

func (f fakeUsers) CategoryName(_ context.Context, id uuid.UUID) (string, error) {
	name, ok := f.categories[id]
	if !ok {
		return "", usersrepo.ErrNotFound
	}
	return name, nil
}

func TestCustomerDirectory(t *testing.T) {
	customerID, categoryID := uuid.New(), uuid.New()
	d := NewCustomerDirectory(fakeUsers{
		contacts:   map[uuid.UUID]usersrepo.Contact{customerID: {ID: customerID, Name: "Asha", Phone: "98290 12345", Location: "Jaipur"}},
		categories: map[uuid.UUID]string{categoryID: "Plumbing"},
	})
	ctx := context.Background()

	c, err := d.GetCustomerContact(ctx, customerID)
	if err != nil || c.Name != "Asha" || c.Phone != "98290 12345" {
		t.Fatalf("unexpected contact %+v err=%v", c, err)
	}
	if _, err := d.GetCustomerContact(ctx, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if name, err := d.CategoryName(ctx, categoryID); err != nil || name != "Plumbing" {
		t.Fatalf("category: %q %v", name, err)
	}
	if _, err := d.CategoryName(ctx, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

type recordingSender struct{ got []inapp.SendParams }

func (s *recordingSender) Send(_ context.Context, p inapp.SendParams) (inapp.Notification, error) {
	s.got = append(s.got, p)
	return inapp.Notification{ID: uuid.New(), UserID: p.UserID, Type: p.Type}, nil
}

type recordingPublisher struct{ online bool }

func (p recordingPublisher) Publish(uuid.UUID, string, any) bool { return p.online }

func TestLeadNotifierAndPusher(t *testing.T) {
	sender := &recordingSender{}
	n := NewLeadNotifier(sender)
	userID := uuid.New()

	if err := n.Notify(context.Background(), ports.Notification{UserID: userID, Type: ports.NotificationLead, Title: "New lead", Link: "/leads/1"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sender.got) != 1 || sender.got[0].Type != ports.NotificationLead || sender.got[0].Link != "/leads/1" {
		t.Fatalf("unexpected send %+v", sender.got)
	}

	if !NewRealtimePusher(recordingPublisher{online: true}).Push(userID, ports.MessageLeadRing, nil) {
		t.Fatalf("expected push to report delivery")
	}
	if NewRealtimePusher(nil).Push(userID, ports.MessageLeadRing, nil) {
		t.Fatalf("pusher without hub must report false")
	}
}
