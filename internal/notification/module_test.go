package notification

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"hirelocal_backend/internal/email"
	"hirelocal_backend/internal/events"
	apphttp "hirelocal_backend/internal/http"
	"hirelocal_backend/internal/notification/inapp"
	usersrepo "hirelocal_backend/internal/users/repository"
	"hirelocal_backend/platform/httpkit"
	"hirelocal_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type testNotificationConfig struct{}

func (testNotificationConfig) GetAppBaseURL() string { return "https://app.example.com" }

type testSender struct {
	mu                   sync.Mutex
	leadAccepted         []email.LeadAccepted
	leadAcceptedTo       []string
	subscriptionActivate int
	err                  error
}

func (s *testSender) SendLeadAcceptedEmail(_ context.Context, to string, d email.LeadAccepted) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leadAccepted = append(s.leadAccepted, d)
	s.leadAcceptedTo = append(s.leadAcceptedTo, to)
	return s.err
}

func (s *testSender) SendSubscriptionActivatedEmail(context.Context, string, email.SubscriptionActivated) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptionActivate++
	return s.err
}

type memStore struct {
	mu    sync.Mutex
	items []inapp.Notification
}

func (s *memStore) Create(_ context.Context, p inapp.CreateParams) (inapp.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := inapp.Notification{
		ID:        uuid.New(),
		UserID:    p.UserID,
		Type:      p.Type,
		Title:     p.Title,
		Message:   p.Message,
		Link:      p.Link,
		CreatedAt: time.Now(),
	}
	s.items = append(s.items, n)
	return n, nil
}

func (s *memStore) List(_ context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]inapp.Notification, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []inapp.Notification
	for _, n := range s.items {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (s *memStore) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.items {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *memStore) MarkRead(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].UserID == userID {
			s.items[i].IsRead = true
			return nil
		}
	}
	return errors.New("not found")
}

func (s *memStore) MarkAllRead(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.items {
		if s.items[i].UserID == userID && !s.items[i].IsRead {
			s.items[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (s *memStore) Delete(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id && s.items[i].UserID == userID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func (s *memStore) byUser(userID uuid.UUID, typ string) []inapp.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []inapp.Notification
	for _, n := range s.items {
		if n.UserID == userID && n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

type pushed struct {
	userID  uuid.UUID
	msgType string
}

type testPublisher struct {
	mu     sync.Mutex
	online map[uuid.UUID]bool
	sent   []pushed
}

func (p *testPublisher) Publish(userID uuid.UUID, msgType string, _ any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.online[userID] {
		return false
	}
	p.sent = append(p.sent, pushed{userID: userID, msgType: msgType})
	return true
}

func (p *testPublisher) count(userID uuid.UUID, msgType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.sent {
		if s.userID == userID && s.msgType == msgType {
			n++
		}
	}
	return n
}

type testContacts struct {
	contacts map[uuid.UUID]usersrepo.Contact
	admins   []uuid.UUID
}

func (c testContacts) GetContact(_ context.Context, id uuid.UUID) (usersrepo.Contact, error) {
	contact, ok := c.contacts[id]
	if !ok {
		return usersrepo.Contact{}, usersrepo.ErrNotFound
	}
	return contact, nil
}

func (c testContacts) ListIDsByRole(_ context.Context, role string) ([]uuid.UUID, error) {
	if role != "admin" {
		return nil, nil
	}
	return c.admins, nil
}

type testOwners map[uuid.UUID]uuid.UUID

func (o testOwners) OwnerUserID(_ context.Context, freelancerID uuid.UUID) (uuid.UUID, error) {
	userID, ok := o[freelancerID]
	if !ok {
		return uuid.Nil, errors.New("profile not found")
	}
	return userID, nil
}

type fixture struct {
	m        *Module
	store    *memStore
	sender   *testSender
	pub      *testPublisher
	contacts testContacts
	owners   testOwners
}

func newFixture() *fixture {
	f := &fixture{
		store:    &memStore{},
		sender:   &testSender{},
		pub:      &testPublisher{online: map[uuid.UUID]bool{}},
		contacts: testContacts{contacts: map[uuid.UUID]usersrepo.Contact{}},
		owners:   testOwners{},
	}
	f.m = newModule(f.store, f.sender, testNotificationConfig{}, logger.Nop())
	f.m.SetPublisher(f.pub)
	f.m.SetContactReader(f.contacts)
	f.m.SetFreelancerOwners(f.owners)
	return f
}

func TestLeadAcceptedNotifiesCustomerOnEveryChannel(t *testing.T) {
	f := newFixture()
	customerID := uuid.New()
	leadID := uuid.New()
	f.contacts.contacts[customerID] = usersrepo.Contact{ID: customerID, Name: "Asha", Email: "asha@example.com"}
	f.pub.online[customerID] = true

	err := f.m.Handle(context.Background(), events.LeadAccepted{
		BaseEvent:        events.NewBaseEvent(),
		LeadID:           leadID,
		LeadTitle:        "Leaking tap",
		CustomerID:       customerID,
		FreelancerID:     uuid.New(),
		FreelancerName:   "Ravi",
		FreelancerPhone:  "+919829012345",
		FreelancerRating: 4.5,
		CategoryName:     "Plumbing",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	rows := f.store.byUser(customerID, TypeLeadAccepted)
	if len(rows) != 1 {
		t.Fatalf("expected one durable notification, got %d", len(rows))
	}
	if rows[0].Link != "/leads/"+leadID.String() {
		t.Fatalf("unexpected link %q", rows[0].Link)
	}
	if f.pub.count(customerID, MessageLeadAccepted) != 1 {
		t.Fatalf("expected lead_accepted push")
	}
	if f.pub.count(customerID, inapp.MessageUnreadCount) != 1 {
		t.Fatalf("expected unread count push")
	}
	if len(f.sender.leadAccepted) != 1 || f.sender.leadAcceptedTo[0] != "asha@example.com" {
		t.Fatalf("expected one email to the customer, got %v", f.sender.leadAcceptedTo)
	}
	if got := f.sender.leadAccepted[0].LeadURL; got != "https://app.example.com/leads/"+leadID.String() {
		t.Fatalf("unexpected lead url %q", got)
	}
}

func TestLeadAcceptedEmailFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	customerID := uuid.New()
	f.contacts.contacts[customerID] = usersrepo.Contact{ID: customerID, Email: "asha@example.com"}
	f.sender.err = errors.New("smtp down")

	err := f.m.Handle(context.Background(), events.LeadAccepted{LeadID: uuid.New(), CustomerID: customerID})
	if err != nil {
		t.Fatalf("expected email failure to be swallowed, got %v", err)
	}
	if len(f.store.byUser(customerID, TypeLeadAccepted)) != 1 {
		t.Fatalf("durable notification must still be written")
	}
}

func TestLeadAcceptedWithoutEmailSkipsSender(t *testing.T) {
	f := newFixture()
	customerID := uuid.New()
	f.contacts.contacts[customerID] = usersrepo.Contact{ID: customerID, Name: "Asha"}

	if err := f.m.Handle(context.Background(), events.LeadAccepted{LeadID: uuid.New(), CustomerID: customerID}); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(f.sender.leadAccepted) != 0 {
		t.Fatalf("expected no email without an address")
	}
}

func TestLeadCancelledNotifiesWinner(t *testing.T) {
	f := newFixture()
	freelancerID := uuid.New()
	winnerUser := uuid.New()
	f.owners[freelancerID] = winnerUser

	err := f.m.Handle(context.Background(), events.LeadCancelled{
		LeadID:     uuid.New(),
		LeadTitle:  "Leaking tap",
		CustomerID: uuid.New(),
		AcceptedBy: &freelancerID,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(f.store.byUser(winnerUser, TypeLeadCancelled)) != 1 {
		t.Fatalf("expected winner to be notified")
	}

	if err := f.m.Handle(context.Background(), events.LeadCancelled{LeadID: uuid.New()}); err != nil {
		t.Fatalf("pending cancel: %v", err)
	}
}

func TestSubscriptionActivatedAndExpired(t *testing.T) {
	f := newFixture()
	freelancerID := uuid.New()
	userID := uuid.New()
	f.owners[freelancerID] = userID
	f.contacts.contacts[userID] = usersrepo.Contact{ID: userID, Name: "Ravi", Email: "ravi@example.com"}
	f.pub.online[userID] = true

	err := f.m.Handle(context.Background(), events.SubscriptionActivated{
		SubscriptionID: uuid.New(),
		FreelancerID:   freelancerID,
		Type:           "lead",
		EndDate:        time.Date(2026, 11, 18, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("activated: %v", err)
	}
	rows := f.store.byUser(userID, TypeSubscriptionActivated)
	if len(rows) != 1 || rows[0].Message != "Your lead plan is active until 18 Nov 2026." {
		t.Fatalf("unexpected activation notifications: %+v", rows)
	}
	if f.sender.subscriptionActivate != 1 {
		t.Fatalf("expected activation email")
	}

	if err := f.m.Handle(context.Background(), events.SubscriptionExpired{SubscriptionID: uuid.New(), FreelancerID: freelancerID, Type: "badge"}); err != nil {
		t.Fatalf("expired: %v", err)
	}
	if len(f.store.byUser(userID, TypeSubscriptionExpired)) != 1 {
		t.Fatalf("expected expiry notification")
	}
	if f.pub.count(userID, MessageSubscriptionChanged) != 2 {
		t.Fatalf("expected two subscription pushes")
	}
}

func TestReconciliationFansOutToAdmins(t *testing.T) {
	f := newFixture()
	admins := []uuid.UUID{uuid.New(), uuid.New()}
	f.contacts.admins = admins
	f.m.SetContactReader(f.contacts)

	err := f.m.Handle(context.Background(), events.SubscriptionReconciliationRequired{
		SubscriptionID: uuid.New(),
		FreelancerID:   uuid.New(),
		PaymentID:      "pay_123",
		ErrorType:      "DUPLICATE_PLAN",
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	for _, id := range admins {
		if len(f.store.byUser(id, TypeSubscriptionReconcile)) != 1 {
			t.Fatalf("admin %s was not notified", id)
		}
	}
}

func TestRegisterHandlersSubscribesToBus(t *testing.T) {
	f := newFixture()
	bus := events.NewInMemoryBus(logger.Nop())
	f.m.RegisterHandlers(bus)

	customerID := uuid.New()
	if err := bus.PublishSync(context.Background(), events.LeadAccepted{LeadID: uuid.New(), CustomerID: customerID}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(f.store.byUser(customerID, TypeLeadAccepted)) != 1 {
		t.Fatalf("expected bus delivery to reach the module")
	}
}

func TestNotificationCenterRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture()
	userID := uuid.New()
	for i := 0; i < 3; i++ {
		if _, err := f.m.InAppService().Send(context.Background(), inapp.SendParams{UserID: userID, Type: "lead", Title: "New lead"}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	r := gin.New()
	protected := r.Group("/api/v1")
	protected.Use(func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, userID)
		c.Next()
	})
	f.m.RegisterRoutes(&apphttp.RouterContext{Engine: r, Protected: protected})

	do := func(method, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w
	}

	if w := do(http.MethodGet, "/api/v1/notifications/unread-count"); w.Code != http.StatusOK || w.Body.String() != `{"count":3}` {
		t.Fatalf("unread-count: %d %s", w.Code, w.Body.String())
	}

	first := f.store.byUser(userID, "lead")[0]
	if w := do(http.MethodPatch, "/api/v1/notifications/"+first.ID.String()+"/read"); w.Code != http.StatusOK {
		t.Fatalf("mark read: %d", w.Code)
	}
	if w := do(http.MethodPatch, "/api/v1/notifications/read-all"); w.Code != http.StatusOK {
		t.Fatalf("read all: %d", w.Code)
	}
	if w := do(http.MethodDelete, "/api/v1/notifications/"+first.ID.String()); w.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", w.Code)
	}
	if w := do(http.MethodDelete, "/api/v1/notifications/not-a-uuid"); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid id: %d", w.Code)
	}
	if w := do(http.MethodGet, "/api/v1/notifications?unreadOnly=true"); w.Code != http.StatusOK || w.Body.String() == "" {
		t.Fatalf("list: %d", w.Code)
	}
}
