package inapp

import (
	"context"

	"hirelocal_backend/platform/logger"

	"github.com/google/uuid"
)

// UnreadPublisher tells a connected client its unread count changed.
type UnreadPublisher interface {
	Publish(userID uuid.UUID, msgType string, payload any) bool
}

// MessageUnreadCount is pushed after a notification is stored.
const MessageUnreadCount = "unread_count"

type Service struct {
	repo Store
	pub  UnreadPublisher
	log  *logger.Logger
}

func NewService(repo Store, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

// SetPublisher injects the real-time hub, which is built after this service.
func (s *Service) SetPublisher(pub UnreadPublisher) {
	s.pub = pub
}

type SendParams struct {
	UserID  uuid.UUID
	Type    string
	Title   string
	Message string
	Link    string
}

// Send persists the notification. The row is the durable record; a live
// client also gets its new unread count.
func (s *Service) Send(ctx context.Context, p SendParams) (Notification, error) {
	notif, err := s.repo.Create(ctx, CreateParams{
		UserID:  p.UserID,
		Type:    p.Type,
		Title:   p.Title,
		Message: p.Message,
		Link:    p.Link,
	})
	if err != nil {
		s.log.Error("failed to persist notification", "error", err, "userId", p.UserID, "type", p.Type)
		return Notification{}, err
	}

	if s.pub != nil {
		if count, err := s.repo.CountUnread(ctx, p.UserID); err == nil {
			s.pub.Publish(p.UserID, MessageUnreadCount, map[string]int{"count": count})
		}
	}
	return notif, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, pageSize int) ([]Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	offset := (page - 1) * pageSize
	return s.repo.List(ctx, userID, unreadOnly, pageSize, offset)
}

func (s *Service) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}
