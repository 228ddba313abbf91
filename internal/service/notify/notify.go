// Package notify delivers user notifications. Every sink is best-effort from the
// caller's point of view: failures are returned so they can be recorded, never
// used to roll back the write that triggered them.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/supplychain/internal/domain/models"
	"github.com/mamadbah2/supplychain/internal/id"
	"github.com/mamadbah2/supplychain/internal/repository"
	"github.com/mamadbah2/supplychain/internal/requestctx"
	"github.com/mamadbah2/supplychain/pkg/clients/whatsapp"
)

// Sink accepts a notification for one user.
type Sink interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Nop discards every notification.
type Nop struct{}

// Notify implements Sink.
func (Nop) Notify(context.Context, models.Notification) error { return nil }

// StoreSink persists notifications as in-app inbox entries.
type StoreSink struct {
	repo repository.NotificationRepository
	now  func() time.Time
}

// NewStoreSink builds a sink writing to repo.
func NewStoreSink(repo repository.NotificationRepository) *StoreSink {
	return &StoreSink{repo: repo, now: time.Now}
}

// Notify implements Sink.
func (s *StoreSink) Notify(ctx context.Context, n models.Notification) error {
	if n.UserID == "" {
		return errors.New("notification has no recipient")
	}
	if n.ID == "" {
		n.ID = id.New()
	}
	if n.TenantID == "" {
		n.TenantID = requestctx.Tenant(ctx)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	return nil
}

// Inbox returns the newest notifications for userID.
func (s *StoreSink) Inbox(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	items, err := s.repo.ListNotificationsByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	out := items[:0]
	for _, n := range items {
		if requestctx.Owns(ctx, n.TenantID) {
			out = append(out, n)
		}
	}
	return out, nil
}

// UserLookup resolves a notification recipient.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// WhatsAppSink pushes the notification text to the recipient's phone.
type WhatsAppSink struct {
	users  UserLookup
	client whatsapp.Client
	logger *zap.Logger
}

// NewWhatsAppSink builds a push sink.
func NewWhatsAppSink(users UserLookup, client whatsapp.Client, logger *zap.Logger) *WhatsAppSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhatsAppSink{users: users, client: client, logger: logger}
}

// Notify implements Sink. Users without a phone number are skipped.
func (s *WhatsAppSink) Notify(ctx context.Context, n models.Notification) error {
	user, err := s.users.GetUser(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("resolve user %s: %w", n.UserID, err)
	}
	if user.Phone == "" {
		s.logger.Debug("user has no phone, skipping push", zap.String("user_id", user.ID))
		return nil
	}

	msgID, err := s.client.SendText(ctx, user.Phone, fmt.Sprintf("*%s*\n%s", n.Title, n.Message))
	if err != nil {
		return fmt.Errorf("push to %s: %w", user.ID, err)
	}
	s.logger.Debug("notification pushed", zap.String("user_id", user.ID), zap.String("message_id", msgID))
	return nil
}

// Fanout sends each notification to every sink and joins their failures.
type Fanout struct {
	sinks []Sink
}

// NewFanout combines sinks. Nil sinks are ignored.
func NewFanout(sinks ...Sink) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Notify implements Sink.
func (f *Fanout) Notify(ctx context.Context, n models.Notification) error {
	if n.ID == "" {
		n.ID = id.New()
	}
	var errs []error
	for _, s := range f.sinks {
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
