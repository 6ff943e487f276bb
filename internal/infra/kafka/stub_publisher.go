package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/learnovify/Learning-Management-System/internal/core/domain"
	"github.com/learnovify/Learning-Management-System/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, accountID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("account_id", accountID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishAccountRegistered logs account.registered events.
func (p *StubPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	payload := map[string]any{
		"account_id":    event.AccountID,
		"username":      event.Username,
		"email":         event.Email,
		"role":          event.Role,
		"registered_at": event.RegisteredAt,
		"metadata":      event.Metadata,
	}
	p.logEvent(eventTypeAccountRegistered, event.AccountID, event.RegisteredAt, payload)
	return nil
}

// PublishAccountLogin logs account.login events.
func (p *StubPublisher) PublishAccountLogin(_ context.Context, event domain.AccountLoginEvent) error {
	payload := map[string]any{
		"account_id": event.AccountID,
		"username":   event.Username,
		"role":       event.Role,
		"client_ip":  event.ClientIP,
		"user_agent": event.UserAgent,
		"login_at":   event.LoginAt,
		"metadata":   event.Metadata,
	}
	p.logEvent(eventTypeAccountLogin, event.AccountID, event.LoginAt, payload)
	return nil
}

// PublishAccountLogout logs account.logout events.
func (p *StubPublisher) PublishAccountLogout(_ context.Context, event domain.AccountLogoutEvent) error {
	payload := map[string]any{
		"account_id":     event.AccountID,
		"username":       event.Username,
		"tokens_removed": event.TokensRemoved,
		"logout_at":      event.LogoutAt,
		"metadata":       event.Metadata,
	}
	p.logEvent(eventTypeAccountLogout, event.AccountID, event.LogoutAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
