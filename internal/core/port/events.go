package port

import (
	"context"

	"github.com/learnovify/Learning-Management-System/internal/core/domain"
)

// EventPublisher publishes audit/notification events to the message bus.
type EventPublisher interface {
	PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error
	PublishAccountLogin(ctx context.Context, event domain.AccountLoginEvent) error
	PublishAccountLogout(ctx context.Context, event domain.AccountLogoutEvent) error
}
