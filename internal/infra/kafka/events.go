package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/learnovify/Learning-Management-System/internal/core/domain"
	"github.com/learnovify/Learning-Management-System/internal/core/port"
	"github.com/learnovify/Learning-Management-System/internal/infra/config"
)

const schemaVersion = "1.0"

// Event types published by the auth service. The configured topic prefix is
// prepended by the producer, e.g. lsm.account.registered.
const (
	eventTypeAccountRegistered = "account.registered"
	eventTypeAccountLogin      = "account.login"
	eventTypeAccountLogout     = "account.logout"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	AccountID string           `json:"account_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, accountID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		AccountID: accountID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(accountID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishAccountRegistered publishes account.registered events.
func (p *EventPublisher) PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error {
	payload := struct {
		AccountID    string         `json:"account_id"`
		Username     string         `json:"username"`
		Email        string         `json:"email"`
		Role         string         `json:"role"`
		RegisteredAt time.Time      `json:"registered_at"`
		Metadata     map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:    event.AccountID,
		Username:     event.Username,
		Email:        event.Email,
		Role:         string(event.Role),
		RegisteredAt: event.RegisteredAt.UTC(),
		Metadata:     event.Metadata,
	}

	return p.publish(ctx, event.EventID, eventTypeAccountRegistered, event.AccountID, event.RegisteredAt, payload)
}

// PublishAccountLogin publishes account.login events.
func (p *EventPublisher) PublishAccountLogin(ctx context.Context, event domain.AccountLoginEvent) error {
	payload := struct {
		AccountID string         `json:"account_id"`
		Username  string         `json:"username"`
		Role      string         `json:"role"`
		ClientIP  *string        `json:"client_ip,omitempty"`
		UserAgent *string        `json:"user_agent,omitempty"`
		LoginAt   time.Time      `json:"login_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		AccountID: event.AccountID,
		Username:  event.Username,
		Role:      string(event.Role),
		ClientIP:  event.ClientIP,
		UserAgent: event.UserAgent,
		LoginAt:   event.LoginAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, eventTypeAccountLogin, event.AccountID, event.LoginAt, payload)
}

// PublishAccountLogout publishes account.logout events.
func (p *EventPublisher) PublishAccountLogout(ctx context.Context, event domain.AccountLogoutEvent) error {
	payload := struct {
		AccountID     string         `json:"account_id"`
		Username      string         `json:"username"`
		TokensRemoved int            `json:"tokens_removed"`
		LogoutAt      time.Time      `json:"logout_at"`
		Metadata      map[string]any `json:"metadata,omitempty"`
	}{
		AccountID:     event.AccountID,
		Username:      event.Username,
		TokensRemoved: event.TokensRemoved,
		LogoutAt:      event.LogoutAt.UTC(),
		Metadata:      event.Metadata,
	}

	return p.publish(ctx, event.EventID, eventTypeAccountLogout, event.AccountID, event.LogoutAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
