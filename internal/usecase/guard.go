package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/learnovify/Learning-Management-System/internal/core/port"
	"github.com/learnovify/Learning-Management-System/internal/infra/config"
)

// LoginAttemptGuard enforces the brute-force lockout policy ahead of
// credential verification. Failure counters are keyed per client IP by
// default; the per_account strategy keys on the submitted identifier instead.
type LoginAttemptGuard struct {
	store  port.LoginAttemptStore
	cfg    config.AuthSettings
	logger *zap.Logger
	now    func() time.Time
}

// NewLoginAttemptGuard constructs a guard backed by the supplied attempt store.
func NewLoginAttemptGuard(store port.LoginAttemptStore, cfg config.AuthSettings, logger *zap.Logger) *LoginAttemptGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoginAttemptGuard{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the guard clock for deterministic tests.
func (g *LoginAttemptGuard) WithClock(clock func() time.Time) {
	if clock != nil {
		g.now = clock
	}
}

// ClientKey resolves the throttling identifier for a login attempt according
// to the configured lockout strategy.
func (g *LoginAttemptGuard) ClientKey(identifier, clientIP string) string {
	if g.cfg.LockoutStrategy == config.LockoutStrategyPerAccount {
		return "account:" + strings.ToLower(strings.TrimSpace(identifier))
	}
	return "ip:" + strings.TrimSpace(clientIP)
}

// CheckAllowed returns ErrLockedOut while a lockout window is active for the key.
func (g *LoginAttemptGuard) CheckAllowed(ctx context.Context, clientKey string) error {
	state, err := g.store.State(ctx, clientKey)
	if err != nil {
		return fmt.Errorf("read attempt state: %w", err)
	}

	if g.lockedAt(state, g.now()) {
		return ErrLockedOut
	}

	return nil
}

// RecordFailure registers a failed credential check and reports whether this
// failure engaged a new lockout.
func (g *LoginAttemptGuard) RecordFailure(ctx context.Context, clientKey string) (port.AttemptState, bool, error) {
	state, err := g.store.Fail(ctx, clientKey, g.cfg.MaxLoginFailures, g.cfg.LockoutDuration)
	if err != nil {
		return port.AttemptState{}, false, fmt.Errorf("record login failure: %w", err)
	}

	engaged := state.Failures == g.cfg.MaxLoginFailures && g.lockedAt(state, g.now())
	if engaged {
		g.logger.Warn("login attempt guard engaged lockout",
			zap.String("client_key", clientKey),
			zap.Int("failures", state.Failures),
			zap.Time("locked_until", state.LockedUntil),
		)
	}

	return state, engaged, nil
}

// RecordSuccess resets the failure counter after a successful login.
func (g *LoginAttemptGuard) RecordSuccess(ctx context.Context, clientKey string) error {
	if err := g.store.Clear(ctx, clientKey); err != nil {
		return fmt.Errorf("clear login attempts: %w", err)
	}
	return nil
}

func (g *LoginAttemptGuard) lockedAt(state port.AttemptState, now time.Time) bool {
	return !state.LockedUntil.IsZero() && state.LockedUntil.After(now)
}
