package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/learnovify/Learning-Management-System/internal/core/domain"
	"github.com/learnovify/Learning-Management-System/internal/core/port"
	"github.com/learnovify/Learning-Management-System/internal/infra/config"
	"github.com/learnovify/Learning-Management-System/internal/infra/logger"
	"github.com/learnovify/Learning-Management-System/internal/infra/security"
	"github.com/learnovify/Learning-Management-System/internal/infra/telemetry"
	"github.com/learnovify/Learning-Management-System/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the identifier/password pair did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLockedOut indicates the client is inside an active lockout window.
	ErrLockedOut = errors.New("too many failed login attempts")
	// ErrAccountDisabled indicates the account exists but is not allowed to authenticate.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrUserNotFound indicates the referenced account does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidRefreshToken indicates the refresh token is unknown.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrExpiredRefreshToken indicates the refresh token exists but has elapsed.
	ErrExpiredRefreshToken = errors.New("refresh token expired")
	// ErrInvalidAccessToken indicates the access token failed verification or was revoked.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the access token is past its expiry.
	ErrExpiredAccessToken = errors.New("access token expired")
	// ErrLogoutFailure aggregates partial failures during logout.
	ErrLogoutFailure = errors.New("logout completed with errors")
)

const refreshTokenByteLength = 48

// AuthService orchestrates credential verification, token issuance, refresh,
// and logout.
type AuthService struct {
	cfg           *config.AppConfig
	accounts      port.AccountRepository
	refreshTokens port.RefreshTokenRepository
	guard         *LoginAttemptGuard
	hasher        port.PasswordHasher
	jwt           *security.JWTManager
	denylist      port.AccessTokenDenylist
	publisher     port.EventPublisher
	metrics       *telemetry.AuthMetrics
	logger        *zap.Logger
	now           func() time.Time
	newID         func() string
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	cfg *config.AppConfig,
	accounts port.AccountRepository,
	refreshTokens port.RefreshTokenRepository,
	guard *LoginAttemptGuard,
	hasher port.PasswordHasher,
	jwtManager *security.JWTManager,
	denylist port.AccessTokenDenylist,
	publisher port.EventPublisher,
	metrics *telemetry.AuthMetrics,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}

	service := &AuthService{
		cfg:           cfg,
		accounts:      accounts,
		refreshTokens: refreshTokens,
		guard:         guard,
		hasher:        hasher,
		jwt:           jwtManager,
		denylist:      denylist,
		publisher:     publisher,
		metrics:       metrics,
		logger:        log,
	}
	service.now = func() time.Time { return time.Now().UTC() }
	service.newID = uuid.NewString
	return service
}

// WithClock overrides the service clock for deterministic tests.
func (s *AuthService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// LoginInput carries a credential verification request.
type LoginInput struct {
	Identifier string
	Password   string
	ClientIP   string
	UserAgent  string
}

// LoginResult aggregates the artifacts of a successful login.
type LoginResult struct {
	Account          *domain.Account
	AccessToken      string
	RefreshToken     string
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
}

// Login verifies the identifier/password pair and issues a token pair. Failed
// verifications feed the attempt guard; an active lockout rejects the attempt
// before any credential work happens.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	identifier := strings.TrimSpace(input.Identifier)
	if identifier == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	clientKey := s.guard.ClientKey(identifier, input.ClientIP)
	if err := s.guard.CheckAllowed(ctx, clientKey); err != nil {
		if errors.Is(err, ErrLockedOut) {
			s.countLogin("locked_out")
			return nil, ErrLockedOut
		}
		return nil, err
	}

	account, err := s.accounts.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.failAttempt(ctx, clientKey)
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	match, err := s.hasher.Verify(input.Password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !match {
		return nil, s.failAttempt(ctx, clientKey)
	}

	if !account.Enabled {
		s.countLogin("disabled")
		return nil, ErrAccountDisabled
	}

	if err := s.guard.RecordSuccess(ctx, clientKey); err != nil {
		s.logger.Warn("reset attempt counter failed", zap.Error(err))
	}

	now := s.now()
	accessToken, expiresAt, err := s.IssueAccessToken(account)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.IssueRefreshToken(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.TouchLastLogin(ctx, account.ID, now); err != nil {
		s.logger.Warn("update last login failed",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
	}

	s.countLogin("success")
	s.publishLogin(ctx, account, input, now)

	s.logger.Info("login succeeded",
		zap.String("account_id", account.ID),
		zap.String("client_ip", logger.MaskIP(input.ClientIP)),
	)

	return &LoginResult{
		Account:          account,
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		ExpiresAt:        expiresAt,
		RefreshExpiresAt: now.Add(s.cfg.JWT.RefreshTokenTTL),
	}, nil
}

// failAttempt records the failure and maps it to the caller-facing error.
func (s *AuthService) failAttempt(ctx context.Context, clientKey string) error {
	_, engaged, err := s.guard.RecordFailure(ctx, clientKey)
	if err != nil {
		return err
	}
	if engaged {
		if s.metrics != nil {
			s.metrics.Lockouts.Inc()
		}
	}
	s.countLogin("failure")
	// The threshold-crossing attempt still reads as bad credentials; the
	// lockout surfaces on the next attempt via the pre-check.
	return ErrInvalidCredentials
}

// IssueAccessToken signs a short-lived JWT for the account.
func (s *AuthService) IssueAccessToken(account *domain.Account) (string, time.Time, error) {
	now := s.now()
	claims, err := security.NewAccessTokenClaims(security.AccessTokenOptions{
		UserID:   account.ID,
		Username: account.Username,
		Role:     string(account.Role),
		Issuer:   s.cfg.JWT.Issuer,
		TTL:      s.cfg.JWT.AccessTokenTTL,
		IssuedAt: now,
		JTI:      s.newID(),
	})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("build access token claims: %w", err)
	}

	token, err := s.jwt.SignAccessToken(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}

	if s.metrics != nil {
		s.metrics.TokensIssued.WithLabelValues("access").Inc()
	}

	return token, claims.ExpiresAt.Time, nil
}

// IssueRefreshToken mints an opaque refresh token, persists its hash, and
// returns the raw value. Persisting evicts the account's oldest tokens so the
// configured cap holds.
func (s *AuthService) IssueRefreshToken(ctx context.Context, accountID string) (string, error) {
	raw, err := security.GenerateSecureToken(refreshTokenByteLength)
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}

	now := s.now()
	record := domain.RefreshToken{
		ID:        s.newID(),
		AccountID: accountID,
		TokenHash: security.HashToken(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.JWT.RefreshTokenTTL),
	}

	if err := s.refreshTokens.CreateWithCapacity(ctx, record, s.cfg.Auth.MaxRefreshTokensPerUser); err != nil {
		return "", fmt.Errorf("persist refresh token: %w", err)
	}

	if s.metrics != nil {
		s.metrics.TokensIssued.WithLabelValues("refresh").Inc()
	}

	return raw, nil
}

// RefreshResult carries the outcome of exchanging a refresh token. The
// RefreshToken field echoes the presented value, which stays valid.
type RefreshResult struct {
	Account      *domain.Account
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// RefreshAccessToken exchanges a live refresh token for a new access token.
// The refresh token itself is not rotated; it stays valid until its own expiry
// or explicit logout. Expired records are deleted on sight.
func (s *AuthService) RefreshAccessToken(ctx context.Context, rawToken string) (*RefreshResult, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	record, err := s.refreshTokens.GetByHash(ctx, security.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("load refresh token: %w", err)
	}

	if record.IsExpired(s.now()) {
		if err := s.refreshTokens.DeleteByID(ctx, record.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("delete expired refresh token failed",
				zap.String("token_id", record.ID),
				zap.Error(err),
			)
		}
		return nil, ErrExpiredRefreshToken
	}

	account, err := s.accounts.GetByID(ctx, record.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	if !account.Enabled {
		return nil, ErrAccountDisabled
	}

	accessToken, expiresAt, err := s.IssueAccessToken(account)
	if err != nil {
		return nil, err
	}

	return &RefreshResult{
		Account:      account,
		AccessToken:  accessToken,
		RefreshToken: rawToken,
		ExpiresAt:    expiresAt,
	}, nil
}

// LogoutInput selects which sessions to terminate. When RefreshToken is empty
// or AllDevices is set, every refresh token for the account is removed.
type LogoutInput struct {
	AccountID    string
	Username     string
	AccessToken  string
	RefreshToken string
	AllDevices   bool
}

// LogoutResult reports what logout managed to remove.
type LogoutResult struct {
	TokensRemoved int
}

// Logout removes refresh tokens and denylists the presented access token until
// its natural expiry. Each step runs regardless of earlier failures; partial
// failures are aggregated into an ErrLogoutFailure without rolling back.
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) (*LogoutResult, error) {
	var stepErrs []error
	removed := 0

	if input.AllDevices || strings.TrimSpace(input.RefreshToken) == "" {
		count, err := s.refreshTokens.DeleteAllForAccount(ctx, input.AccountID)
		if err != nil {
			stepErrs = append(stepErrs, fmt.Errorf("delete refresh tokens: %w", err))
		} else {
			removed = count
		}
	} else {
		err := s.refreshTokens.DeleteByHash(ctx, security.HashToken(input.RefreshToken))
		switch {
		case err == nil:
			removed = 1
		case errors.Is(err, repository.ErrNotFound):
			// Already gone; logout stays idempotent.
		default:
			stepErrs = append(stepErrs, fmt.Errorf("delete refresh token: %w", err))
		}
	}

	if accessToken := strings.TrimSpace(input.AccessToken); accessToken != "" {
		if err := s.denylistAccessToken(ctx, accessToken); err != nil {
			stepErrs = append(stepErrs, err)
		}
	}

	now := s.now()
	s.publishLogout(ctx, input, removed, now)

	if len(stepErrs) > 0 {
		s.logger.Error("logout finished with errors",
			zap.String("account_id", input.AccountID),
			zap.Int("tokens_removed", removed),
			zap.Errors("errors", stepErrs),
		)
		return &LogoutResult{TokensRemoved: removed}, fmt.Errorf("%w: %v", ErrLogoutFailure, errors.Join(stepErrs...))
	}

	s.logger.Info("logout succeeded",
		zap.String("account_id", input.AccountID),
		zap.Int("tokens_removed", removed),
	)

	return &LogoutResult{TokensRemoved: removed}, nil
}

// RevokeAccountSessions removes every refresh session of the given account.
// Backs the administrative force-logout endpoint.
func (s *AuthService) RevokeAccountSessions(ctx context.Context, accountID string) (*LogoutResult, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	return s.Logout(ctx, LogoutInput{
		AccountID:  account.ID,
		Username:   account.Username,
		AllDevices: true,
	})
}

// denylistAccessToken records the token hash until the token's own expiry.
func (s *AuthService) denylistAccessToken(ctx context.Context, accessToken string) error {
	claims, err := s.jwt.ParseAccessToken(accessToken)
	if err != nil && !errors.Is(err, security.ErrTokenExpired) {
		return fmt.Errorf("parse access token for revocation: %w", err)
	}

	ttl := time.Duration(0)
	if claims != nil && claims.ExpiresAt != nil {
		ttl = claims.ExpiresAt.Time.Sub(s.now())
	}
	if ttl <= 0 {
		// Already expired; nothing to revoke.
		return nil
	}

	if err := s.denylist.Invalidate(ctx, security.HashToken(accessToken), ttl); err != nil {
		return fmt.Errorf("denylist access token: %w", err)
	}
	return nil
}

// ParseAccessToken validates signature, expiry, and revocation state of an
// access token and returns its claims.
func (s *AuthService) ParseAccessToken(ctx context.Context, accessToken string) (*security.AccessTokenClaims, error) {
	claims, err := s.jwt.ParseAccessToken(accessToken)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return nil, ErrExpiredAccessToken
		}
		return nil, ErrInvalidAccessToken
	}

	revoked, err := s.denylist.IsInvalidated(ctx, security.HashToken(accessToken))
	if err != nil {
		return nil, fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return nil, ErrInvalidAccessToken
	}

	return claims, nil
}

func (s *AuthService) countLogin(result string) {
	if s.metrics != nil {
		s.metrics.LoginAttempts.WithLabelValues(result).Inc()
	}
}

func (s *AuthService) publishLogin(ctx context.Context, account *domain.Account, input LoginInput, at time.Time) {
	if s.publisher == nil {
		return
	}

	event := domain.AccountLoginEvent{
		EventID:   s.newID(),
		AccountID: account.ID,
		Username:  account.Username,
		Role:      account.Role,
		LoginAt:   at,
	}
	if ip := strings.TrimSpace(input.ClientIP); ip != "" {
		event.ClientIP = &ip
	}
	if ua := strings.TrimSpace(input.UserAgent); ua != "" {
		event.UserAgent = &ua
	}

	if err := s.publisher.PublishAccountLogin(ctx, event); err != nil {
		s.logger.Warn("publish login event failed",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
	}
}

func (s *AuthService) publishLogout(ctx context.Context, input LogoutInput, removed int, at time.Time) {
	if s.publisher == nil {
		return
	}

	event := domain.AccountLogoutEvent{
		EventID:       s.newID(),
		AccountID:     input.AccountID,
		Username:      input.Username,
		TokensRemoved: removed,
		LogoutAt:      at,
	}

	if err := s.publisher.PublishAccountLogout(ctx, event); err != nil {
		s.logger.Warn("publish logout event failed",
			zap.String("account_id", input.AccountID),
			zap.Error(err),
		)
	}
}
