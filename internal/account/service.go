// Package account implements the credential and session lifecycle: account
// provisioning, password and federated login, token refresh, and push-token
// management. Handlers stay thin; every operation here returns domain sentinel
// errors that the API layer maps to stable error codes.
package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/microcosm-cc/bluemonday"

	"readhub/internal/auth"
	"readhub/internal/db"
	"readhub/internal/models"
)

var (
	// ErrConflict covers duplicate email and duplicate nickname alike.
	ErrConflict = errors.New("email or nickname already in use")

	// ErrUnauthorized deliberately collapses unknown email, wrong password,
	// inactive account, and failed identity assertions into one outcome.
	ErrUnauthorized = errors.New("invalid credentials")

	// ErrInvalidRefresh covers every refresh failure: bad signature, expiry,
	// wrong token kind, and accounts that are gone or no longer active.
	ErrInvalidRefresh = errors.New("invalid refresh token")

	// ErrUnknownProvider is returned before any resolver is consulted.
	ErrUnknownProvider = errors.New("unknown identity provider")

	ErrNotFound = errors.New("account not found")
)

// createRetries bounds how often a commit-time uniqueness rejection during
// federated provisioning is retried with a freshly derived nickname.
const createRetries = 3

type Service struct {
	users     *db.UserRepository
	tokens    *auth.JWTService
	resolvers map[string]auth.IdentityResolver
	sanitizer *bluemonday.Policy
}

func NewService(users *db.UserRepository, tokens *auth.JWTService, resolvers map[string]auth.IdentityResolver) *Service {
	return &Service{
		users:     users,
		tokens:    tokens,
		resolvers: resolvers,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// AuthResult is returned by every operation that establishes a session.
type AuthResult struct {
	User      *models.User
	Tokens    *auth.TokenPair
	IsNewUser bool
}

// Register creates a local account with its profile and issues a token pair.
// The email and nickname pre-checks are an optimization; the UNIQUE
// constraints decide conflicts under concurrent registration.
func (s *Service) Register(ctx context.Context, email, password, nickname string) (*AuthResult, error) {
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("checking existing email: %w", err)
	}

	available, err := s.users.IsNicknameAvailable(ctx, nickname)
	if err != nil {
		return nil, fmt.Errorf("checking nickname: %w", err)
	}
	if !available {
		return nil, ErrConflict
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: &hash,
		Provider:     models.ProviderLocal,
	}
	profile := &models.Profile{
		Nickname: nickname,
		IsPublic: true,
	}

	if err := s.users.CreateWithProfile(ctx, user, profile); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}

	tokens, err := s.tokens.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issuing tokens: %w", err)
	}

	return &AuthResult{User: user, Tokens: tokens, IsNewUser: true}, nil
}

// Login verifies a local password and issues a token pair. Unknown email,
// wrong password, missing password credential, and inactive status all return
// ErrUnauthorized.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("finding user: %w", err)
	}

	if !user.HasPassword() || !auth.VerifyPassword(password, *user.PasswordHash) {
		return nil, ErrUnauthorized
	}
	if !user.IsActive() {
		return nil, ErrUnauthorized
	}

	if err := s.touchLastLogin(ctx, user); err != nil {
		return nil, err
	}

	tokens, err := s.tokens.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issuing tokens: %w", err)
	}

	return &AuthResult{User: user, Tokens: tokens}, nil
}

// OAuthLogin resolves a federated identity assertion and finds or creates the
// matching account. Matching is by email first, then by (provider, subject).
// An email-matched local account is silently upgraded to the federated
// provider, keeping any stored password.
func (s *Service) OAuthLogin(ctx context.Context, provider, rawIDToken string) (*AuthResult, error) {
	resolver, ok := s.resolvers[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}

	identity, err := resolver.Resolve(ctx, rawIDToken)
	if err != nil {
		return nil, ErrUnauthorized
	}

	for attempt := 0; ; attempt++ {
		user, err := s.matchFederated(ctx, provider, identity)
		if err != nil {
			return nil, err
		}

		if user != nil {
			if !user.IsActive() {
				return nil, ErrUnauthorized
			}

			if user.Provider == models.ProviderLocal {
				user, err = s.upgradeLocal(ctx, user, provider, identity.Subject)
				if err != nil {
					return nil, err
				}
			}

			if err := s.touchLastLogin(ctx, user); err != nil {
				return nil, err
			}

			tokens, err := s.tokens.IssuePair(user.ID, user.Email)
			if err != nil {
				return nil, fmt.Errorf("issuing tokens: %w", err)
			}
			return &AuthResult{User: user, Tokens: tokens}, nil
		}

		created, err := s.createFederated(ctx, provider, identity)
		if errors.Is(err, db.ErrDuplicate) {
			// Lost a race: either the same identity registered concurrently
			// (re-match will find it) or the derived nickname collided at
			// commit time (re-derive and retry).
			if attempt < createRetries {
				continue
			}
			return nil, fmt.Errorf("creating federated account: %w", err)
		}
		if err != nil {
			return nil, err
		}

		tokens, err := s.tokens.IssuePair(created.ID, created.Email)
		if err != nil {
			return nil, fmt.Errorf("issuing tokens: %w", err)
		}
		return &AuthResult{User: created, Tokens: tokens, IsNewUser: true}, nil
	}
}

// Refresh exchanges a valid refresh token for a brand-new pair. The old
// refresh token is not tracked or blacklisted; it remains formally valid until
// its natural expiry.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken, auth.TokenKindRefresh)
	if err != nil {
		return nil, ErrInvalidRefresh
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidRefresh
		}
		return nil, fmt.Errorf("finding user: %w", err)
	}
	if !user.IsActive() {
		return nil, ErrInvalidRefresh
	}

	tokens, err := s.tokens.IssuePair(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issuing tokens: %w", err)
	}

	return tokens, nil
}

// Logout clears the stored push-delivery token. Issued bearer tokens stay
// valid until expiry; there is no server-side revocation list. Idempotent.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.users.ClearPushToken(ctx, userID); err != nil && !errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("clearing push token: %w", err)
	}
	return nil
}

func (s *Service) UpdatePushToken(ctx context.Context, userID, token, platform string) error {
	if err := s.users.SetPushToken(ctx, userID, token, platform); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("setting push token: %w", err)
	}
	return nil
}

func (s *Service) GetAccount(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("finding user: %w", err)
	}
	return user, nil
}

// upgradeLocal migrates a local account to the asserting provider. When two
// first federated logins race on the same account, the loser's update matches
// zero rows; the account is already linked, so the stored linkage is reloaded
// and the login proceeds.
func (s *Service) upgradeLocal(ctx context.Context, user *models.User, provider, subject string) (*models.User, error) {
	err := s.users.LinkProvider(ctx, user.ID, provider, subject)
	if err == nil {
		user.Provider = provider
		sub := subject
		user.ProviderSubject = &sub
		return user, nil
	}
	if errors.Is(err, db.ErrNotFound) {
		linked, err := s.users.FindByID(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("reloading linked account: %w", err)
		}
		return linked, nil
	}
	return nil, fmt.Errorf("linking provider: %w", err)
}

func (s *Service) matchFederated(ctx context.Context, provider string, identity *auth.Identity) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, identity.Email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("matching by email: %w", err)
	}

	user, err = s.users.FindByProviderSubject(ctx, provider, identity.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("matching by provider subject: %w", err)
	}

	return nil, nil
}

func (s *Service) createFederated(ctx context.Context, provider string, identity *auth.Identity) (*models.User, error) {
	suggested := s.sanitizer.Sanitize(identity.Name)
	nickname, err := s.deriveNickname(ctx, suggested)
	if err != nil {
		return nil, err
	}

	subject := identity.Subject
	user := &models.User{
		Email:           identity.Email,
		Provider:        provider,
		ProviderSubject: &subject,
	}
	profile := &models.Profile{
		Nickname: nickname,
		IsPublic: true,
	}
	if identity.AvatarURL != "" {
		avatar := identity.AvatarURL
		profile.AvatarURL = &avatar
	}

	if err := s.users.CreateWithProfile(ctx, user, profile); err != nil {
		return nil, err
	}

	if err := s.touchLastLogin(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *Service) touchLastLogin(ctx context.Context, user *models.User) error {
	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return nil
}
