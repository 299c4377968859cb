package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

// ErrIdentityRejected is returned for every resolution failure; signature,
// issuer, audience, and expiry problems all look the same to callers, and an
// identity that fails verification must never be used to match or create an
// account.
var ErrIdentityRejected = errors.New("identity assertion rejected")

// Supported federated providers. The set is closed; unknown provider names are
// rejected before a resolver is ever invoked.
const (
	ProviderGoogle = "google"
	ProviderApple  = "apple"
	ProviderKakao  = "kakao"
)

var providerIssuers = map[string]string{
	ProviderGoogle: "https://accounts.google.com",
	ProviderApple:  "https://appleid.apple.com",
	ProviderKakao:  "https://kauth.kakao.com",
}

// Identity is the verified claim set extracted from a provider's id token.
type Identity struct {
	Email     string
	Subject   string
	Name      string
	AvatarURL string
}

// IdentityResolver verifies a third-party identity assertion and extracts the
// claims it carries.
type IdentityResolver interface {
	Resolve(ctx context.Context, rawIDToken string) (*Identity, error)
}

// OIDCResolver verifies id tokens against a provider's published signing keys
// via OIDC discovery. The discovered provider is cached after the first call;
// key rotation is handled by the underlying remote key set.
type OIDCResolver struct {
	issuer   string
	clientID string
	timeout  time.Duration

	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier
}

// NewOIDCResolvers builds a resolver per configured provider. clientIDs maps a
// provider name to the expected token audience; unconfigured providers are
// omitted.
func NewOIDCResolvers(clientIDs map[string]string, timeout time.Duration) map[string]IdentityResolver {
	resolvers := make(map[string]IdentityResolver)
	for name, issuer := range providerIssuers {
		clientID := clientIDs[name]
		if clientID == "" {
			continue
		}
		resolvers[name] = &OIDCResolver{
			issuer:   issuer,
			clientID: clientID,
			timeout:  timeout,
		}
	}
	return resolvers
}

func (r *OIDCResolver) Resolve(ctx context.Context, rawIDToken string) (*Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	verifier, err := r.getVerifier(ctx)
	if err != nil {
		return nil, ErrIdentityRejected
	}

	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, ErrIdentityRejected
	}

	var claims struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, ErrIdentityRejected
	}
	if claims.Email == "" {
		return nil, ErrIdentityRejected
	}

	return &Identity{
		Email:     claims.Email,
		Subject:   idToken.Subject,
		Name:      claims.Name,
		AvatarURL: claims.Picture,
	}, nil
}

func (r *OIDCResolver) getVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.verifier != nil {
		return r.verifier, nil
	}

	provider, err := oidc.NewProvider(ctx, r.issuer)
	if err != nil {
		return nil, fmt.Errorf("discovering provider %s: %w", r.issuer, err)
	}

	r.verifier = provider.Verifier(&oidc.Config{ClientID: r.clientID})
	return r.verifier, nil
}
