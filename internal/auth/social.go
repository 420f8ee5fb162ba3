// File: internal/auth/social.go
package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"operationcode_backend/internal/common"
	"operationcode_backend/internal/config"
	"operationcode_backend/internal/platform/crypto"
	"operationcode_backend/internal/shared"

	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/facebook"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"
	"go.uber.org/zap"
)

// ProviderRegistry holds the goth providers this deployment has credentials for.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[string]goth.Provider
}

// NewProviderRegistry registers google, facebook and github for every client ID that
// is configured. GitHub exchanges codes against GITHUB_AUTH_CALLBACK_URL.
func NewProviderRegistry(cfg *config.Config, logger *zap.Logger) *ProviderRegistry {
	r := &ProviderRegistry{providers: make(map[string]goth.Provider)}
	client := &http.Client{Timeout: cfg.ExternalHTTPTimeout}
	callback := func(name string) string {
		return strings.TrimRight(cfg.SocialCallbackBaseURL, "/") + "/auth/social/" + name + "/"
	}

	if cfg.GoogleClientID != "" {
		p := google.New(cfg.GoogleClientID, cfg.GoogleClientSecret, callback("google"), "email", "profile")
		p.HTTPClient = client
		r.Register(p)
	}
	if cfg.FacebookClientID != "" {
		p := facebook.New(cfg.FacebookClientID, cfg.FacebookClientSecret, callback("facebook"), "email")
		p.HTTPClient = client
		r.Register(p)
	}
	if cfg.GithubClientID != "" {
		cb := cfg.GithubAuthCallbackURL
		if cb == "" {
			cb = callback("github")
		}
		p := github.New(cfg.GithubClientID, cfg.GithubClientSecret, cb, "user:email")
		p.HTTPClient = client
		r.Register(p)
	}

	logger.Named("social_providers").Info("Social providers configured", zap.Strings("providers", r.Names()))
	return r
}

func (r *ProviderRegistry) Register(p goth.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

func (r *ProviderRegistry) Get(name string) (goth.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

func (r *ProviderRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// SocialService turns a client-supplied access token or authorization code into the
// provider's view of the person.
type SocialService struct {
	registry *ProviderRegistry
	logger   *zap.Logger
}

func NewSocialService(registry *ProviderRegistry, logger *zap.Logger) *SocialService {
	return &SocialService{registry: registry, logger: logger.Named("social_service")}
}

// FetchProfile returns 404 for a provider that is not configured and 400 when the
// provider rejects the token or code.
func (s *SocialService) FetchProfile(providerName string, req SocialLoginRequest) (*shared.OAuthUserProfile, error) {
	provider, ok := s.registry.Get(providerName)
	if !ok {
		return nil, common.ErrNotFound.WithDetails(fmt.Sprintf("Social provider %q is not available.", providerName))
	}
	log := s.logger.With(zap.String("provider", providerName))

	var (
		sess goth.Session
		err  error
	)
	if req.AccessToken != "" {
		sess, err = sessionFromAccessToken(provider, req.AccessToken)
	} else {
		sess, err = sessionFromCode(provider, req.Code)
	}
	if err != nil {
		log.Info("Social token exchange failed", zap.Error(err))
		return nil, common.ErrBadRequest.WithDetails("Incorrect value for access_token or code.")
	}

	gu, err := provider.FetchUser(sess)
	if err != nil {
		log.Info("Fetching social profile failed", zap.Error(err))
		return nil, common.ErrBadRequest.WithDetails("Incorrect value for access_token or code.")
	}
	if gu.UserID == "" {
		return nil, common.ErrBadRequest.WithDetails("The provider did not return an account id.")
	}
	return toProfile(providerName, gu), nil
}

// sessionFromAccessToken builds a provider session around a token the client already
// holds. Every goth OAuth2 session serializes its token as "AccessToken".
func sessionFromAccessToken(p goth.Provider, accessToken string) (goth.Session, error) {
	raw, err := json.Marshal(map[string]string{"AccessToken": accessToken})
	if err != nil {
		return nil, err
	}
	return p.UnmarshalSession(string(raw))
}

func sessionFromCode(p goth.Provider, code string) (goth.Session, error) {
	state, err := crypto.GenerateSecureRandomString(16)
	if err != nil {
		return nil, err
	}
	sess, err := p.BeginAuth(state)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Authorize(p, url.Values{"code": {code}}); err != nil {
		return nil, err
	}
	return sess, nil
}

func toProfile(providerName string, gu goth.User) *shared.OAuthUserProfile {
	first, last := gu.FirstName, gu.LastName
	if first == "" && last == "" && gu.Name != "" {
		first, last, _ = strings.Cut(strings.TrimSpace(gu.Name), " ")
	}
	return &shared.OAuthUserProfile{
		Provider:   providerName,
		ProviderID: gu.UserID,
		Email:      strings.TrimSpace(gu.Email),
		FirstName:  strings.TrimSpace(first),
		LastName:   strings.TrimSpace(last),
	}
}
