package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"operationcode_backend/internal/common"
	"operationcode_backend/internal/config"
	"operationcode_backend/internal/platform/crypto"
	"operationcode_backend/internal/shared"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

const (
	maxUsernameLen      = 150
	maxUsernameAttempts = 3
)

// RegistrationListener is told about every account created, after it is committed.
type RegistrationListener interface {
	UserRegistered(ctx context.Context, email string)
}

// Service defines the user operations used by the HTTP handlers and the social login flow.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*shared.User, *shared.TokenResponse, error)
	Login(ctx context.Context, email, password string) (*shared.User, *shared.TokenResponse, error)
	IssueTokens(u *shared.User) (*shared.TokenResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*shared.User, error)
	GetUserByEmail(ctx context.Context, email string) (*shared.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*shared.User, error)
	FindOrCreateSocialUser(ctx context.Context, profile shared.OAuthUserProfile) (usr *shared.User, created bool, err error)
	ConnectSocialAccount(ctx context.Context, userID uuid.UUID, profile shared.OAuthUserProfile) error
	AddUserToGroup(ctx context.Context, email, group string) error
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo         Repository
	tokenService shared.TokenService
	listener     RegistrationListener
	cfg          *config.Config
	logger       *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

var errNoUsername = common.ErrConflict.WithDetails("Could not allocate a unique username.")

var errEmailTaken = common.ErrConflict.WithDetails(
	"An account with this email already exists. Log in and connect the social account instead.")

// NewService creates a new user service. listener may be nil.
func NewService(
	repo Repository,
	tokenService shared.TokenService,
	listener RegistrationListener,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		repo:         repo,
		tokenService: tokenService,
		listener:     listener,
		cfg:          cfg,
		logger:       logger.Named("user_service"),
	}
}

// Register creates a password account with its profile, then starts onboarding.
func (s *ServiceImplementation) Register(ctx context.Context, req RegisterRequest) (*shared.User, *shared.TokenResponse, error) {
	email := normalizeEmail(req.Email)
	_, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		return nil, nil, common.ErrConflict.WithDetails("A user is already registered with this e-mail address.")
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, nil, fmt.Errorf("check existing user by email: %w", err)
	}

	hashed, err := common.HashPassword(req.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now()
	dbUser := &User{
		Email:        email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: &hashed,
		IsActive:     true,
		LastLoginAt:  &now,
	}
	if err := s.create(ctx, dbUser, &Profile{Zip: strings.TrimSpace(req.Zipcode)}, nil); err != nil {
		s.logger.Error("Failed to create user", zap.Error(err), zap.String("email", email))
		return nil, nil, err
	}
	s.logger.Info("User registered", zap.String("userID", dbUser.ID.String()))
	s.notifyRegistered(ctx, dbUser.Email)

	usr := ToShared(dbUser)
	tokens, err := s.IssueTokens(usr)
	if err != nil {
		return nil, nil, err
	}
	return usr, tokens, nil
}

func (s *ServiceImplementation) Login(ctx context.Context, email, password string) (*shared.User, *shared.TokenResponse, error) {
	dbUser, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, common.ErrUnauthorized.WithDetails("Unable to log in with provided credentials.")
		}
		return nil, nil, err
	}
	if dbUser.PasswordHash == nil || !common.CheckPasswordHash(password, *dbUser.PasswordHash) {
		s.logger.Info("Rejected login", zap.String("userID", dbUser.ID.String()))
		return nil, nil, common.ErrUnauthorized.WithDetails("Unable to log in with provided credentials.")
	}
	if !dbUser.IsActive {
		return nil, nil, common.ErrForbidden.WithDetails("User account is disabled.")
	}

	s.touchLastLogin(ctx, dbUser)
	usr := ToShared(dbUser)
	tokens, err := s.IssueTokens(usr)
	if err != nil {
		return nil, nil, err
	}
	return usr, tokens, nil
}

// IssueTokens signs a fresh access/refresh pair for u.
func (s *ServiceImplementation) IssueTokens(u *shared.User) (*shared.TokenResponse, error) {
	access, expiresAt, err := s.tokenService.GenerateAccessToken(u)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	refresh, _, err := s.tokenService.GenerateRefreshToken(u)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	return &shared.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
		TokenType:    common.AuthorizationTypeBearer,
	}, nil
}

func (s *ServiceImplementation) GetUserByID(ctx context.Context, id uuid.UUID) (*shared.User, error) {
	dbUser, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToShared(dbUser), nil
}

// GetUserByEmail returns common.ErrNotFound when nobody has this address.
func (s *ServiceImplementation) GetUserByEmail(ctx context.Context, email string) (*shared.User, error) {
	dbUser, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return ToShared(dbUser), nil
}

func (s *ServiceImplementation) UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*shared.User, error) {
	dbUser, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.FirstName != nil {
		dbUser.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		dbUser.LastName = strings.TrimSpace(*req.LastName)
	}
	if err := s.repo.Update(ctx, dbUser); err != nil {
		return nil, err
	}
	return ToShared(dbUser), nil
}

// FindOrCreateSocialUser resolves a provider identity to a local user. A known identity
// logs in. An unknown identity whose email is already registered is refused with a
// conflict; the owner has to log in and connect it. Anything else creates a new account,
// and only then is created true.
func (s *ServiceImplementation) FindOrCreateSocialUser(ctx context.Context, profile shared.OAuthUserProfile) (*shared.User, bool, error) {
	log := s.logger.With(zap.String("provider", profile.Provider), zap.String("uid", profile.ProviderID))

	account, err := s.repo.FindSocialAccount(ctx, profile.Provider, profile.ProviderID)
	switch {
	case err == nil:
		dbUser, err := s.repo.FindByID(ctx, account.UserID)
		if err != nil {
			return nil, false, err
		}
		if !dbUser.IsActive {
			return nil, false, common.ErrForbidden.WithDetails("User account is disabled.")
		}
		s.touchLastLogin(ctx, dbUser)
		return ToShared(dbUser), false, nil
	case !errors.Is(err, common.ErrNotFound):
		return nil, false, err
	}

	email := normalizeEmail(profile.Email)
	if email == "" {
		return nil, false, common.ErrBadRequest.WithDetails(
			fmt.Sprintf("%s did not share an email address for this account.", profile.Provider))
	}

	dbUser, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		// Providers do not vouch for the address, so an existing account is only linked
		// through the authenticated connect flow.
		if !dbUser.IsActive {
			return nil, false, common.ErrForbidden.WithDetails("User account is disabled.")
		}
		log.Info("Social login email belongs to an existing user", zap.String("userID", dbUser.ID.String()))
		return nil, false, errEmailTaken
	case !errors.Is(err, common.ErrNotFound):
		return nil, false, err
	}

	now := time.Now()
	dbUser = &User{
		Email:       email,
		FirstName:   truncate(profile.FirstName, 30),
		LastName:    truncate(profile.LastName, 150),
		IsActive:    true,
		LastLoginAt: &now,
	}
	social := &SocialAccount{Provider: profile.Provider, UID: profile.ProviderID, Email: email}
	if err := s.create(ctx, dbUser, nil, social); err != nil {
		return nil, false, err
	}
	log.Info("Created user from social login", zap.String("userID", dbUser.ID.String()))
	s.notifyRegistered(ctx, dbUser.Email)
	return ToShared(dbUser), true, nil
}

// ConnectSocialAccount links a provider identity to an existing user.
func (s *ServiceImplementation) ConnectSocialAccount(ctx context.Context, userID uuid.UUID, profile shared.OAuthUserProfile) error {
	account, err := s.repo.FindSocialAccount(ctx, profile.Provider, profile.ProviderID)
	if err == nil {
		if account.UserID != userID {
			return common.ErrConflict.WithDetails("The social account is already connected to a different user.")
		}
		return nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return err
	}
	return s.repo.CreateSocialAccount(ctx, &SocialAccount{
		UserID:   userID,
		Provider: profile.Provider,
		UID:      profile.ProviderID,
		Email:    normalizeEmail(profile.Email),
	})
}

// AddUserToGroup grants the named group to the user with this email.
func (s *ServiceImplementation) AddUserToGroup(ctx context.Context, email, group string) error {
	group = strings.TrimSpace(group)
	if group == "" {
		return common.ErrBadRequest.WithDetails("Group name is required.")
	}
	dbUser, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.repo.AddToGroup(ctx, dbUser.ID, group); err != nil {
		return err
	}
	s.logger.Info("Added user to group", zap.String("userID", dbUser.ID.String()), zap.String("group", group))
	return nil
}

func (s *ServiceImplementation) notifyRegistered(ctx context.Context, email string) {
	if s.listener == nil {
		return
	}
	s.listener.UserRegistered(ctx, email)
}

func (s *ServiceImplementation) touchLastLogin(ctx context.Context, dbUser *User) {
	now := time.Now()
	dbUser.LastLoginAt = &now
	if err := s.repo.Update(ctx, dbUser); err != nil {
		s.logger.Warn("Failed to update last login time", zap.Error(err), zap.String("userID", dbUser.ID.String()))
	}
}

// create inserts dbUser with a fresh username. A name that looked free can be taken by
// a concurrent registration before the insert, in which case another one is picked.
func (s *ServiceImplementation) create(ctx context.Context, dbUser *User, profile *Profile, social *SocialAccount) error {
	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		username, err := s.uniqueUsername(ctx, dbUser.Email)
		if err != nil {
			return err
		}
		dbUser.Username = username
		err = s.repo.Create(ctx, dbUser, profile, social)
		if !errors.Is(err, ErrUsernameTaken) {
			return err
		}
		s.logger.Debug("Username was taken concurrently, picking another", zap.String("username", username))
	}
	return errNoUsername
}

// uniqueUsername derives a username from the local part of email, adding a random
// suffix until it is free.
func (s *ServiceImplementation) uniqueUsername(ctx context.Context, email string) (string, error) {
	local := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		local = email[:i]
	}
	base := slug.Make(local)
	if base == "" {
		base = "member"
	}
	base = truncate(base, maxUsernameLen-7)

	candidate := base
	for i := 0; i < 5; i++ {
		taken, err := s.repo.UsernameExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check username: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		suffix, err := crypto.RandomSuffix(3)
		if err != nil {
			return "", err
		}
		candidate = base + "-" + suffix
	}
	return "", errNoUsername
}

// truncate trims s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}
