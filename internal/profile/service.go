// File: internal/profile/service.go
package profile

import (
	"context"
	"strings"

	"operationcode_backend/internal/common"
	"operationcode_backend/internal/user"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service defines profile access for the owner and for profile admins.
type Service interface {
	GetOwn(ctx context.Context, userID uuid.UUID) (*user.Profile, error)
	UpdateOwn(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest, replace bool) (*user.Profile, error)

	// Admin methods. Callers are expected to have checked group membership.
	GetByEmail(ctx context.Context, email string) (*user.Profile, error)
	UpdateByEmail(ctx context.Context, email string, req UpdateProfileRequest, replace bool) (*user.Profile, error)
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) Service {
	return &service{
		repo:   repo,
		logger: logger.Named("profile_service"),
	}
}

func (s *service) GetOwn(ctx context.Context, userID uuid.UUID) (*user.Profile, error) {
	return s.repo.FindByUserID(ctx, userID)
}

func (s *service) UpdateOwn(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest, replace bool) (*user.Profile, error) {
	p, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, p, req, replace)
}

func (s *service) GetByEmail(ctx context.Context, email string) (*user.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errMissingEmail
	}
	return s.repo.FindByUserEmail(ctx, email)
}

func (s *service) UpdateByEmail(ctx context.Context, email string, req UpdateProfileRequest, replace bool) (*user.Profile, error) {
	p, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	updated, err := s.save(ctx, p, req, replace)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Profile updated by admin", zap.String("profileID", p.ID.String()))
	return updated, nil
}

func (s *service) save(ctx context.Context, p *user.Profile, req UpdateProfileRequest, replace bool) (*user.Profile, error) {
	req.apply(p, replace)
	if err := s.repo.Save(ctx, p); err != nil {
		s.logger.Error("Failed to save profile", zap.Error(err), zap.String("profileID", p.ID.String()))
		return nil, err
	}
	return p, nil
}

var errMissingEmail = common.ErrBadRequest.WithDetails(map[string]string{"error": "Missing email query param"})
