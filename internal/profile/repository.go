// File: internal/profile/repository.go
package profile

import (
	"context"
	"errors"

	"operationcode_backend/internal/common"
	"operationcode_backend/internal/user"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository reads and writes profiles. Profiles are created together with their
// user by user.Repository.Create and are never created here.
type Repository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*user.Profile, error)
	FindByUserEmail(ctx context.Context, email string) (*user.Profile, error)
	Save(ctx context.Context, p *user.Profile) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*user.Profile, error) {
	var p user.Profile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Profile not found for this user.")
		}
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) FindByUserEmail(ctx context.Context, email string) (*user.Profile, error) {
	var p user.Profile
	err := r.db.WithContext(ctx).
		Select("profiles.*").
		Joins("JOIN users ON users.id = profiles.user_id").
		Where("users.email = ?", email).
		Take(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) Save(ctx context.Context, p *user.Profile) error {
	return r.db.WithContext(ctx).Save(p).Error
}
