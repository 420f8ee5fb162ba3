// File: internal/user/repository.go
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"operationcode_backend/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUsernameTaken is returned by Create when only the username collided, so the caller
// can retry with another one.
var ErrUsernameTaken = errors.New("username already taken")

// Repository defines the interface for user data operations.
type Repository interface {
	// Create inserts the user, an empty profile (optionally prefilled) and an optional
	// social account in one transaction. Collisions are reported as common.ErrConflict,
	// or ErrUsernameTaken when the username alone was the problem.
	Create(ctx context.Context, user *User, profile *Profile, social *SocialAccount) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	Update(ctx context.Context, user *User) error
	FindSocialAccount(ctx context.Context, provider, uid string) (*SocialAccount, error)
	CreateSocialAccount(ctx context.Context, account *SocialAccount) error
	AddToGroup(ctx context.Context, userID uuid.UUID, groupName string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM user repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// AutoMigrate creates or updates the tables owned by this package.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

func (r *gormRepository) Create(ctx context.Context, user *User, profile *Profile, social *SocialAccount) error {
	user.Email = normalizeEmail(user.Email)
	if profile == nil {
		profile = &Profile{}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			return err
		}
		profile.UserID = user.ID
		if err := tx.Create(profile).Error; err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		if social != nil {
			social.UserID = user.ID
			if err := tx.Create(social).Error; err != nil {
				return fmt.Errorf("create social account: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if isDuplicate(err) {
			return r.duplicateCause(ctx, user)
		}
		return err
	}
	return nil
}

// duplicateCause tells which unique column a failed Create collided with. The driver
// error is translated by gorm and no longer names it.
func (r *gormRepository) duplicateCause(ctx context.Context, user *User) error {
	if _, err := r.FindByEmail(ctx, user.Email); err == nil {
		return common.ErrConflict.WithDetails("A user is already registered with this e-mail address.")
	}
	if taken, err := r.UsernameExists(ctx, user.Username); err == nil && taken {
		return ErrUsernameTaken
	}
	return common.ErrConflict.WithDetails("The social account is already connected to a user.")
}

func (r *gormRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Preload("Groups").
		Where("email = ?", normalizeEmail(email)).
		Take(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("User not found with this email.")
		}
		return nil, err
	}
	return &u, nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).Preload("Groups").Where("id = ?", id).Take(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("User not found with this ID.")
		}
		return nil, err
	}
	return &u, nil
}

func (r *gormRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// Update saves the user's own columns. Group membership is changed with AddToGroup only.
func (r *gormRepository) Update(ctx context.Context, user *User) error {
	user.Email = normalizeEmail(user.Email)
	err := r.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error
	if err != nil {
		if isDuplicate(err) {
			return common.ErrConflict.WithDetails("Update failed: email already taken.")
		}
		return err
	}
	return nil
}

func (r *gormRepository) FindSocialAccount(ctx context.Context, provider, uid string) (*SocialAccount, error) {
	var sa SocialAccount
	err := r.db.WithContext(ctx).Where("provider = ? AND uid = ?", provider, uid).Take(&sa).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails(fmt.Sprintf("No %s account with this id is linked.", provider))
		}
		return nil, err
	}
	return &sa, nil
}

func (r *gormRepository) CreateSocialAccount(ctx context.Context, account *SocialAccount) error {
	err := r.db.WithContext(ctx).Create(account).Error
	if err != nil {
		if isDuplicate(err) {
			return common.ErrConflict.WithDetails("This social account is already linked to a user.")
		}
		return err
	}
	return nil
}

// AddToGroup creates the group if needed and adds the user to it. Adding twice is a no-op.
func (r *gormRepository) AddToGroup(ctx context.Context, userID uuid.UUID, groupName string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u User
		if err := tx.Where("id = ?", userID).Take(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return common.ErrNotFound.WithDetails("User not found with this ID.")
			}
			return err
		}
		g := Group{Name: groupName}
		if err := tx.Where(Group{Name: groupName}).FirstOrCreate(&g).Error; err != nil {
			return fmt.Errorf("find or create group %q: %w", groupName, err)
		}
		return tx.Model(&u).Association("Groups").Append(&g)
	})
}
