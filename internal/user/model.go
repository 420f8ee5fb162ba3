// File: internal/user/model.go
package user

import (
	"time"

	"operationcode_backend/internal/common"
	"operationcode_backend/internal/shared"

	"github.com/google/uuid"
)

// User represents the user model in the database.
type User struct {
	common.BaseModel
	Username       string          `gorm:"type:varchar(150);uniqueIndex;not null"`
	Email          string          `gorm:"type:varchar(254);uniqueIndex;not null"`
	FirstName      string          `gorm:"type:varchar(30)"`
	LastName       string          `gorm:"type:varchar(150)"`
	PasswordHash   *string         `gorm:"type:varchar(255)"` // nil for social-only accounts
	IsActive       bool            `gorm:"not null;default:true"`
	LastLoginAt    *time.Time
	Groups         []Group         `gorm:"many2many:user_groups;"`
	SocialAccounts []SocialAccount `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (User) TableName() string { return "users" }

// GroupNames returns the names of the loaded groups.
func (u *User) GroupNames() []string {
	names := make([]string, 0, len(u.Groups))
	for _, g := range u.Groups {
		names = append(names, g.Name)
	}
	return names
}

// Group is a named capability set, e.g. ProfileAdmin.
type Group struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"type:varchar(150);uniqueIndex;not null"`
	CreatedAt time.Time
}

func (Group) TableName() string { return "groups" }

// SocialAccount links a provider identity to a local user.
type SocialAccount struct {
	common.BaseModel
	UserID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Provider string    `gorm:"type:varchar(30);not null;uniqueIndex:idx_social_provider_uid"`
	UID      string    `gorm:"column:uid;type:varchar(191);not null;uniqueIndex:idx_social_provider_uid"`
	Email    string    `gorm:"type:varchar(254)"`
}

func (SocialAccount) TableName() string { return "social_accounts" }

// Profile holds the member details collected after sign up. Every user has exactly one.
type Profile struct {
	common.BaseModel
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`

	Address1 string `gorm:"type:varchar(255)"`
	Address2 string `gorm:"type:varchar(255)"`
	City     string `gorm:"type:varchar(255)"`
	State    string `gorm:"type:varchar(255)"`
	Zip      string `gorm:"type:varchar(10)"`

	BranchOfService    string `gorm:"type:varchar(255)"`
	YearsOfService     string `gorm:"type:varchar(255)"`
	PayGrade           string `gorm:"type:varchar(255)"`
	MilitaryOccupation string `gorm:"type:varchar(255)"`
	MilitaryStatus     string `gorm:"type:varchar(255)"`

	EmploymentStatus string `gorm:"type:varchar(255)"`
	CompanyName      string `gorm:"type:varchar(255)"`
	CompanyRole      string `gorm:"type:varchar(255)"`

	ProgrammingLanguages string `gorm:"type:varchar(255)"`
	Disciplines          string `gorm:"type:varchar(255)"`
	IsMentor             bool   `gorm:"not null;default:false"`
}

func (Profile) TableName() string { return "profiles" }

// Models lists every table owned by this package, in migration order.
func Models() []interface{} {
	return []interface{}{&Group{}, &User{}, &SocialAccount{}, &Profile{}}
}

// --- DTOs ---

// RegisterRequest is the body of POST /auth/registration/.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
	FirstName string `json:"first_name" binding:"required,max=30"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	Zipcode   string `json:"zipcode" binding:"omitempty,max=10"`
}

// UpdateUserRequest carries the user-editable fields. Nil means "leave unchanged".
type UpdateUserRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,max=30"`
	LastName  *string `json:"last_name" binding:"omitempty,max=150"`
}

// ToShared converts the model to the cross-package user type.
func ToShared(u *User) *shared.User {
	if u == nil {
		return nil
	}
	return &shared.User{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Groups:      u.GroupNames(),
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}
