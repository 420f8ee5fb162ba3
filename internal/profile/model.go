// File: internal/profile/model.go
package profile

import (
	"time"

	"operationcode_backend/internal/user"

	"github.com/google/uuid"
)

// UpdateProfileRequest is the body of PUT and PATCH on the profile endpoints.
// A nil field is left unchanged by PATCH and cleared by PUT.
type UpdateProfileRequest struct {
	Address1 *string `json:"address1" binding:"omitempty,max=255"`
	Address2 *string `json:"address2" binding:"omitempty,max=255"`
	City     *string `json:"city" binding:"omitempty,max=255"`
	State    *string `json:"state" binding:"omitempty,max=255"`
	Zip      *string `json:"zip" binding:"omitempty,max=10"`

	BranchOfService    *string `json:"branch_of_service" binding:"omitempty,max=255"`
	YearsOfService     *string `json:"years_of_service" binding:"omitempty,max=255"`
	PayGrade           *string `json:"pay_grade" binding:"omitempty,max=255"`
	MilitaryOccupation *string `json:"military_occupation" binding:"omitempty,max=255"`
	MilitaryStatus     *string `json:"military_status" binding:"omitempty,max=255"`

	EmploymentStatus *string `json:"employment_status" binding:"omitempty,max=255"`
	CompanyName      *string `json:"company_name" binding:"omitempty,max=255"`
	CompanyRole      *string `json:"company_role" binding:"omitempty,max=255"`

	ProgrammingLanguages *string `json:"programming_languages" binding:"omitempty,max=255"`
	Disciplines          *string `json:"disciplines" binding:"omitempty,max=255"`
	IsMentor             *bool   `json:"is_mentor"`
}

// ProfileResponse is the JSON shape of a profile.
type ProfileResponse struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`

	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`

	BranchOfService    string `json:"branch_of_service"`
	YearsOfService     string `json:"years_of_service"`
	PayGrade           string `json:"pay_grade"`
	MilitaryOccupation string `json:"military_occupation"`
	MilitaryStatus     string `json:"military_status"`

	EmploymentStatus string `json:"employment_status"`
	CompanyName      string `json:"company_name"`
	CompanyRole      string `json:"company_role"`

	ProgrammingLanguages string `json:"programming_languages"`
	Disciplines          string `json:"disciplines"`
	IsMentor             bool   `json:"is_mentor"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ToProfileResponse(p *user.Profile) ProfileResponse {
	return ProfileResponse{
		ID:                   p.ID,
		UserID:               p.UserID,
		Address1:             p.Address1,
		Address2:             p.Address2,
		City:                 p.City,
		State:                p.State,
		Zip:                  p.Zip,
		BranchOfService:      p.BranchOfService,
		YearsOfService:       p.YearsOfService,
		PayGrade:             p.PayGrade,
		MilitaryOccupation:   p.MilitaryOccupation,
		MilitaryStatus:       p.MilitaryStatus,
		EmploymentStatus:     p.EmploymentStatus,
		CompanyName:          p.CompanyName,
		CompanyRole:          p.CompanyRole,
		ProgrammingLanguages: p.ProgrammingLanguages,
		Disciplines:          p.Disciplines,
		IsMentor:             p.IsMentor,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

// apply copies req onto p. With replace set, nil fields reset to their zero value.
func (req UpdateProfileRequest) apply(p *user.Profile, replace bool) {
	setString(&p.Address1, req.Address1, replace)
	setString(&p.Address2, req.Address2, replace)
	setString(&p.City, req.City, replace)
	setString(&p.State, req.State, replace)
	setString(&p.Zip, req.Zip, replace)
	setString(&p.BranchOfService, req.BranchOfService, replace)
	setString(&p.YearsOfService, req.YearsOfService, replace)
	setString(&p.PayGrade, req.PayGrade, replace)
	setString(&p.MilitaryOccupation, req.MilitaryOccupation, replace)
	setString(&p.MilitaryStatus, req.MilitaryStatus, replace)
	setString(&p.EmploymentStatus, req.EmploymentStatus, replace)
	setString(&p.CompanyName, req.CompanyName, replace)
	setString(&p.CompanyRole, req.CompanyRole, replace)
	setString(&p.ProgrammingLanguages, req.ProgrammingLanguages, replace)
	setString(&p.Disciplines, req.Disciplines, replace)

	switch {
	case req.IsMentor != nil:
		p.IsMentor = *req.IsMentor
	case replace:
		p.IsMentor = false
	}
}

func setString(dst *string, v *string, replace bool) {
	switch {
	case v != nil:
		*dst = *v
	case replace:
		*dst = ""
	}
}
