package enrollment

import (
	"strings"
	"time"
)

// Gender of the applicant as recorded on the application form
type Gender string

const (
	GenderMale        Gender = "MALE"
	GenderFemale      Gender = "FEMALE"
	GenderUnspecified Gender = "UNSPECIFIED"
)

// GuardianContact is one parent or guardian reachable about the application
type GuardianContact struct {
	Name         string
	Relationship string
	Phone        string
	Email        string
}

// ApplicantProfile is the snapshot of applicant data captured at submission
type ApplicantProfile struct {
	FirstName   string
	MiddleName  string
	LastName    string
	BirthDate   time.Time
	BirthPlace  string
	Gender      Gender
	Address     string
	PreviousLRN string // learner reference number from a previous school
	Guardians   []GuardianContact
}

// FullName returns the applicant name as "First Middle Last"
func (p ApplicantProfile) FullName() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.FirstName, p.MiddleName, p.LastName} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Validate checks the fields every application must carry
func (p ApplicantProfile) Validate() error {
	if strings.TrimSpace(p.FirstName) == "" {
		return NewValidationError("first_name", "First name cannot be empty")
	}
	if strings.TrimSpace(p.LastName) == "" {
		return NewValidationError("last_name", "Last name cannot be empty")
	}
	if p.BirthDate.IsZero() {
		return NewValidationError("birth_date", "Birth date is required")
	}
	if p.BirthDate.After(time.Now()) {
		return NewValidationError("birth_date", "Birth date cannot be in the future")
	}
	switch p.Gender {
	case "", GenderMale, GenderFemale, GenderUnspecified:
	default:
		return NewValidationError("gender", "Unknown gender value")
	}
	if len(p.Guardians) == 0 {
		return NewValidationError("guardians", "At least one guardian contact is required")
	}
	for _, g := range p.Guardians {
		if strings.TrimSpace(g.Name) == "" {
			return NewValidationError("guardians", "Guardian name cannot be empty")
		}
		if strings.TrimSpace(g.Phone) == "" && strings.TrimSpace(g.Email) == "" {
			return NewValidationError("guardians", "Guardian needs a phone number or email")
		}
	}
	return nil
}
