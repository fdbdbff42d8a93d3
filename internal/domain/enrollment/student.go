package enrollment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Student is the identity minted (or reused) when an application is approved
type Student struct {
	ID            uuid.UUID
	StudentNumber string
	ApplicationID *uuid.UUID
	FirstName     string
	LastName      string
	GradeLevel    string
	CreatedAt     time.Time
}

// NewStudent creates a student linked to the application it was provisioned for
func NewStudent(studentNumber string, app *Application) (*Student, error) {
	if strings.TrimSpace(studentNumber) == "" {
		return nil, NewValidationError("student_number", "Student number cannot be empty")
	}
	if app == nil {
		return nil, NewValidationError("application_id", "Application is required")
	}
	appID := app.ID
	return &Student{
		ID:            uuid.New(),
		StudentNumber: studentNumber,
		ApplicationID: &appID,
		FirstName:     app.Profile.FirstName,
		LastName:      app.Profile.LastName,
		GradeLevel:    app.GradeLevel,
		CreatedAt:     time.Now(),
	}, nil
}

// StudentNumberPrefix returns the prefix shared by student numbers minted in year
func StudentNumberPrefix(year int) string {
	return fmt.Sprintf("STU-%d-", year)
}

// FormatStudentNumber renders sequence seq of year, e.g. STU-2026-00042
func FormatStudentNumber(year, seq int) string {
	return fmt.Sprintf("%s%05d", StudentNumberPrefix(year), seq)
}
