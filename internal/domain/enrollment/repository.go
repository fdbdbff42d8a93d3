package enrollment

import (
	"context"

	"github.com/google/uuid"
	"github.com/schoolops/enrollment/internal/domain/shared"
)

// ApplicationRepository defines the interface for application persistence
type ApplicationRepository interface {
	// FindByID finds an application by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Application, error)

	// FindByConfirmationCode finds an application by its confirmation code
	FindByConfirmationCode(ctx context.Context, code string) (*Application, error)

	// FindAll lists applications. Filters supports "status", "grade_level",
	// "category" and "academic_period".
	FindAll(ctx context.Context, filter shared.Filter) ([]Application, error)

	// Count counts applications matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// CountByStatus counts applications per status
	CountByStatus(ctx context.Context) (map[ApplicationStatus]int64, error)

	// Create inserts a new application together with its initial documents
	Create(ctx context.Context, app *Application, documents []Document) error

	// SaveWithLock persists the application if its stored version still equals
	// app.Version, then increments app.Version. A stale version yields ErrConflict.
	SaveWithLock(ctx context.Context, app *Application) error
}

// DocumentRepository defines the interface for document persistence
type DocumentRepository interface {
	// FindByID finds a document version by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)

	// FindCurrentByApplication returns the current version of every document type
	FindCurrentByApplication(ctx context.Context, applicationID uuid.UUID) ([]Document, error)

	// FindHistory returns every version of one document type, oldest first
	FindHistory(ctx context.Context, applicationID uuid.UUID, documentType string) ([]Document, error)

	// SaveWithLock updates one document row under its own version
	SaveWithLock(ctx context.Context, doc *Document) error

	// Supersede retires prev and inserts next in a single transaction
	Supersede(ctx context.Context, prev, next *Document) error
}

// StudentDirectory is the store of student identities
type StudentDirectory interface {
	// FindByStudentNumber finds a student by number
	FindByStudentNumber(ctx context.Context, number string) (*Student, error)

	// FindByApplicationID finds the student provisioned for an application,
	// whether minted for it or linked to it
	FindByApplicationID(ctx context.Context, applicationID uuid.UUID) (*Student, error)

	// LinkApplication records that an application re-enrolls an existing student.
	// Linking the same pair again is a no-op; a different student yields shared.ErrAlreadyExists.
	LinkApplication(ctx context.Context, applicationID uuid.UUID, studentNumber string) error

	// Create inserts a student
	Create(ctx context.Context, student *Student) error

	// GenerateStudentNumber returns the next free student number for the current year
	GenerateStudentNumber(ctx context.Context) (string, error)
}
