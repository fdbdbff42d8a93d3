package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/domain/shared"
	"github.com/schoolops/enrollment/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStudentDirectory implements StudentDirectory using GORM
type GormStudentDirectory struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStudentDirectory creates a new GormStudentDirectory
func NewGormStudentDirectory(db *gorm.DB) *GormStudentDirectory {
	return &GormStudentDirectory{db: db, now: time.Now}
}

// FindByStudentNumber finds a student by number
func (r *GormStudentDirectory) FindByStudentNumber(ctx context.Context, number string) (*enrollment.Student, error) {
	var model models.StudentModel
	if err := r.db.WithContext(ctx).Where("student_number = ?", number).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByApplicationID finds the student provisioned for an application.
// A student minted for the application wins over a linked one.
func (r *GormStudentDirectory) FindByApplicationID(ctx context.Context, applicationID uuid.UUID) (*enrollment.Student, error) {
	var model models.StudentModel
	err := r.db.WithContext(ctx).Where("application_id = ?", applicationID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = r.db.WithContext(ctx).
			Joins("JOIN enrollment_student_links l ON l.student_number = students.student_number").
			Where("l.application_id = ?", applicationID).
			First(&model).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// LinkApplication records that an application re-enrolls an existing student
func (r *GormStudentDirectory) LinkApplication(ctx context.Context, applicationID uuid.UUID, studentNumber string) error {
	link := models.StudentLinkModel{ApplicationID: applicationID, StudentNumber: studentNumber, CreatedAt: r.now()}
	err := r.db.WithContext(ctx).Create(&link).Error
	if err == nil {
		return nil
	}
	if err = translateError(err); !errors.Is(err, shared.ErrAlreadyExists) {
		return fmt.Errorf("link student: %w", err)
	}

	var existing models.StudentLinkModel
	if findErr := r.db.WithContext(ctx).Where("application_id = ?", applicationID).First(&existing).Error; findErr != nil {
		return fmt.Errorf("find student link: %w", findErr)
	}
	if existing.StudentNumber != studentNumber {
		return shared.ErrAlreadyExists
	}
	return nil
}

// Create inserts a student. A duplicate number or application yields shared.ErrAlreadyExists.
func (r *GormStudentDirectory) Create(ctx context.Context, student *enrollment.Student) error {
	if err := r.db.WithContext(ctx).Create(models.StudentModelFromDomain(student)).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// GenerateStudentNumber returns the next free student number of the current year.
// Format: STU-YYYY-NNNNN
func (r *GormStudentDirectory) GenerateStudentNumber(ctx context.Context) (string, error) {
	year := r.now().Year()
	prefix := enrollment.StudentNumberPrefix(year)

	var lastStudent models.StudentModel
	err := r.db.WithContext(ctx).
		Where("student_number LIKE ?", prefix+"%").
		Order("student_number DESC").
		First(&lastStudent).Error

	sequence := 1
	if err == nil {
		seqStr := strings.TrimPrefix(lastStudent.StudentNumber, prefix)
		if seq, parseErr := strconv.Atoi(seqStr); parseErr == nil {
			sequence = seq + 1
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("find last student number: %w", err)
	}

	// Skip numbers taken by imported students that break the ordering
	for {
		number := enrollment.FormatStudentNumber(year, sequence)
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.StudentModel{}).
			Where("student_number = ?", number).
			Count(&count).Error; err != nil {
			return "", fmt.Errorf("check student number: %w", err)
		}
		if count == 0 {
			return number, nil
		}
		sequence++
	}
}
