package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/domain/shared"
	"github.com/schoolops/enrollment/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormApplicationRepository implements ApplicationRepository using GORM
type GormApplicationRepository struct {
	db *gorm.DB
}

// NewGormApplicationRepository creates a new GormApplicationRepository
func NewGormApplicationRepository(db *gorm.DB) *GormApplicationRepository {
	return &GormApplicationRepository{db: db}
}

// FindByID finds an application by ID
func (r *GormApplicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*enrollment.Application, error) {
	var model models.ApplicationModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, enrollment.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByConfirmationCode finds an application by its confirmation code
func (r *GormApplicationRepository) FindByConfirmationCode(ctx context.Context, code string) (*enrollment.Application, error) {
	var model models.ApplicationModel
	if err := r.db.WithContext(ctx).Where("confirmation_code = ?", code).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, enrollment.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists applications matching the filter
func (r *GormApplicationRepository) FindAll(ctx context.Context, filter shared.Filter) ([]enrollment.Application, error) {
	var appModels []models.ApplicationModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ApplicationModel{}), filter)
	if err := query.Find(&appModels).Error; err != nil {
		return nil, err
	}
	apps := make([]enrollment.Application, len(appModels))
	for i := range appModels {
		apps[i] = *appModels[i].ToDomain()
	}
	return apps, nil
}

// Count counts applications matching the filter
func (r *GormApplicationRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.ApplicationModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus counts applications per status
func (r *GormApplicationRepository) CountByStatus(ctx context.Context) (map[enrollment.ApplicationStatus]int64, error) {
	var rows []struct {
		Status enrollment.ApplicationStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.ApplicationModel{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[enrollment.ApplicationStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Create inserts a new application together with its initial documents
func (r *GormApplicationRepository) Create(ctx context.Context, app *enrollment.Application, documents []enrollment.Document) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(models.ApplicationModelFromDomain(app)).Error; err != nil {
			return translateError(err)
		}
		if len(documents) == 0 {
			return nil
		}
		docModels := make([]*models.DocumentModel, len(documents))
		for i := range documents {
			docModels[i] = models.DocumentModelFromDomain(&documents[i])
		}
		if err := tx.Create(&docModels).Error; err != nil {
			return fmt.Errorf("create documents: %w", translateError(err))
		}
		return nil
	})
}

// SaveWithLock persists the application only if the stored version still equals app.Version.
// The version is incremented on the aggregate after the row was written.
func (r *GormApplicationRepository) SaveWithLock(ctx context.Context, app *enrollment.Application) error {
	expected := app.Version
	model := models.ApplicationModelFromDomain(app)
	model.Version = expected + 1

	result := r.db.WithContext(ctx).
		Model(model).
		Where("version = ?", expected).
		Select("*").
		Omit(models.ImmutableColumns...).
		Updates(model)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		var current models.ApplicationModel
		err := r.db.WithContext(ctx).Select("id", "version").Where("id = ?", app.ID).First(&current).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return enrollment.ErrNotFound
			}
			return err
		}
		return enrollment.NewConflictError(expected, current.Version)
	}

	app.IncrementVersion()
	app.UpdatedAt = model.UpdatedAt
	return nil
}

// FindProvisioningGaps returns approved applications without a student id,
// oldest approval first
func (r *GormApplicationRepository) FindProvisioningGaps(ctx context.Context, approvedBefore time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := r.db.WithContext(ctx).Model(&models.ApplicationModel{}).
		Where("status = ?", enrollment.StatusApproved).
		Where("provisioned_student_id IS NULL").
		Where("approved_at < ?", approvedBefore).
		Order("approved_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// applyFilter narrows, sorts and pages a reviewer queue query
func (r *GormApplicationRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)
	return paginate(orderBy(query, filter, applicationSortColumns), filter)
}

// applyFilterWithoutPagination applies search and exact-match filters only
func (r *GormApplicationRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(
			"LOWER(confirmation_code) LIKE LOWER(?) OR LOWER(first_name) LIKE LOWER(?) OR LOWER(last_name) LIKE LOWER(?)",
			pattern, pattern, pattern,
		)
	}
	return applicationMatchColumns.whereEquals(query, filter.Equals)
}
