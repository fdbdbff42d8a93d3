package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/domain/shared"
	"github.com/schoolops/enrollment/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormDocumentRepository implements DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByID finds a document version by ID
func (r *GormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*enrollment.Document, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindCurrentByApplication returns the current version of every document type
func (r *GormDocumentRepository) FindCurrentByApplication(ctx context.Context, applicationID uuid.UUID) ([]enrollment.Document, error) {
	var docModels []models.DocumentModel
	err := r.db.WithContext(ctx).
		Where("application_id = ? AND is_current_version = ?", applicationID, true).
		Order("document_type ASC").
		Find(&docModels).Error
	if err != nil {
		return nil, err
	}
	return toDocuments(docModels), nil
}

// FindHistory returns every version of one document type, oldest first
func (r *GormDocumentRepository) FindHistory(ctx context.Context, applicationID uuid.UUID, documentType string) ([]enrollment.Document, error) {
	var docModels []models.DocumentModel
	err := r.db.WithContext(ctx).
		Where("application_id = ? AND document_type = ?", applicationID, documentType).
		Order("created_at ASC").
		Order("resubmission_count ASC").
		Find(&docModels).Error
	if err != nil {
		return nil, err
	}
	return toDocuments(docModels), nil
}

// SaveWithLock updates one document row if its stored version still equals doc.Version
func (r *GormDocumentRepository) SaveWithLock(ctx context.Context, doc *enrollment.Document) error {
	if err := saveDocumentWithLock(r.db.WithContext(ctx), doc); err != nil {
		return err
	}
	doc.Version++
	return nil
}

// Supersede retires prev and inserts next in a single transaction
func (r *GormDocumentRepository) Supersede(ctx context.Context, prev, next *enrollment.Document) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveDocumentWithLock(tx, prev); err != nil {
			return err
		}
		if err := tx.Create(models.DocumentModelFromDomain(next)).Error; err != nil {
			return fmt.Errorf("insert document version: %w", translateError(err))
		}
		return nil
	})
	if err != nil {
		return err
	}
	prev.Version++
	return nil
}

func saveDocumentWithLock(tx *gorm.DB, doc *enrollment.Document) error {
	expected := doc.Version
	model := models.DocumentModelFromDomain(doc)
	model.Version = expected + 1

	result := tx.Model(model).
		Where("version = ?", expected).
		Select("*").
		Omit("id", "created_at", "application_id", "document_type").
		Updates(model)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		var current models.DocumentModel
		if err := tx.Select("id", "version").Where("id = ?", doc.ID).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}
		return enrollment.NewConflictError(expected, current.Version)
	}
	return nil
}

func toDocuments(docModels []models.DocumentModel) []enrollment.Document {
	docs := make([]enrollment.Document, len(docModels))
	for i := range docModels {
		docs[i] = *docModels[i].ToDomain()
	}
	return docs
}
