package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPaymentLedger reads the cashier's payment records for the readiness gate
type GormPaymentLedger struct {
	db *gorm.DB
}

// NewGormPaymentLedger creates a new GormPaymentLedger
func NewGormPaymentLedger(db *gorm.DB) *GormPaymentLedger {
	return &GormPaymentLedger{db: db}
}

// PaymentsFor returns every payment recorded against the application, oldest first
func (l *GormPaymentLedger) PaymentsFor(ctx context.Context, applicationID uuid.UUID) ([]enrollment.LedgerPayment, error) {
	var rows []models.PaymentModel
	err := l.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("recorded_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query payment ledger: %w", err)
	}
	payments := make([]enrollment.LedgerPayment, len(rows))
	for i := range rows {
		payments[i] = rows[i].ToDomain()
	}
	return payments, nil
}
