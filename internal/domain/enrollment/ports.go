package enrollment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequirementsProvider supplies the document types an application must provide
type RequirementsProvider interface {
	RequiredDocumentTypes(ctx context.Context, gradeLevel string, category EnrollmentCategory) ([]string, error)
}

// PaymentStatus is the ledger status of a single payment
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusApproved PaymentStatus = "APPROVED"
	PaymentStatusRejected PaymentStatus = "REJECTED"
)

// LedgerPayment is one payment as reported by the payment ledger
type LedgerPayment struct {
	Amount decimal.Decimal
	Status PaymentStatus
}

// PaymentLedger reports the payments recorded against an application
type PaymentLedger interface {
	PaymentsFor(ctx context.Context, applicationID uuid.UUID) ([]LedgerPayment, error)
}

// FileReferenceChecker confirms that an uploaded document file exists
type FileReferenceChecker interface {
	Exists(ctx context.Context, fileRef string) (bool, error)
}

// ProvisioningGapFinder lists approved applications that still have no student id
type ProvisioningGapFinder interface {
	FindProvisioningGaps(ctx context.Context, approvedBefore time.Time, limit int) ([]uuid.UUID, error)
}
