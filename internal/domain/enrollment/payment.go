package enrollment

import "github.com/shopspring/decimal"

// ReadinessLabel summarises how far an application is from its payment threshold
type ReadinessLabel string

const (
	ReadinessNoPayment ReadinessLabel = "NO_PAYMENT"
	ReadinessPartial   ReadinessLabel = "PARTIAL"
	ReadinessReady     ReadinessLabel = "READY"
)

// PaymentReadiness is the result of evaluating the payment gate. It is computed
// on demand and never stored.
type PaymentReadiness struct {
	TotalRequired decimal.Decimal
	TotalPaid     decimal.Decimal
	Ready         bool
	StatusLabel   ReadinessLabel
}

// Outstanding returns how much is still missing, never negative
func (r PaymentReadiness) Outstanding() decimal.Decimal {
	diff := r.TotalRequired.Sub(r.TotalPaid)
	if diff.IsNegative() {
		return decimal.Zero
	}
	return diff
}

// EvaluateReadiness sums the approved payments and compares them with required
func EvaluateReadiness(required decimal.Decimal, payments []LedgerPayment) PaymentReadiness {
	paid := decimal.Zero
	for _, p := range payments {
		if p.Status == PaymentStatusApproved {
			paid = paid.Add(p.Amount)
		}
	}

	r := PaymentReadiness{
		TotalRequired: required,
		TotalPaid:     paid,
		Ready:         paid.GreaterThanOrEqual(required),
	}
	switch {
	case r.Ready:
		r.StatusLabel = ReadinessReady
	case paid.IsZero():
		r.StatusLabel = ReadinessNoPayment
	default:
		r.StatusLabel = ReadinessPartial
	}
	return r
}
