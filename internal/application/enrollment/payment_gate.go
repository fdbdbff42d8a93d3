package enrollment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultGateTimeout bounds a single ledger lookup
const DefaultGateTimeout = 3 * time.Second

// GateConfig configures the payment readiness gate
type GateConfig struct {
	Timeout          time.Duration
	DefaultThreshold decimal.Decimal
	Thresholds       map[enrollment.EnrollmentCategory]decimal.Decimal
}

// PaymentReadinessGate answers whether an application has paid enough to be admitted.
// It only reads; it never changes the application or the ledger.
type PaymentReadinessGate struct {
	appRepo enrollment.ApplicationRepository
	ledger  enrollment.PaymentLedger
	cfg     GateConfig
	logger  *zap.Logger
}

// NewPaymentReadinessGate creates a new PaymentReadinessGate
func NewPaymentReadinessGate(
	appRepo enrollment.ApplicationRepository,
	ledger enrollment.PaymentLedger,
	cfg GateConfig,
	logger *zap.Logger,
) *PaymentReadinessGate {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultGateTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentReadinessGate{
		appRepo: appRepo,
		ledger:  ledger,
		cfg:     cfg,
		logger:  logger,
	}
}

// ThresholdFor returns the minimum approved total for a category
func (g *PaymentReadinessGate) ThresholdFor(category enrollment.EnrollmentCategory) decimal.Decimal {
	if t, ok := g.cfg.Thresholds[category]; ok {
		return t
	}
	return g.cfg.DefaultThreshold
}

// Evaluate loads the application and evaluates its payment readiness
func (g *PaymentReadinessGate) Evaluate(ctx context.Context, applicationID uuid.UUID) (*PaymentReadinessResponse, error) {
	app, err := g.appRepo.FindByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	r, err := g.EvaluateApplication(ctx, app)
	if err != nil {
		return nil, err
	}
	resp := ToPaymentReadinessResponse(app.ID, r)
	return &resp, nil
}

// EvaluateApplication queries the ledger for app under the configured timeout.
// Any ledger failure, including the timeout, is a GateUnavailable error so that
// an unknown answer is never read as ready or not ready.
func (g *PaymentReadinessGate) EvaluateApplication(ctx context.Context, app *enrollment.Application) (readiness enrollment.PaymentReadiness, err error) {
	ctx, span := telemetry.StartSpan(ctx, "payment_gate.evaluate", telemetry.ApplicationID(app.ID))
	defer func() { telemetry.EndSpan(span, err, telemetry.ReadinessKey.String(string(readiness.StatusLabel))) }()

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	payments, err := g.ledger.PaymentsFor(ctx, app.ID)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("payment ledger did not answer within %s: %w", g.cfg.Timeout, err)
		}
		g.logger.Warn("payment gate unavailable",
			zap.String("application_id", app.ID.String()),
			zap.Error(err),
		)
		return enrollment.PaymentReadiness{}, enrollment.NewGateUnavailableError(err)
	}

	return enrollment.EvaluateReadiness(g.ThresholdFor(app.Category), payments), nil
}
