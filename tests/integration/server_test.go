package integration

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	enrollmentapp "github.com/schoolops/enrollment/internal/application/enrollment"
	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/infrastructure/config"
	"github.com/schoolops/enrollment/internal/infrastructure/event"
	"github.com/schoolops/enrollment/internal/infrastructure/persistence"
	"github.com/schoolops/enrollment/internal/infrastructure/requirements"
	"github.com/schoolops/enrollment/internal/infrastructure/storage"
	"github.com/schoolops/enrollment/internal/interfaces/http/dto"
	"github.com/schoolops/enrollment/internal/interfaces/http/handler"
	"github.com/schoolops/enrollment/internal/interfaces/http/middleware"
	"github.com/schoolops/enrollment/internal/interfaces/http/router"
	"github.com/schoolops/enrollment/tests/testutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"
)

const (
	reviewer       = "registrar-1"
	newThreshold   = "5000.00"
	apiApplication = "/api/v1/enrollment/applications"
	apiDocuments   = "/api/v1/enrollment/documents"
)

// testServer is the HTTP stack of cmd/server over a container database
type testServer struct {
	engine    *gin.Engine
	service   *enrollmentapp.EnrollmentService
	events    *testutil.RecordingHandler
	applicant *testutil.Client
	reviewer  *testutil.Client
}

func newTestServer(t *testing.T, tdb *TestDB) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dto.UseJSONFieldNames()
	log := zaptest.NewLogger(t)

	appRepo := persistence.NewGormApplicationRepository(tdb.DB)
	docRepo := persistence.NewGormDocumentRepository(tdb.DB)
	provider := requirements.NewConfigProvider(config.RequirementsConfig{
		Default: map[string][]string{
			"NEW": {"BIRTH_CERTIFICATE", "REPORT_CARD"},
			"*":   {"REPORT_CARD"},
		},
	})

	registry := enrollmentapp.NewDocumentRegistry(appRepo, docRepo, provider, log,
		enrollmentapp.WithFileReferenceChecker(storage.NewStubFileStore()))
	gate := enrollmentapp.NewPaymentReadinessGate(appRepo, persistence.NewGormPaymentLedger(tdb.DB), enrollmentapp.GateConfig{
		Timeout:          2 * time.Second,
		DefaultThreshold: decimal.Zero,
		Thresholds: map[enrollment.EnrollmentCategory]decimal.Decimal{
			enrollment.CategoryNew: decimal.RequireFromString(newThreshold),
		},
	}, log)
	provisioner := enrollmentapp.NewAdmissionProvisioner(appRepo, persistence.NewGormStudentDirectory(tdb.DB), log)
	service := enrollmentapp.NewEnrollmentService(appRepo, docRepo, provider, registry, gate, provisioner, log,
		enrollmentapp.WithLocker(enrollmentapp.NewLocalLocker()))

	bus := event.NewInMemoryEventBus(log)
	events := testutil.NewRecordingHandler(enrollmentapp.AllEventTypes...)
	bus.Subscribe(events)
	bus.Subscribe(enrollmentapp.NewAuditLogHandler(log))
	service.SetEventPublisher(bus)
	registry.SetEventPublisher(bus)

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.BodyLimit(1<<20))
	r := router.NewRouter(engine)
	r.Register(router.NewEnrollmentGroup(router.EnrollmentRoutes{
		Applications: handler.NewEnrollmentHandler(service, gate),
		Documents:    handler.NewDocumentHandler(registry),
		ReviewerAuth: middleware.ReviewerAuth(middleware.ReviewerAuthConfig{Logger: log}),
	}))
	r.Setup()

	client := testutil.NewClient(engine)
	return &testServer{
		engine:    engine,
		service:   service,
		events:    events,
		applicant: client,
		reviewer:  client.WithHeader(middleware.ReviewerIDHeader, reviewer),
	}
}

func newApplicationBody(category string) map[string]any {
	return map[string]any{
		"academic_period": "2026-2027",
		"grade_level":     "GRADE_7",
		"category":        category,
		"profile": map[string]any{
			"first_name": "Ana",
			"last_name":  "Reyes",
			"birth_date": "2014-03-09",
			"gender":     "FEMALE",
			"guardians": []map[string]any{
				{"name": "Maria Reyes", "relationship": "MOTHER", "email": "maria@example.com"},
			},
		},
	}
}
