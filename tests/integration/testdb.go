// Package integration runs the enrollment API against a real PostgreSQL
// started with testcontainers.
package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/schoolops/enrollment/internal/infrastructure/config"
	"github.com/schoolops/enrollment/internal/infrastructure/logger"
	"github.com/schoolops/enrollment/internal/infrastructure/migration"
	"github.com/schoolops/enrollment/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// TestDB is a migrated enrollment database in a throwaway container
type TestDB struct {
	*persistence.Database
	t *testing.T
}

// NewTestDB starts PostgreSQL, connects through persistence.Open and applies
// the embedded migrations. Everything is torn down when the test ends.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test requires docker")
	}
	ctx := t.Context()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("enrollment_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "postgres",
		Password:        "postgres",
		DBName:          "enrollment_test",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5,
	}
	level := gormlogger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = gormlogger.Info
	}
	db, err := persistence.Open(ctx, &cfg,
		persistence.WithLogger(logger.NewGormLogger(zaptest.NewLogger(t), level)),
		persistence.WithConnectAttempts(10, 500*time.Millisecond),
	)
	require.NoError(t, err, "connect to postgres")
	t.Cleanup(func() { _ = db.Close() })

	migrate(t, db.DB)
	return &TestDB{Database: db, t: t}
}

// CleanTables empties every enrollment table
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()
	err := tdb.DB.Exec(`TRUNCATE TABLE enrollment_payments, enrollment_student_links, students, enrollment_documents, enrollment_applications CASCADE`).Error
	require.NoError(tdb.t, err, "truncate enrollment tables")
}

func migrate(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	require.NoError(t, err)

	src, err := migration.EmbeddedSource()
	require.NoError(t, err, "open embedded migrations")
	m, err := migration.New(sqlDB, src, nil)
	require.NoError(t, err, "create migrator")
	require.NoError(t, m.Up(), "apply migrations")

	version, dirty, err := m.Version()
	require.NoError(t, err)
	require.False(t, dirty, "schema left dirty at version %d", version)
}
