package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/schoolops/enrollment/internal/domain/shared"
	"github.com/schoolops/enrollment/internal/infrastructure/config"
	"github.com/schoolops/enrollment/internal/infrastructure/persistence/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database is the enrollment store's connection pool
type Database struct {
	DB *gorm.DB
}

type openOptions struct {
	logger      gormlogger.Interface
	plugins     []gorm.Plugin
	attempts    int
	attemptWait time.Duration
}

// OpenOption configures Open
type OpenOption func(*openOptions)

// WithLogger sets the GORM logger. Statements are not logged by default.
func WithLogger(l gormlogger.Interface) OpenOption {
	return func(o *openOptions) { o.logger = l }
}

// WithPlugins installs GORM plugins (tracing) once connected
func WithPlugins(plugins ...gorm.Plugin) OpenOption {
	return func(o *openOptions) { o.plugins = append(o.plugins, plugins...) }
}

// WithConnectAttempts retries the first ping, for containers where the
// service starts before PostgreSQL accepts connections
func WithConnectAttempts(attempts int, wait time.Duration) OpenOption {
	return func(o *openOptions) {
		o.attempts = max(attempts, 1)
		o.attemptWait = wait
	}
}

// Open connects to PostgreSQL, sizes the pool and waits until it answers
func Open(ctx context.Context, cfg *config.DatabaseConfig, opts ...OpenOption) (*Database, error) {
	o := openOptions{logger: gormlogger.Discard, attempts: 1}
	for _, opt := range opts {
		opt(&o)
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DSN()), GormConfig(o.logger))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db := &Database{DB: gdb}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := db.waitReady(ctx, o.attempts, o.attemptWait); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	for _, plugin := range o.plugins {
		if err := gdb.Use(plugin); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("install %s: %w", plugin.Name(), err)
		}
	}
	return db, nil
}

func (d *Database) waitReady(ctx context.Context, attempts int, wait time.Duration) error {
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = d.Ping(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("ping database: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("ping database after %d attempt(s): %w", attempts, err)
}

// GormConfig is the gorm.Config shared by every connection.
// TranslateError turns unique violations into gorm.ErrDuplicatedKey.
func GormConfig(l gormlogger.Interface) *gorm.Config {
	return &gorm.Config{
		Logger:                 l,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	}
}

// AutoMigrate creates the enrollment tables from the models.
// Deployed schemas come from the SQL migrations; this is for tests and local runs.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.ApplicationModel{},
		&models.DocumentModel{},
		&models.StudentModel{},
		&models.StudentLinkModel{},
		&models.PaymentModel{},
	)
}

// Ping checks that the pool can reach the server
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// SchemaReady reports whether the migrations created the applications table
func (d *Database) SchemaReady(ctx context.Context) (bool, error) {
	var count int64
	err := d.DB.WithContext(ctx).
		Raw("SELECT count(*) FROM information_schema.tables WHERE table_schema = CURRENT_SCHEMA() AND table_name = ?",
			models.ApplicationModel{}.TableName()).
		Scan(&count).Error
	return count > 0, err
}

// Close releases the pool
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translateError maps GORM errors onto the shared domain errors
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.ErrAlreadyExists.WithCause(err)
	default:
		return err
	}
}
