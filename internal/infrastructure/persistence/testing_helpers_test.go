package persistence

import (
	"testing"
	"time"

	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupEnrollmentTestDB opens an in-memory SQLite database with the enrollment tables.
// A single connection keeps every query on the same in-memory database.
func setupEnrollmentTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), GormConfig(logger.Default.LogMode(logger.Silent)))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))
	return db
}

func newApplicationFixture(t *testing.T, lastName, grade string) *enrollment.Application {
	profile := enrollment.ApplicantProfile{
		FirstName: "Maria",
		LastName:  lastName,
		BirthDate: time.Date(2015, 3, 14, 0, 0, 0, 0, time.UTC),
		Gender:    enrollment.GenderFemale,
		Guardians: []enrollment.GuardianContact{{Name: "Ana " + lastName, Relationship: "Mother", Phone: "+63 900 000 0000"}},
	}
	app, err := enrollment.NewApplication(enrollment.NewConfirmationCode(time.Now()), "2026-2027", grade, enrollment.CategoryNew, profile)
	require.NoError(t, err)
	app.ClearEvents()
	return app
}
