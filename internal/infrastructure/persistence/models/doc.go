// Package models contains GORM persistence models that map to database tables.
// Domain entities carry no GORM tags; each model converts with ToDomain and
// FromDomain, and repositories only read and write models.
//
// Structure:
//   - base.go: BaseModel and AggregateModel
//   - enrollment.go: applications, documents, students and ledger payments
package models
