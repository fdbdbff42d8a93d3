package enrollment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolops/enrollment/internal/domain/shared"
)

// DocumentStatus is the verification status of one document version
type DocumentStatus string

const (
	DocumentStatusPending  DocumentStatus = "PENDING"
	DocumentStatusVerified DocumentStatus = "VERIFIED"
	DocumentStatusRejected DocumentStatus = "REJECTED"
)

// IsValid checks if the status is a valid DocumentStatus
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusPending, DocumentStatusVerified, DocumentStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of DocumentStatus
func (s DocumentStatus) String() string {
	return string(s)
}

// Document is one version of a required document of an application.
// Superseded versions are kept with IsCurrentVersion = false.
type Document struct {
	shared.BaseEntity
	ApplicationID     uuid.UUID
	DocumentType      string
	Status            DocumentStatus
	FileRef           string
	ResubmissionCount int
	IsCurrentVersion  bool
	SupersedesID      *uuid.UUID
	ReviewerID        string
	ReviewedAt        *time.Time
	RejectionReason   string
	Version           int
}

// NewDocument creates the first PENDING version of a required document
func NewDocument(applicationID uuid.UUID, documentType string) (*Document, error) {
	if applicationID == uuid.Nil {
		return nil, NewValidationError("application_id", "Application ID cannot be empty")
	}
	documentType = strings.TrimSpace(documentType)
	if documentType == "" {
		return nil, NewValidationError("document_type", "Document type cannot be empty")
	}
	return &Document{
		BaseEntity:       shared.NewBaseEntity(),
		ApplicationID:    applicationID,
		DocumentType:     documentType,
		Status:           DocumentStatusPending,
		IsCurrentVersion: true,
		Version:          1,
	}, nil
}

func (d *Document) ensureCurrent() error {
	if !d.IsCurrentVersion {
		return NewPreconditionFailedError("document_id",
			fmt.Sprintf("Document %s has been superseded by a newer version", d.ID))
	}
	return nil
}

// Verify accepts a PENDING document
func (d *Document) Verify(reviewerID string) error {
	if strings.TrimSpace(reviewerID) == "" {
		return NewValidationError("reviewer_id", "Reviewer is required")
	}
	if err := d.ensureCurrent(); err != nil {
		return err
	}
	if d.Status != DocumentStatusPending {
		return NewPreconditionFailedError("status",
			fmt.Sprintf("Only %s documents can be verified, document is %s", DocumentStatusPending, d.Status))
	}
	if d.AwaitsUpload() {
		return NewPreconditionFailedError("file_ref", "Document is awaiting the applicant's upload")
	}

	now := time.Now()
	d.Status = DocumentStatusVerified
	d.ReviewerID = reviewerID
	d.ReviewedAt = &now
	d.RejectionReason = ""
	d.Touch(now)
	return nil
}

// Reject refuses a PENDING or VERIFIED document. The row is kept for audit.
func (d *Document) Reject(reviewerID, reason string) error {
	if strings.TrimSpace(reviewerID) == "" {
		return NewValidationError("reviewer_id", "Reviewer is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewValidationError("reason", "Rejection reason is required")
	}
	if err := d.ensureCurrent(); err != nil {
		return err
	}
	if d.Status == DocumentStatusRejected {
		return NewPreconditionFailedError("status", "Document is already rejected")
	}

	now := time.Now()
	d.Status = DocumentStatusRejected
	d.ReviewerID = reviewerID
	d.ReviewedAt = &now
	d.RejectionReason = reason
	d.Touch(now)
	return nil
}

// CanBeResubmitted reports whether a new version may replace this one
func (d *Document) CanBeResubmitted() bool {
	return d.IsCurrentVersion && (d.Status == DocumentStatusPending || d.Status == DocumentStatusRejected)
}

// AwaitsUpload reports whether this is a version opened by a resubmission
// request that has not received its file yet
func (d *Document) AwaitsUpload() bool {
	return d.IsCurrentVersion && d.Status == DocumentStatusPending && d.FileRef == "" && d.SupersedesID != nil
}

// AttachFile stores the applicant's upload on a version awaiting it
func (d *Document) AttachFile(fileRef string) error {
	fileRef = strings.TrimSpace(fileRef)
	if fileRef == "" {
		return NewValidationError("file_ref", "File reference is required")
	}
	if err := d.ensureCurrent(); err != nil {
		return err
	}
	if !d.AwaitsUpload() {
		return NewPreconditionFailedError("status", "Document is not awaiting an upload")
	}
	d.FileRef = fileRef
	d.Touch(time.Now())
	return nil
}

// Supersede retires this version and returns its PENDING successor carrying
// fileRef. The counter is not capped: every resubmission increments it.
func (d *Document) Supersede(fileRef string) (*Document, error) {
	if err := d.ensureCurrent(); err != nil {
		return nil, err
	}
	if !d.CanBeResubmitted() {
		return nil, NewPreconditionFailedError("status",
			fmt.Sprintf("A %s document cannot be resubmitted", d.Status))
	}

	prevID := d.ID
	next := &Document{
		BaseEntity:        shared.NewBaseEntity(),
		ApplicationID:     d.ApplicationID,
		DocumentType:      d.DocumentType,
		Status:            DocumentStatusPending,
		FileRef:           strings.TrimSpace(fileRef),
		ResubmissionCount: d.ResubmissionCount + 1,
		IsCurrentVersion:  true,
		SupersedesID:      &prevID,
		Version:           1,
	}

	d.IsCurrentVersion = false
	return next, nil
}

// OutstandingTypes returns the required types without a VERIFIED current version,
// in the order they are required
func OutstandingTypes(required []string, documents []Document) []string {
	verified := make(map[string]bool, len(documents))
	for _, doc := range documents {
		if doc.IsCurrentVersion && doc.Status == DocumentStatusVerified {
			verified[doc.DocumentType] = true
		}
	}
	outstanding := make([]string, 0)
	for _, t := range required {
		if !verified[t] {
			outstanding = append(outstanding, t)
		}
	}
	return outstanding
}
