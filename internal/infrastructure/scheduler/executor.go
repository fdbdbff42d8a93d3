package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	enrollmentapp "github.com/schoolops/enrollment/internal/application/enrollment"
	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/domain/shared"
)

// ApplicationProvisioner is the slice of the enrollment service the executor needs
type ApplicationProvisioner interface {
	Provision(ctx context.Context, applicationID uuid.UUID, req enrollmentapp.ProvisionRequest) (*enrollmentapp.ApprovalResponse, error)
}

// ProvisionExecutor retries student provisioning through the enrollment service,
// so locking, idempotency and events behave as for an API call
type ProvisionExecutor struct {
	provisioner ApplicationProvisioner
}

// NewProvisionExecutor creates a new ProvisionExecutor
func NewProvisionExecutor(provisioner ApplicationProvisioner) *ProvisionExecutor {
	return &ProvisionExecutor{provisioner: provisioner}
}

// Execute provisions the job's application
func (e *ProvisionExecutor) Execute(ctx context.Context, job *Job) (string, error) {
	resp, err := e.provisioner.Provision(ctx, job.ApplicationID, enrollmentapp.ProvisionRequest{})
	if err != nil {
		if !retryable(err) {
			return "", fmt.Errorf("%w: %w", ErrNotRetryable, err)
		}
		return "", err
	}
	return resp.StudentID, nil
}

// retryable reports whether a later attempt could succeed.
// Transient infrastructure errors carry no domain code.
func retryable(err error) bool {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return true
	}
	switch de.Code {
	case enrollment.CodeProvisioningFailed, enrollment.CodeConflict, enrollment.CodeGateUnavailable:
		return true
	default:
		return false
	}
}
