package enrollment

import "time"

// ApplicationState is a status-specific view of an application carrying only
// the data that is valid in that status. The set of implementations is closed.
type ApplicationState interface {
	Status() ApplicationStatus
	isApplicationState()
}

// PendingState is a submitted application nobody has picked up yet
type PendingState struct {
	SubmittedAt time.Time
}

// UnderReviewState is an application whose documents are being checked
type UnderReviewState struct {
	StartedAt  time.Time
	ReviewerID string
}

// VerifiedState is an application whose documents were accepted
type VerifiedState struct {
	VerifiedAt time.Time
	VerifiedBy string
	Override   *Override
}

// ApprovedState is an admitted application. StudentID is nil while the
// student has not been provisioned.
type ApprovedState struct {
	StudentID  *string
	ApprovedAt time.Time
	ApprovedBy string
	Override   *Override
}

// RejectedState is a closed application with the reason it was refused
type RejectedState struct {
	Reason     string
	RejectedAt time.Time
	RejectedBy string
}

func (PendingState) Status() ApplicationStatus     { return StatusPending }
func (UnderReviewState) Status() ApplicationStatus { return StatusUnderReview }
func (VerifiedState) Status() ApplicationStatus    { return StatusVerified }
func (ApprovedState) Status() ApplicationStatus    { return StatusApproved }
func (RejectedState) Status() ApplicationStatus    { return StatusRejected }

func (PendingState) isApplicationState()     {}
func (UnderReviewState) isApplicationState() {}
func (VerifiedState) isApplicationState()    {}
func (ApprovedState) isApplicationState()    {}
func (RejectedState) isApplicationState()    {}

// State projects the application onto the variant of its current status
func (a *Application) State() ApplicationState {
	switch a.Status {
	case StatusUnderReview:
		return UnderReviewState{StartedAt: deref(a.ReviewStartedAt), ReviewerID: a.ReviewStartedBy}
	case StatusVerified:
		return VerifiedState{VerifiedAt: deref(a.VerifiedAt), VerifiedBy: a.VerifiedBy, Override: a.VerificationOverride}
	case StatusApproved:
		var studentID *string
		if a.ProvisionedStudentID != "" {
			id := a.ProvisionedStudentID
			studentID = &id
		}
		return ApprovedState{
			StudentID:  studentID,
			ApprovedAt: deref(a.ApprovedAt),
			ApprovedBy: a.ApprovedBy,
			Override:   a.ApprovalOverride,
		}
	case StatusRejected:
		return RejectedState{Reason: a.RejectionReason, RejectedAt: deref(a.RejectedAt), RejectedBy: a.RejectedBy}
	}
	return PendingState{SubmittedAt: a.CreatedAt}
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
