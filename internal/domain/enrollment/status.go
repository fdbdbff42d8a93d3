package enrollment

// ApplicationStatus represents the lifecycle status of an enrollment application
type ApplicationStatus string

const (
	StatusPending     ApplicationStatus = "PENDING"
	StatusUnderReview ApplicationStatus = "UNDER_REVIEW"
	StatusVerified    ApplicationStatus = "VERIFIED"
	StatusApproved    ApplicationStatus = "APPROVED"
	StatusRejected    ApplicationStatus = "REJECTED"
)

// AllStatuses lists every status in lifecycle order
var AllStatuses = []ApplicationStatus{
	StatusPending,
	StatusUnderReview,
	StatusVerified,
	StatusApproved,
	StatusRejected,
}

// IsValid checks if the status is a valid ApplicationStatus
func (s ApplicationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusVerified, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// String returns the string representation of ApplicationStatus
func (s ApplicationStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further status change is possible
func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransitionTo checks if the status can transition to the target status
func (s ApplicationStatus) CanTransitionTo(target ApplicationStatus) bool {
	switch s {
	case StatusPending:
		return target == StatusUnderReview || target == StatusRejected
	case StatusUnderReview:
		return target == StatusVerified || target == StatusRejected
	case StatusVerified:
		return target == StatusApproved || target == StatusRejected
	case StatusApproved, StatusRejected:
		return false // Terminal states
	}
	return false
}

// EnrollmentCategory classifies the applicant's relationship with the school
type EnrollmentCategory string

const (
	CategoryNew        EnrollmentCategory = "NEW"
	CategoryContinuing EnrollmentCategory = "CONTINUING"
	CategoryReturning  EnrollmentCategory = "RETURNING"
	CategoryTransferee EnrollmentCategory = "TRANSFEREE"
)

// IsValid checks if the category is known
func (c EnrollmentCategory) IsValid() bool {
	switch c {
	case CategoryNew, CategoryContinuing, CategoryReturning, CategoryTransferee:
		return true
	}
	return false
}

// String returns the string representation of EnrollmentCategory
func (c EnrollmentCategory) String() string {
	return string(c)
}

// Step is the progress indicator shown to applicants and reviewers
type Step struct {
	Number int    `json:"number"`
	Label  string `json:"label"`
	Total  int    `json:"total"`
}

// TotalSteps is the number of steps in the enrollment journey
const TotalSteps = 4

// StatusToStep maps a status to its progress step. It is the only place the
// mapping is defined; every view of an application goes through it.
func StatusToStep(status ApplicationStatus) Step {
	switch status {
	case StatusPending:
		return Step{Number: 1, Label: "Submitted", Total: TotalSteps}
	case StatusUnderReview:
		return Step{Number: 2, Label: "Document Review", Total: TotalSteps}
	case StatusVerified:
		return Step{Number: 3, Label: "Payment Review", Total: TotalSteps}
	case StatusApproved:
		return Step{Number: 4, Label: "Admitted", Total: TotalSteps}
	case StatusRejected:
		return Step{Number: 4, Label: "Closed", Total: TotalSteps}
	}
	return Step{Number: 0, Label: "Unknown", Total: TotalSteps}
}
