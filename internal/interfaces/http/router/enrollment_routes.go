package router

import (
	"github.com/gin-gonic/gin"
	"github.com/schoolops/enrollment/internal/interfaces/http/handler"
)

// EnrollmentRoutes wires the enrollment handlers and their middleware
type EnrollmentRoutes struct {
	Applications *handler.EnrollmentHandler
	Documents    *handler.DocumentHandler
	// ReviewerAuth resolves the acting reviewer on review routes
	ReviewerAuth gin.HandlerFunc
	// ApplicantLimit throttles the unauthenticated applicant routes, may be nil
	ApplicantLimit gin.HandlerFunc
	// Extra middleware applied to every enrollment route (tracing attributes)
	Extra []gin.HandlerFunc
}

// NewEnrollmentGroup builds the /enrollment domain group.
// Applicant routes need no reviewer. Review routes run ReviewerAuth first.
func NewEnrollmentGroup(routes EnrollmentRoutes) *DomainGroup {
	apps := routes.Applications
	docs := routes.Documents

	group := NewDomainGroup("enrollment", "/enrollment")

	applicant := group.Group("applicant", "")
	applicant.Use(routes.ApplicantLimit)
	applicant.Use(routes.Extra...)
	applicant.POST("/applications", apps.Create).
		GET("/applications/by-code/:code", apps.GetByConfirmationCode).
		PUT("/applications/:id/profile", apps.UpdateProfile).
		POST("/documents/:id/resubmit", docs.Resubmit)

	reviewer := group.Group("reviewer", "")
	reviewer.Use(routes.ReviewerAuth)
	reviewer.Use(routes.Extra...)
	reviewer.GET("/applications", apps.List).
		GET("/applications/stats/status-counts", apps.CountByStatus).
		GET("/applications/:id", apps.GetStatus).
		GET("/applications/:id/payment-readiness", apps.PaymentReadiness).
		POST("/applications/:id/begin-review", apps.BeginReview).
		POST("/applications/:id/mark-verified", apps.MarkVerified).
		POST("/applications/:id/approve", apps.Approve).
		POST("/applications/:id/provision", apps.Provision).
		POST("/applications/:id/reject", apps.Reject).
		POST("/applications/:id/documents/:document_id/request-resubmission", apps.RequestResubmission).
		POST("/documents/:id/verify", docs.Verify).
		POST("/documents/:id/reject", docs.Reject).
		GET("/documents/:id/history", docs.History)

	return group
}
