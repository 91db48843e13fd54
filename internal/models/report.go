package models

import (
	"time"

	"github.com/anonto42/chirp/backend/internal/docstore"
)

// ReportsCollection holds moderation reports.
const ReportsCollection = "reports"

// Report statuses. Resolved and dismissed are terminal.
const (
	ReportPending   = "pending"
	ReportResolved  = "resolved"
	ReportDismissed = "dismissed"
)

// MaxReportDetails bounds the free-text details of a report.
const MaxReportDetails = 500

// ReportReasons is the closed set of reasons a report may carry.
var ReportReasons = []string{"spam", "hate_speech", "harassment", "misinformation", "violence", "other"}

// ValidReason reports whether reason belongs to ReportReasons.
func ValidReason(reason string) bool { return contains(ReportReasons, reason) }

// Report flags a content item for admin review
type Report struct {
	ID                  string     `json:"id"`
	ContentID           string     `json:"contentId"`
	ContentPreview      string     `json:"contentPreview"`
	ContentAuthorID     string     `json:"contentAuthorId"`
	ContentAuthorHandle string     `json:"contentAuthorHandle"`
	ReporterID          string     `json:"reporterId"`
	ReporterHandle      string     `json:"reporterHandle"`
	Reason              string     `json:"reason"`
	Details             string     `json:"details,omitempty"`
	Status              string     `json:"status"`
	ResolvedBy          *string    `json:"resolvedBy,omitempty"`
	ResolvedAt          *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// Pending reports whether the report still awaits a decision.
func (r *Report) Pending() bool { return r.Status == ReportPending }

// ToData converts the report to its stored form.
func (r *Report) ToData() docstore.Data {
	return docstore.Data{
		"contentId":           r.ContentID,
		"contentPreview":      r.ContentPreview,
		"contentAuthorId":     r.ContentAuthorID,
		"contentAuthorHandle": r.ContentAuthorHandle,
		"reporterId":          r.ReporterID,
		"reporterHandle":      r.ReporterHandle,
		"reason":              r.Reason,
		"details":             r.Details,
		"status":              r.Status,
		"resolvedBy":          r.ResolvedBy,
		"resolvedAt":          r.ResolvedAt,
		"createdAt":           r.CreatedAt,
	}
}

// ReportFromData builds a report from a stored document.
func ReportFromData(id string, d docstore.Data) *Report {
	return &Report{
		ID:                  id,
		ContentID:           d.String("contentId"),
		ContentPreview:      d.String("contentPreview"),
		ContentAuthorID:     d.String("contentAuthorId"),
		ContentAuthorHandle: d.String("contentAuthorHandle"),
		ReporterID:          d.String("reporterId"),
		ReporterHandle:      d.String("reporterHandle"),
		Reason:              d.String("reason"),
		Details:             d.String("details"),
		Status:              d.String("status"),
		ResolvedBy:          d.OptString("resolvedBy"),
		ResolvedAt:          d.OptTime("resolvedAt"),
		CreatedAt:           d.Time("createdAt"),
	}
}

// ReportsFromDocs converts query results.
func ReportsFromDocs(docs []docstore.Doc) []*Report {
	out := make([]*Report, 0, len(docs))
	for _, doc := range docs {
		out = append(out, ReportFromData(doc.ID, doc.Data))
	}
	return out
}

// CreateReportRequest defines the request body for reporting a post
type CreateReportRequest struct {
	ContentID string `json:"contentId" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
	Details   string `json:"details,omitempty"`
}
