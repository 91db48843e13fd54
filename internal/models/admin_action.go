package models

import (
	"time"

	"github.com/anonto42/chirp/backend/internal/docstore"
)

// AdminActionsCollection is the append-only audit log.
const AdminActionsCollection = "admin_actions"

// Audit action kinds
const (
	ActionBlock         = "block"
	ActionUnblock       = "unblock"
	ActionPromote       = "promote"
	ActionDemote        = "demote"
	ActionDeleteContent = "deleteContent"
	ActionResolveReport = "resolveReport"
	ActionDismissReport = "dismissReport"
)

// Audit target types
const (
	TargetUser   = "user"
	TargetPost   = "post"
	TargetReport = "report"
)

// AdminAction records one moderation decision. It is never updated or deleted.
type AdminAction struct {
	ID                string    `json:"id"`
	AdminID           string    `json:"adminId"`
	AdminHandle       string    `json:"adminHandle"`
	ActionKind        string    `json:"actionKind"`
	TargetType        string    `json:"targetType"`
	TargetID          string    `json:"targetId"`
	TargetDescription string    `json:"targetDescription"`
	CreatedAt         time.Time `json:"createdAt"`
}

// ToData converts the audit record to its stored form.
func (a *AdminAction) ToData() docstore.Data {
	return docstore.Data{
		"adminId":           a.AdminID,
		"adminHandle":       a.AdminHandle,
		"actionKind":        a.ActionKind,
		"targetType":        a.TargetType,
		"targetId":          a.TargetID,
		"targetDescription": a.TargetDescription,
		"createdAt":         a.CreatedAt,
	}
}

// AdminActionFromData builds an audit record from a stored document.
func AdminActionFromData(id string, d docstore.Data) *AdminAction {
	return &AdminAction{
		ID:                id,
		AdminID:           d.String("adminId"),
		AdminHandle:       d.String("adminHandle"),
		ActionKind:        d.String("actionKind"),
		TargetType:        d.String("targetType"),
		TargetID:          d.String("targetId"),
		TargetDescription: d.String("targetDescription"),
		CreatedAt:         d.Time("createdAt"),
	}
}

// AdminActionsFromDocs converts query results.
func AdminActionsFromDocs(docs []docstore.Doc) []*AdminAction {
	out := make([]*AdminAction, 0, len(docs))
	for _, doc := range docs {
		out = append(out, AdminActionFromData(doc.ID, doc.Data))
	}
	return out
}
