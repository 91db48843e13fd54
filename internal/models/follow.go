package models

// FollowState describes the edge between the caller and another account
type FollowState struct {
	AccountID string `json:"accountId"`
	Following bool   `json:"following"`
	Partial   bool   `json:"partial,omitempty"`
}
