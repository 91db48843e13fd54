package models

// ToggleLikeRequest carries the caller's last known like state
type ToggleLikeRequest struct {
	Liked bool `json:"liked"`
}

// LikeState is returned after a like toggle
type LikeState struct {
	ContentID string `json:"contentId"`
	Liked     bool   `json:"liked"`
}
