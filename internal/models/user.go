package models

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"

	"github.com/anonto42/chirp/backend/internal/docstore"
)

// Collection names for account documents and the handle index.
const (
	AccountsCollection = "users"
	HandlesCollection  = "usernames"
)

// Account roles
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// DefaultAvatarURL is the avatar assigned at registration.
const DefaultAvatarURL = "https://api.dicebear.com/7.x/avataaars/svg?seed="

// Account is the profile document of a registered user
type Account struct {
	ID             string    `json:"id"`
	Handle         string    `json:"handle"`
	DisplayName    string    `json:"displayName"`
	Email          string    `json:"email,omitempty"`
	Bio            string    `json:"bio"`
	AvatarRef      string    `json:"avatarRef"`
	Role           string    `json:"role"`
	Blocked        bool      `json:"blocked"`
	FollowerIDs    []string  `json:"followerIds"`
	FollowingIDs   []string  `json:"followingIds"`
	PostCount      int64     `json:"postCount"`
	FollowerCount  int64     `json:"followerCount"`
	FollowingCount int64     `json:"followingCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

// IsAdmin reports whether the account holds the admin role.
func (a *Account) IsAdmin() bool { return a != nil && a.Role == RoleAdmin }

// Follows reports whether id is in the following set.
func (a *Account) Follows(id string) bool { return contains(a.FollowingIDs, id) }

// FollowedBy reports whether id is in the follower set.
func (a *Account) FollowedBy(id string) bool { return contains(a.FollowerIDs, id) }

// ToData converts the account to its stored form.
func (a *Account) ToData() docstore.Data {
	return docstore.Data{
		"uid":            a.ID,
		"handle":         a.Handle,
		"handleLower":    strings.ToLower(a.Handle),
		"displayName":    a.DisplayName,
		"email":          a.Email,
		"bio":            a.Bio,
		"avatarRef":      a.AvatarRef,
		"role":           a.Role,
		"blocked":        a.Blocked,
		"followerIds":    nonNil(a.FollowerIDs),
		"followingIds":   nonNil(a.FollowingIDs),
		"postCount":      a.PostCount,
		"followerCount":  a.FollowerCount,
		"followingCount": a.FollowingCount,
		"createdAt":      a.CreatedAt,
	}
}

// AccountFromData builds an account from a stored document.
func AccountFromData(id string, d docstore.Data) *Account {
	if id == "" {
		id = d.String("uid")
	}
	role := d.String("role")
	if role == "" {
		role = RoleMember
	}
	return &Account{
		ID:             id,
		Handle:         d.String("handle"),
		DisplayName:    d.String("displayName"),
		Email:          d.String("email"),
		Bio:            d.String("bio"),
		AvatarRef:      d.String("avatarRef"),
		Role:           role,
		Blocked:        d.Bool("blocked"),
		FollowerIDs:    d.Strings("followerIds"),
		FollowingIDs:   d.Strings("followingIds"),
		PostCount:      d.Int("postCount"),
		FollowerCount:  d.Int("followerCount"),
		FollowingCount: d.Int("followingCount"),
		CreatedAt:      d.Time("createdAt"),
	}
}

// Snapshot returns the display fields copied onto posts and notifications.
func (a *Account) Snapshot() AuthorSnapshot {
	return AuthorSnapshot{ID: a.ID, Handle: a.Handle, DisplayName: a.DisplayName, AvatarRef: a.AvatarRef}
}

// AuthorSnapshot is a historical copy of an account's display fields.
type AuthorSnapshot struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef"`
}

// HandleIndex maps a lowercased handle to the account id. Entries are never reused.
type HandleIndex struct {
	Handle    string    `json:"handle"`
	AccountID string    `json:"uid"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToData converts the index entry to its stored form.
func (h *HandleIndex) ToData() docstore.Data {
	return docstore.Data{"uid": h.AccountID, "createdAt": h.CreatedAt}
}

// HandleIndexFromData builds an index entry from a stored document.
func HandleIndexFromData(handle string, d docstore.Data) *HandleIndex {
	return &HandleIndex{Handle: handle, AccountID: d.String("uid"), CreatedAt: d.Time("createdAt")}
}

// ProfilePatch carries the profile fields to merge. Nil fields are left untouched.
type ProfilePatch struct {
	DisplayName *string `json:"displayName,omitempty" validate:"omitempty,min=1,max=50"`
	Bio         *string `json:"bio,omitempty" validate:"omitempty,max=160"`
	AvatarRef   *string `json:"avatarRef,omitempty" validate:"omitempty,url"`
}

// Empty reports whether the patch carries no field.
func (p ProfilePatch) Empty() bool {
	return p.DisplayName == nil && p.Bio == nil && p.AvatarRef == nil
}

// RegisterRequest defines the request body for creating an account
type RegisterRequest struct {
	Handle      string `json:"handle" validate:"required,handle"`
	DisplayName string `json:"displayName" validate:"required,min=1,max=50"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required"`
}

// SignInRequest defines the request body for local sign-in
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SetBlockedRequest defines the request body for blocking or unblocking an account
type SetBlockedRequest struct {
	Blocked bool `json:"blocked"`
}

// SetRoleRequest defines the request body for promoting or demoting an account
type SetRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=member admin"`
}

// Credential is a locally stored login (PostgreSQL), used when Firebase Auth is not configured
type Credential struct {
	gorm.Model   `json:"-"`
	UID          string `json:"uid" gorm:"uniqueIndex"`
	Email        string `json:"email" gorm:"uniqueIndex"` // Ensure email is unique across all credentials
	DisplayName  string `json:"displayName"`
	PasswordHash string `json:"-"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AccountsFromDocs converts query results.
func AccountsFromDocs(docs []docstore.Doc) []*Account {
	out := make([]*Account, 0, len(docs))
	for _, doc := range docs {
		out = append(out, AccountFromData(doc.ID, doc.Data))
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
