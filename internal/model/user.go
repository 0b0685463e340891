package model

import "strings"

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleMember    Role = "member"
)

func (r Role) IsStaff() bool {
	switch Role(strings.ToLower(string(r))) {
	case RoleAdmin, RoleModerator:
		return true
	default:
		return false
	}
}

type AuthClaims struct {
	UserID   int64  `json:"sub"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Type     string `json:"typ"`
	TokenID  string `json:"jti"`
}

// Actor identifies the principal performing a request.
type Actor struct {
	UserID   int64  `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Role     Role   `json:"role,omitempty"`
	IP       string `json:"ip,omitempty"`
}

// Ref returns the actor id as a nullable reference; anonymous actors map to nil.
func (a Actor) Ref() *int64 {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}
