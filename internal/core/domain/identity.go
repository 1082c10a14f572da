package domain

import "time"

// DefaultDisplayName is shown when the profile lookup fails or has no name.
const DefaultDisplayName = "User"

type SessionState int

const (
	SessionUnknown SessionState = iota
	SessionAnonymous
	SessionAuthenticated
)

func (s SessionState) String() string {
	switch s {
	case SessionAnonymous:
		return "anonymous"
	case SessionAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session is an authenticated backend session.
type Session struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type AuthEventType string

const (
	AuthSignedIn       AuthEventType = "SIGNED_IN"
	AuthSignedOut      AuthEventType = "SIGNED_OUT"
	AuthTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent is a session transition. Session is nil after a sign out.
type AuthEvent struct {
	Type    AuthEventType `json:"type"`
	Session *Session      `json:"session,omitempty"`
}

// Identity is the cached view of who is using a tab. IsAdmin and DisplayName
// are filled by independent lookups and may lag behind State.
type Identity struct {
	State       SessionState `json:"-"`
	UserID      string       `json:"user_id,omitempty"`
	Email       string       `json:"email,omitempty"`
	IsAdmin     bool         `json:"is_admin"`
	DisplayName string       `json:"display_name,omitempty"`
}

func (i Identity) Authenticated() bool {
	return i.State == SessionAuthenticated && i.UserID != ""
}

type Role string

const (
	RoleGuest Role = "guest"
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (i Identity) Role() Role {
	switch {
	case !i.Authenticated():
		return RoleGuest
	case i.IsAdmin:
		return RoleAdmin
	default:
		return RoleUser
	}
}

// Profile is the user-editable part of an account.
type Profile struct {
	UserID      string `json:"id"`
	Email       string `json:"email,omitempty"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
}

// Credential is the stored login of a user.
type Credential struct {
	UserID       string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
