package port

import (
	"context"

	"github.com/maspithik/angkringan/internal/core/domain"
)

// AuthProvider is the backend session API for one device.
type AuthProvider interface {
	// CurrentSession returns nil with no error when nobody is signed in
	CurrentSession(ctx context.Context) (*domain.Session, error)

	OnSessionChange(fn func(domain.AuthEvent)) (unsubscribe func())

	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)

	SignUp(ctx context.Context, email, password string, profile domain.Profile) (*domain.Session, error)

	SignOut(ctx context.Context) error
}

// SessionVerifier resolves bearer tokens for stateless callers.
type SessionVerifier interface {
	Verify(token string) (*domain.Session, error)
}

type CredentialStore interface {
	// CreateUser inserts the login and its profile together
	CreateUser(ctx context.Context, cred domain.Credential, profile domain.Profile) error

	FindCredential(ctx context.Context, email string) (*domain.Credential, error)
}
