package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maspithik/angkringan/internal/core/domain"
)

type fakeCreds struct {
	mu       sync.Mutex
	byEmail  map[string]domain.Credential
	profiles map[string]domain.Profile
}

func newFakeCreds() *fakeCreds {
	return &fakeCreds{
		byEmail:  make(map[string]domain.Credential),
		profiles: make(map[string]domain.Profile),
	}
}

func (f *fakeCreds) CreateUser(ctx context.Context, cred domain.Credential, profile domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[cred.Email]; ok {
		return domain.ErrEmailTaken
	}
	f.byEmail[cred.Email] = cred
	f.profiles[cred.UserID] = profile
	return nil
}

func (f *fakeCreds) FindCredential(ctx context.Context, email string) (*domain.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cred, ok := f.byEmail[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &cred, nil
}

func newTestService() (*Service, *fakeCreds) {
	creds := newFakeCreds()
	return NewService(creds, NewMemorySessionStore(), "test-secret", time.Hour), creds
}

func TestSignUpThenSignIn(t *testing.T) {
	svc, creds := newTestService()
	ctx := context.Background()
	dev := svc.Device("dev-1")

	session, err := dev.SignUp(ctx, "  Budi@Example.com ", "rahasia", domain.Profile{Name: "Budi"})
	require.NoError(t, err)
	assert.Equal(t, "budi@example.com", session.Email)
	assert.NotEmpty(t, session.UserID)

	profile := creds.profiles[session.UserID]
	assert.Equal(t, "Budi", profile.Name)
	assert.Equal(t, session.UserID, profile.UserID)
	assert.NotEqual(t, "rahasia", creds.byEmail["budi@example.com"].PasswordHash)

	require.NoError(t, dev.SignOut(ctx))
	current, err := dev.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	again, err := dev.SignInWithPassword(ctx, "budi@example.com", "rahasia")
	require.NoError(t, err)
	assert.Equal(t, session.UserID, again.UserID)

	current, err = dev.CurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, session.UserID, current.UserID)
}

func TestSignUpValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	dev := svc.Device("dev-1")

	_, err := dev.SignUp(ctx, "not-an-email", "rahasia", domain.Profile{})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = dev.SignUp(ctx, "a@b.co", "123", domain.Profile{})
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = dev.SignUp(ctx, "a@b.co", "123456", domain.Profile{})
	require.NoError(t, err)
	_, err = dev.SignUp(ctx, "a@b.co", "123456", domain.Profile{})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	dev := svc.Device("dev-1")

	_, err := dev.SignInWithPassword(ctx, "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)

	_, err = dev.SignUp(ctx, "sari@example.com", "benar123", domain.Profile{})
	require.NoError(t, err)
	_, err = dev.SignInWithPassword(ctx, "sari@example.com", "salah123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestSessionEventsStayOnDevice(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	var mu sync.Mutex
	var events []domain.AuthEventType
	stop := svc.Device("dev-1").OnSessionChange(func(ev domain.AuthEvent) {
		mu.Lock()
		events = append(events, ev.Type)
		mu.Unlock()
	})
	defer stop()

	other := svc.Device("dev-2")
	var otherEvents int
	stopOther := other.OnSessionChange(func(domain.AuthEvent) { otherEvents++ })
	defer stopOther()

	_, err := svc.Device("dev-1").SignUp(ctx, "tab@example.com", "rahasia", domain.Profile{})
	require.NoError(t, err)
	_, err = svc.Device("dev-1").Refresh(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Device("dev-1").SignOut(ctx))

	mu.Lock()
	assert.Equal(t, []domain.AuthEventType{domain.AuthSignedIn, domain.AuthTokenRefreshed, domain.AuthSignedOut}, events)
	mu.Unlock()
	assert.Zero(t, otherEvents)

	current, err := other.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestVerify(t *testing.T) {
	svc, _ := newTestService()
	session, err := svc.Device("dev-1").SignUp(context.Background(), "v@example.com", "rahasia", domain.Profile{})
	require.NoError(t, err)

	verified, err := svc.Verify(session.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, verified.UserID)
	assert.Equal(t, "v@example.com", verified.Email)

	_, err = svc.Verify(session.AccessToken + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewService(newFakeCreds(), NewMemorySessionStore(), "other-secret", time.Hour)
	_, err = other.Verify(session.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredSessionIsDropped(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	dev := svc.Device("dev-1")
	_, err := dev.SignUp(ctx, "exp@example.com", "rahasia", domain.Profile{})
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	current, err := dev.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	_, err = dev.Refresh(ctx)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
