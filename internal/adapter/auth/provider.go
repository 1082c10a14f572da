// Package auth issues and tracks password sessions. A session belongs to a
// device and is seen by all of its tabs.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/maspithik/angkringan/internal/core/domain"
	"github.com/maspithik/angkringan/internal/port"
)

const MinPasswordLength = 6

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrWeakPassword = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrInvalidEmail = errors.New("invalid email address")
)

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Service signs sessions with an HS256 secret and hands out one Device per
// device id.
type Service struct {
	creds  port.CredentialStore
	store  SessionStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	devices map[string]*Device
}

func NewService(creds port.CredentialStore, store SessionStore, secret string, ttl time.Duration) *Service {
	return &Service{
		creds:   creds,
		store:   store,
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
		devices: make(map[string]*Device),
	}
}

// Device returns the session API of deviceID.
func (s *Service) Device(deviceID string) *Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		d = &Device{svc: s, id: deviceID, listeners: make(map[int]func(domain.AuthEvent))}
		s.devices[deviceID] = d
	}
	return d
}

func (s *Service) issue(userID, email string) (*domain.Session, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := sessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			ID:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	return &domain.Session{UserID: userID, Email: email, AccessToken: token, ExpiresAt: expires}, nil
}

// Verify checks a bearer token and returns its session.
func (s *Service) Verify(token string) (*domain.Session, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	session := &domain.Session{UserID: claims.Subject, Email: claims.Email, AccessToken: token}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// Device is the session API shared by the tabs of one device.
type Device struct {
	svc *Service
	id  string

	mu        sync.Mutex
	listeners map[int]func(domain.AuthEvent)
	nextID    int
	stop      func()
}

func (d *Device) CurrentSession(ctx context.Context) (*domain.Session, error) {
	token, ok, err := d.svc.store.Load(ctx, d.id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return nil, nil
	}
	session, err := d.svc.Verify(token)
	if err != nil {
		if delErr := d.svc.store.Delete(ctx, d.id); delErr != nil {
			log.Printf("auth %s: drop expired session: %v", d.id, delErr)
		}
		return nil, nil
	}
	return session, nil
}

// OnSessionChange registers fn for sign in, sign out and refresh events from
// any tab of the device. The device follows the store while it has listeners.
func (d *Device) OnSessionChange(fn func(domain.AuthEvent)) func() {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.listeners[id] = fn
	if d.stop == nil {
		stop, err := d.svc.store.Follow(context.Background(), d.id, d.dispatch)
		if err != nil {
			log.Printf("auth %s: follow session events: %v", d.id, err)
		} else {
			d.stop = stop
		}
	}
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.listeners, id)
		var stop func()
		if len(d.listeners) == 0 {
			stop, d.stop = d.stop, nil
		}
		d.mu.Unlock()
		if stop != nil {
			stop()
		}
	}
}

func (d *Device) dispatch(ev domain.AuthEvent) {
	d.mu.Lock()
	fns := make([]func(domain.AuthEvent), 0, len(d.listeners))
	for _, fn := range d.listeners {
		fns = append(fns, fn)
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (d *Device) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	email = normalizeEmail(email)
	cred, err := d.svc.creds.FindCredential(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredential
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredential
	}
	return d.start(ctx, cred.UserID, cred.Email)
}

// SignUp creates the account with its profile and signs it in.
func (d *Device) SignUp(ctx context.Context, email, password string, profile domain.Profile) (*domain.Session, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	cred := domain.Credential{
		UserID:       uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    d.svc.now(),
	}
	profile.UserID = cred.UserID
	profile.Email = email
	if err := d.svc.creds.CreateUser(ctx, cred, profile); err != nil {
		return nil, err
	}
	return d.start(ctx, cred.UserID, cred.Email)
}

// Refresh reissues the current session with a new expiry.
func (d *Device) Refresh(ctx context.Context) (*domain.Session, error) {
	current, err := d.CurrentSession(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrInvalidToken
	}
	session, err := d.svc.issue(current.UserID, current.Email)
	if err != nil {
		return nil, err
	}
	if err := d.svc.store.Save(ctx, d.id, session.AccessToken, d.svc.ttl); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	d.announce(ctx, domain.AuthEvent{Type: domain.AuthTokenRefreshed, Session: session})
	return session, nil
}

func (d *Device) SignOut(ctx context.Context) error {
	if err := d.svc.store.Delete(ctx, d.id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	d.announce(ctx, domain.AuthEvent{Type: domain.AuthSignedOut})
	return nil
}

func (d *Device) start(ctx context.Context, userID, email string) (*domain.Session, error) {
	session, err := d.svc.issue(userID, email)
	if err != nil {
		return nil, err
	}
	if err := d.svc.store.Save(ctx, d.id, session.AccessToken, d.svc.ttl); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	d.announce(ctx, domain.AuthEvent{Type: domain.AuthSignedIn, Session: session})
	return session, nil
}

func (d *Device) announce(ctx context.Context, ev domain.AuthEvent) {
	if err := d.svc.store.Announce(ctx, d.id, ev); err != nil {
		log.Printf("auth %s: announce %s: %v", d.id, ev.Type, err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
