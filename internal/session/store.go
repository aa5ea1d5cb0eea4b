package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/db"
	"github.com/terraincognita07/medremind/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrEmailTaken         = errors.New("user already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const (
	DefaultSessionTTL      = 7 * 24 * time.Hour
	DefaultConfirmationTTL = 24 * time.Hour
)

type Event string

const (
	SignedIn       Event = "SIGNED_IN"
	SignedOut      Event = "SIGNED_OUT"
	TokenRefreshed Event = "TOKEN_REFRESHED"
)

type Session struct {
	ID        uuid.UUID `json:"id"`
	TokenID   uuid.UUID `json:"-"`
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"access_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Change struct {
	Event   Event
	Session Session
}

type Listener func(Change)

type SignUpInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
	Role     models.Role
}

// SignUpResult carries a session only when the account can sign in right away.
type SignUpResult struct {
	Identity models.Identity
	Session  *Session
}

type Store interface {
	SignIn(ctx context.Context, email string, password string) (Session, error)
	SignUp(ctx context.Context, input SignUpInput) (SignUpResult, error)
	SignOut(ctx context.Context, token string) error
	Current(ctx context.Context, token string) (Session, error)
	Refresh(ctx context.Context, token string) (Session, error)
	Confirm(ctx context.Context, token string) (models.Identity, error)
	ConfirmationToken(identity models.Identity) (string, error)
	Identity(ctx context.Context, userID uuid.UUID) (models.Identity, error)
	OnChange(listener Listener) (unsubscribe func())
}

type IdentityRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (models.Identity, error)
	FindByNormalizedEmail(ctx context.Context, email string) (models.Identity, error)
	Create(ctx context.Context, identity *models.Identity) error
	MarkConfirmed(ctx context.Context, id uuid.UUID, confirmedAt time.Time) error
}

type Options struct {
	SecretKey           []byte
	SessionTTL          time.Duration
	ConfirmationTTL     time.Duration
	RequireConfirmation bool
	Now                 func() time.Time
}

// TokenStore issues HS256 session tokens over the identities table. Signed-out
// sessions and rotated tokens are remembered until their expiry.
type TokenStore struct {
	identities          IdentityRepository
	secretKey           []byte
	sessionTTL          time.Duration
	confirmationTTL     time.Duration
	requireConfirmation bool
	now                 func() time.Time

	mu             sync.Mutex
	revokedSession map[uuid.UUID]time.Time
	revokedToken   map[uuid.UUID]time.Time

	listenersMu  sync.Mutex
	listeners    map[int]Listener
	nextListener int
}

func NewTokenStore(identities IdentityRepository, options Options) *TokenStore {
	if options.SessionTTL <= 0 {
		options.SessionTTL = DefaultSessionTTL
	}
	if options.ConfirmationTTL <= 0 {
		options.ConfirmationTTL = DefaultConfirmationTTL
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	return &TokenStore{
		identities:          identities,
		secretKey:           options.SecretKey,
		sessionTTL:          options.SessionTTL,
		confirmationTTL:     options.ConfirmationTTL,
		requireConfirmation: options.RequireConfirmation,
		now:                 options.Now,
		revokedSession:      make(map[uuid.UUID]time.Time),
		revokedToken:        make(map[uuid.UUID]time.Time),
		listeners:           make(map[int]Listener),
	}
}

func (store *TokenStore) RequiresConfirmation() bool {
	return store.requireConfirmation
}

func (store *TokenStore) SignIn(ctx context.Context, email string, password string) (Session, error) {
	identity, err := store.identities.FindByNormalizedEmail(ctx, email)
	if err != nil {
		if db.IsNotFound(err) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("find identity: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)) != nil {
		return Session{}, ErrInvalidCredentials
	}
	if store.requireConfirmation && !identity.Confirmed() {
		return Session{}, ErrEmailNotConfirmed
	}

	session, err := store.issue(identity.ID, identity.Email, uuid.New())
	if err != nil {
		return Session{}, err
	}
	store.emit(Change{Event: SignedIn, Session: session})
	return session, nil
}

func (store *TokenStore) SignUp(ctx context.Context, input SignUpInput) (SignUpResult, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return SignUpResult{}, fmt.Errorf("hash password: %w", err)
	}

	now := store.now().UTC()
	identity := models.Identity{
		Email:         strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash:  string(passwordHash),
		FullName:      input.FullName,
		Phone:         input.Phone,
		RequestedRole: input.Role,
		CreatedAt:     now,
	}
	if !store.requireConfirmation {
		identity.ConfirmedAt = &now
	}
	if err := store.identities.Create(ctx, &identity); err != nil {
		if db.IsUniqueViolation(err) {
			return SignUpResult{}, ErrEmailTaken
		}
		return SignUpResult{}, fmt.Errorf("create identity: %w", err)
	}

	result := SignUpResult{Identity: identity}
	if store.requireConfirmation {
		return result, nil
	}

	session, err := store.issue(identity.ID, identity.Email, uuid.New())
	if err != nil {
		return result, err
	}
	result.Session = &session
	store.emit(Change{Event: SignedIn, Session: session})
	return result, nil
}

func (store *TokenStore) SignOut(ctx context.Context, token string) error {
	session, err := store.Current(ctx, token)
	if err != nil {
		return err
	}

	store.mu.Lock()
	store.revokedSession[session.ID] = session.ExpiresAt
	store.mu.Unlock()

	store.emit(Change{Event: SignedOut, Session: session})
	return nil
}

func (store *TokenStore) Current(_ context.Context, token string) (Session, error) {
	claims, err := store.parse(token, purposeSession)
	if err != nil {
		return Session{}, err
	}

	session, err := claims.session(token)
	if err != nil {
		return Session{}, ErrInvalidToken
	}

	store.mu.Lock()
	_, sessionRevoked := store.revokedSession[session.ID]
	_, tokenRevoked := store.revokedToken[session.TokenID]
	store.mu.Unlock()
	if sessionRevoked || tokenRevoked {
		return Session{}, ErrInvalidToken
	}
	return session, nil
}

// Refresh rotates the token of a live session. The session id is kept so
// per-session state survives the rotation.
func (store *TokenStore) Refresh(ctx context.Context, token string) (Session, error) {
	current, err := store.Current(ctx, token)
	if err != nil {
		return Session{}, err
	}

	refreshed, err := store.issue(current.UserID, current.Email, current.ID)
	if err != nil {
		return Session{}, err
	}

	store.mu.Lock()
	store.revokedToken[current.TokenID] = current.ExpiresAt
	store.mu.Unlock()

	store.emit(Change{Event: TokenRefreshed, Session: refreshed})
	return refreshed, nil
}

func (store *TokenStore) ConfirmationToken(identity models.Identity) (string, error) {
	now := store.now()
	claims := tokenClaims{
		UserID:  identity.ID.String(),
		Email:   identity.Email,
		Purpose: purposeConfirmation,
	}
	claims.Subject = identity.ID.String()
	claims.IssuedAt = newNumericDate(now)
	claims.ExpiresAt = newNumericDate(now.Add(store.confirmationTTL))
	return store.sign(claims)
}

func (store *TokenStore) Confirm(ctx context.Context, token string) (models.Identity, error) {
	claims, err := store.parse(token, purposeConfirmation)
	if err != nil {
		return models.Identity{}, err
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return models.Identity{}, ErrInvalidToken
	}

	identity, err := store.identities.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return models.Identity{}, ErrInvalidToken
		}
		return models.Identity{}, fmt.Errorf("find identity: %w", err)
	}
	if identity.Confirmed() {
		return identity, nil
	}

	confirmedAt := store.now().UTC()
	if err := store.identities.MarkConfirmed(ctx, identity.ID, confirmedAt); err != nil {
		return models.Identity{}, fmt.Errorf("confirm identity: %w", err)
	}
	identity.ConfirmedAt = &confirmedAt
	return identity, nil
}

func (store *TokenStore) Identity(ctx context.Context, userID uuid.UUID) (models.Identity, error) {
	return store.identities.FindByID(ctx, userID)
}

// OnChange registers listener for session events. Listeners run synchronously
// on the goroutine that caused the change.
func (store *TokenStore) OnChange(listener Listener) func() {
	store.listenersMu.Lock()
	id := store.nextListener
	store.nextListener++
	store.listeners[id] = listener
	store.listenersMu.Unlock()

	return func() {
		store.listenersMu.Lock()
		delete(store.listeners, id)
		store.listenersMu.Unlock()
	}
}

// PruneRevoked forgets revocations whose tokens have expired anyway.
func (store *TokenStore) PruneRevoked() int {
	now := store.now()
	removed := 0

	store.mu.Lock()
	defer store.mu.Unlock()
	for id, expiresAt := range store.revokedSession {
		if !expiresAt.After(now) {
			delete(store.revokedSession, id)
			removed++
		}
	}
	for id, expiresAt := range store.revokedToken {
		if !expiresAt.After(now) {
			delete(store.revokedToken, id)
			removed++
		}
	}
	return removed
}

func (store *TokenStore) emit(change Change) {
	store.listenersMu.Lock()
	listeners := make([]Listener, 0, len(store.listeners))
	for _, listener := range store.listeners {
		listeners = append(listeners, listener)
	}
	store.listenersMu.Unlock()

	for _, listener := range listeners {
		listener(change)
	}
}
