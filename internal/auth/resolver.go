package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/db"
	"github.com/terraincognita07/medremind/internal/models"
	"github.com/terraincognita07/medremind/internal/services"
	"github.com/terraincognita07/medremind/internal/session"
)

const (
	RoleUnauthenticated models.Role = "unauthenticated"
	RoleUnknown         models.Role = "unknown"
)

const confirmPath = "/api/auth/confirm"

var ErrConfirmationMailFailed = errors.New("confirmation e-mail could not be sent")

type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// State is what the resolver knows about one session. Role is never empty
// once Loading is false.
type State struct {
	Loading bool             `json:"loading"`
	Session *session.Session `json:"-"`
	User    *User            `json:"user"`
	Role    models.Role      `json:"role"`
	Profile *models.Profile  `json:"profile"`
}

func (state State) Authenticated() bool {
	return state.Session != nil
}

func unauthenticated() State {
	return State{Role: RoleUnauthenticated}
}

type ProfileRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (models.Profile, bool, error)
	Create(ctx context.Context, profile *models.Profile) error
}

type RoleRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (models.UserRole, bool, error)
	Create(ctx context.Context, entry *models.UserRole) error
}

type ConfirmationMailer interface {
	Enabled() bool
	SendConfirmation(to string, fullName string, link string) error
}

// TeardownHook runs after the last session of a user signed out.
type TeardownHook func(userID uuid.UUID)

type Options struct {
	PublicURL string
	Mailer    ConfirmationMailer
	Now       func() time.Time
}

type SignUpOutcome struct {
	Identity             models.Identity
	Session              *session.Session
	ConfirmationRequired bool
}

// Resolver turns session events into per-session role state. One resolver
// lives for the whole process.
type Resolver struct {
	store     session.Store
	profiles  ProfileRepository
	roles     RoleRepository
	mailer    ConfirmationMailer
	publicURL string
	now       func() time.Time

	mu          sync.Mutex
	states      map[uuid.UUID]State
	teardown    []TeardownHook
	unsubscribe func()
}

func NewResolver(store session.Store, profiles ProfileRepository, roles RoleRepository, options Options) *Resolver {
	if options.Now == nil {
		options.Now = time.Now
	}
	return &Resolver{
		store:     store,
		profiles:  profiles,
		roles:     roles,
		mailer:    options.Mailer,
		publicURL: strings.TrimRight(strings.TrimSpace(options.PublicURL), "/"),
		now:       options.Now,
		states:    make(map[uuid.UUID]State),
	}
}

// OnTeardown registers hook for users whose last session ended.
func (resolver *Resolver) OnTeardown(hook TeardownHook) {
	resolver.mu.Lock()
	resolver.teardown = append(resolver.teardown, hook)
	resolver.mu.Unlock()
}

func (resolver *Resolver) Start() {
	resolver.mu.Lock()
	defer resolver.mu.Unlock()
	if resolver.unsubscribe != nil {
		return
	}
	resolver.unsubscribe = resolver.store.OnChange(resolver.handleChange)
}

func (resolver *Resolver) Close() {
	resolver.mu.Lock()
	unsubscribe := resolver.unsubscribe
	resolver.unsubscribe = nil
	resolver.states = make(map[uuid.UUID]State)
	resolver.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (resolver *Resolver) handleChange(change session.Change) {
	ctx := context.Background()
	current := change.Session

	switch change.Event {
	case session.SignedIn:
		resolver.setState(current.ID, State{Loading: true, Session: &current, Role: RoleUnknown})
		if err := resolver.provision(ctx, current.UserID); err != nil {
			log.Printf("auth: provision %s failed: %v", current.UserID, err)
		}
		resolver.refreshState(ctx, current)
	case session.TokenRefreshed:
		resolver.refreshState(ctx, current)
	case session.SignedOut:
		resolver.dropState(current)
	}
}

// refreshState stores the resolved state, or forgets the session when
// resolution failed so the next Resolve retries.
func (resolver *Resolver) refreshState(ctx context.Context, current session.Session) {
	state, err := resolver.resolveState(ctx, current)
	if err != nil {
		log.Printf("auth: resolve session %s failed: %v", current.ID, err)
		resolver.mu.Lock()
		delete(resolver.states, current.ID)
		resolver.mu.Unlock()
		return
	}
	resolver.setState(current.ID, state)
}

func (resolver *Resolver) setState(sessionID uuid.UUID, state State) {
	resolver.mu.Lock()
	resolver.states[sessionID] = state
	resolver.mu.Unlock()
}

func (resolver *Resolver) dropState(current session.Session) {
	now := resolver.now()

	resolver.mu.Lock()
	delete(resolver.states, current.ID)
	remaining := resolver.hasLiveStateLocked(current.UserID, now)
	hooks := append([]TeardownHook(nil), resolver.teardown...)
	resolver.mu.Unlock()

	if remaining {
		return
	}
	for _, hook := range hooks {
		hook(current.UserID)
	}
}

// hasLiveStateLocked ignores states whose session already expired.
func (resolver *Resolver) hasLiveStateLocked(userID uuid.UUID, now time.Time) bool {
	for _, state := range resolver.states {
		if state.Session == nil || !state.Session.ExpiresAt.After(now) {
			continue
		}
		if state.Session.UserID == userID {
			return true
		}
	}
	return false
}

// PruneExpired forgets states of expired sessions and runs the teardown
// hooks for users left without a live session. It returns the number of
// states removed.
func (resolver *Resolver) PruneExpired(now time.Time) int {
	resolver.mu.Lock()
	expiredUsers := make(map[uuid.UUID]bool)
	removed := 0
	for sessionID, state := range resolver.states {
		if state.Session == nil || state.Session.ExpiresAt.After(now) {
			continue
		}
		expiredUsers[state.Session.UserID] = true
		delete(resolver.states, sessionID)
		removed++
	}
	orphaned := make([]uuid.UUID, 0, len(expiredUsers))
	for userID := range expiredUsers {
		if !resolver.hasLiveStateLocked(userID, now) {
			orphaned = append(orphaned, userID)
		}
	}
	hooks := append([]TeardownHook(nil), resolver.teardown...)
	resolver.mu.Unlock()

	for _, userID := range orphaned {
		for _, hook := range hooks {
			hook(userID)
		}
	}
	return removed
}

// provision creates the profile and role from the sign-up attributes. Rows
// that already exist are left alone.
func (resolver *Resolver) provision(ctx context.Context, userID uuid.UUID) error {
	identity, err := resolver.store.Identity(ctx, userID)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}

	if _, found, err := resolver.profiles.FindByID(ctx, userID); err != nil {
		return fmt.Errorf("find profile: %w", err)
	} else if !found {
		profile := models.Profile{
			ID:        identity.ID,
			FullName:  identity.FullName,
			Email:     identity.Email,
			Phone:     identity.Phone,
			CreatedAt: identity.CreatedAt,
		}
		if err := resolver.profiles.Create(ctx, &profile); err != nil && !db.IsUniqueViolation(err) {
			return fmt.Errorf("create profile: %w", err)
		}
	}

	if !identity.RequestedRole.Valid() {
		return nil
	}
	if _, found, err := resolver.roles.FindByUserID(ctx, userID); err != nil {
		return fmt.Errorf("find role: %w", err)
	} else if !found {
		entry := models.UserRole{UserID: userID, Role: identity.RequestedRole}
		if err := resolver.roles.Create(ctx, &entry); err != nil && !db.IsUniqueViolation(err) {
			return fmt.Errorf("create role: %w", err)
		}
	}
	return nil
}

// resolveState looks up the role first, then the profile.
func (resolver *Resolver) resolveState(ctx context.Context, current session.Session) (State, error) {
	state := State{
		Session: &current,
		User:    &User{ID: current.UserID, Email: current.Email},
		Role:    RoleUnknown,
	}

	entry, found, err := resolver.roles.FindByUserID(ctx, current.UserID)
	if err != nil {
		return State{}, fmt.Errorf("find role: %w", err)
	}
	if found && entry.Role.Valid() {
		state.Role = entry.Role
	}

	profile, found, err := resolver.profiles.FindByID(ctx, current.UserID)
	if err != nil {
		return State{}, fmt.Errorf("find profile: %w", err)
	}
	if found {
		state.Profile = &profile
	}
	return state, nil
}

// Resolve returns the state for token. A cached state is returned as is,
// including one that is still loading.
func (resolver *Resolver) Resolve(ctx context.Context, token string) (State, error) {
	if strings.TrimSpace(token) == "" {
		return unauthenticated(), nil
	}
	current, err := resolver.store.Current(ctx, token)
	if err != nil {
		return unauthenticated(), nil
	}

	resolver.mu.Lock()
	cached, ok := resolver.states[current.ID]
	resolver.mu.Unlock()
	if ok {
		return cached, nil
	}

	state, err := resolver.resolveState(ctx, current)
	if err != nil {
		return State{}, err
	}
	resolver.setState(current.ID, state)
	return state, nil
}

func (resolver *Resolver) SignIn(ctx context.Context, email string, password string) (session.Session, error) {
	email, password, err := services.NormalizeCredentialsInput(email, password)
	if err != nil {
		return session.Session{}, session.ErrInvalidCredentials
	}
	return resolver.store.SignIn(ctx, email, password)
}

// SignUp creates the identity. Without e-mail confirmation the store signs the
// user in right away and the listener provisions the account; otherwise a
// confirmation link is mailed and provisioning waits for the first sign-in.
func (resolver *Resolver) SignUp(ctx context.Context, input services.SignUpInput) (SignUpOutcome, error) {
	normalized, err := services.NormalizeSignUpInput(input)
	if err != nil {
		return SignUpOutcome{}, err
	}

	result, err := resolver.store.SignUp(ctx, session.SignUpInput{
		Email:    normalized.Email,
		Password: normalized.Password,
		FullName: normalized.FullName,
		Phone:    normalized.Phone,
		Role:     normalized.Role,
	})
	if err != nil {
		return SignUpOutcome{}, err
	}

	outcome := SignUpOutcome{Identity: result.Identity, Session: result.Session}
	if result.Session != nil {
		return outcome, nil
	}

	outcome.ConfirmationRequired = true
	if err := resolver.sendConfirmation(result.Identity); err != nil {
		log.Printf("auth: confirmation mail for %s failed: %v", result.Identity.ID, err)
		return outcome, ErrConfirmationMailFailed
	}
	return outcome, nil
}

func (resolver *Resolver) sendConfirmation(identity models.Identity) error {
	token, err := resolver.store.ConfirmationToken(identity)
	if err != nil {
		return err
	}
	link := resolver.publicURL + confirmPath + "?token=" + url.QueryEscape(token)
	if resolver.mailer == nil || !resolver.mailer.Enabled() {
		log.Printf("auth: smtp not configured, confirmation link for %s: %s", identity.Email, link)
		return nil
	}
	return resolver.mailer.SendConfirmation(identity.Email, identity.FullName, link)
}

func (resolver *Resolver) Confirm(ctx context.Context, token string) (models.Identity, error) {
	return resolver.store.Confirm(ctx, token)
}

func (resolver *Resolver) Refresh(ctx context.Context, token string) (session.Session, error) {
	return resolver.store.Refresh(ctx, token)
}

func (resolver *Resolver) SignOut(ctx context.Context, token string) error {
	return resolver.store.SignOut(ctx, token)
}

// Sessions reports how many sessions currently hold state.
func (resolver *Resolver) Sessions() int {
	resolver.mu.Lock()
	defer resolver.mu.Unlock()
	return len(resolver.states)
}
