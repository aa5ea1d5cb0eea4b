package api

import (
	"errors"
	"time"

	"github.com/terraincognita07/medremind/internal/auth"
	"github.com/terraincognita07/medremind/internal/bell"
	"github.com/terraincognita07/medremind/internal/db"
	"github.com/terraincognita07/medremind/internal/realtime"
	"github.com/terraincognita07/medremind/internal/services"
	"github.com/terraincognita07/medremind/internal/session"
	"gorm.io/gorm"
)

type Config struct {
	SecretKey           string
	Location            *time.Location
	CookieSecure        bool
	RequireConfirmation bool
	PublicURL           string
	Mailer              auth.ConfirmationMailer
	Broker              realtime.Broker
	Mirrors             bell.MirrorFactory
}

type Handler struct {
	location     *time.Location
	cookieSecure bool

	repositories  *db.Repositories
	sessions      *session.TokenStore
	resolver      *auth.Resolver
	bells         *bell.Registry
	prescriptions *services.PrescriptionService
	doses         *services.DoseService
	stores        *services.StoreService
	signInLimiter *attemptLimiter
}

func NewHandler(database *gorm.DB, config Config) (*Handler, error) {
	if database == nil {
		return nil, errors.New("database is required")
	}
	if config.Broker == nil {
		return nil, errors.New("realtime broker is required")
	}
	if config.Location == nil {
		config.Location = time.UTC
	}

	repositories := db.NewRepositories(database)
	sessions := session.NewTokenStore(repositories.Identities, session.Options{
		SecretKey:           []byte(config.SecretKey),
		RequireConfirmation: config.RequireConfirmation,
	})
	resolver := auth.NewResolver(sessions, repositories.Profiles, repositories.Roles, auth.Options{
		PublicURL: config.PublicURL,
		Mailer:    config.Mailer,
	})
	bells := bell.NewRegistry(repositories.Notifications, config.Broker, config.Mirrors)
	resolver.OnTeardown(bells.Drop)
	resolver.Start()

	notifier := services.NewNotificationService(repositories.Notifications, config.Broker)
	return &Handler{
		location:      config.Location,
		cookieSecure:  config.CookieSecure,
		repositories:  repositories,
		sessions:      sessions,
		resolver:      resolver,
		bells:         bells,
		prescriptions: services.NewPrescriptionService(repositories.Profiles, repositories.Prescriptions, repositories.Medicines, repositories.Assignments, notifier),
		doses:         services.NewDoseService(repositories.Prescriptions, repositories.Medicines, repositories.Doses, config.Location),
		stores:        services.NewStoreService(repositories.Prescriptions, repositories.Medicines, repositories.Assignments, repositories.Profiles, notifier),
		signInLimiter: newAttemptLimiter(signInAttemptsLimit, signInAttemptsWindow),
	}, nil
}

func (handler *Handler) Sessions() *session.TokenStore {
	return handler.sessions
}

func (handler *Handler) Resolver() *auth.Resolver {
	return handler.resolver
}

func (handler *Handler) Bells() *bell.Registry {
	return handler.bells
}

// Close stops the resolver and tears down every open bell.
func (handler *Handler) Close() {
	handler.resolver.Close()
	handler.bells.Close()
}
