package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/terraincognita07/medremind/internal/api"
	"github.com/terraincognita07/medremind/internal/bell"
	"github.com/terraincognita07/medremind/internal/cli"
	"github.com/terraincognita07/medremind/internal/db"
	"github.com/terraincognita07/medremind/internal/housekeeping"
	"github.com/terraincognita07/medremind/internal/mailer"
	"github.com/terraincognita07/medremind/internal/models"
	"github.com/terraincognita07/medremind/internal/realtime"
	"gorm.io/gorm"
)

var insecureSecretPlaceholders = map[string]bool{
	"change_me_in_production":                    true,
	"replace_with_at_least_32_random_characters": true,
}

type databaseConfig struct {
	Driver string
	DSN    string
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("env: load .env failed: %v", err)
	}

	database, err := openDatabase()
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	if len(os.Args) > 1 {
		if err := runCommand(database, os.Args[1:]); err != nil {
			log.Fatal(err)
		}
		return
	}

	location := mustLoadLocation(getEnv("TZ", "UTC"))
	time.Local = location

	secretKey, err := resolveSecretKey()
	if err != nil {
		log.Fatal(err)
	}
	port, err := resolvePort()
	if err != nil {
		log.Fatal(err)
	}

	lifecycleCtx, cancelLifecycle := context.WithCancel(context.Background())
	defer cancelLifecycle()

	broker, err := newBroker(lifecycleCtx)
	if err != nil {
		log.Fatalf("realtime init failed: %v", err)
	}
	defer broker.Close()

	mail := mailer.New(mailer.Config{
		Host:     getEnv("SMTP_HOST", ""),
		Port:     getEnvInt("SMTP_PORT", 587),
		Username: getEnv("EMAIL_USER", ""),
		Password: getEnv("EMAIL_PASS", ""),
		From:     getEnv("EMAIL_FROM", ""),
	})
	if !mail.Enabled() {
		log.Printf("mailer: smtp not configured, confirmation links will be logged")
	}

	cookieSecure := getEnvBool("COOKIE_SECURE", false)
	handler, err := api.NewHandler(database, api.Config{
		SecretKey:           secretKey,
		Location:            location,
		CookieSecure:        cookieSecure,
		RequireConfirmation: getEnvBool("REQUIRE_EMAIL_CONFIRMATION", false),
		PublicURL:           getEnv("PUBLIC_URL", "http://localhost:"+port),
		Mailer:              mail,
		Broker:              broker,
		Mirrors:             newMirrorFactory(db.NewProfileRepository(database), mail),
	})
	if err != nil {
		log.Fatalf("handler init failed: %v", err)
	}
	defer handler.Close()

	scheduler, err := housekeeping.New(handler.Sessions(), handler.Resolver(), handler.Bells(), housekeeping.Config{})
	if err != nil {
		log.Fatalf("housekeeping init failed: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "MedRemind",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New(compress.Config{Next: isEventStream}))
	app.Use(cors.New(corsMiddlewareConfig(getEnv("CORS_ORIGINS", ""))))

	api.RegisterRoutes(app, handler)
	app.Use(handler.NotFound)

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	go func() {
		<-sigCtx.Done()
		cancelLifecycle()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Printf("server shutdown failed: %v", err)
		}
	}()

	log.Printf("MedRemind listening on http://0.0.0.0:%s (db: %s, tz: %s)", port, resolveDatabase().Driver, location.String())
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func runCommand(database *gorm.DB, args []string) error {
	switch args[0] {
	case "reset-password":
		if len(args) != 2 {
			return errors.New("usage: medremind reset-password <email>")
		}
		return cli.ResetPassword(context.Background(), db.NewIdentityRepository(database), args[1], os.Stdin, os.Stdout)
	case "link-telegram":
		if len(args) < 2 || len(args) > 3 {
			return errors.New("usage: medremind link-telegram <email> [chat-id]")
		}
		chatID := ""
		if len(args) == 3 {
			chatID = args[2]
		}
		return cli.LinkTelegram(
			context.Background(),
			db.NewIdentityRepository(database),
			db.NewProfileRepository(database),
			args[1],
			chatID,
			os.Stdout,
		)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func openDatabase() (*gorm.DB, error) {
	config := resolveDatabase()
	return db.Open(config.Driver, config.DSN)
}

func resolveDatabase() databaseConfig {
	driver := strings.ToLower(strings.TrimSpace(getEnv("DB_DRIVER", db.DriverSQLite)))
	if driver == db.DriverPostgres {
		return databaseConfig{Driver: driver, DSN: getEnv("DATABASE_URL", "")}
	}
	return databaseConfig{Driver: driver, DSN: getEnv("DB_PATH", filepath.Join("data", "medremind.db"))}
}

func resolveSecretKey() (string, error) {
	secret := strings.TrimSpace(os.Getenv("SECRET_KEY"))
	if secret == "" {
		return "", errors.New("SECRET_KEY is required")
	}
	if insecureSecretPlaceholders[secret] {
		return "", errors.New("SECRET_KEY uses an insecure placeholder value")
	}
	if len(secret) < 32 {
		return "", errors.New("SECRET_KEY must be at least 32 characters")
	}
	return secret, nil
}

func resolvePort() (string, error) {
	raw := getEnv("PORT", "8080")
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || port < 1 || port > 65535 {
		return "", fmt.Errorf("invalid PORT %q", raw)
	}
	return strconv.Itoa(port), nil
}

func newBroker(ctx context.Context) (realtime.Broker, error) {
	addr := strings.TrimSpace(getEnv("REDIS_ADDR", ""))
	if addr == "" {
		return realtime.NewMemoryBroker(), nil
	}
	return realtime.NewRedisBroker(ctx, addr)
}

type mirrorProfiles interface {
	FindByID(ctx context.Context, id uuid.UUID) (models.Profile, bool, error)
}

// newMirrorFactory picks a destination per user: the Telegram chat linked to
// their profile when a bot is configured, else their own e-mail address when
// SMTP is available. Users with neither get no mirror.
func newMirrorFactory(profiles mirrorProfiles, mail *mailer.Mailer) bell.MirrorFactory {
	botToken := strings.TrimSpace(getEnv("TELEGRAM_BOT_TOKEN", ""))
	if botToken == "" && !mail.Enabled() {
		return nil
	}
	return func(ctx context.Context, userID uuid.UUID) bell.Mirror {
		profile, found, err := profiles.FindByID(ctx, userID)
		if err != nil {
			log.Printf("bell: mirror lookup for %s failed: %v", userID, err)
			return bell.NoopMirror{}
		}
		if !found {
			return bell.NoopMirror{}
		}
		if botToken != "" && strings.TrimSpace(profile.TelegramChatID) != "" {
			return bell.NewTelegramMirror(botToken, profile.TelegramChatID)
		}
		if mail.Enabled() {
			return bell.NewMailMirror(mail, profile.Email)
		}
		return bell.NoopMirror{}
	}
}

func corsMiddlewareConfig(origins string) cors.Config {
	config := cors.Config{
		AllowMethods: "GET,POST,PATCH,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}
	if trimmed := strings.TrimSpace(origins); trimmed != "" {
		config.AllowOrigins = trimmed
		config.AllowCredentials = trimmed != "*"
	}
	return config
}

func isEventStream(c *fiber.Ctx) bool {
	return strings.HasSuffix(c.Path(), "/notifications/stream")
}

func mustLoadLocation(name string) *time.Location {
	location, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("invalid TZ %q, falling back to UTC", name)
		return time.UTC
	}
	return location
}

func getEnv(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return value
}

func getEnvBool(key string, fallback bool) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return value
}
