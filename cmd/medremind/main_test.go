package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/bell"
	"github.com/terraincognita07/medremind/internal/db"
	"github.com/terraincognita07/medremind/internal/mailer"
	"github.com/terraincognita07/medremind/internal/models"
	"github.com/terraincognita07/medremind/internal/realtime"
	"gopkg.in/gomail.v2"
)

func TestResolveSecretKey(t *testing.T) {
	t.Setenv("SECRET_KEY", "")
	if _, err := resolveSecretKey(); err == nil {
		t.Fatal("expected error when SECRET_KEY is empty")
	}

	t.Setenv("SECRET_KEY", "change_me_in_production")
	if _, err := resolveSecretKey(); err == nil {
		t.Fatal("expected error when SECRET_KEY uses insecure placeholder")
	}

	t.Setenv("SECRET_KEY", "replace_with_at_least_32_random_characters")
	if _, err := resolveSecretKey(); err == nil {
		t.Fatal("expected error when SECRET_KEY uses example placeholder")
	}

	t.Setenv("SECRET_KEY", "too-short-secret")
	if _, err := resolveSecretKey(); err == nil {
		t.Fatal("expected error when SECRET_KEY is too short")
	}

	valid := "0123456789abcdef0123456789abcdef"
	t.Setenv("SECRET_KEY", valid)

	secret, err := resolveSecretKey()
	if err != nil {
		t.Fatalf("expected valid secret, got error: %v", err)
	}
	if secret != valid {
		t.Fatalf("expected %q, got %q", valid, secret)
	}
}

func TestResolvePort(t *testing.T) {
	t.Setenv("PORT", "")
	port, err := resolvePort()
	if err != nil {
		t.Fatalf("expected default port, got error: %v", err)
	}
	if port != "8080" {
		t.Fatalf("expected default port 8080, got %q", port)
	}

	t.Setenv("PORT", "9090")
	if port, err = resolvePort(); err != nil || port != "9090" {
		t.Fatalf("expected port 9090, got %q (%v)", port, err)
	}

	for _, invalid := range []string{"0", "70000", "not-a-number"} {
		t.Setenv("PORT", invalid)
		if _, err := resolvePort(); err == nil {
			t.Fatalf("expected invalid port %q to fail", invalid)
		}
	}
}

func TestResolveDatabase(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DB_PATH", "")
	config := resolveDatabase()
	if config.Driver != db.DriverSQLite || config.DSN != filepath.Join("data", "medremind.db") {
		t.Fatalf("unexpected default database config %+v", config)
	}

	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://medremind@localhost/medremind")
	config = resolveDatabase()
	if config.Driver != db.DriverPostgres || config.DSN != "postgres://medremind@localhost/medremind" {
		t.Fatalf("unexpected postgres config %+v", config)
	}
}

func TestEnvParsingFallsBack(t *testing.T) {
	t.Setenv("COOKIE_SECURE", "yes please")
	if getEnvBool("COOKIE_SECURE", true) != true {
		t.Fatal("expected fallback for unparsable bool")
	}
	t.Setenv("COOKIE_SECURE", "true")
	if !getEnvBool("COOKIE_SECURE", false) {
		t.Fatal("expected parsed bool")
	}

	t.Setenv("SMTP_PORT", "")
	if getEnvInt("SMTP_PORT", 587) != 587 {
		t.Fatal("expected default smtp port")
	}
	t.Setenv("SMTP_PORT", "2525")
	if getEnvInt("SMTP_PORT", 587) != 2525 {
		t.Fatal("expected parsed smtp port")
	}
}

func TestCORSMiddlewareConfig(t *testing.T) {
	open := corsMiddlewareConfig("")
	if open.AllowCredentials {
		t.Fatal("expected credentials disabled without explicit origins")
	}

	restricted := corsMiddlewareConfig("https://clinic.example.com")
	if restricted.AllowOrigins != "https://clinic.example.com" || !restricted.AllowCredentials {
		t.Fatalf("unexpected restricted config %+v", restricted)
	}
	if corsMiddlewareConfig("*").AllowCredentials {
		t.Fatal("expected wildcard origins without credentials")
	}
}

func TestNewBrokerDefaultsToMemory(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")
	broker, err := newBroker(context.Background())
	if err != nil {
		t.Fatalf("newBroker returned error: %v", err)
	}
	defer broker.Close()

	if _, ok := broker.(*realtime.MemoryBroker); !ok {
		t.Fatalf("expected memory broker, got %T", broker)
	}
}

type mirrorProfilesStub map[uuid.UUID]models.Profile

func (stub mirrorProfilesStub) FindByID(_ context.Context, id uuid.UUID) (models.Profile, bool, error) {
	profile, found := stub[id]
	return profile, found, nil
}

func TestMirrorFactorySelection(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	if factory := newMirrorFactory(mirrorProfilesStub{}, mailer.New(mailer.Config{})); factory != nil {
		t.Fatal("expected no mirror factory without telegram or smtp")
	}

	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	profiles := mirrorProfilesStub{
		alice: {ID: alice, Email: "alice@example.com", TelegramChatID: "1001"},
		bob:   {ID: bob, Email: "bob@example.com", TelegramChatID: "2002"},
		carol: {ID: carol, Email: "carol@example.com"},
	}

	t.Setenv("TELEGRAM_BOT_TOKEN", "bot-token")
	factory := newMirrorFactory(profiles, mailer.New(mailer.Config{}))
	if factory == nil {
		t.Fatal("expected mirror factory with a bot token")
	}

	chats := map[uuid.UUID]string{}
	for _, userID := range []uuid.UUID{alice, bob} {
		telegram, ok := factory(context.Background(), userID).(*bell.TelegramMirror)
		if !ok {
			t.Fatalf("expected telegram mirror for %s", userID)
		}
		if telegram.RequestPermission(context.Background()) != bell.PermissionGranted {
			t.Fatalf("expected granted permission for %s", userID)
		}
		chats[userID] = telegram.ChatID()
	}
	if chats[alice] != "1001" || chats[bob] != "2002" {
		t.Fatalf("expected per-user chats, got %v", chats)
	}

	for _, userID := range []uuid.UUID{carol, uuid.New()} {
		if got := factory(context.Background(), userID).RequestPermission(context.Background()); got != bell.PermissionDenied {
			t.Fatalf("expected denied mirror for user without a linked chat, got %q", got)
		}
	}
}

func TestMirrorFactoryMailsEachUserOwnAddress(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	var recipients []string
	mail := mailer.NewWithSender("bell@medremind.local", func(message *gomail.Message) error {
		recipients = append(recipients, message.GetHeader("To")...)
		return nil
	})
	alice, bob := uuid.New(), uuid.New()
	profiles := mirrorProfilesStub{
		alice: {ID: alice, Email: "alice@example.com", TelegramChatID: "1001"},
		bob:   {ID: bob, Email: "bob@example.com"},
	}

	factory := newMirrorFactory(profiles, mail)
	for _, userID := range []uuid.UUID{alice, bob} {
		mirror := factory(context.Background(), userID)
		if _, ok := mirror.(*bell.MailMirror); !ok {
			t.Fatalf("expected mail mirror without a bot token, got %T", mirror)
		}
		if err := mirror.Show(context.Background(), "New Prescription", "body"); err != nil {
			t.Fatalf("show: %v", err)
		}
	}
	if len(recipients) != 2 || recipients[0] != "alice@example.com" || recipients[1] != "bob@example.com" {
		t.Fatalf("expected one mail per user address, got %v", recipients)
	}
}
