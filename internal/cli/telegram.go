package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/db"
	"github.com/terraincognita07/medremind/internal/services"
)

// Telegram chat ids are integers; groups and channels are negative.
var telegramChatIDPattern = regexp.MustCompile(`^-?\d{1,20}$`)

type TelegramChatStore interface {
	UpdateTelegramChatID(ctx context.Context, id uuid.UUID, chatID string) error
}

// LinkTelegram points the bell mirror of the account behind email at
// chatID. An empty chatID unlinks it.
func LinkTelegram(ctx context.Context, identities IdentityStore, profiles TelegramChatStore, email string, chatID string, stdout io.Writer) error {
	normalizedEmail := services.NormalizeAuthEmail(email)
	if normalizedEmail == "" {
		return errors.New("a valid email is required")
	}
	chatID = strings.TrimSpace(chatID)
	if chatID != "" && !telegramChatIDPattern.MatchString(chatID) {
		return fmt.Errorf("invalid telegram chat id %q", chatID)
	}

	identity, err := identities.FindByNormalizedEmail(ctx, normalizedEmail)
	if err != nil {
		if db.IsNotFound(err) {
			return fmt.Errorf("account %s not found", normalizedEmail)
		}
		return fmt.Errorf("load account: %w", err)
	}

	if err := profiles.UpdateTelegramChatID(ctx, identity.ID, chatID); err != nil {
		if db.IsNotFound(err) {
			return fmt.Errorf("account %s has no profile yet; sign in once first", normalizedEmail)
		}
		return fmt.Errorf("update telegram chat: %w", err)
	}

	if chatID == "" {
		fmt.Fprintf(stdout, "Telegram unlinked for %s\n", normalizedEmail)
		return nil
	}
	fmt.Fprintf(stdout, "✅ Telegram chat %s linked for %s\n", chatID, normalizedEmail)
	return nil
}
