package cli

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/terraincognita07/medremind/internal/db"
	"github.com/terraincognita07/medremind/internal/models"
	"github.com/terraincognita07/medremind/internal/services"
	"golang.org/x/crypto/bcrypt"
)

const temporaryPasswordLength = 12

// IdentityStore is the slice of the identity repository the reset needs.
type IdentityStore interface {
	FindByNormalizedEmail(ctx context.Context, email string) (models.Identity, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// ResetPassword replaces the password of the account behind email. When
// stdin is a terminal the operator may type a new password; an empty answer
// or a non-interactive stdin falls back to a generated temporary password.
func ResetPassword(ctx context.Context, identities IdentityStore, email string, stdin *os.File, stdout io.Writer) error {
	normalizedEmail := services.NormalizeAuthEmail(email)
	if normalizedEmail == "" {
		return errors.New("a valid email is required")
	}

	identity, err := identities.FindByNormalizedEmail(ctx, normalizedEmail)
	if err != nil {
		if db.IsNotFound(err) {
			return fmt.Errorf("account %s not found", normalizedEmail)
		}
		return fmt.Errorf("load account: %w", err)
	}

	password, generated, err := choosePassword(stdin, stdout)
	if err != nil {
		return err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := identities.UpdatePasswordHash(ctx, identity.ID, string(passwordHash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	fmt.Fprintf(stdout, "✅ Password reset for %s\n", normalizedEmail)
	if generated {
		fmt.Fprintf(stdout, "Temporary password: %s\n", password)
		fmt.Fprintln(stdout, "Share it over a trusted channel and ask the user to change it.")
	}
	return nil
}

func choosePassword(stdin *os.File, stdout io.Writer) (string, bool, error) {
	if isInteractive(stdin) {
		typed, err := promptPassword(stdin, stdout, "New password (empty to generate one): ")
		if err != nil {
			return "", false, fmt.Errorf("read password: %w", err)
		}
		if typed = strings.TrimSpace(typed); typed != "" {
			if err := services.ValidatePasswordStrength(typed); err != nil {
				return "", false, err
			}
			return typed, false, nil
		}
	}

	temporary, err := generateTemporaryPassword(temporaryPasswordLength)
	if err != nil {
		return "", false, fmt.Errorf("generate temporary password: %w", err)
	}
	return temporary, true, nil
}

// Look-alike characters (0/O, 1/l/I) are left out since the password is
// read aloud or retyped by hand.
const temporaryPasswordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

func generateTemporaryPassword(length int) (string, error) {
	if length < 8 {
		length = 8
	}

	alphabetSize := big.NewInt(int64(len(temporaryPasswordAlphabet)))
	password := make([]byte, length)
	for index := range password {
		pick, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		password[index] = temporaryPasswordAlphabet[pick.Int64()]
	}
	return string(password), nil
}
