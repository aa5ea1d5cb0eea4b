package services

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/terraincognita07/medremind/internal/models"
)

var (
	ErrAuthCredentialsInvalid = errors.New("auth credentials invalid")
	ErrAuthRoleRequired       = errors.New("please select your role")
	ErrAuthFullNameRequired   = errors.New("full name is required")
)

type SignUpInput struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	FullName string      `json:"full_name"`
	Phone    string      `json:"phone"`
	Role     models.Role `json:"role"`
}

func NormalizeAuthEmail(raw string) string {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return ""
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ""
	}
	return email
}

func NormalizeCredentialsInput(emailRaw string, passwordRaw string) (string, string, error) {
	email := NormalizeAuthEmail(emailRaw)
	password := strings.TrimSpace(passwordRaw)
	if email == "" || password == "" {
		return "", "", ErrAuthCredentialsInvalid
	}
	return email, password, nil
}

// NormalizeSignUpInput trims every field and checks the role before the
// password policy so a missing role is reported first.
func NormalizeSignUpInput(input SignUpInput) (SignUpInput, error) {
	email, password, err := NormalizeCredentialsInput(input.Email, input.Password)
	if err != nil {
		return SignUpInput{}, err
	}

	role := models.Role(strings.TrimSpace(string(input.Role)))
	if !role.Valid() {
		return SignUpInput{}, ErrAuthRoleRequired
	}
	if err := ValidatePasswordStrength(password); err != nil {
		return SignUpInput{}, err
	}

	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		return SignUpInput{}, ErrAuthFullNameRequired
	}

	return SignUpInput{
		Email:    email,
		Password: password,
		FullName: fullName,
		Phone:    strings.TrimSpace(input.Phone),
		Role:     role,
	}, nil
}
