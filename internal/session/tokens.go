package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	purposeSession      = "session"
	purposeConfirmation = "email_confirmation"
)

type tokenClaims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid,omitempty"`
	Email     string `json:"email"`
	Purpose   string `json:"purpose"`
	jwt.RegisteredClaims
}

func (claims *tokenClaims) session(token string) (Session, error) {
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Session{}, err
	}
	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return Session{}, err
	}
	tokenID, err := uuid.Parse(claims.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{
		ID:        sessionID,
		TokenID:   tokenID,
		UserID:    userID,
		Email:     claims.Email,
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (store *TokenStore) issue(userID uuid.UUID, email string, sessionID uuid.UUID) (Session, error) {
	now := store.now()
	tokenID := uuid.New()
	expiresAt := now.Add(store.sessionTTL)

	claims := tokenClaims{
		UserID:    userID.String(),
		SessionID: sessionID.String(),
		Email:     email,
		Purpose:   purposeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID.String(),
			Subject:   userID.String(),
			IssuedAt:  newNumericDate(now),
			ExpiresAt: newNumericDate(expiresAt),
		},
	}

	token, err := store.sign(claims)
	if err != nil {
		return Session{}, fmt.Errorf("sign session token: %w", err)
	}
	return Session{
		ID:        sessionID,
		TokenID:   tokenID,
		UserID:    userID,
		Email:     email,
		Token:     token,
		ExpiresAt: newNumericDate(expiresAt).Time,
	}, nil
}

func (store *TokenStore) sign(claims tokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(store.secretKey)
}

func (store *TokenStore) parse(rawToken string, purpose string) (*tokenClaims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, ErrInvalidToken
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return store.secretKey, nil
	}, jwt.WithTimeFunc(store.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Purpose != purpose {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil || !claims.ExpiresAt.Time.After(store.now()) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// JWT numeric dates carry whole seconds.
func newNumericDate(value time.Time) *jwt.NumericDate {
	return jwt.NewNumericDate(value.Truncate(time.Second))
}
