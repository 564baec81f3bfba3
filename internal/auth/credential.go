package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var errEmptyToken = errors.New("token cannot be empty")

// Credential is the session token presented to the backend as a bearer
// credential. It is obtained outside startify and handed to it.
type Credential struct {
	Token   string    `json:"token"`
	SavedAt time.Time `json:"saved_at"`
}

// NewCredential validates and wraps a raw token.
func NewCredential(token string) (*Credential, error) {
	token, err := normalizeToken(token)
	if err != nil {
		return nil, err
	}
	return &Credential{Token: token, SavedAt: time.Now()}, nil
}

func normalizeToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		return "", errEmptyToken
	}
	if strings.ContainsAny(token, " \t\r\n") {
		return "", fmt.Errorf("token must not contain whitespace")
	}
	return token, nil
}

// Masked returns the token with all but its last four characters hidden.
func (c *Credential) Masked() string {
	if c == nil || c.Token == "" {
		return ""
	}
	if len(c.Token) <= 4 {
		return strings.Repeat("*", len(c.Token))
	}
	return strings.Repeat("*", 8) + c.Token[len(c.Token)-4:]
}
