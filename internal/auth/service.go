package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const RoleAdmin = "admin"

type User struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Service verifies the single admin credential configured for the
// deployment. An empty hash disables every login.
type Service struct {
	username string
	passHash []byte
}

func NewService(username, passHash string) *Service {
	return &Service{
		username: strings.TrimSpace(username),
		passHash: []byte(strings.TrimSpace(passHash)),
	}
}

func (s *Service) Enabled() bool {
	return s.username != "" && len(s.passHash) > 0
}

func (s *Service) Authenticate(username, password string) (*User, error) {
	if !s.Enabled() {
		return nil, ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(s.username)) != 1 {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &User{Username: s.username, Role: RoleAdmin}, nil
}

func HashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", fmt.Errorf("password is required")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}
