// Package auth verifies manager credentials against the user store.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/twh-ops/leadportal/internal/portal/storage"
	"github.com/twh-ops/leadportal/pkg/logger"
)

// ErrInvalidCredentials covers both unknown users and wrong passwords so
// callers cannot probe for account existence.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Session is the result of a successful login.
type Session struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// Service authenticates managers.
type Service struct {
	store storage.AuthStore
	log   *logger.Logger
}

// New constructs the service.
func New(store storage.AuthStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &Service{store: store, log: log}
}

// Login checks the credentials and issues a session. Stored passwords may
// be bcrypt hashes, hex-encoded SHA-256 digests, or legacy plaintext.
func (s *Service) Login(ctx context.Context, id, password string) (Session, error) {
	id = strings.TrimSpace(id)
	if id == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	if !verify(user.Password, password) {
		s.log.WithField("user", id).Warn("failed login attempt")
		return Session{}, ErrInvalidCredentials
	}

	s.log.WithField("user", id).Info("manager logged in")
	return Session{Token: "auth_" + user.ID, Role: user.Role}, nil
}

func verify(stored, supplied string) bool {
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(supplied)) == nil
	}

	sum := sha256.Sum256([]byte(supplied))
	digest := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(stored), []byte(digest)) == 1 {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}
