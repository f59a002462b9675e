package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"devsecops_api/internal/auth"
	"devsecops_api/internal/models"
	"devsecops_api/internal/repository"
	"devsecops_api/internal/validation"
)

const tokenType = "Bearer"

// dummyPassword is hashed once and verified against when a login names an
// unknown email, so both failure paths cost one KDF run.
const dummyPassword = "not-a-real-password-0!A"

// RegisterInput is the registration request. An empty Username falls back to
// the local part of the email, or the whole email when the local part is
// too short to be a username.
type RegisterInput struct {
	Email    string
	Password string
	Username string
}

// LoginResult is returned on successful login.
type LoginResult struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
	User        models.PublicUser
}

// AuthService handles user auth logic
type AuthService struct {
	users  repository.Users
	hasher *auth.PasswordHasher
	tokens *auth.TokenManager

	dummyOnce   sync.Once
	dummyDigest string
}

func NewAuthService(users repository.Users, hasher *auth.PasswordHasher, tokens *auth.TokenManager) *AuthService {
	return &AuthService{users: users, hasher: hasher, tokens: tokens}
}

// Register validates the input, hashes the password and stores a new user.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (int64, error) {
	if in.Email == "" || in.Password == "" {
		return 0, invalid(validation.MsgCredentialsRequired)
	}

	email := validation.NormalizeEmail(in.Email)
	if !validation.ValidateEmail(email) {
		return 0, invalid(validation.MsgInvalidEmail)
	}
	if ok, reason := validation.ValidatePassword(in.Password); !ok {
		return 0, invalid(reason)
	}

	username := validation.Sanitize(in.Username)
	if username != "" {
		if ok, reason := validation.ValidateUsername(username); !ok {
			return 0, invalid(reason)
		}
	} else {
		username = defaultUsername(email)
	}

	switch _, err := s.users.FindByEmail(ctx, email); {
	case err == nil:
		return 0, ErrUserExists
	case !errors.Is(err, repository.ErrUserNotFound):
		return 0, fmt.Errorf("check existing user: %w", err)
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return 0, err
	}

	u, err := s.users.Insert(ctx, models.User{
		Email:        email,
		Username:     username,
		PasswordHash: digest,
	})
	if err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, repository.ErrEmailExists) {
			return 0, ErrUserExists
		}
		return 0, err
	}
	return u.ID, nil
}

// Login validates credentials and returns a signed bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	if email == "" || password == "" {
		return LoginResult{}, invalid(validation.MsgCredentialsRequired)
	}

	u, err := s.users.FindByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.Verify(password, s.dummy())
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}

	if !s.hasher.Verify(password, u.PasswordHash) {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(u.ID, s.tokens.TTL())
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		AccessToken: token,
		TokenType:   tokenType,
		ExpiresAt:   expiresAt,
		User:        u.Public(),
	}, nil
}

// ParseToken verifies the bearer token and returns the user id.
func (s *AuthService) ParseToken(accessToken string) (int64, error) {
	return s.tokens.Verify(accessToken)
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		// a failed hash leaves the digest empty; Verify then returns false
		s.dummyDigest, _ = s.hasher.Hash(dummyPassword)
	})
	return s.dummyDigest
}

func defaultUsername(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if ok, _ := validation.ValidateUsername(local); ok {
		return local
	}
	return email
}
