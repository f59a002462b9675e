package service

import (
	"context"

	"devsecops_api/internal/auth"
	"devsecops_api/internal/models"
	"devsecops_api/internal/repository"
)

// Authorization covers the credential and token lifecycle.
type Authorization interface {
	Register(ctx context.Context, in RegisterInput) (int64, error)
	Login(ctx context.Context, email, password string) (LoginResult, error)
	ParseToken(accessToken string) (int64, error)
}

// Profile exposes account reads and edits for authenticated callers.
type Profile interface {
	GetProfile(ctx context.Context, id int64) (models.User, error)
	UpdateProfile(ctx context.Context, id int64, username *string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// Activity keeps each account's security event trail.
type Activity interface {
	Record(ctx context.Context, userID int64, typ, description string, meta map[string]any) error
	List(ctx context.Context, userID int64, f ActivityFilter) ([]models.Event, error)
}

// Health reports whether backing stores are reachable.
type Health interface {
	Ping(ctx context.Context) error
}

// Service aggregates all sub-services.
type Service struct {
	Authorization
	Profile
	Activity
	Health
}

// NewService wires repository layer and crypto primitives into concrete services.
func NewService(repos *repository.Repository, hasher *auth.PasswordHasher, tokens *auth.TokenManager) *Service {
	profiles := NewProfileService(repos.Users)
	return &Service{
		Authorization: NewAuthService(repos.Users, hasher, tokens),
		Profile:       profiles,
		Activity:      NewActivityService(repos.Events),
		Health:        profiles,
	}
}
