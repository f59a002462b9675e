package service

import (
	"context"
	"errors"

	"devsecops_api/internal/models"
	"devsecops_api/internal/repository"
	"devsecops_api/internal/validation"
)

// ProfileService reads and edits stored accounts.
type ProfileService struct {
	users repository.Users
}

func NewProfileService(users repository.Users) *ProfileService {
	return &ProfileService{users: users}
}

func (s *ProfileService) GetProfile(ctx context.Context, id int64) (models.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, ErrUserNotFound
	}
	return u, err
}

// UpdateProfile changes the username when one is supplied. A nil username
// leaves the record untouched.
func (s *ProfileService) UpdateProfile(ctx context.Context, id int64, username *string) (models.User, error) {
	u, err := s.GetProfile(ctx, id)
	if err != nil || username == nil {
		return u, err
	}

	name := validation.Sanitize(*username)
	if ok, reason := validation.ValidateUsername(name); !ok {
		return models.User{}, invalid(reason)
	}
	u.Username = name

	updated, err := s.users.Update(ctx, u)
	if errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, ErrUserNotFound
	}
	return updated, err
}

func (s *ProfileService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

// Ping reports store reachability for health checks.
func (s *ProfileService) Ping(ctx context.Context) error {
	return s.users.Ping(ctx)
}
