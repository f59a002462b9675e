package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"devsecops_api/internal/models"
	"devsecops_api/internal/repository"
)

// ActivityFilter narrows a user's activity trail.
type ActivityFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "REGISTER", "LOGIN", "PROFILE_UPDATE"
}

type ActivityService struct {
	events repository.Events
}

func NewActivityService(events repository.Events) *ActivityService {
	return &ActivityService{events: events}
}

var (
	errInvalidTimeRange = &ValidationError{Reason: "'from' must be <= 'to'"}
	errUnknownEventType = &ValidationError{Reason: "Unknown event type"}
)

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f ActivityFilter) (time.Time, time.Time, string, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", errInvalidTimeRange
	}

	eventType := normalizeEventType(f.Type)
	if eventType != "" && !slices.Contains(models.EventTypes, eventType) {
		return time.Time{}, time.Time{}, "", errUnknownEventType
	}
	return from, to, eventType, nil
}

// Record appends an entry to userID's trail.
func (s *ActivityService) Record(ctx context.Context, userID int64, typ, description string, meta map[string]any) error {
	e := models.Event{
		UserID:      userID,
		Type:        normalizeEventType(typ),
		Description: description,
	}
	if len(meta) > 0 {
		e.Metadata = meta
	}
	if err := s.events.Append(ctx, e); err != nil {
		return fmt.Errorf("record %s: %w", e.Type, err)
	}
	return nil
}

// List returns userID's events matching f, oldest first.
func (s *ActivityService) List(ctx context.Context, userID int64, f ActivityFilter) ([]models.Event, error) {
	from, to, typ, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.events.List(ctx, userID, from, to, typ)
}
