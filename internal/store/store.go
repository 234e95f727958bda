// Package store defines persistence for the sandbox backend
package store

import (
	"context"
	"errors"

	"github.com/alexbotov/gametester/internal/domain"
)

// ErrNotFound is returned when a developer, test or event does not exist
var ErrNotFound = errors.New("not found")

// Store persists developers, tests and the event log.
// Implementations: Memory (default) and database.DB (PostgreSQL).
type Store interface {
	CreateDeveloper(ctx context.Context, dev *domain.Developer) error
	GetDeveloper(ctx context.Context, token string) (*domain.Developer, error)

	CreateTest(ctx context.Context, test *domain.Test) error
	GetTest(ctx context.Context, id string) (*domain.Test, error)
	ListTests(ctx context.Context, developerToken string) ([]*domain.Test, error)
	UpdateTest(ctx context.Context, test *domain.Test) error

	AppendEvent(ctx context.Context, event *domain.Event) error
	ListEvents(ctx context.Context, filter *EventFilter) ([]*domain.Event, error)
}

// EventFilter defines criteria for filtering events.
// Results are newest first; Limit 0 means DefaultEventLimit.
type EventFilter struct {
	DeveloperToken string
	TestID         string
	Type           domain.EventType
	Limit          int
}

// DefaultEventLimit caps ListEvents when no limit is given
const DefaultEventLimit = 100

// EffectiveLimit returns the result limit of f; f may be nil
func (f *EventFilter) EffectiveLimit() int {
	if f == nil || f.Limit <= 0 {
		return DefaultEventLimit
	}
	return f.Limit
}
