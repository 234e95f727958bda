// Package audit records every sandbox API call and fans events out to subscribers
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/alexbotov/gametester/internal/domain"
	"github.com/alexbotov/gametester/internal/store"
	"github.com/alexbotov/gametester/pkg/gametester"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

// Listener receives each event after it is stored. It must not block.
type Listener func(*domain.Event)

// Service provides audit logging functionality
type Service struct {
	store store.Store

	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
}

// New creates a new audit service
func New(st store.Store) *Service {
	return &Service{
		store:     st,
		listeners: make(map[int]Listener),
	}
}

// LogEvent records an event and notifies listeners
func (s *Service) LogEvent(ctx context.Context, event *domain.Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	if err := s.store.AppendEvent(ctx, event); err != nil {
		return oops.Code("AUDIT_APPEND_FAILED").In("audit").With("event_type", event.Type).Wrap(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.listeners {
		l(event)
	}
	return nil
}

// Log is a convenience method for logging events
func (s *Service) Log(ctx context.Context, eventType domain.EventType, developerToken string, code gametester.ResponseCode, message string, opts ...EventOption) (*domain.Event, error) {
	event := &domain.Event{
		ID:             uuid.New().String(),
		Type:           eventType,
		DeveloperToken: developerToken,
		Code:           code,
		Message:        message,
		CreatedAt:      time.Now().UTC(),
	}

	for _, opt := range opts {
		opt(event)
	}

	return event, s.LogEvent(ctx, event)
}

// EventOption is a functional option for configuring audit events
type EventOption func(*domain.Event)

// WithTest sets the test and player of the event
func WithTest(test *domain.Test) EventOption {
	return func(e *domain.Event) {
		if test == nil {
			return
		}
		testID, playerID := test.ID, test.PlayerID
		e.TestID = &testID
		e.PlayerID = &playerID
	}
}

// WithDatapoint sets the datapoint ID for the event
func WithDatapoint(id int) EventOption {
	return func(e *domain.Event) {
		e.DatapointID = &id
	}
}

// WithRequestID sets the client request ID for the event
func WithRequestID(requestID string) EventOption {
	return func(e *domain.Event) {
		e.RequestID = requestID
	}
}

// WithSandbox marks the event as received on the sandbox endpoints
func WithSandbox(sandbox bool) EventOption {
	return func(e *domain.Event) {
		e.Sandbox = sandbox
	}
}

// Subscribe registers l for every subsequent event and returns a function
// that removes it
func (s *Service) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// GetEvents retrieves audit events, newest first
func (s *Service) GetEvents(ctx context.Context, filter *store.EventFilter) ([]*domain.Event, error) {
	events, err := s.store.ListEvents(ctx, filter)
	if err != nil {
		return nil, oops.Code("AUDIT_QUERY_FAILED").In("audit").Wrap(err)
	}
	return events, nil
}
