package store

import (
	"context"
	"slices"
	"sync"

	"github.com/alexbotov/gametester/internal/domain"
	"github.com/samber/oops"
)

// Memory is an in-process Store. It is the default backend of the sandbox
// and what the tests run against.
type Memory struct {
	mu         sync.RWMutex
	developers map[string]*domain.Developer
	tests      map[string]*domain.Test
	events     []*domain.Event
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		developers: make(map[string]*domain.Developer),
		tests:      make(map[string]*domain.Test),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) CreateDeveloper(_ context.Context, dev *domain.Developer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.developers[dev.Token]; ok {
		return oops.Code("STORE_DUPLICATE").In("store").With("developer", dev.Name).Errorf("developer token already exists")
	}
	cp := *dev
	m.developers[dev.Token] = &cp
	return nil
}

func (m *Memory) GetDeveloper(_ context.Context, token string) (*domain.Developer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dev, ok := m.developers[token]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *dev
	return &cp, nil
}

func (m *Memory) CreateTest(_ context.Context, test *domain.Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tests[test.ID]; ok {
		return oops.Code("STORE_DUPLICATE").In("store").With("test_id", test.ID).Errorf("test already exists")
	}
	if _, ok := m.developers[test.DeveloperToken]; !ok {
		return oops.Code("STORE_UNKNOWN_DEVELOPER").In("store").With("test_id", test.ID).Wrap(ErrNotFound)
	}
	m.tests[test.ID] = copyTest(test)
	return nil
}

func (m *Memory) GetTest(_ context.Context, id string) (*domain.Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	test, ok := m.tests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTest(test), nil
}

func (m *Memory) ListTests(_ context.Context, developerToken string) ([]*domain.Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var tests []*domain.Test
	for _, test := range m.tests {
		if test.DeveloperToken == developerToken {
			tests = append(tests, copyTest(test))
		}
	}

	slices.SortFunc(tests, func(a, b *domain.Test) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return tests, nil
}

func (m *Memory) UpdateTest(_ context.Context, test *domain.Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tests[test.ID]; !ok {
		return ErrNotFound
	}
	m.tests[test.ID] = copyTest(test)
	return nil
}

func (m *Memory) AppendEvent(_ context.Context, event *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *event
	m.events = append(m.events, &cp)
	return nil
}

func (m *Memory) ListEvents(_ context.Context, filter *EventFilter) ([]*domain.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit := filter.EffectiveLimit()
	var events []*domain.Event

	// Newest first
	for i := len(m.events) - 1; i >= 0 && len(events) < limit; i-- {
		ev := m.events[i]
		if filter != nil {
			if filter.DeveloperToken != "" && ev.DeveloperToken != filter.DeveloperToken {
				continue
			}
			if filter.TestID != "" && (ev.TestID == nil || *ev.TestID != filter.TestID) {
				continue
			}
			if filter.Type != "" && ev.Type != filter.Type {
				continue
			}
		}
		cp := *ev
		events = append(events, &cp)
	}

	return events, nil
}

func copyTest(t *domain.Test) *domain.Test {
	cp := *t
	cp.Datapoints = slices.Clone(t.Datapoints)
	if t.UnlockedAt != nil {
		at := *t.UnlockedAt
		cp.UnlockedAt = &at
	}
	return &cp
}
