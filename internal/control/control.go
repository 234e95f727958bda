// Package control manages the lifecycle of playtests
//
// A test moves setup -> running -> finished:
//   - the game unlocks a test in setup, which starts it
//   - datapoints are only accepted while running
//   - the developer finishes a test, running or still in setup; a test
//     finished from setup can no longer be unlocked
package control

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alexbotov/gametester/internal/domain"
	"github.com/alexbotov/gametester/internal/store"
	"github.com/google/uuid"
	"github.com/samber/oops"
)

var (
	ErrTestAlreadyUnlocked = errors.New("test already unlocked")
	ErrTestNotInSetupState = errors.New("test is not in setup state")
	ErrTestNotRunning      = errors.New("test is not running")
	ErrDatapointNotFound   = errors.New("datapoint does not exist")
	ErrTestAlreadyFinished = errors.New("test already finished")
)

// Service provides test lifecycle operations
type Service struct {
	store store.Store

	// serializes read-modify-write of tests
	mu sync.Mutex
}

// New creates a new control service
func New(st store.Store) *Service {
	return &Service{store: st}
}

// NewTest describes a test to create
type NewTest struct {
	DeveloperToken string
	PlayerID       string
	PlayerName     string
	PinHash        string
	Datapoints     []int
}

// CreateTest registers a test in the setup state
func (s *Service) CreateTest(ctx context.Context, req NewTest) (*domain.Test, error) {
	test := &domain.Test{
		ID:             uuid.New().String(),
		DeveloperToken: req.DeveloperToken,
		PlayerID:       req.PlayerID,
		PlayerName:     req.PlayerName,
		PinHash:        req.PinHash,
		State:          domain.TestStateSetup,
		Datapoints:     req.Datapoints,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.store.CreateTest(ctx, test); err != nil {
		return nil, oops.Code("CONTROL_CREATE_FAILED").In("control").With("player_id", req.PlayerID).Wrap(err)
	}
	return test, nil
}

// Unlock starts a test that is still in setup
func (s *Service) Unlock(ctx context.Context, testID string) (*domain.Test, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	test, err := s.load(ctx, testID)
	if err != nil {
		return nil, err
	}

	if test.Unlocked() {
		return test, ErrTestAlreadyUnlocked
	}
	if test.State != domain.TestStateSetup {
		return test, ErrTestNotInSetupState
	}

	now := time.Now().UTC()
	test.State = domain.TestStateRunning
	test.UnlockedAt = &now

	if err := s.store.UpdateTest(ctx, test); err != nil {
		return nil, oops.Code("CONTROL_UPDATE_FAILED").In("control").With("test_id", testID).Wrap(err)
	}
	return test, nil
}

// RecordDatapoint checks that datapointID may be recorded for the test.
// The record itself is the audit event written by the caller.
func (s *Service) RecordDatapoint(ctx context.Context, testID string, datapointID int) (*domain.Test, error) {
	test, err := s.load(ctx, testID)
	if err != nil {
		return nil, err
	}

	if test.State != domain.TestStateRunning {
		return test, ErrTestNotRunning
	}
	if !test.HasDatapoint(datapointID) {
		return test, ErrDatapointNotFound
	}
	return test, nil
}

// Finish ends a test of developerToken. Tests of other developers are
// reported as not found.
func (s *Service) Finish(ctx context.Context, developerToken, testID string) (*domain.Test, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	test, err := s.load(ctx, testID)
	if err != nil {
		return nil, err
	}
	if test.DeveloperToken != developerToken {
		return nil, oops.Code("CONTROL_TEST_LOOKUP").In("control").With("test_id", testID).Wrap(store.ErrNotFound)
	}

	if test.State == domain.TestStateFinished {
		return test, ErrTestAlreadyFinished
	}

	test.State = domain.TestStateFinished
	if err := s.store.UpdateTest(ctx, test); err != nil {
		return nil, oops.Code("CONTROL_UPDATE_FAILED").In("control").With("test_id", testID).Wrap(err)
	}
	return test, nil
}

func (s *Service) load(ctx context.Context, testID string) (*domain.Test, error) {
	test, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return nil, oops.Code("CONTROL_TEST_LOOKUP").In("control").With("test_id", testID).Wrap(err)
	}
	return test, nil
}
