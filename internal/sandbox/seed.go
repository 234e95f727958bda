package sandbox

import (
	"context"
	"time"

	"github.com/alexbotov/gametester/internal/control"
	"github.com/alexbotov/gametester/internal/domain"
	"github.com/samber/oops"
)

// Demo test layout created by Seed
const (
	seedPinDigits      = 4
	seedTokenBytes     = 16
	seedDatapointCount = 10
)

// SeedResult holds the credentials of a seeded developer and test
type SeedResult struct {
	DeveloperToken string
	TestID         string
	PlayerID       string
	PlayerPin      string
	PlayerToken    string
}

// Seed registers a demo developer with one test in the setup state. The
// test defines datapoints 1 to 10 and accepts both the returned pin and
// player token.
func (s *Server) Seed(ctx context.Context) (*SeedResult, error) {
	devToken, err := s.rng.Token(seedTokenBytes)
	if err != nil {
		return nil, oops.Code("SEED_FAILED").In("sandbox").Wrapf(err, "failed to generate developer token")
	}
	pin, err := s.rng.Pin(seedPinDigits)
	if err != nil {
		return nil, oops.Code("SEED_FAILED").In("sandbox").Wrapf(err, "failed to generate pin")
	}
	playerSuffix, err := s.rng.Token(4)
	if err != nil {
		return nil, oops.Code("SEED_FAILED").In("sandbox").Wrapf(err, "failed to generate player id")
	}

	if err := s.store.CreateDeveloper(ctx, &domain.Developer{
		Token:     devToken,
		Name:      "Demo Game",
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	pinHash, err := s.auth.HashPin(pin)
	if err != nil {
		return nil, err
	}

	datapoints := make([]int, seedDatapointCount)
	for i := range datapoints {
		datapoints[i] = i + 1
	}

	test, err := s.control.CreateTest(ctx, control.NewTest{
		DeveloperToken: devToken,
		PlayerID:       "player-" + playerSuffix,
		PlayerName:     "Demo Player",
		PinHash:        pinHash,
		Datapoints:     datapoints,
	})
	if err != nil {
		return nil, err
	}

	playerToken, err := s.auth.IssuePlayerToken(test)
	if err != nil {
		return nil, err
	}

	s.logger.Info("seeded demo test",
		"developer_token", devToken,
		"test_id", test.ID,
		"player_id", test.PlayerID,
		"player_pin", pin,
		"player_token", playerToken,
	)

	return &SeedResult{
		DeveloperToken: devToken,
		TestID:         test.ID,
		PlayerID:       test.PlayerID,
		PlayerPin:      pin,
		PlayerToken:    playerToken,
	}, nil
}

// IssueToken signs a fresh player token for an existing test
func (s *Server) IssueToken(ctx context.Context, testID string) (string, error) {
	test, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return "", oops.Code("TEST_NOT_FOUND").In("sandbox").With("test_id", testID).Wrap(err)
	}
	return s.auth.IssuePlayerToken(test)
}

// FinishTest ends a test of developerToken, as POST {prefix}/tests/{id}/finish does
func (s *Server) FinishTest(ctx context.Context, developerToken, testID string) (*domain.Test, error) {
	if err := s.auth.VerifyDeveloper(ctx, developerToken); err != nil {
		return nil, err
	}
	return s.control.Finish(ctx, developerToken, testID)
}
