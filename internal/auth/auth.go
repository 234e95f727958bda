// Package auth validates developer and player credentials for the sandbox
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexbotov/gametester/internal/config"
	"github.com/alexbotov/gametester/internal/domain"
	"github.com/alexbotov/gametester/internal/store"
	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingDeveloperToken       = errors.New("missing developer token")
	ErrInvalidDeveloperToken       = errors.New("invalid developer token")
	ErrMissingPlayerAuthentication = errors.New("missing player authentication")
	ErrInvalidPlayerToken          = errors.New("invalid player token")
	ErrInvalidPlayerPin            = errors.New("invalid player pin")
	ErrInvalidPlayerForTest        = errors.New("player does not belong to this developer")
)

// Credentials are the authentication fields sent with every API call
type Credentials struct {
	DeveloperToken string
	PlayerPin      string
	PlayerToken    string
}

// Service provides authentication functionality
type Service struct {
	store  store.Store
	config *config.AuthConfig
}

// New creates a new auth service
func New(st store.Store, cfg *config.AuthConfig) *Service {
	return &Service{
		store:  st,
		config: cfg,
	}
}

// Authenticate resolves credentials to the player's test.
//
// Checks run in order: developer token present, developer known, a player
// credential present, then the player token (preferred) or pin.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (*domain.Test, error) {
	if err := s.VerifyDeveloper(ctx, creds.DeveloperToken); err != nil {
		return nil, err
	}

	switch {
	case creds.PlayerToken != "":
		return s.authenticateToken(ctx, creds.DeveloperToken, creds.PlayerToken)
	case creds.PlayerPin != "":
		return s.authenticatePin(ctx, creds.DeveloperToken, creds.PlayerPin)
	default:
		return nil, ErrMissingPlayerAuthentication
	}
}

// VerifyDeveloper checks that token belongs to a registered developer
func (s *Service) VerifyDeveloper(ctx context.Context, token string) error {
	if token == "" {
		return ErrMissingDeveloperToken
	}

	if _, err := s.store.GetDeveloper(ctx, token); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidDeveloperToken
		}
		return oops.Code("AUTH_LOOKUP_FAILED").In("auth").Wrap(err)
	}
	return nil
}

func (s *Service) authenticateToken(ctx context.Context, developerToken, tokenString string) (*domain.Test, error) {
	testID, playerID, err := s.ValidatePlayerToken(tokenString)
	if err != nil {
		return nil, err
	}

	test, err := s.store.GetTest(ctx, testID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidPlayerToken
		}
		return nil, oops.Code("AUTH_LOOKUP_FAILED").In("auth").With("test_id", testID).Wrap(err)
	}

	if test.PlayerID != playerID {
		return nil, ErrInvalidPlayerToken
	}
	if test.DeveloperToken != developerToken {
		return nil, ErrInvalidPlayerForTest
	}
	return test, nil
}

func (s *Service) authenticatePin(ctx context.Context, developerToken, pin string) (*domain.Test, error) {
	tests, err := s.store.ListTests(ctx, developerToken)
	if err != nil {
		return nil, oops.Code("AUTH_LOOKUP_FAILED").In("auth").Wrap(err)
	}

	for _, test := range tests {
		if test.PinHash == "" {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(test.PinHash), []byte(pin)) == nil {
			return test, nil
		}
	}
	return nil, ErrInvalidPlayerPin
}

// IssuePlayerToken signs a player token bound to test
func (s *Service) IssuePlayerToken(test *domain.Test) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"test_id":   test.ID,
		"player_id": test.PlayerID,
		"exp":       now.Add(s.config.TokenExpiry).Unix(),
		"iat":       now.Unix(),
	})

	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", oops.Code("AUTH_SIGN_FAILED").In("auth").With("test_id", test.ID).Wrapf(err, "failed to sign token")
	}
	return tokenString, nil
}

// ValidatePlayerToken checks the signature and expiry of a player token
// and returns the test and player it was issued for
func (s *Service) ValidatePlayerToken(tokenString string) (testID, playerID string, err error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil {
		return "", "", ErrInvalidPlayerToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", "", ErrInvalidPlayerToken
	}

	testID, _ = claims["test_id"].(string)
	playerID, _ = claims["player_id"].(string)
	if testID == "" || playerID == "" {
		return "", "", ErrInvalidPlayerToken
	}
	return testID, playerID, nil
}

// HashPin hashes a player pin for storage
func (s *Service) HashPin(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), s.config.PinCost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").In("auth").Wrapf(err, "failed to hash pin")
	}
	return string(hash), nil
}
