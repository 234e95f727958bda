// Package rng generates the secrets handed out by the sandbox:
// developer tokens and player pins
package rng

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Service draws from a cryptographically strong entropy source
type Service struct {
	entropy io.Reader
	mu      sync.Mutex
}

// New creates a new RNG service using crypto/rand
func New() *Service {
	return NewWithReader(rand.Reader)
}

// NewWithReader creates a service reading entropy from r
func NewWithReader(r io.Reader) *Service {
	return &Service{entropy: r}
}

// GenerateBytes returns n random bytes
func (s *Service) GenerateBytes(n int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, n)
	if _, err := io.ReadFull(s.entropy, buf); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return buf, nil
}

// GenerateInt returns a random integer in range [0, max).
// Values above the largest multiple of max are rejected to avoid modulo bias.
func (s *Service) GenerateInt(max int64) (int64, error) {
	if max <= 0 {
		return 0, fmt.Errorf("max must be positive")
	}

	threshold := uint64(1<<63-1) - (uint64(1<<63-1) % uint64(max))
	for {
		buf, err := s.GenerateBytes(8)
		if err != nil {
			return 0, err
		}

		n := binary.BigEndian.Uint64(buf) >> 1
		if n < threshold {
			return int64(n % uint64(max)), nil
		}
	}
}

// Pin returns a numeric pin of the given number of digits; leading zeros are kept
func (s *Service) Pin(digits int) (string, error) {
	if digits <= 0 {
		return "", fmt.Errorf("digits must be positive")
	}

	var b strings.Builder
	b.Grow(digits)
	for i := 0; i < digits; i++ {
		d, err := s.GenerateInt(10)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d))
	}
	return b.String(), nil
}

// Token returns n random bytes hex encoded
func (s *Service) Token(n int) (string, error) {
	buf, err := s.GenerateBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
