package gametester

import "sync"

// Field names understood by the GameTester API
const (
	FieldDeveloperToken = "developerToken"
	FieldPlayerPin      = "playerPin"
	FieldPlayerToken    = "playerToken"
	FieldDatapointID    = "datapointId"
	FieldFunction       = "function"
)

// Session holds the developer and player credentials used by a Client.
// It lives as long as the application; there is no logout.
type Session struct {
	mu sync.RWMutex

	initialized    bool
	mode           Mode
	developerToken string

	playerAuthenticated bool
	playerAuthMode      PlayerAuthenticationMode
	// playerCredential is the pin or the token, depending on playerAuthMode
	playerCredential string
}

// SessionState is a point-in-time copy of a Session
type SessionState struct {
	Initialized              bool
	Mode                     Mode
	DeveloperToken           string
	PlayerAuthenticated      bool
	PlayerAuthenticationMode PlayerAuthenticationMode
	PlayerCredential         string
}

// NewSession creates an uninitialized session in sandbox mode expecting a pin
func NewSession() *Session {
	return &Session{
		mode:           ModeSandbox,
		playerAuthMode: PlayerAuthenticationPin,
	}
}

// Initialize sets the deployment mode and the developer token.
// Calling it again overwrites both.
func (s *Session) Initialize(mode Mode, developerToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = mode
	s.developerToken = developerToken
	s.initialized = true
}

// SetPlayerPin authenticates the player by pin, replacing any token
func (s *Session) SetPlayerPin(pin string) {
	s.setPlayer(PlayerAuthenticationPin, pin)
}

// SetPlayerToken authenticates the player by token, replacing any pin
func (s *Session) SetPlayerToken(token string) {
	s.setPlayer(PlayerAuthenticationToken, token)
}

func (s *Session) setPlayer(mode PlayerAuthenticationMode, credential string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playerCredential = credential
	s.playerAuthMode = mode
	s.playerAuthenticated = true
}

// Initialized reports whether Initialize has been called
func (s *Session) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Mode returns the deployment mode
func (s *Session) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// PlayerAuthenticated reports whether a player credential has been set
func (s *Session) PlayerAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playerAuthenticated
}

// PlayerAuthenticationMode returns the kind of the active player credential
func (s *Session) PlayerAuthenticationMode() PlayerAuthenticationMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playerAuthMode
}

// Snapshot copies the current state
func (s *Session) Snapshot() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return SessionState{
		Initialized:              s.initialized,
		Mode:                     s.mode,
		DeveloperToken:           s.developerToken,
		PlayerAuthenticated:      s.playerAuthenticated,
		PlayerAuthenticationMode: s.playerAuthMode,
		PlayerCredential:         s.playerCredential,
	}
}

// AuthFields builds the credential fields of the current state
func (s *Session) AuthFields() *Fields {
	return s.Snapshot().AuthFields()
}

// AuthFields returns developerToken followed by playerPin or playerToken.
// Nothing is validated; unset values are sent empty.
func (st SessionState) AuthFields() *Fields {
	f := NewFields()
	f.Set(FieldDeveloperToken, st.DeveloperToken)

	if st.PlayerAuthenticationMode == PlayerAuthenticationToken {
		f.Set(FieldPlayerToken, st.PlayerCredential)
	} else {
		f.Set(FieldPlayerPin, st.PlayerCredential)
	}

	return f
}
