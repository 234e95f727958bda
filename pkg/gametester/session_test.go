package gametester

import (
	"reflect"
	"sync"
	"testing"
)

func TestNewSession_Defaults(t *testing.T) {
	s := NewSession()

	if s.Initialized() {
		t.Error("New session must not be initialized")
	}
	if s.Mode() != ModeSandbox {
		t.Errorf("Expected sandbox mode, got %s", s.Mode())
	}
	if s.PlayerAuthenticated() {
		t.Error("New session must not have a player")
	}
	if s.PlayerAuthenticationMode() != PlayerAuthenticationPin {
		t.Errorf("Expected pin mode, got %s", s.PlayerAuthenticationMode())
	}
}

func TestInitialize(t *testing.T) {
	s := NewSession()
	s.Initialize(ModeProduction, "dev-token")

	st := s.Snapshot()
	if !st.Initialized || st.Mode != ModeProduction || st.DeveloperToken != "dev-token" {
		t.Errorf("Unexpected state after Initialize: %+v", st)
	}

	// Re-initializing overwrites
	s.Initialize(ModeTest, "other")
	st = s.Snapshot()
	if st.Mode != ModeTest || st.DeveloperToken != "other" {
		t.Errorf("Expected overwrite, got %+v", st)
	}
}

func TestInitialize_Idempotent(t *testing.T) {
	once := NewSession()
	once.Initialize(ModeSandbox, "dev123")

	many := NewSession()
	for i := 0; i < 5; i++ {
		many.Initialize(ModeSandbox, "dev123")
	}

	if !reflect.DeepEqual(once.Snapshot(), many.Snapshot()) {
		t.Errorf("State after repeated Initialize differs: %+v vs %+v", once.Snapshot(), many.Snapshot())
	}
}

func TestPlayerCredential_MutualExclusion(t *testing.T) {
	s := NewSession()
	s.Initialize(ModeSandbox, "dev123")

	s.SetPlayerPin("4321")
	if s.PlayerAuthenticationMode() != PlayerAuthenticationPin || !s.PlayerAuthenticated() {
		t.Fatalf("Expected authenticated pin mode, got %+v", s.Snapshot())
	}

	fields := s.AuthFields()
	if v, _ := fields.Get(FieldPlayerPin); v != "4321" {
		t.Errorf("Expected playerPin=4321, got %v", v)
	}
	if fields.Has(FieldPlayerToken) {
		t.Error("playerToken must not be present in pin mode")
	}

	s.SetPlayerToken("tok")
	if s.PlayerAuthenticationMode() != PlayerAuthenticationToken {
		t.Fatalf("Expected token mode, got %s", s.PlayerAuthenticationMode())
	}

	fields = s.AuthFields()
	if v, _ := fields.Get(FieldPlayerToken); v != "tok" {
		t.Errorf("Expected playerToken=tok, got %v", v)
	}
	if fields.Has(FieldPlayerPin) {
		t.Error("playerPin must not be present in token mode")
	}

	// Last call wins, repeated calls are harmless
	s.SetPlayerPin("1111")
	s.SetPlayerPin("1111")
	fields = s.AuthFields()
	if v, _ := fields.Get(FieldPlayerPin); v != "1111" || fields.Has(FieldPlayerToken) {
		t.Errorf("Expected only playerPin=1111, got %v", fields.Keys())
	}
}

func TestAuthFields_Order(t *testing.T) {
	s := NewSession()
	s.SetPlayerToken("tok")

	keys := s.AuthFields().Keys()
	want := []string{FieldDeveloperToken, FieldPlayerToken}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("Expected keys %v, got %v", want, keys)
	}
}

func TestSession_ConcurrentAccess(t *testing.T) {
	s := NewSession()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Initialize(ModeSandbox, "dev")
			s.SetPlayerPin("1")
		}()
		go func() {
			defer wg.Done()
			s.SetPlayerToken("t")
			_ = s.AuthFields()
		}()
	}
	wg.Wait()

	// Whichever writer ran last, exactly one credential kind is active
	fields := s.AuthFields()
	if fields.Has(FieldPlayerPin) == fields.Has(FieldPlayerToken) {
		t.Errorf("Expected exactly one credential field, got %v", fields.Keys())
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"production": ModeProduction,
		"Sandbox":    ModeSandbox,
		" test ":     ModeTest,
	} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	if _, err := ParseMode("staging"); err == nil {
		t.Error("Expected error for unknown mode")
	}
}

func TestDefaultBaseURLs_CoverEveryMode(t *testing.T) {
	for _, m := range []Mode{ModeProduction, ModeSandbox, ModeTest} {
		if DefaultBaseURLs[m] == "" {
			t.Errorf("No base URL for mode %s", m)
		}
	}
}
