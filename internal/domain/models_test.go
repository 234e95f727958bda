package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTest_HasDatapoint(t *testing.T) {
	test := &Test{Datapoints: []int{1, 7, 42}}

	for _, id := range []int{1, 7, 42} {
		if !test.HasDatapoint(id) {
			t.Errorf("Expected datapoint %d to exist", id)
		}
	}
	for _, id := range []int{0, 2, -7} {
		if test.HasDatapoint(id) {
			t.Errorf("Expected datapoint %d to be missing", id)
		}
	}
}

func TestTest_Unlocked(t *testing.T) {
	test := &Test{State: TestStateSetup}
	if test.Unlocked() {
		t.Error("Test in setup must not be unlocked")
	}

	now := time.Now()
	test.UnlockedAt = &now
	if !test.Unlocked() {
		t.Error("Expected test to be unlocked")
	}
}

func TestSecretsNotSerialized(t *testing.T) {
	test := &Test{
		ID:             "test-1",
		DeveloperToken: "dev-secret",
		PinHash:        "$2a$hash",
		State:          TestStateRunning,
	}
	event := &Event{ID: "ev-1", Type: EventDatapoint, DeveloperToken: "dev-secret"}
	developer := &Developer{Token: "dev-secret", Name: "Demo"}

	for _, v := range []any{test, event, developer} {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("Failed to marshal %T: %v", v, err)
		}
		if strings.Contains(string(data), "dev-secret") || strings.Contains(string(data), "$2a$") {
			t.Errorf("%T leaks a secret: %s", v, data)
		}
	}
}
