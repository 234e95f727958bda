// Package domain contains the core models of the GameTester sandbox backend
//
// A developer registers a game and receives a developer token. Each player
// taking part in a playtest gets a Test: it starts in the setup state, is
// unlocked by the game once the player is ready, and collects datapoints
// while running.
package domain

import (
	"slices"
	"time"

	"github.com/alexbotov/gametester/pkg/gametester"
)

// Developer represents a registered game (identified by its developer token)
type Developer struct {
	Token     string    `json:"-" db:"token"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TestState represents the lifecycle state of a test
type TestState string

const (
	TestStateSetup    TestState = "setup"
	TestStateRunning  TestState = "running"
	TestStateFinished TestState = "finished"
)

// Test represents one player's playtest of a developer's game
type Test struct {
	ID             string     `json:"id" db:"id"`
	DeveloperToken string     `json:"-" db:"developer_token"`
	PlayerID       string     `json:"player_id" db:"player_id"`
	PlayerName     string     `json:"player_name" db:"player_name"`
	PinHash        string     `json:"-" db:"pin_hash"`
	State          TestState  `json:"state" db:"state"`
	Datapoints     []int      `json:"datapoints" db:"datapoints"`
	UnlockedAt     *time.Time `json:"unlocked_at,omitempty" db:"unlocked_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// HasDatapoint reports whether datapoint id is defined for the test
func (t *Test) HasDatapoint(id int) bool {
	return slices.Contains(t.Datapoints, id)
}

// Unlocked reports whether the test has ever been unlocked
func (t *Test) Unlocked() bool {
	return t.UnlockedAt != nil
}

// EventType identifies the API call an event records
type EventType string

const (
	EventAuth      EventType = "auth"
	EventDatapoint EventType = "datapoint"
	EventUnlock    EventType = "unlock"
	EventFinish    EventType = "finish"

	// EventRequest records a call that named no operation
	EventRequest EventType = "request"
)

// Event is the audit record of a single API call, successful or not
type Event struct {
	ID             string                  `json:"id" db:"id"`
	Type           EventType               `json:"type" db:"type"`
	DeveloperToken string                  `json:"-" db:"developer_token"`
	TestID         *string                 `json:"test_id,omitempty" db:"test_id"`
	PlayerID       *string                 `json:"player_id,omitempty" db:"player_id"`
	DatapointID    *int                    `json:"datapoint_id,omitempty" db:"datapoint_id"`
	Code           gametester.ResponseCode `json:"code" db:"code"`
	Message        string                  `json:"message" db:"message"`
	Sandbox        bool                    `json:"sandbox" db:"sandbox"`
	RequestID      string                  `json:"request_id,omitempty" db:"request_id"`
	CreatedAt      time.Time               `json:"created_at" db:"created_at"`
}
