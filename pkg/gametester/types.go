package gametester

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Version is reported in the User-Agent header.
const Version = "1.2.0"

// Mode selects the GameTester deployment requests are sent to
type Mode string

const (
	ModeProduction Mode = "production"
	ModeSandbox    Mode = "sandbox"
	// ModeTest targets a locally running sandbox backend (gametester serve)
	ModeTest Mode = "test"
)

// DefaultBaseURLs maps every Mode to its base URL
var DefaultBaseURLs = map[Mode]string{
	ModeProduction: "https://server.gametester.gg/dev-api/v1",
	ModeSandbox:    "https://server.gametester.gg/dev-api/v1/sandbox",
	ModeTest:       "http://127.0.0.1:8080/dev-api/v1",
}

// ParseMode converts a mode name into a Mode
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeProduction, ModeSandbox, ModeTest:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q: must be production, sandbox or test", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Mode) String() string {
	return string(m)
}

// PlayerAuthenticationMode tells which kind of player credential is active
type PlayerAuthenticationMode string

const (
	PlayerAuthenticationToken PlayerAuthenticationMode = "token"
	PlayerAuthenticationPin   PlayerAuthenticationMode = "pin"
)

func (m PlayerAuthenticationMode) String() string {
	return string(m)
}

// Encoding selects how request fields are serialized
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingForm Encoding = "form"
)

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Encoding) UnmarshalText(text []byte) error {
	switch enc := Encoding(strings.ToLower(strings.TrimSpace(string(text)))); enc {
	case EncodingJSON, EncodingForm:
		*e = enc
		return nil
	case "":
		*e = EncodingJSON
		return nil
	default:
		return fmt.Errorf("unknown encoding %q: must be json or form", string(text))
	}
}

// ResponseCode is the result code of an API call.
//
// The server may send codes this package has no constant for; they are kept
// as their raw value.
type ResponseCode int

// Codes produced locally by the client
const (
	CodeHTTPError          ResponseCode = -10
	CodeResponseParseError ResponseCode = -11
)

// Codes returned by the GameTester API
const (
	CodeSuccess                     ResponseCode = 0
	CodeGeneralError                ResponseCode = -1
	CodeMissingDeveloperToken       ResponseCode = 1
	CodeMissingPlayerAuthentication ResponseCode = 2
	CodeInvalidDeveloperToken       ResponseCode = 3
	CodeInvalidPlayerToken          ResponseCode = 4
	CodeInvalidPlayerPin            ResponseCode = 5
	CodeMissingParameters           ResponseCode = 6
	CodeDataPointDoesNotExist       ResponseCode = 7
	CodeTestNotRunning              ResponseCode = 8
	CodeInvalidPlayerForTest        ResponseCode = 9
	CodeInvalidFunctionName         ResponseCode = 10
	CodeTestAlreadyUnlocked         ResponseCode = 11
	CodeTestNotInSetupState         ResponseCode = 12
)

var codeNames = map[ResponseCode]string{
	CodeHTTPError:                   "HttpError",
	CodeResponseParseError:          "ResponseParseError",
	CodeSuccess:                     "Success",
	CodeGeneralError:                "GeneralError",
	CodeMissingDeveloperToken:       "MissingDeveloperToken",
	CodeMissingPlayerAuthentication: "MissingPlayerAuthentication",
	CodeInvalidDeveloperToken:       "InvalidDeveloperToken",
	CodeInvalidPlayerToken:          "InvalidPlayerToken",
	CodeInvalidPlayerPin:            "InvalidPlayerPin",
	CodeMissingParameters:           "MissingParameters",
	CodeDataPointDoesNotExist:       "DataPointDoesNotExist",
	CodeTestNotRunning:              "TestNotRunning",
	CodeInvalidPlayerForTest:        "InvalidPlayerForTest",
	CodeInvalidFunctionName:         "InvalidFunctionName",
	CodeTestAlreadyUnlocked:         "TestAlreadyUnlocked",
	CodeTestNotInSetupState:         "TestNotInSetupState",
}

// Known reports whether c is one of the named codes
func (c ResponseCode) Known() bool {
	_, ok := codeNames[c]
	return ok
}

// String returns the code name, or "Unknown"
func (c ResponseCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "Unknown"
}

// ClientConfig holds the configuration for the GameTester client
type ClientConfig struct {
	// BaseURLs overrides DefaultBaseURLs for individual modes
	BaseURLs map[Mode]string
	Encoding Encoding
	// Timeout of a whole request; zero leaves the HTTP client default (none)
	Timeout   time.Duration
	UserAgent string
	Logger    *slog.Logger
}

// DefaultConfig returns a default client configuration
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		Encoding:  EncodingJSON,
		UserAgent: "gametester-go/" + Version,
	}
}
