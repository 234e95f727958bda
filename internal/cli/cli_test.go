package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexbotov/gametester/internal/api"
	"github.com/alexbotov/gametester/internal/config"
	"github.com/alexbotov/gametester/internal/sandbox"
	"github.com/alexbotov/gametester/pkg/gametester"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// setupSandbox starts an in-memory sandbox with one seeded test
func setupSandbox(t *testing.T) (*sandbox.SeedResult, string) {
	t.Helper()

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:   "cli-test-secret",
			TokenExpiry: time.Hour,
			PinCost:     bcrypt.MinCost,
		},
	}
	srv, err := sandbox.New(context.Background(), cfg, nil)
	require.NoError(t, err)

	seed, err := srv.Seed(context.Background())
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return seed, ts.URL + api.APIPrefix
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func assertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %v", err)
	assert.Equal(t, code, oopsErr.Code())
}

func responseCode(t *testing.T, err error) gametester.ResponseCode {
	t.Helper()
	var respErr *gametester.ResponseError
	require.True(t, errors.As(err, &respErr), "expected response error, got %v", err)
	return respErr.Code
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	assert.Equal(t, "gametester", cmd.Use)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"auth", "datapoint", "unlock", "serve", "token", "finish"}, names)

	for _, flag := range []string{"mode", "developer-token", "player-pin", "player-token", "base-url", "encoding", "timeout"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestClientCommands(t *testing.T) {
	seed, baseURL := setupSandbox(t)
	common := []string{
		"--mode", "test",
		"--base-url", baseURL,
		"--developer-token", seed.DeveloperToken,
		"--player-pin", seed.PlayerPin,
	}
	run := func(args ...string) (string, error) {
		return execute(t, append(args, common...)...)
	}

	out, err := run("auth")
	require.NoError(t, err)
	assert.Equal(t, "[(0)Success] Player authenticated\n", out)

	_, err = run("datapoint", "5")
	assert.Equal(t, gametester.CodeTestNotRunning, responseCode(t, err))

	out, err = run("unlock")
	require.NoError(t, err)
	assert.Contains(t, out, "Test unlocked")

	out, err = run("unlock")
	assert.Equal(t, gametester.CodeTestAlreadyUnlocked, responseCode(t, err))
	assert.Contains(t, out, "[(11)")

	_, err = run("datapoint", "5", "--encoding", "form")
	assert.NoError(t, err)

	_, err = run("datapoint", "99")
	assert.Equal(t, gametester.CodeDataPointDoesNotExist, responseCode(t, err))
}

func TestClientCommands_Environment(t *testing.T) {
	seed, baseURL := setupSandbox(t)

	t.Setenv("GAMETESTER_MODE", "test")
	t.Setenv("GAMETESTER_BASE_URL", baseURL)
	t.Setenv("GAMETESTER_DEVELOPER_TOKEN", seed.DeveloperToken)
	t.Setenv("GAMETESTER_PLAYER_PIN", "not-the-pin")

	_, err := execute(t, "auth")
	assert.Equal(t, gametester.CodeInvalidPlayerPin, responseCode(t, err))

	// flags override the environment
	_, err = execute(t, "auth", "--player-pin", seed.PlayerPin)
	assert.NoError(t, err)

	// a player token wins over the pin
	t.Setenv("GAMETESTER_PLAYER_TOKEN", seed.PlayerToken)
	_, err = execute(t, "unlock")
	assert.NoError(t, err)
}

func TestClientCommands_InvalidInput(t *testing.T) {
	_, err := execute(t, "datapoint", "seven")
	assertErrorCode(t, err, "INVALID_ARGUMENT")

	_, err = execute(t, "auth", "--mode", "staging")
	assertErrorCode(t, err, "CONFIG_INVALID")

	_, err = execute(t, "auth", "--encoding", "xml")
	assertErrorCode(t, err, "CONFIG_INVALID")

	_, err = execute(t, "datapoint")
	assert.Error(t, err)
}

func TestClientCommands_Unreachable(t *testing.T) {
	_, err := execute(t, "auth",
		"--mode", "test",
		"--base-url", "http://127.0.0.1:1/dev-api/v1",
		"--developer-token", "dev",
		"--player-pin", "1234",
		"--timeout", "2s",
	)
	assert.Equal(t, gametester.CodeHTTPError, responseCode(t, err))
}

func TestTokenCmd_RequiresDatabase(t *testing.T) {
	t.Setenv("GAMETESTER_DB_DSN", "")

	_, err := execute(t, "token", "--test", "abc")
	assertErrorCode(t, err, "CONFIG_INVALID")

	_, err = execute(t, "token")
	assert.Error(t, err, "--test is required")
}

func TestFinishCmd_RequiresDatabase(t *testing.T) {
	t.Setenv("GAMETESTER_DB_DSN", "")

	_, err := execute(t, "finish", "--test", "abc", "--developer-token", "dev")
	assertErrorCode(t, err, "CONFIG_INVALID")
	assert.Contains(t, err.Error(), "finish requires a database")

	_, err = execute(t, "finish")
	assert.Error(t, err, "--test is required")
}

func TestServeCmd_InvalidLogLevel(t *testing.T) {
	_, err := execute(t, "serve", "--log-level", "loud")
	assertErrorCode(t, err, "CONFIG_INVALID")
}
