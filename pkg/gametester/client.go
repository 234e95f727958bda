package gametester

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// Endpoint paths, relative to the mode's base URL
const (
	pathAuth = "/auth"
	pathRoot = ""
)

// FunctionUnlock is the function name sent by UnlockTest
const FunctionUnlock = "unlock"

// Client is a GameTester developer API client
type Client struct {
	session    *Session
	config     *ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new GameTester API client.
// A nil config uses DefaultConfig.
func NewClient(session *Session, config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	return NewClientWithHTTPClient(session, config, &http.Client{
		Timeout: config.Timeout,
	})
}

// NewClientWithHTTPClient creates a new GameTester API client with a custom HTTP client
func NewClientWithHTTPClient(session *Session, config *ClientConfig, httpClient *http.Client) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		session:    session,
		config:     config,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Session returns the session the client reads credentials from
func (c *Client) Session() *Session {
	return c.session
}

// BaseURL returns the base URL used for mode
func (c *Client) BaseURL(mode Mode) string {
	if u, ok := c.config.BaseURLs[mode]; ok {
		return u
	}
	return DefaultBaseURLs[mode]
}

// post sends fields to the mode's base URL + path and turns the outcome into a Response.
// It never fails: transport problems become CodeHTTPError and bad bodies CodeResponseParseError.
func (c *Client) post(ctx context.Context, operation string, mode Mode, path string, fields *Fields) Response {
	url := c.BaseURL(mode) + path
	requestID := uuid.NewString()

	log := c.logger.With(
		"operation", operation,
		"url", url,
		"request_id", requestID,
	)

	body, contentType, err := fields.Encode(c.config.Encoding)
	if err != nil {
		return c.finish(ctx, log, HTTPError(err.Error()))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return c.finish(ctx, log, HTTPError(err.Error()))
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	log.DebugContext(ctx, "sending gametester request", "fields", fields.Keys())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.finish(ctx, log, HTTPError(err.Error()))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.finish(ctx, log, HTTPError(fmt.Sprintf("%s %s", resp.Proto, resp.Status)))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.finish(ctx, log, HTTPError(fmt.Sprintf("failed to read response: %v", err)))
	}

	return c.finish(ctx, log, ParseResponse(respBody))
}

func (c *Client) finish(ctx context.Context, log *slog.Logger, r Response) Response {
	level := slog.LevelDebug
	if !r.OK() {
		level = slog.LevelWarn
	}
	log.Log(ctx, level, "gametester response", "code", int(r.Code), "code_name", r.Code.String(), "message", r.Message)
	return r
}

func (c *Client) auth(ctx context.Context, st SessionState) Response {
	return c.post(ctx, "auth", st.Mode, pathAuth, st.AuthFields())
}

func (c *Client) datapoint(ctx context.Context, st SessionState, datapointID int) Response {
	fields := st.AuthFields()
	fields.Set(FieldDatapointID, datapointID)
	return c.post(ctx, "datapoint", st.Mode, pathRoot, fields)
}

func (c *Client) unlockTest(ctx context.Context, st SessionState) Response {
	fields := st.AuthFields()
	fields.Set(FieldFunction, FunctionUnlock)
	return c.post(ctx, "unlock_test", st.Mode, pathRoot, fields)
}

// Auth checks the developer token and player credential
func (c *Client) Auth(ctx context.Context) Response {
	return c.auth(ctx, c.session.Snapshot())
}

// Datapoint records datapoint datapointID for the player's test
func (c *Client) Datapoint(ctx context.Context, datapointID int) Response {
	return c.datapoint(ctx, c.session.Snapshot(), datapointID)
}

// UnlockTest moves the player's test out of its setup state
func (c *Client) UnlockTest(ctx context.Context) Response {
	return c.unlockTest(ctx, c.session.Snapshot())
}

// AuthAsync runs Auth on its own goroutine; see Future
func (c *Client) AuthAsync(ctx context.Context, callback Callback) *Future {
	st := c.session.Snapshot()
	return start(func() Response { return c.auth(ctx, st) }, callback)
}

// DatapointAsync runs Datapoint on its own goroutine; see Future
func (c *Client) DatapointAsync(ctx context.Context, datapointID int, callback Callback) *Future {
	st := c.session.Snapshot()
	return start(func() Response { return c.datapoint(ctx, st, datapointID) }, callback)
}

// UnlockTestAsync runs UnlockTest on its own goroutine; see Future
func (c *Client) UnlockTestAsync(ctx context.Context, callback Callback) *Future {
	st := c.session.Snapshot()
	return start(func() Response { return c.unlockTest(ctx, st) }, callback)
}
