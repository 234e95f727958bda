// Package api provides the HTTP handlers of the GameTester sandbox.
//
// Every dev-api reply is a JSON {code, message} envelope sent with status 200;
// the code carries the outcome.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alexbotov/gametester/internal/audit"
	"github.com/alexbotov/gametester/internal/auth"
	"github.com/alexbotov/gametester/internal/control"
	"github.com/alexbotov/gametester/internal/domain"
	"github.com/alexbotov/gametester/internal/logging"
	"github.com/alexbotov/gametester/internal/store"
	"github.com/alexbotov/gametester/pkg/gametester"
	"github.com/gorilla/mux"
)

// maxBodyBytes bounds a dev-api request body
const maxBodyBytes = 64 << 10

// Handler contains all HTTP handlers
type Handler struct {
	auth    *auth.Service
	control *control.Service
	audit   *audit.Service
	metrics *Metrics
	logger  *slog.Logger
}

// New creates a new API handler
func New(authSvc *auth.Service, controlSvc *control.Service, auditSvc *audit.Service, metrics *Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		auth:    authSvc,
		control: controlSvc,
		audit:   auditSvc,
		metrics: metrics,
		logger:  logger,
	}
}

// Response helpers

type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondCode(w http.ResponseWriter, status int, code gametester.ResponseCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{Code: int(code), Message: message})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Reply messages
const (
	msgAuthenticated   = "Player authenticated"
	msgDatapoint       = "Datapoint recorded"
	msgUnlocked        = "Test unlocked"
	msgFinished        = "Test finished"
	msgInternal        = "Internal server error"
	msgMissingParams   = "Missing parameters: datapointId or function required"
	msgInvalidFunction = "Invalid function name"
)

// codeFor maps a service error onto a response code and message
func codeFor(err error) (gametester.ResponseCode, string) {
	switch {
	case errors.Is(err, auth.ErrMissingDeveloperToken):
		return gametester.CodeMissingDeveloperToken, "Missing developer token"
	case errors.Is(err, auth.ErrInvalidDeveloperToken):
		return gametester.CodeInvalidDeveloperToken, "Invalid developer token"
	case errors.Is(err, auth.ErrMissingPlayerAuthentication):
		return gametester.CodeMissingPlayerAuthentication, "Missing player authentication: playerPin or playerToken required"
	case errors.Is(err, auth.ErrInvalidPlayerToken):
		return gametester.CodeInvalidPlayerToken, "Invalid player token"
	case errors.Is(err, auth.ErrInvalidPlayerPin):
		return gametester.CodeInvalidPlayerPin, "Invalid player pin"
	case errors.Is(err, auth.ErrInvalidPlayerForTest):
		return gametester.CodeInvalidPlayerForTest, "Player does not belong to this developer"
	case errors.Is(err, control.ErrDatapointNotFound):
		return gametester.CodeDataPointDoesNotExist, "Datapoint does not exist"
	case errors.Is(err, control.ErrTestNotRunning):
		return gametester.CodeTestNotRunning, "Test is not running"
	case errors.Is(err, control.ErrTestAlreadyUnlocked):
		return gametester.CodeTestAlreadyUnlocked, "Test already unlocked"
	case errors.Is(err, control.ErrTestNotInSetupState):
		return gametester.CodeTestNotInSetupState, "Test is not in setup state"
	case errors.Is(err, control.ErrTestAlreadyFinished):
		return gametester.CodeGeneralError, "Test already finished"
	case errors.Is(err, store.ErrNotFound):
		return gametester.CodeGeneralError, "Test not found"
	default:
		return gametester.CodeGeneralError, msgInternal
	}
}

// apiRequest is the decoded body of a dev-api call
type apiRequest struct {
	DeveloperToken string
	PlayerPin      string
	PlayerToken    string
	DatapointID    *int
	Function       *string
}

func (req *apiRequest) credentials() auth.Credentials {
	return auth.Credentials{
		DeveloperToken: req.DeveloperToken,
		PlayerPin:      req.PlayerPin,
		PlayerToken:    req.PlayerToken,
	}
}

// jsonRequest mirrors apiRequest on the wire. Values may be sent as
// strings or numbers.
type jsonRequest struct {
	DeveloperToken json.RawMessage `json:"developerToken"`
	PlayerPin      json.RawMessage `json:"playerPin"`
	PlayerToken    json.RawMessage `json:"playerToken"`
	DatapointID    json.RawMessage `json:"datapointId"`
	Function       json.RawMessage `json:"function"`
}

// decodeRequest reads a JSON or form encoded body
func decodeRequest(r *http.Request) (*apiRequest, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		return decodeForm(r)
	}
	return decodeJSON(r.Body)
}

func decodeForm(r *http.Request) (*apiRequest, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}

	form := r.PostForm
	req := &apiRequest{
		DeveloperToken: form.Get(gametester.FieldDeveloperToken),
		PlayerPin:      form.Get(gametester.FieldPlayerPin),
		PlayerToken:    form.Get(gametester.FieldPlayerToken),
	}
	if form.Has(gametester.FieldDatapointID) {
		id, err := strconv.Atoi(strings.TrimSpace(form.Get(gametester.FieldDatapointID)))
		if err != nil {
			return nil, fmt.Errorf("datapointId must be an integer")
		}
		req.DatapointID = &id
	}
	if form.Has(gametester.FieldFunction) {
		fn := form.Get(gametester.FieldFunction)
		req.Function = &fn
	}
	return req, nil
}

func decodeJSON(body io.Reader) (*apiRequest, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	req := &apiRequest{}
	if len(bytes.TrimSpace(data)) == 0 {
		return req, nil
	}

	var raw jsonRequest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	if req.DeveloperToken, err = rawString(raw.DeveloperToken); err != nil {
		return nil, fmt.Errorf("developerToken: %w", err)
	}
	if req.PlayerPin, err = rawString(raw.PlayerPin); err != nil {
		return nil, fmt.Errorf("playerPin: %w", err)
	}
	if req.PlayerToken, err = rawString(raw.PlayerToken); err != nil {
		return nil, fmt.Errorf("playerToken: %w", err)
	}
	if present(raw.DatapointID) {
		s, err := rawString(raw.DatapointID)
		if err != nil {
			return nil, fmt.Errorf("datapointId: %w", err)
		}
		id, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("datapointId must be an integer")
		}
		req.DatapointID = &id
	}
	if present(raw.Function) {
		fn, err := rawString(raw.Function)
		if err != nil {
			return nil, fmt.Errorf("function: %w", err)
		}
		req.Function = &fn
	}
	return req, nil
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// rawString accepts a JSON string or number; absent and null are empty
func rawString(raw json.RawMessage) (string, error) {
	if !present(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("must be a string or a number")
	}
	return n.String(), nil
}

// call collects what a dev-api request did, for the reply and the audit trail
type call struct {
	start     time.Time
	op        domain.EventType
	sandbox   bool
	developer string
	test      *domain.Test
	datapoint *int
}

// finish records the call and writes the envelope
func (h *Handler) finish(w http.ResponseWriter, r *http.Request, c *call, code gametester.ResponseCode, message string) {
	ctx := r.Context()

	opts := []audit.EventOption{
		audit.WithTest(c.test),
		audit.WithSandbox(c.sandbox),
		audit.WithRequestID(RequestIDFromContext(ctx)),
	}
	if c.datapoint != nil {
		opts = append(opts, audit.WithDatapoint(*c.datapoint))
	}
	if _, err := h.audit.Log(ctx, c.op, c.developer, code, message, opts...); err != nil {
		logging.LogError(h.logger, "failed to record event", err)
	}

	h.metrics.Record(c.op, code, time.Since(c.start))
	respondCode(w, http.StatusOK, code, message)
}

// fail replies with the code err maps to
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, c *call, err error) {
	code, message := codeFor(err)
	if code == gametester.CodeGeneralError {
		logging.LogError(h.logger, "dev-api request failed", err)
	}
	h.finish(w, r, c, code, message)
}

// begin decodes and authenticates a request. It replies itself and returns
// nil when either step fails.
func (h *Handler) begin(w http.ResponseWriter, r *http.Request, c *call) *apiRequest {
	req, err := decodeRequest(r)
	if err != nil {
		h.finish(w, r, c, gametester.CodeGeneralError, "Invalid request body: "+err.Error())
		return nil
	}
	c.developer = req.DeveloperToken

	// the operation is known before authentication so failures are attributed to it
	if c.op == domain.EventRequest {
		switch {
		case req.Function != nil:
			c.op = domain.EventUnlock
		case req.DatapointID != nil:
			c.op = domain.EventDatapoint
			c.datapoint = req.DatapointID
		}
	}

	test, err := h.auth.Authenticate(r.Context(), req.credentials())
	if err != nil {
		h.fail(w, r, c, err)
		return nil
	}
	c.test = test
	return req
}

// === Dev API ===

// Auth handles POST {prefix}/auth
func (h *Handler) Auth(sandbox bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := &call{start: time.Now(), op: domain.EventAuth, sandbox: sandbox}
		if h.begin(w, r, c) == nil {
			return
		}
		h.finish(w, r, c, gametester.CodeSuccess, msgAuthenticated)
	}
}

// Call handles POST {prefix}: a datapoint, or a function such as unlock.
// A function takes precedence when both are sent.
func (h *Handler) Call(sandbox bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := &call{start: time.Now(), op: domain.EventRequest, sandbox: sandbox}
		req := h.begin(w, r, c)
		if req == nil {
			return
		}

		switch {
		case req.Function != nil:
			h.function(w, r, c, *req.Function)
		case req.DatapointID != nil:
			h.datapoint(w, r, c, *req.DatapointID)
		default:
			h.finish(w, r, c, gametester.CodeMissingParameters, msgMissingParams)
		}
	}
}

func (h *Handler) function(w http.ResponseWriter, r *http.Request, c *call, name string) {
	if name != gametester.FunctionUnlock {
		h.finish(w, r, c, gametester.CodeInvalidFunctionName, msgInvalidFunction+": "+name)
		return
	}

	test, err := h.control.Unlock(r.Context(), c.test.ID)
	if test != nil {
		c.test = test
	}
	if err != nil {
		h.fail(w, r, c, err)
		return
	}
	h.finish(w, r, c, gametester.CodeSuccess, msgUnlocked)
}

func (h *Handler) datapoint(w http.ResponseWriter, r *http.Request, c *call, id int) {
	if _, err := h.control.RecordDatapoint(r.Context(), c.test.ID, id); err != nil {
		h.fail(w, r, c, err)
		return
	}
	h.finish(w, r, c, gametester.CodeSuccess, msgDatapoint)
}

// FinishTest handles POST {prefix}/tests/{testId}/finish. The body carries
// the developer token of the test's owner; no player credential is needed.
func (h *Handler) FinishTest(sandbox bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := &call{start: time.Now(), op: domain.EventFinish, sandbox: sandbox}

		req, err := decodeRequest(r)
		if err != nil {
			h.finish(w, r, c, gametester.CodeGeneralError, "Invalid request body: "+err.Error())
			return
		}
		c.developer = req.DeveloperToken

		if err := h.auth.VerifyDeveloper(r.Context(), req.DeveloperToken); err != nil {
			h.fail(w, r, c, err)
			return
		}

		test, err := h.control.Finish(r.Context(), req.DeveloperToken, mux.Vars(r)["testId"])
		if test != nil {
			c.test = test
		}
		if err != nil {
			h.fail(w, r, c, err)
			return
		}
		h.finish(w, r, c, gametester.CodeSuccess, msgFinished)
	}
}

// === Health & Info ===

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
	})
}

// ServerInfo handles GET /
func (h *Handler) ServerInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"name":        "GameTester Sandbox",
		"version":     gametester.Version,
		"description": "Local GameTester dev-api",
	})
}

// NotFoundHandler replies to unknown dev-api paths with a general error
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	respondCode(w, http.StatusNotFound, gametester.CodeGeneralError, "Resource not found")
}
