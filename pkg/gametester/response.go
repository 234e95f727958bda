package gametester

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Response is the typed result of an API call
type Response struct {
	Code    ResponseCode
	Message string
}

// responseEnvelope is the JSON reply of every endpoint. Pointers tell a
// missing field apart from a zero value.
type responseEnvelope struct {
	Code    *int
	Message *string
}

// ParseResponse decodes a raw reply body.
// Any decode failure yields CodeResponseParseError with the failure as message.
func ParseResponse(body []byte) Response {
	env, err := decodeEnvelope(body)
	if err != nil {
		return Response{
			Code:    CodeResponseParseError,
			Message: err.Error(),
		}
	}

	return Response{
		Code:    ResponseCode(*env.Code),
		Message: *env.Message,
	}
}

// decodeEnvelope requires the exact keys "code" and "message"; encoding/json
// alone would also accept "Code" or "MESSAGE".
func decodeEnvelope(body []byte) (*responseEnvelope, error) {
	dec := json.NewDecoder(bytes.NewReader(body))

	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("failed to decode response: unexpected data after JSON object")
	}

	var env responseEnvelope
	if raw, ok := fields["code"]; ok {
		if err := json.Unmarshal(raw, &env.Code); err != nil {
			return nil, fmt.Errorf("failed to decode response: field \"code\": %w", err)
		}
	}
	if raw, ok := fields["message"]; ok {
		if err := json.Unmarshal(raw, &env.Message); err != nil {
			return nil, fmt.Errorf("failed to decode response: field \"message\": %w", err)
		}
	}

	if env.Code == nil {
		return nil, errors.New("failed to decode response: missing field \"code\"")
	}
	if env.Message == nil {
		return nil, errors.New("failed to decode response: missing field \"message\"")
	}

	return &env, nil
}

// HTTPError builds the Response for a transport failure
func HTTPError(description string) Response {
	return Response{
		Code:    CodeHTTPError,
		Message: description,
	}
}

// OK reports whether the call succeeded
func (r Response) OK() bool {
	return r.Code == CodeSuccess
}

// Err returns nil on success and a *ResponseError otherwise
func (r Response) Err() error {
	if r.OK() {
		return nil
	}
	return &ResponseError{Code: r.Code, Message: r.Message}
}

func (r Response) String() string {
	return fmt.Sprintf("[(%d)%s] %s", int(r.Code), r.Code, r.Message)
}

// ResponseError is a failed Response as an error
type ResponseError struct {
	Code    ResponseCode
	Message string
}

func (e *ResponseError) Error() string {
	return Response{Code: e.Code, Message: e.Message}.String()
}
