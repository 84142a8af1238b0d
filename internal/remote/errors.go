package remote

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

const (
	// CodeNoRows is returned when a single row was requested and none matched.
	CodeNoRows = "PGRST116"
	// CodePolicyDenied is the Postgres insufficient_privilege code raised by
	// row-level-security policies.
	CodePolicyDenied = "42501"
)

// Error is a structured failure reported by the remote service.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote error %s (status %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("remote error (status %d): %s", e.Status, e.Message)
}

func IsNoRows(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeNoRows
}

func IsPolicyDenied(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodePolicyDenied
}

// errorBody covers both the table API and the auth API error shapes.
type errorBody struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Message          string          `json:"message"`
	Msg              string          `json:"msg"`
	Details          *string         `json:"details"`
	Hint             *string         `json:"hint"`
	Err              string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

func decodeError(status int, body []byte) *Error {
	e := &Error{Status: status}

	var b errorBody
	if err := json.Unmarshal(body, &b); err != nil {
		e.Message = http.StatusText(status)
		return e
	}

	switch {
	case b.ErrorCode != "":
		e.Code = b.ErrorCode
	case len(b.Code) > 0 && b.Code[0] == '"':
		_ = json.Unmarshal(b.Code, &e.Code)
	case b.Err != "":
		e.Code = b.Err
	case len(b.Code) > 0 && string(b.Code) != "null":
		if n, err := strconv.Atoi(string(b.Code)); err == nil && n != status {
			e.Code = strconv.Itoa(n)
		}
	}

	for _, m := range []string{b.Message, b.Msg, b.ErrorDescription, b.Err} {
		if m != "" {
			e.Message = m
			break
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	if b.Details != nil {
		e.Details = *b.Details
	}
	if b.Hint != nil {
		e.Hint = *b.Hint
	}
	return e
}
