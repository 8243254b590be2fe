package moodle

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// result is the decoded form of a function response: exactly one of payload
// or err is set.
type result struct {
	payload json.RawMessage
	err     *ProtocolError
}

// decodeResult classifies a 200 OK body. The LMS signals logical failures with
// an exception or error member instead of an HTTP status.
func decodeResult(function string, body []byte) (result, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return result{payload: json.RawMessage("null")}, nil
	}
	if !json.Valid(trimmed) {
		return result{}, fmt.Errorf("%w: %s returned non-JSON body: %s", ErrUnexpectedResponse, function, snippet(trimmed, 200))
	}
	if trimmed[0] != '{' {
		return result{payload: json.RawMessage(trimmed)}, nil
	}

	// Members are read one by one so an odd type in message or errorcode
	// cannot hide the error.
	var members map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &members); err != nil {
		return result{}, fmt.Errorf("%w: %s: %v", ErrUnexpectedResponse, function, err)
	}
	exception := rawText(members["exception"])
	errText := rawText(members["error"])
	if exception == "" && errText == "" {
		return result{payload: json.RawMessage(trimmed)}, nil
	}

	message := rawText(members["message"])
	if message == "" {
		message = errText
	}
	if message == "" {
		message = unknownErrorMessage
	}
	return result{err: &ProtocolError{
		Function:  function,
		Exception: exception,
		ErrorCode: rawText(members["errorcode"]),
		Message:   message,
		DebugInfo: rawText(members["debuginfo"]),
	}}, nil
}

// rawText returns the textual value of a JSON member, or "" when it is
// absent, null, false or an empty string.
func rawText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) || bytes.Equal(raw, []byte("false")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// decodeList normalizes a list payload that arrives either as a bare array or
// wrapped in an object under wrapKey. A JSON null yields an empty list.
func decodeList[T any](payload json.RawMessage, wrapKey string) ([]T, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}
	switch trimmed[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
		}
		if items == nil {
			items = []T{}
		}
		return items, nil
	case '{':
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
		}
		inner, ok := wrapped[wrapKey]
		if !ok {
			return nil, fmt.Errorf("%w: missing %q member", ErrUnexpectedResponse, wrapKey)
		}
		innerTrimmed := bytes.TrimSpace(inner)
		if len(innerTrimmed) == 0 || innerTrimmed[0] != '[' {
			if bytes.Equal(innerTrimmed, []byte("null")) {
				return []T{}, nil
			}
			return nil, fmt.Errorf("%w: %q is not a list", ErrUnexpectedResponse, wrapKey)
		}
		return decodeList[T](innerTrimmed, wrapKey)
	default:
		return nil, fmt.Errorf("%w: expected list, got %s", ErrUnexpectedResponse, snippet(trimmed, 80))
	}
}
