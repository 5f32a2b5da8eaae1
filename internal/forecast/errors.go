package forecast

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var (
	// ErrFetch marks transport failures: DNS, connect, timeouts, truncated bodies.
	ErrFetch = errors.New("forecast: fetch")
	// ErrIncomplete marks a payload that decoded but lacks fields the panel needs.
	ErrIncomplete = errors.New("forecast: incomplete response")
	// ErrDecode marks a payload that could not be parsed as JSON.
	ErrDecode = errors.New("forecast: decode response")
	// ErrRateLimited marks a Fetch refused by the client's minimum interval.
	// It is wrapped with ErrFetch so callers back off as for any transport failure.
	ErrRateLimited = errors.New("forecast: rate limited")
)

// APIError captures non-2xx responses. Open-Meteo reports failures as
// {"error": true, "reason": "..."}; other bodies are kept verbatim.
type APIError struct {
	StatusCode int
	Reason     string
	Body       []byte
}

func (e *APIError) Error() string {
	b := strings.Builder{}
	b.WriteString("forecast: API error (status=")
	b.WriteString(strconv.Itoa(e.StatusCode))
	b.WriteString(")")
	if r := strings.TrimSpace(e.Reason); r != "" {
		b.WriteString(": ")
		b.WriteString(r)
	}
	return b.String()
}

func buildAPIError(status int, body []byte) error {
	ae := &APIError{StatusCode: status, Body: body, Reason: strings.TrimSpace(string(body))}
	var payload struct {
		Error  bool   `json:"error"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Reason != "" {
		ae.Reason = payload.Reason
	}
	return ae
}

// IsDecodeError reports whether err came from parsing or validating the payload
// rather than from the transport.
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrDecode) || errors.Is(err, ErrIncomplete)
}
