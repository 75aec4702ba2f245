// internal/api/errors.go
//
// RequestError and the operator hints attached to it.

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/robalobadob/megaverse/internal/megaverse"
)

// RequestError is the single failure kind of the challenge API client: any
// transport error or non-2xx response. Callers do not distinguish causes;
// StatusCode and Hint exist for log output only.
type RequestError struct {
	Op         string // "create", "delete", "goal"
	Object     *megaverse.Object
	StatusCode int // 0 when no response was received
	Body       string
	Hint       string
	Err        error
}

func (e *RequestError) Error() string {
	target := ""
	if e.Object != nil {
		target = " " + e.Object.String()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s%s: status %d: %s", e.Op, target, e.StatusCode, e.Hint)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s%s: %s: %v", e.Op, target, e.Hint, e.Err)
	}
	return fmt.Sprintf("%s%s: %s", e.Op, target, e.Hint)
}

func (e *RequestError) Unwrap() error { return e.Err }

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}

// hintForStatus maps response codes to an operator-facing hint.
func hintForStatus(code int) string {
	switch code {
	case http.StatusNotFound:
		return "not found, the API URL may be wrong (check API_URL)"
	case http.StatusTooManyRequests:
		return "too many requests, wait before trying again"
	case http.StatusInternalServerError:
		return "internal server error (check CANDIDATE_ID)"
	case http.StatusBadRequest:
		return "bad request"
	}
	return http.StatusText(code)
}
