package authority

import "fmt"

// Error is a non-success response from the remote authority. Body holds
// the upstream payload verbatim so callers can pass it through.
type Error struct {
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("authority returned %d: %s", e.StatusCode, e.Body)
}
