package grants

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors for conditions resolved locally, before any provider
// call. Provider-side failures (invalid recipient, opaque provider errors)
// pass through from the gdrive package unchanged.
var (
	ErrNotFound      = errors.New("document record not found")
	ErrForbidden     = errors.New("operation restricted to the document author")
	ErrBanned        = errors.New("identity is banned from this document")
	ErrAlreadyExists = errors.New("file is already registered")
)

// ValidationError rejects malformed or unsatisfiable input: a role update
// for a join with no backing grant, an absorption with no pending ownership
// invitation, an unsupported file kind.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Provider contact matching is case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func itoa(n int) string { return strconv.Itoa(n) }
