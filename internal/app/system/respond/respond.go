// Package respond renders JSON responses and maps the grant core's error
// taxonomy onto HTTP statuses. Server-side failures are logged with an
// opaque reference id; clients see the id, never the internals.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/one-zero-eight/guard/internal/app/grants"
	"github.com/one-zero-eight/guard/internal/app/system/gdrive"
	"go.uber.org/zap"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Ref     string `json:"ref,omitempty"`
}

// Fail writes a client error with a stable code and message.
func Fail(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// Error maps err onto the HTTP contract. Known domain errors become client
// statuses; everything else is a 500/502 logged under a reference id.
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	var invalidRecipient *gdrive.InvalidRecipientError
	var provider *gdrive.ProviderError
	var validation *grants.ValidationError

	switch {
	case errors.Is(err, grants.ErrNotFound):
		Fail(w, http.StatusNotFound, "not_found", "document not found")
	case errors.Is(err, grants.ErrForbidden):
		Fail(w, http.StatusForbidden, "forbidden", "you are not the author of this document")
	case errors.Is(err, grants.ErrBanned):
		Fail(w, http.StatusForbidden, "banned", "you are banned from this document")
	case errors.Is(err, grants.ErrAlreadyExists):
		Fail(w, http.StatusConflict, "already_exists", "this file is already registered")
	case errors.As(err, &validation):
		Fail(w, http.StatusBadRequest, "validation", validation.Error())
	case errors.As(err, &invalidRecipient):
		Fail(w, http.StatusBadRequest, "invalid_recipient", invalidRecipient.Error())
	case errors.As(err, &provider):
		ref := logRef(log, "provider call failed", err)
		JSON(w, http.StatusBadGateway, errorBody{Error: errorDetail{
			Code:    "provider_unavailable",
			Message: "the document provider rejected the operation",
			Ref:     ref,
		}})
	default:
		ref := logRef(log, "internal error", err)
		JSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{
			Code:    "internal",
			Message: "internal error",
			Ref:     ref,
		}})
	}
}

func logRef(log *zap.Logger, msg string, err error) string {
	ref := uuid.NewString()
	log.Error(msg, zap.String("ref", ref), zap.Error(err))
	return ref
}
