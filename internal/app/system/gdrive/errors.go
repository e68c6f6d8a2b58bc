package gdrive

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
)

// InvalidRecipientError means the provider rejected the target contact as
// not resolvable to a real account. The contact comes from user input, so
// callers surface this as a client error, not a provider outage.
type InvalidRecipientError struct {
	Email string
}

func (e *InvalidRecipientError) Error() string {
	return fmt.Sprintf("address %q does not resolve to a provider account", e.Email)
}

// ProviderError is the opaque catch-all for any other provider failure.
// StatusCode carries the provider's HTTP status when one exists, zero
// otherwise. No further provider detail is part of the contract.
type ProviderError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s failed (status %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// translateGrantErr maps the provider's grant failure modes onto the
// normalized taxonomy. Drive reports an unresolvable recipient as a 400 with
// reason "invalidSharingRequest".
func translateGrantErr(err error, email string) error {
	var ge *googleapi.Error
	if errors.As(err, &ge) && ge.Code == 400 {
		for _, item := range ge.Errors {
			if item.Reason == "invalidSharingRequest" {
				return &InvalidRecipientError{Email: email}
			}
		}
		if strings.Contains(ge.Message, "invalidSharingRequest") {
			return &InvalidRecipientError{Email: email}
		}
	}
	return providerErr("grant", err)
}

func providerErr(op string, err error) error {
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return &ProviderError{Op: op, StatusCode: ge.Code, Err: err}
	}
	return &ProviderError{Op: op, Err: err}
}
