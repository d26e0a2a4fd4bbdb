package oauth

import (
	"errors"
	"fmt"
)

var (
	ErrStateNotFound = errors.New("oauth state not found")
	ErrStateMismatch = errors.New("oauth state mismatch")
	ErrMissingCode   = errors.New("authorization code missing")
)

// ProviderError is the error payload the provider put on the redirect.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("provider returned error: %s", e.Code)
	}
	return fmt.Sprintf("provider returned error: %s: %s", e.Code, e.Description)
}
