package twitch

import (
	"errors"
	"fmt"
)

// Token response validation errors, reported in this order.
var (
	ErrMissingAccessToken  = errors.New("missing access token")
	ErrMissingRefreshToken = errors.New("missing refresh token")
	ErrMissingTokenType    = errors.New("missing token type")
	ErrMissingExpiration   = errors.New("missing expiration")
	ErrMissingScope        = errors.New("missing scope")
)

// ErrInvalidTokenResponse is wrapped by InvalidFieldError.
var ErrInvalidTokenResponse = errors.New("invalid token response")

var (
	// ErrProfileFetch reports a transport failure or a non-2xx status from
	// the helix users endpoint.
	ErrProfileFetch = errors.New("twitch profile fetch failed")
	// ErrProfileShape reports a users response without a usable record.
	ErrProfileShape = errors.New("twitch profile response malformed")
)

// InvalidFieldError reports a token response field that is present but has
// the wrong JSON type.
type InvalidFieldError struct {
	Field string
	Want  string
	Value any
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid token response: %s must be %s, got %T", e.Field, e.Want, e.Value)
}

func (e *InvalidFieldError) Unwrap() error {
	return ErrInvalidTokenResponse
}
