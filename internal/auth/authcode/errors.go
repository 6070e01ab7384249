package authcode

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMissingCode    = errors.New("missing authorization code")
	ErrInvalidState   = errors.New("invalid auth state")
	ErrStateExpired   = errors.New("auth state expired")
	ErrTokenExchange  = errors.New("token exchange failed")
	ErrInvalidIDToken = errors.New("invalid id_token")
	// ErrVerification wraps whatever the verify callback returned.
	ErrVerification = errors.New("verification failed")
)

// Stage names the step of the callback that failed. It doubles as the
// outcome label of the attempt metrics.
type Stage string

const (
	StageSuccess       Stage = "success"
	StageProviderError Stage = "provider_error"
	StageState         Stage = "state"
	StageExchange      Stage = "token_exchange"
	StageTokenResponse Stage = "token_response"
	StageIDToken       Stage = "id_token"
	StageProfile       Stage = "profile"
	StageVerification  Stage = "verification"
)

// CallbackError is returned by HandleCallback. It records the failing stage
// and wraps the underlying error.
type CallbackError struct {
	Provider string
	Stage    Stage
	Err      error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("%s auth %s: %v", e.Provider, e.Stage, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}

// StatusCode maps the stage to the HTTP status written by auth.CallbackHandler.
func (e *CallbackError) StatusCode() int {
	switch e.Stage {
	case StageExchange, StageProfile:
		return http.StatusBadGateway
	case StageVerification, StageProviderError:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

// ProviderError is an error the provider reported on the callback URL, such
// as access_denied when the user declines.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return "provider returned " + e.Code
	}
	return fmt.Sprintf("provider returned %s: %s", e.Code, e.Description)
}
