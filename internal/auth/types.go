package auth

import (
	"errors"
	"net/http"
)

// User represents an authenticated user.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Provider string `json:"provider"`
}

// Provider authenticates incoming requests and manages login callbacks.
type Provider interface {
	Authenticate(r *http.Request) (*User, error)
	LoginURL(r *http.Request) (string, error)
	HandleCallback(w http.ResponseWriter, r *http.Request) error
}

// ErrNoSession is returned by Authenticate when the request carries no session.
var ErrNoSession = errors.New("no session")

// StatusCoder is implemented by errors that map to a specific HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// StatusFor returns the HTTP status for err, defaulting to fallback.
func StatusFor(err error, fallback int) int {
	var coder StatusCoder
	if errors.As(err, &coder) {
		return coder.StatusCode()
	}
	return fallback
}
