package auth

import (
	"net/http"

	"github.com/gwlsn/twitchauth/internal/logger"
)

// LoginHandlerProvider allows providers to implement login handling.
type LoginHandlerProvider interface {
	HandleLogin(w http.ResponseWriter, r *http.Request) error
}

// LogoutHandlerProvider allows providers to implement logout handling.
type LogoutHandlerProvider interface {
	HandleLogout(w http.ResponseWriter, r *http.Request) error
}

// CallbackHandler handles auth provider callbacks. Errors are written with
// the status they carry, or 400.
func CallbackHandler(provider Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if provider == nil {
			http.NotFound(w, r)
			return
		}
		if err := provider.HandleCallback(w, r); err != nil {
			http.Error(w, err.Error(), StatusFor(err, http.StatusBadRequest))
		}
	}
}

// LoginHandler handles auth login requests.
func LoginHandler(provider Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loginProvider, ok := provider.(LoginHandlerProvider)
		if !ok || provider == nil {
			http.NotFound(w, r)
			return
		}
		if err := loginProvider.HandleLogin(w, r); err != nil {
			logger.Error("login failed", "error", err)
			http.Error(w, "login failed", StatusFor(err, http.StatusInternalServerError))
		}
	}
}

// LogoutHandler ends the provider session.
func LogoutHandler(provider Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logoutProvider, ok := provider.(LogoutHandlerProvider)
		if !ok || provider == nil {
			http.NotFound(w, r)
			return
		}
		if err := logoutProvider.HandleLogout(w, r); err != nil {
			http.Error(w, err.Error(), StatusFor(err, http.StatusInternalServerError))
		}
	}
}
