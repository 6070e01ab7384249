package auth

import "net/http"

// AnonymousProviderName is the provider recorded on anonymous users and the
// name the server registers the provider under.
const AnonymousProviderName = "none"

// AnonymousProvider stands in for Twitch when auth.enabled is false. Every
// request carries the same anonymous user, and login, callback and logout
// all lead back to the site root.
type AnonymousProvider struct{}

// NewAnonymousProvider returns the provider used when sign-in is disabled.
func NewAnonymousProvider() *AnonymousProvider {
	return &AnonymousProvider{}
}

// Authenticate returns a fresh anonymous user so handlers may modify it.
func (p *AnonymousProvider) Authenticate(_ *http.Request) (*User, error) {
	return &User{ID: "anonymous", Name: "Anonymous", Provider: AnonymousProviderName}, nil
}

func (p *AnonymousProvider) LoginURL(_ *http.Request) (string, error) {
	return "/", nil
}

// HandleCallback sends stray callbacks home; there is no provider round trip
// to complete.
func (p *AnonymousProvider) HandleCallback(w http.ResponseWriter, r *http.Request) error {
	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}
