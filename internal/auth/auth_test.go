package auth

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

// stubProvider authenticates requests carrying an "ok" cookie.
type stubProvider struct {
	loginURL    string
	callbackErr error
	loginErr    error
	logouts     int
}

func (p *stubProvider) Authenticate(r *http.Request) (*User, error) {
	if _, err := r.Cookie("ok"); err != nil {
		return nil, ErrNoSession
	}
	return &User{ID: "1", Name: "stub", Provider: "stub"}, nil
}

func (p *stubProvider) LoginURL(_ *http.Request) (string, error) {
	return p.loginURL, nil
}

func (p *stubProvider) HandleCallback(w http.ResponseWriter, _ *http.Request) error {
	if p.callbackErr != nil {
		return p.callbackErr
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (p *stubProvider) HandleLogin(w http.ResponseWriter, r *http.Request) error {
	if p.loginErr != nil {
		return p.loginErr
	}
	http.Redirect(w, r, "https://provider.example/authorize", http.StatusFound)
	return nil
}

func (p *stubProvider) HandleLogout(w http.ResponseWriter, r *http.Request) error {
	p.logouts++
	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}

type statusErr struct{ code int }

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e statusErr) StatusCode() int { return e.code }

func TestMiddleware(t *testing.T) {
	provider := &stubProvider{loginURL: "/auth/stub/login"}
	var seen *User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := NewMiddleware(provider, DefaultBypassPaths()).Wrap(next)

	tests := []struct {
		name         string
		path         string
		cookie       bool
		wantStatus   int
		wantLocation string
		wantUser     bool
	}{
		{"authenticated page", "/", true, http.StatusOK, "", true},
		{"anonymous page redirects", "/", false, http.StatusFound, "/auth/stub/login", false},
		{"anonymous api gets 401", "/api/me", false, http.StatusUnauthorized, "", false},
		{"bare api path gets 401", "/api", false, http.StatusUnauthorized, "", false},
		{"healthz bypassed", "/healthz", false, http.StatusOK, "", false},
		{"metrics bypassed", "/metrics", false, http.StatusOK, "", false},
		{"auth prefix bypassed", "/auth/stub/callback", false, http.StatusOK, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie {
				req.AddCookie(&http.Cookie{Name: "ok", Value: "1"})
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Location"); got != tt.wantLocation {
				t.Errorf("Location = %q, want %q", got, tt.wantLocation)
			}
			if (seen != nil) != tt.wantUser {
				t.Errorf("user in context = %v, want %v", seen, tt.wantUser)
			}
		})
	}
}

func TestMiddlewareWithoutLoginURL(t *testing.T) {
	handler := NewMiddleware(&stubProvider{}, nil).Wrap(http.NotFoundHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestMiddlewareNilProviderPassesThrough(t *testing.T) {
	var m *Middleware
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
}

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name       string
		provider   Provider
		wantStatus int
	}{
		{"nil provider", nil, http.StatusNotFound},
		{"success", &stubProvider{}, http.StatusNoContent},
		{"plain error", &stubProvider{callbackErr: errors.New("boom")}, http.StatusBadRequest},
		{"error with status", &stubProvider{callbackErr: fmt.Errorf("wrapped: %w", statusErr{http.StatusBadGateway})}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			CallbackHandler(tt.provider).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/stub/callback", nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestLoginHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LoginHandler(&stubProvider{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/stub/login", nil))
	if rec.Code != http.StatusFound {
		t.Errorf("status = %d, want 302", rec.Code)
	}

	rec = httptest.NewRecorder()
	LoginHandler(&stubProvider{loginErr: errors.New("no entropy")}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/stub/login", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}

	// The anonymous provider has no login step.
	rec = httptest.NewRecorder()
	LoginHandler(NewAnonymousProvider()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/none/login", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestLogoutHandler(t *testing.T) {
	provider := &stubProvider{}
	rec := httptest.NewRecorder()
	LogoutHandler(provider).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/stub/logout", nil))
	if rec.Code != http.StatusFound || provider.logouts != 1 {
		t.Errorf("status = %d, logouts = %d", rec.Code, provider.logouts)
	}

	rec = httptest.NewRecorder()
	LogoutHandler(NewAnonymousProvider()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/none/logout", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Provider("twitch"); ok {
		t.Fatal("empty registry returned a provider")
	}

	first := &stubProvider{loginURL: "first"}
	second := &stubProvider{loginURL: "second"}
	r.Register("twitch", first)
	r.Register("none", NewAnonymousProvider())
	r.Register("twitch", second)

	got, ok := r.Provider("twitch")
	if !ok || got != Provider(second) {
		t.Errorf("Provider(twitch) = %v, want the later registration", got)
	}
	if names := r.Names(); !reflect.DeepEqual(names, []string{"none", "twitch"}) {
		t.Errorf("Names() = %v", names)
	}
}

func TestAnonymousProvider(t *testing.T) {
	p := NewAnonymousProvider()
	user, err := p.Authenticate(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil || user.ID != "anonymous" {
		t.Errorf("Authenticate() = %+v, %v", user, err)
	}
	if user.Provider != AnonymousProviderName {
		t.Errorf("Provider = %q, want %q", user.Provider, AnonymousProviderName)
	}
	if url, _ := p.LoginURL(nil); url != "/" {
		t.Errorf("LoginURL() = %q", url)
	}

	// Each request gets its own user.
	user.Name = "changed"
	again, _ := p.Authenticate(httptest.NewRequest(http.MethodGet, "/", nil))
	if again.Name != "Anonymous" {
		t.Errorf("second Authenticate() name = %q, want Anonymous", again.Name)
	}

	rec := httptest.NewRecorder()
	CallbackHandler(p).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/none/callback", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Errorf("callback = %d -> %q, want 302 -> /", rec.Code, rec.Header().Get("Location"))
	}
}

func TestStatusFor(t *testing.T) {
	if got := StatusFor(errors.New("x"), http.StatusTeapot); got != http.StatusTeapot {
		t.Errorf("fallback = %d", got)
	}
	if got := StatusFor(fmt.Errorf("a: %w", statusErr{http.StatusUnauthorized}), 0); got != http.StatusUnauthorized {
		t.Errorf("wrapped status = %d", got)
	}
}
