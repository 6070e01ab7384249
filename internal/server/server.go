// Package server wires configured auth providers into an HTTP router.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gwlsn/twitchauth/internal/auth"
	"github.com/gwlsn/twitchauth/internal/auth/authcode"
	"github.com/gwlsn/twitchauth/internal/auth/twitch"
	"github.com/gwlsn/twitchauth/internal/config"
	"github.com/gwlsn/twitchauth/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NoneProvider is the registry name of the anonymous provider.
const NoneProvider = auth.AnonymousProviderName

// ProviderOptions carries the dependencies shared by every provider.
type ProviderOptions struct {
	Metrics *authcode.Metrics
	// UpstreamClient is used for calls to the identity provider: token
	// exchange, profile lookup and signing keys. When nil,
	// http.DefaultClient is used.
	UpstreamClient *http.Client
}

// BuildRegistry registers the providers enabled in cfg and returns the name of
// the one guarding the site.
func BuildRegistry(ctx context.Context, cfg config.AuthConfig, opts ProviderOptions) (*auth.Registry, string, error) {
	registry := auth.NewRegistry()
	if !cfg.Enabled {
		registry.Register(NoneProvider, auth.NewAnonymousProvider())
		return registry, NoneProvider, nil
	}

	provider, err := NewTwitchProvider(ctx, cfg, opts)
	if err != nil {
		return nil, "", err
	}
	registry.Register(twitch.ProviderName, provider)
	return registry, twitch.ProviderName, nil
}

// NewTwitchProvider builds the authorization code engine for Twitch.
func NewTwitchProvider(ctx context.Context, cfg config.AuthConfig, popts ProviderOptions) (*authcode.Engine[twitch.TokenResponse, twitch.Profile], error) {
	strategy, err := twitch.New(twitch.Config{
		ClientID:     cfg.Twitch.ClientID,
		ClientSecret: cfg.Twitch.ClientSecret,
		CallbackURL:  cfg.Twitch.CallbackURL,
		Scope:        cfg.Twitch.Scope,
		ForceVerify:  cfg.Twitch.ForceVerify,
	})
	if err != nil {
		return nil, err
	}

	opts := authcode.Options{
		Secret:     cfg.Secret,
		SessionTTL: cfg.SessionTTL,
		StateTTL:   cfg.StateTTL,
		Metrics:    popts.Metrics,
		HTTPClient: popts.UpstreamClient,
	}
	if cfg.Twitch.OpenID {
		opts.IDTokenVerifier = twitch.NewIDTokenVerifier(ctx, cfg.Twitch.ClientID, popts.UpstreamClient)
	}

	engine, err := authcode.New[twitch.TokenResponse, twitch.Profile](strategy, VerifyTwitchUser, opts)
	if err != nil {
		return nil, fmt.Errorf("twitch auth: %w", err)
	}
	return engine, nil
}

// VerifyTwitchUser turns a Twitch profile into a session user.
func VerifyTwitchUser(_ context.Context, p authcode.VerifyParams[twitch.TokenResponse, twitch.Profile]) (*auth.User, error) {
	if p.Profile.ID == "" {
		return nil, errors.New("twitch profile has no id")
	}
	name := p.Profile.DisplayName
	if name == "" {
		name = p.Profile.Login
	}
	return &auth.User{
		ID:       p.Profile.ID,
		Email:    p.Profile.Email,
		Name:     name,
		Provider: p.Profile.Provider,
	}, nil
}

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// Gatherer backs /metrics. The route is omitted when nil.
	Gatherer prometheus.Gatherer
}

// NewRouter mounts the auth routes for every registered provider and guards
// the remaining routes with the default provider.
func NewRouter(registry *auth.Registry, defaultProvider string, opts RouterOptions) (http.Handler, error) {
	guard, ok := registry.Provider(defaultProvider)
	if !ok {
		return nil, fmt.Errorf("provider %q is not registered", defaultProvider)
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/auth/{provider}", func(r chi.Router) {
		r.Get("/login", withProvider(registry, auth.LoginHandler))
		r.Get("/callback", withProvider(registry, auth.CallbackHandler))
		r.Post("/logout", withProvider(registry, auth.LogoutHandler))
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.NewMiddleware(guard, auth.DefaultBypassPaths()).Wrap)
		r.Get("/", currentUser)
		r.Get("/api/me", currentUser)
	})

	return r, nil
}

func withProvider(registry *auth.Registry, handler func(auth.Provider) http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider, ok := registry.Provider(chi.URLParam(r, "provider"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		handler(provider)(w, r)
	}
}

func currentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(user); err != nil {
		logger.Warn("failed to write user response", "error", err)
	}
}
