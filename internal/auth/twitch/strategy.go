// Package twitch implements the Twitch authorization code strategy: the
// authorize parameters, token response validation and the helix user lookup.
// It plugs into authcode.Engine, which owns state, PKCE and sessions.
package twitch

import (
	"errors"
	"net/url"
	"strconv"

	"golang.org/x/oauth2"
)

const (
	// ProviderName is the name the strategy registers under. It is also the
	// Provider value of every Profile.
	ProviderName = "twitch"

	// DefaultScope is requested when no scope is configured.
	DefaultScope = "user:read:email"

	AuthURL     = "https://id.twitch.tv/oauth2/authorize"
	TokenURL    = "https://id.twitch.tv/oauth2/token"
	UserInfoURL = "https://api.twitch.tv/helix/users"
)

// Endpoint is Twitch's OAuth2 endpoint. Twitch expects client credentials in
// the request body.
var Endpoint = oauth2.Endpoint{
	AuthURL:   AuthURL,
	TokenURL:  TokenURL,
	AuthStyle: oauth2.AuthStyleInParams,
}

// Config holds the strategy settings.
type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	// Scope is sent verbatim. Empty means DefaultScope.
	Scope string
	// ForceVerify makes Twitch prompt the user even if they already
	// authorized the application.
	ForceVerify bool
}

// Strategy is the Twitch provider strategy. It holds no per-request state and
// is safe for concurrent use.
type Strategy struct {
	clientID     string
	clientSecret string
	callbackURL  string
	scope        string
	forceVerify  bool
}

// New validates cfg and returns a strategy.
func New(cfg Config) (*Strategy, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("twitch auth requires client_id")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("twitch auth requires client_secret")
	}
	if cfg.CallbackURL == "" {
		return nil, errors.New("twitch auth requires callback_url")
	}
	scope := cfg.Scope
	if scope == "" {
		scope = DefaultScope
	}
	return &Strategy{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		callbackURL:  cfg.CallbackURL,
		scope:        scope,
		forceVerify:  cfg.ForceVerify,
	}, nil
}

// Name returns ProviderName.
func (s *Strategy) Name() string {
	return ProviderName
}

// OAuth2Config returns the client configuration for the fixed Twitch
// endpoints. Scopes are left empty; the scope parameter comes from
// AuthorizationParams.
func (s *Strategy) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		RedirectURL:  s.callbackURL,
		Endpoint:     Endpoint,
	}
}

// AuthorizationParams returns the query parameters Twitch needs on top of the
// standard authorization code parameters.
func (s *Strategy) AuthorizationParams() url.Values {
	return url.Values{
		"scope":        {s.scope},
		"force_verify": {strconv.FormatBool(s.forceVerify)},
	}
}
