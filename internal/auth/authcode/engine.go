// Package authcode runs the OAuth2 authorization code flow for a pluggable
// provider strategy. The engine owns the state and PKCE cookie, the redirect,
// the code exchange and the session cookie; the strategy supplies endpoints,
// extra authorize parameters, token validation and the profile lookup.
package authcode

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gwlsn/twitchauth/internal/auth"
	"github.com/gwlsn/twitchauth/internal/logger"
	"golang.org/x/oauth2"
)

const (
	defaultCookieName   = "twitchauth_session"
	defaultStateCookie  = "twitchauth_state"
	defaultStateTimeout = 10 * time.Minute
	defaultSessionTTL   = 24 * time.Hour
)

// Credential is a parsed token response.
type Credential interface {
	OAuth2Token() *oauth2.Token
}

// Strategy supplies the provider-specific parts of the flow.
type Strategy[T Credential, P any] interface {
	Name() string
	// OAuth2Config returns client credentials, callback and endpoints.
	OAuth2Config() *oauth2.Config
	// AuthorizationParams returns extra authorize query parameters.
	AuthorizationParams() url.Values
	// ParseTokenResponse validates the decoded token endpoint body.
	ParseTokenResponse(raw map[string]any) (T, error)
	FetchProfile(ctx context.Context, accessToken string) (P, error)
}

// VerifyParams is what the verify callback receives.
type VerifyParams[T Credential, P any] struct {
	AccessToken  string
	RefreshToken string
	Profile      P
	// Token holds the full parsed token response, including extras such as
	// token type, expiry and scope.
	Token T
	// IDToken is set only when ID token verification is enabled.
	IDToken *oidc.IDToken
}

// VerifyFunc maps an authenticated identity to a user. Returning an error
// rejects the login.
type VerifyFunc[T Credential, P any] func(ctx context.Context, params VerifyParams[T, P]) (*auth.User, error)

// Options configures an Engine. Secret is required.
type Options struct {
	Secret          string
	SessionTTL      time.Duration
	StateTTL        time.Duration
	CookieName      string
	StateCookieName string
	// LoginPath is returned by LoginURL. Defaults to /auth/<name>/login.
	LoginPath string
	// SuccessPath is where the user lands after a successful callback.
	SuccessPath string
	// IDTokenVerifier enables OpenID Connect ID token checks. The strategy
	// must request the openid scope.
	IDTokenVerifier *oidc.IDTokenVerifier
	Metrics         *Metrics
	// HTTPClient carries the token exchange and the strategy's profile
	// lookup. When nil, the oauth2.HTTPClient context value or
	// http.DefaultClient is used.
	HTTPClient *http.Client
}

// Engine implements auth.Provider for one strategy. It holds no per-request
// state and is safe for concurrent use.
type Engine[T Credential, P any] struct {
	strategy        Strategy[T, P]
	verify          VerifyFunc[T, P]
	oauth2Config    *oauth2.Config
	stateSigner     *signer
	sessionSigner   *signer
	cookieName      string
	stateCookieName string
	stateTTL        time.Duration
	sessionTTL      time.Duration
	loginPath       string
	successPath     string
	idVerifier      *oidc.IDTokenVerifier
	metrics         *Metrics
	httpClient      *http.Client
	now             func() time.Time
}

// New creates an engine around strategy.
func New[T Credential, P any](strategy Strategy[T, P], verify VerifyFunc[T, P], opts Options) (*Engine[T, P], error) {
	if strategy == nil {
		return nil, errors.New("auth engine requires a strategy")
	}
	if verify == nil {
		return nil, errors.New("auth engine requires a verify callback")
	}
	if opts.Secret == "" {
		return nil, errors.New("auth engine requires auth secret")
	}

	stateSigner, err := newSigner([]byte(opts.Secret), "state")
	if err != nil {
		return nil, err
	}
	sessionSigner, err := newSigner([]byte(opts.Secret), "session")
	if err != nil {
		return nil, err
	}

	name := strategy.Name()
	e := &Engine[T, P]{
		strategy:        strategy,
		verify:          verify,
		oauth2Config:    strategy.OAuth2Config(),
		stateSigner:     stateSigner,
		sessionSigner:   sessionSigner,
		cookieName:      valueOr(opts.CookieName, defaultCookieName),
		stateCookieName: valueOr(opts.StateCookieName, defaultStateCookie),
		stateTTL:        durationOr(opts.StateTTL, defaultStateTimeout),
		sessionTTL:      durationOr(opts.SessionTTL, defaultSessionTTL),
		loginPath:       valueOr(opts.LoginPath, "/auth/"+name+"/login"),
		successPath:     valueOr(opts.SuccessPath, "/"),
		idVerifier:      opts.IDTokenVerifier,
		metrics:         opts.Metrics,
		httpClient:      opts.HTTPClient,
		now:             time.Now,
	}
	if e.oauth2Config == nil {
		return nil, fmt.Errorf("%s strategy returned no oauth2 config", name)
	}
	return e, nil
}

// Name returns the strategy name.
func (e *Engine[T, P]) Name() string {
	return e.strategy.Name()
}

// Authenticate validates the session cookie and returns the session user.
func (e *Engine[T, P]) Authenticate(r *http.Request) (*auth.User, error) {
	cookie, err := r.Cookie(e.cookieName)
	if err != nil {
		return nil, auth.ErrNoSession
	}

	var session sessionPayload
	if err := e.sessionSigner.open(cookie.Value, &session); err != nil {
		return nil, err
	}
	if time.Unix(session.ExpiresAt, 0).Before(e.now()) {
		return nil, errors.New("session expired")
	}
	return &auth.User{
		ID:       session.Subject,
		Email:    session.Email,
		Name:     session.Name,
		Provider: session.Provider,
	}, nil
}

// LoginURL returns the login endpoint.
func (e *Engine[T, P]) LoginURL(_ *http.Request) (string, error) {
	return e.loginPath, nil
}

// AuthCodeURL builds the provider authorize URL. Strategy parameters are
// applied in sorted key order after the PKCE challenge.
func (e *Engine[T, P]) AuthCodeURL(state, verifier, nonce string) string {
	opts := []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier)}
	params := e.strategy.AuthorizationParams()
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		opts = append(opts, oauth2.SetAuthURLParam(key, params.Get(key)))
	}
	if nonce != "" {
		opts = append(opts, oidc.Nonce(nonce))
	}
	return e.oauth2Config.AuthCodeURL(state, opts...)
}

// HandleLogin stores a signed state cookie and redirects to the provider.
func (e *Engine[T, P]) HandleLogin(w http.ResponseWriter, r *http.Request) error {
	state, err := generateNonce()
	if err != nil {
		return err
	}
	nonce := ""
	if e.idVerifier != nil {
		if nonce, err = generateNonce(); err != nil {
			return err
		}
	}
	verifier := oauth2.GenerateVerifier()

	expires := e.now().Add(e.stateTTL)
	encoded, err := e.stateSigner.seal(statePayload{
		State:     state,
		Verifier:  verifier,
		Nonce:     nonce,
		ExpiresAt: expires.Unix(),
	})
	if err != nil {
		return err
	}
	setCookie(w, r, e.stateCookieName, encoded, expires)

	e.metrics.IncrementLogin(e.Name())
	logger.Debug("auth login started", "provider", e.Name())

	http.Redirect(w, r, e.AuthCodeURL(state, verifier, nonce), http.StatusFound)
	return nil
}

// HandleCallback completes the flow and issues a session cookie. Failures are
// returned as *CallbackError.
func (e *Engine[T, P]) HandleCallback(w http.ResponseWriter, r *http.Request) error {
	start := time.Now()
	name := e.Name()

	user, stage, err := e.complete(w, r)
	e.metrics.ObserveCallback(name, stage, start)
	if err != nil {
		logger.Warn("auth callback failed", "provider", name, "stage", string(stage), "error", err)
		return &CallbackError{Provider: name, Stage: stage, Err: err}
	}

	expiry := e.now().Add(e.sessionTTL)
	encoded, err := e.sessionSigner.seal(sessionPayload{
		Subject:   user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Provider:  valueOr(user.Provider, name),
		ExpiresAt: expiry.Unix(),
	})
	if err != nil {
		return err
	}
	setCookie(w, r, e.cookieName, encoded, expiry)

	logger.Info("auth callback succeeded", "provider", name, "user_id", user.ID)
	http.Redirect(w, r, e.successPath, http.StatusFound)
	return nil
}

// HandleLogout clears the session cookie and redirects home.
func (e *Engine[T, P]) HandleLogout(w http.ResponseWriter, r *http.Request) error {
	clearCookie(w, e.cookieName)
	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}

// complete runs the callback steps in order. The profile is fetched only
// after the token response validated.
func (e *Engine[T, P]) complete(w http.ResponseWriter, r *http.Request) (*auth.User, Stage, error) {
	query := r.URL.Query()
	if code := query.Get("error"); code != "" {
		clearCookie(w, e.stateCookieName)
		return nil, StageProviderError, &ProviderError{Code: code, Description: query.Get("error_description")}
	}

	stateData, err := e.checkState(r)
	if err != nil {
		return nil, StageState, err
	}
	clearCookie(w, e.stateCookieName)

	code := query.Get("code")
	if code == "" {
		return nil, StageState, ErrMissingCode
	}

	ctx := r.Context()
	if e.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
	}
	raw, err := e.exchange(ctx, code, stateData.Verifier)
	if err != nil {
		return nil, StageExchange, err
	}

	token, err := e.strategy.ParseTokenResponse(raw)
	if err != nil {
		return nil, StageTokenResponse, err
	}

	var idToken *oidc.IDToken
	if e.idVerifier != nil {
		idToken, err = e.verifyIDToken(ctx, raw, stateData.Nonce)
		if err != nil {
			return nil, StageIDToken, err
		}
	}

	oauthToken := token.OAuth2Token()
	profile, err := e.strategy.FetchProfile(ctx, oauthToken.AccessToken)
	if err != nil {
		return nil, StageProfile, err
	}

	user, err := e.verify(ctx, VerifyParams[T, P]{
		AccessToken:  oauthToken.AccessToken,
		RefreshToken: oauthToken.RefreshToken,
		Profile:      profile,
		Token:        token,
		IDToken:      idToken,
	})
	if err != nil {
		return nil, StageVerification, fmt.Errorf("%w: %w", ErrVerification, err)
	}
	if user == nil {
		return nil, StageVerification, fmt.Errorf("%w: no user returned", ErrVerification)
	}
	return user, StageSuccess, nil
}

func (e *Engine[T, P]) checkState(r *http.Request) (statePayload, error) {
	state := r.URL.Query().Get("state")
	if state == "" {
		return statePayload{}, fmt.Errorf("%w: missing state parameter", ErrInvalidState)
	}
	cookie, err := r.Cookie(e.stateCookieName)
	if err != nil {
		return statePayload{}, fmt.Errorf("%w: missing state cookie", ErrInvalidState)
	}

	var stateData statePayload
	if err := e.stateSigner.open(cookie.Value, &stateData); err != nil {
		return statePayload{}, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if stateData.ExpiresAt < e.now().Unix() {
		return statePayload{}, ErrStateExpired
	}
	if subtle.ConstantTimeCompare([]byte(state), []byte(stateData.State)) != 1 {
		return statePayload{}, fmt.Errorf("%w: state mismatch", ErrInvalidState)
	}
	return stateData, nil
}

func (e *Engine[T, P]) verifyIDToken(ctx context.Context, raw map[string]any, nonce string) (*oidc.IDToken, error) {
	rawIDToken, _ := raw["id_token"].(string)
	if rawIDToken == "" {
		return nil, fmt.Errorf("%w: missing id_token", ErrInvalidIDToken)
	}
	idToken, err := e.idVerifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidIDToken, err)
	}
	if subtle.ConstantTimeCompare([]byte(idToken.Nonce), []byte(nonce)) != 1 {
		return nil, fmt.Errorf("%w: nonce mismatch", ErrInvalidIDToken)
	}
	return idToken, nil
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}
