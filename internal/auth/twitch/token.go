package twitch

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// TokenResponse is a validated Twitch token endpoint response.
type TokenResponse struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int
	Scope        []string
}

// ParseTokenResponse validates the decoded token endpoint body. The first
// missing field wins. A field counts as missing when it is absent or holds a
// zero value (null, "", 0, false), so expires_in of 0 is rejected.
func (s *Strategy) ParseTokenResponse(raw map[string]any) (TokenResponse, error) {
	return parseTokenResponse(raw)
}

func parseTokenResponse(raw map[string]any) (TokenResponse, error) {
	accessToken, err := stringField(raw, "access_token", ErrMissingAccessToken)
	if err != nil {
		return TokenResponse{}, err
	}
	refreshToken, err := stringField(raw, "refresh_token", ErrMissingRefreshToken)
	if err != nil {
		return TokenResponse{}, err
	}
	tokenType, err := stringField(raw, "token_type", ErrMissingTokenType)
	if err != nil {
		return TokenResponse{}, err
	}

	rawExpires := raw["expires_in"]
	if !truthy(rawExpires) {
		return TokenResponse{}, ErrMissingExpiration
	}
	expiresIn, ok := intValue(rawExpires)
	if !ok {
		return TokenResponse{}, &InvalidFieldError{Field: "expires_in", Want: "an integer", Value: rawExpires}
	}

	rawScope := raw["scope"]
	if !truthy(rawScope) {
		return TokenResponse{}, ErrMissingScope
	}
	scope, ok := scopeValue(rawScope)
	if !ok {
		return TokenResponse{}, &InvalidFieldError{Field: "scope", Want: "a string or list of strings", Value: rawScope}
	}

	return TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenType,
		ExpiresIn:    expiresIn,
		Scope:        scope,
	}, nil
}

// OAuth2Token converts the response into an oauth2.Token. expires_in and
// scope are kept as extras.
func (t TokenResponse) OAuth2Token() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    int64(t.ExpiresIn),
	}
	if t.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return token.WithExtra(map[string]any{
		"expires_in": t.ExpiresIn,
		"scope":      strings.Join(t.Scope, " "),
	})
}

func stringField(raw map[string]any, key string, missing error) (string, error) {
	value := raw[key]
	if !truthy(value) {
		return "", missing
	}
	str, ok := value.(string)
	if !ok {
		return "", &InvalidFieldError{Field: key, Want: "a string", Value: value}
	}
	return str, nil
}

// truthy reports whether a decoded JSON value is non-zero. Arrays and objects
// are truthy even when empty.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return v != ""
		}
		return f != 0 && !math.IsNaN(f)
	case float64:
		return v != 0 && !math.IsNaN(v)
	case int:
		return v != 0
	case int64:
		return v != 0
	default:
		return true
	}
}

func intValue(value any) (int, bool) {
	var f float64
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), true
		}
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = v
	default:
		return 0, false
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func scopeValue(value any) ([]string, bool) {
	switch v := value.(type) {
	case string:
		return strings.Fields(v), true
	case []string:
		return append([]string{}, v...), true
	case []any:
		scopes := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			scopes = append(scopes, str)
		}
		return scopes, true
	default:
		return nil, false
	}
}
