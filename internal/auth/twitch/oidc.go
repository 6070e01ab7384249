package twitch

import (
	"context"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
)

const (
	// Issuer is Twitch's OpenID Connect issuer.
	Issuer  = "https://id.twitch.tv/oauth2"
	KeysURL = "https://id.twitch.tv/oauth2/keys"
)

// NewIDTokenVerifier returns a verifier for ID tokens issued to clientID.
// Keys are fetched lazily on first use, through client when it is non-nil.
// ID tokens are only returned when the configured scope includes "openid".
func NewIDTokenVerifier(ctx context.Context, clientID string, client *http.Client) *oidc.IDTokenVerifier {
	if client != nil {
		ctx = oidc.ClientContext(ctx, client)
	}
	keySet := oidc.NewRemoteKeySet(ctx, KeysURL)
	return oidc.NewVerifier(Issuer, keySet, &oidc.Config{ClientID: clientID})
}
