package authcode

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

// signer produces and checks HMAC-signed, base64 encoded JSON cookie values.
type signer struct {
	key []byte
}

// newSigner derives a signing key for purpose from secret, so state and
// session cookies never share a key.
func newSigner(secret []byte, purpose string) (*signer, error) {
	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte("twitchauth "+purpose)), key); err != nil {
		return nil, err
	}
	return &signer{key: key}, nil
}

func (s *signer) seal(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data) + "." + base64.RawURLEncoding.EncodeToString(s.sum(data)), nil
}

func (s *signer) open(value string, v any) error {
	parts := strings.Split(value, ".")
	if len(parts) != 2 {
		return errors.New("invalid cookie format")
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return errors.New("invalid cookie payload")
	}
	signature, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return errors.New("invalid cookie signature")
	}
	if subtle.ConstantTimeCompare(signature, s.sum(payload)) != 1 {
		return errors.New("invalid cookie signature")
	}
	return json.Unmarshal(payload, v)
}

func (s *signer) sum(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return mac.Sum(nil)
}

type statePayload struct {
	State     string `json:"state"`
	Verifier  string `json:"verifier"`
	Nonce     string `json:"nonce,omitempty"`
	ExpiresAt int64  `json:"expires_at"`
}

type sessionPayload struct {
	Subject   string `json:"sub"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Provider  string `json:"provider"`
	ExpiresAt int64  `json:"expires_at"`
}

func generateNonce() (string, error) {
	random := make([]byte, 32)
	if _, err := rand.Read(random); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(random), nil
}

func setCookie(w http.ResponseWriter, r *http.Request, name, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
		Secure:   r.TLS != nil,
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
