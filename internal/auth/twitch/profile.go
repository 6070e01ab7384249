package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Profile is the normalized Twitch user.
type Profile struct {
	ID              string    `json:"id"`
	Login           string    `json:"login"`
	Type            string    `json:"type"`
	BroadcasterType string    `json:"broadcaster_type"`
	Description     string    `json:"description"`
	ProfileImageURL string    `json:"profile_image_url"`
	OfflineImageURL string    `json:"offline_image_url"`
	ViewCount       int       `json:"view_count"`
	Email           string    `json:"email"`
	CreatedAt       time.Time `json:"created_at"`
	DisplayName     string    `json:"display_name"`
	Provider        string    `json:"provider"`
}

// helixUser is one record of the helix users response.
type helixUser struct {
	ID              string    `json:"id"`
	Login           string    `json:"login"`
	DisplayName     string    `json:"display_name"`
	Type            string    `json:"type"`
	BroadcasterType string    `json:"broadcaster_type"`
	Description     string    `json:"description"`
	ProfileImageURL string    `json:"profile_image_url"`
	OfflineImageURL string    `json:"offline_image_url"`
	ViewCount       int       `json:"view_count"`
	Email           string    `json:"email"`
	CreatedAt       time.Time `json:"created_at"`
}

type helixUsersResponse struct {
	Data []helixUser `json:"data"`
}

const maxErrorBody = 512

// FetchProfile looks up the user owning accessToken. Only the first record of
// the response is used. The HTTP client comes from ctx (oauth2.HTTPClient),
// falling back to http.DefaultClient.
func (s *Strategy) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, UserInfoURL, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %w", ErrProfileFetch, err)
	}
	req.Header.Set("Client-Id", s.clientID)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %w", ErrProfileFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Profile{}, fmt.Errorf("%w: status %d: %s", ErrProfileFetch, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var users helixUsersResponse
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return Profile{}, fmt.Errorf("%w: %w", ErrProfileShape, err)
	}
	if len(users.Data) == 0 {
		return Profile{}, fmt.Errorf("%w: no user records", ErrProfileShape)
	}

	return normalizeProfile(users.Data[0]), nil
}

func normalizeProfile(u helixUser) Profile {
	return Profile{
		ID:              u.ID,
		Login:           u.Login,
		Type:            u.Type,
		BroadcasterType: u.BroadcasterType,
		Description:     u.Description,
		ProfileImageURL: u.ProfileImageURL,
		OfflineImageURL: u.OfflineImageURL,
		ViewCount:       u.ViewCount,
		Email:           u.Email,
		CreatedAt:       u.CreatedAt,
		DisplayName:     u.DisplayName,
		Provider:        ProviderName,
	}
}
