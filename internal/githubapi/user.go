package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// UserProfile is the public profile subset used for contact enrichment.
// GitHub users often leave name/email private; callers must tolerate empty
// fields and fall back to the login.
type UserProfile struct {
	Login   string `json:"login"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Blog    string `json:"blog"`
	Company string `json:"company"`
}

// FirstName returns the leading word of the display name.
func (p UserProfile) FirstName() string {
	parts := strings.Fields(p.Name)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// LastName returns the trailing word of the display name, or "" when the
// profile has a single-word name.
func (p UserProfile) LastName() string {
	parts := strings.Fields(p.Name)
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-1]
}

// Client fetches public user profiles. No credential needed; the users
// endpoint is public.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// FetchUser returns the public profile for a login.
func (c *Client) FetchUser(ctx context.Context, login string) (UserProfile, error) {
	url := fmt.Sprintf("%s/users/%s", c.baseURL, login)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return UserProfile{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return UserProfile{}, fmt.Errorf("github users api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return UserProfile{}, fmt.Errorf("github users api: status %d for %q", resp.StatusCode, login)
	}

	var profile UserProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return UserProfile{}, fmt.Errorf("github users api: decode: %w", err)
	}
	if profile.Login == "" {
		profile.Login = login
	}
	return profile, nil
}
