package config

import (
	"errors"
	"os"
	"strings"
	"time"
)

// Config contains runtime configuration required by the service.
type Config struct {
	DBURL         string
	ListenAddr    string
	WebhookToken  string        // shared token expected in X-Webhook-Token
	CRMToken      string        // bearer token for the CRM API
	CRMBaseURL    string        // e.g. https://api.hubapi.com/crm/v3/
	GitHubBaseURL string        // e.g. https://api.github.com
	HTTPTimeout   time.Duration // per outbound request
	LinkContacts  bool          // create/associate CRM contacts for reporters
}

// Load reads required values from environment variables.
func Load() (Config, error) {
	dbURL := strings.TrimSpace(os.Getenv("DB_URL"))
	if dbURL == "" {
		return Config{}, errors.New("DB_URL required")
	}

	crmToken := strings.TrimSpace(os.Getenv("CRM_TOKEN"))
	if crmToken == "" {
		return Config{}, errors.New("CRM_TOKEN required")
	}

	cfg := Config{
		DBURL:         dbURL,
		ListenAddr:    ":8080",
		WebhookToken:  strings.TrimSpace(os.Getenv("WEBHOOK_TOKEN")),
		CRMToken:      crmToken,
		CRMBaseURL:    "https://api.hubapi.com/crm/v3/",
		GitHubBaseURL: "https://api.github.com",
		HTTPTimeout:   10 * time.Second,
		LinkContacts:  true,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("CRM_BASE_URL")); v != "" {
		cfg.CRMBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("GITHUB_BASE_URL")); v != "" {
		cfg.GitHubBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("HTTP_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, errors.New(`HTTP_TIMEOUT must be a positive duration like "10s"`)
		}
		cfg.HTTPTimeout = d
	}
	if v := strings.TrimSpace(os.Getenv("LINK_CONTACTS")); v != "" {
		switch v {
		case "true", "1":
			cfg.LinkContacts = true
		case "false", "0":
			cfg.LinkContacts = false
		default:
			return Config{}, errors.New(`LINK_CONTACTS must be "true" or "false"`)
		}
	}

	// Local dev fallback so the service runs out-of-the-box; any non-empty
	// WEBHOOK_TOKEN in the environment wins.
	if cfg.WebhookToken == "" {
		cfg.WebhookToken = "webhook-token-123"
	}

	return cfg, nil
}
