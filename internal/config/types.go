package config

import (
	"fmt"
	"strings"

	"github.com/nicolasacchi/vmcli/internal/api"
)

// Config represents the application settings stored at ~/.config/vmcli/config.json.
// Tokens are never stored here.
type Config struct {
	ClientID        string   `json:"client_id"`
	ClientSecret    string   `json:"client_secret"`
	BaseURL         string   `json:"base_url,omitempty"`     // defaults to api.BaseURL
	CallbackURL     string   `json:"callback_url,omitempty"` // registered redirect URI
	Scopes          []string `json:"scopes,omitempty"`
	DefaultAudience string   `json:"default_audience,omitempty"`
}

// APIBaseURL returns the configured base URL or the production default.
func (c *Config) APIBaseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return api.BaseURL
}

// Audience returns the default payment audience, public if unset.
func (c *Config) Audience() api.Audience {
	if c.DefaultAudience == "" {
		return api.AudiencePublic
	}
	return api.Audience(c.DefaultAudience)
}

// Validate checks that the application credentials are present.
func (c *Config) Validate() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s (run 'vmcli config --init' or set VMCLI_CLIENT_ID/VMCLI_CLIENT_SECRET)", strings.Join(missing, " and "))
	}
	if c.DefaultAudience != "" && !c.Audience().Valid() {
		return fmt.Errorf("invalid default_audience %q (expected public, friends or private)", c.DefaultAudience)
	}
	return nil
}
