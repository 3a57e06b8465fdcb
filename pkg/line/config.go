package line

import (
	"errors"
	"time"
)

const (
	DefaultAuthorizeURL = "https://access.line.me/oauth2/v2.1/authorize"
	DefaultTokenURL     = "https://api.line.me/oauth2/v2.1/token"
	DefaultProfileURL   = "https://api.line.me/v2/profile"
	DefaultAppScheme    = "line://"
)

// Config represents the configuration for the LINE Login client
type Config struct {
	ChannelID     string
	ChannelSecret string
	RedirectURL   string

	// Endpoints. Empty values fall back to the public LINE endpoints.
	AuthorizeURL string
	TokenURL     string
	ProfileURL   string

	// AppScheme prefixes the deep link tried on mobile devices
	AppScheme string

	// FallbackDelay is how long a client waits on the app link before using the web URL
	FallbackDelay time.Duration
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ChannelID == "" || c.ChannelSecret == "" {
		return errors.New("line: channel id and secret are required")
	}
	if c.RedirectURL == "" {
		return errors.New("line: redirect url is required")
	}
	return nil
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.AuthorizeURL == "" {
		out.AuthorizeURL = DefaultAuthorizeURL
	}
	if out.TokenURL == "" {
		out.TokenURL = DefaultTokenURL
	}
	if out.ProfileURL == "" {
		out.ProfileURL = DefaultProfileURL
	}
	if out.AppScheme == "" {
		out.AppScheme = DefaultAppScheme
	}
	if out.FallbackDelay <= 0 {
		out.FallbackDelay = 2500 * time.Millisecond
	}
	return out
}
