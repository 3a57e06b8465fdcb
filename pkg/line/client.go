package line

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/kikichoice/storefront-backend/pkg/logger"
)

var mobileUserAgent = regexp.MustCompile(`(?i)iphone|ipad|ipod|android`)

// Client represents a LINE Login API client
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new LINE Login client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		config:     config.withDefaults(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// AuthorizeURL builds the web authorization URL for state.
func (c *Client) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.config.ChannelID)
	q.Set("redirect_uri", c.config.RedirectURL)
	q.Set("state", state)
	q.Set("scope", "profile openid")
	return c.config.AuthorizeURL + "?" + q.Encode()
}

// Plan returns the redirect plan for a browser. Mobile browsers get an app deep
// link to try first and a delay after which the web URL should be used.
func (c *Client) Plan(state, userAgent string) RedirectPlan {
	plan := RedirectPlan{
		WebURL: c.AuthorizeURL(state),
		State:  state,
	}
	if mobileUserAgent.MatchString(userAgent) {
		plan.AppURL = c.config.AppScheme + "oauth2/v2.1/authorize?" + strings.SplitN(plan.WebURL, "?", 2)[1]
		plan.FallbackAfterMS = c.config.FallbackDelay.Milliseconds()
	}
	return plan
}

// ExchangeCode trades an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.config.RedirectURL)
	form.Set("client_id", c.config.ChannelID)
	form.Set("client_secret", c.config.ChannelSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		logger.Warn("LINE token exchange rejected", map[string]interface{}{
			"status": status,
		})
		return nil, fmt.Errorf("%w: status %d", ErrTokenExchange, status)
	}

	var token Token
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrTokenExchange)
	}
	return &token, nil
}

// GetProfile fetches the profile of the token owner.
func (c *Client) GetProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.ProfileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrProfile, status)
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfile, err)
	}
	if profile.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrProfile)
	}
	return &profile, nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to read response body: %v", ErrNetwork, err)
	}
	return body, resp.StatusCode, nil
}
