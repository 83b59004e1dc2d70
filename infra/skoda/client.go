package skoda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/evbridge/skoda-mqtt/core/vehicle"
	"github.com/evbridge/skoda-mqtt/infra/logger"
)

// Config defines credentials and endpoints for the Skoda Connect API.
type Config struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	VIN            string `json:"vin"`
	BaseURL        string `json:"base_url"`
	TokenURL       string `json:"token_url"`
	OAuthClientID  string `json:"oauth_client_id"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// SetDefaults applies endpoint and timeout defaults.
func (c *Config) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.connect.skoda-auto.cz"
	}
	if c.TokenURL == "" {
		c.TokenURL = "https://identity.vwgroup.io/oauth/token"
	}
	if c.OAuthClientID == "" {
		c.OAuthClientID = "myskoda-mqtt"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Username == "" {
		return fmt.Errorf("skoda username is required")
	}
	if c.Password == "" {
		return fmt.Errorf("skoda password is required")
	}
	if c.VIN == "" {
		return fmt.Errorf("skoda vin is required")
	}
	return nil
}

// commandPaths maps an action to its API path under the vehicle resource.
var commandPaths = map[vehicle.Action]string{
	vehicle.ActionStartCharging: "charging/start",
	vehicle.ActionStopCharging:  "charging/stop",
	vehicle.ActionLock:          "lock",
	vehicle.ActionUnlock:        "unlock",
}

// Client implements vehicle.API against the Skoda Connect HTTP endpoints.
// Authentication uses the resource-owner password grant; the token source
// refreshes expired tokens transparently. A 401 drops the session so the
// next call re-authenticates from scratch.
type Client struct {
	cfg Config
	log logger.Logger

	mu   sync.Mutex
	http *http.Client
}

// NewClient creates a client; authentication happens lazily on first use.
func NewClient(cfg Config) *Client {
	cfg.SetDefaults()
	return &Client{cfg: cfg, log: logger.New("skoda_api")}
}

func (c *Client) session(ctx context.Context) (*http.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.http != nil {
		return c.http, nil
	}

	oc := oauth2.Config{
		ClientID: c.cfg.OAuthClientID,
		Endpoint: oauth2.Endpoint{TokenURL: c.cfg.TokenURL},
	}
	tok, err := oc.PasswordCredentialsToken(ctx, c.cfg.Username, c.cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vehicle.ErrAuth, err)
	}
	c.log.Infof("authenticated with Skoda Connect")

	cli := oauth2.NewClient(ctx, oc.TokenSource(context.Background(), tok))
	cli.Timeout = time.Duration(c.cfg.TimeoutSeconds) * time.Second
	c.http = cli
	return cli, nil
}

func (c *Client) dropSession() {
	c.mu.Lock()
	c.http = nil
	c.mu.Unlock()
}

func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	cli, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	url := c.cfg.BaseURL + "/v1/vehicles/" + c.cfg.VIN + "/" + path
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "skoda-mqtt/1.0")

	resp, err := cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vehicle.ErrUnavailable, err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		resp.Body.Close()
		c.dropSession()
		return nil, fmt.Errorf("%w: token rejected", vehicle.ErrAuth)
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d: %s", vehicle.ErrUnavailable, resp.StatusCode, body)
	}
	return resp, nil
}

// Status fetches the raw vehicle status document.
func (c *Client) Status(ctx context.Context) (vehicle.StatusDocument, error) {
	resp, err := c.do(ctx, http.MethodGet, "status")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var doc vehicle.StatusDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode status: %v", vehicle.ErrUnavailable, err)
	}
	return doc, nil
}

// Command executes a remote action on the vehicle.
func (c *Client) Command(ctx context.Context, action vehicle.Action) error {
	path, ok := commandPaths[action]
	if !ok {
		return fmt.Errorf("unsupported action %q", action)
	}
	resp, err := c.do(ctx, http.MethodPost, path)
	if err != nil {
		return err
	}
	resp.Body.Close()
	c.log.Infof("command %s accepted", action)
	return nil
}
