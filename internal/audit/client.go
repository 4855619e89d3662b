// Package audit ships settlement and write-request events to an external log
// collector. Every call is best effort: failures are logged at debug level and never
// reach the caller.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"marketsim/internal/config"
)

type Entry struct {
	Agent    string         `json:"agent"`
	Action   string         `json:"action"`
	Level    string         `json:"level"`
	Details  map[string]any `json:"details"`
	Metadata map[string]any `json:"metadata"`
}

type Client struct {
	BaseURL string
	APIKey  string
	Agent   string
	Timeout time.Duration
	Logger  *zap.Logger

	// MaxInFlight bounds RecordAsync; zero means defaultMaxInFlight.
	MaxInFlight int

	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	slotsOnce sync.Once
	slots     chan struct{}

	HTTP *http.Client
}

// New returns nil when no collector is configured; a nil *Client is a valid no-op sink.
func New(cfg config.AuditConfig, logger *zap.Logger) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil
	}
	agent := strings.TrimSpace(cfg.Agent)
	if agent == "" {
		agent = "market-sim-service"
	}
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Agent:   agent,
		Timeout:     cfg.Timeout,
		Logger:      logger,
		MaxInFlight: cfg.MaxInFlight,
	}
}

const defaultMaxInFlight = 16

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

func (c *Client) login(ctx context.Context) error {
	if c.APIKey == "" {
		return errors.New("audit api key is empty")
	}
	body, _ := json.Marshal(map[string]any{"api_key": c.APIKey})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/auth/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("audit login http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var lr loginResponse
	if err := json.Unmarshal(b, &lr); err != nil {
		return err
	}
	exp, _ := time.Parse(time.RFC3339, strings.TrimSpace(lr.ExpiresAt))

	c.mu.Lock()
	c.token = strings.TrimSpace(lr.Token)
	c.expiresAt = exp
	c.mu.Unlock()
	return nil
}

func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	tok, exp := c.token, c.expiresAt
	c.mu.RUnlock()
	if tok != "" && (exp.IsZero() || time.Until(exp) >= 2*time.Minute) {
		return tok, nil
	}
	if err := c.login(ctx); err != nil {
		return "", err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token, nil
}

// Send posts one entry and returns the transport or HTTP error.
func (c *Client) Send(ctx context.Context, e Entry) error {
	if c == nil {
		return nil
	}
	tok, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}
	if e.Agent == "" {
		e.Agent = c.Agent
	}
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	if e.Metadata == nil {
		e.Metadata = map[string]any{}
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/logs", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bb, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return fmt.Errorf("audit create log http %d: %s", resp.StatusCode, strings.TrimSpace(string(bb)))
	}
	return nil
}

// Record sends an entry on a detached context bounded by Timeout.
func (c *Client) Record(action, level string, details map[string]any) {
	if c == nil {
		return
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := c.Send(ctx, Entry{Action: action, Level: level, Details: details})
	if err != nil && c.Logger != nil {
		c.Logger.Debug("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

// RecordAsync hands the entry to a background goroutine and returns at once. When
// MaxInFlight sends are already pending the entry is dropped and false is returned.
func (c *Client) RecordAsync(action, level string, details map[string]any) bool {
	if c == nil {
		return false
	}
	c.slotsOnce.Do(func() {
		n := c.MaxInFlight
		if n <= 0 {
			n = defaultMaxInFlight
		}
		c.slots = make(chan struct{}, n)
	})
	select {
	case c.slots <- struct{}{}:
	default:
		if c.Logger != nil {
			c.Logger.Debug("audit log dropped", zap.String("action", action))
		}
		return false
	}
	go func() {
		defer func() { <-c.slots }()
		c.Record(action, level, details)
	}()
	return true
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 10 * time.Second}
}
