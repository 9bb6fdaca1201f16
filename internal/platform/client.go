// README: Authenticated HTTP gateway to the fleet-dispatch platform (GET/POST JSON with typed failures).
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"fleetops/internal/config"
	"fleetops/internal/logger"
)

const maxErrorBody = 512

// Client is safe for concurrent use. Its credentials never change; use WithToken to get a
// client for a rotated token and swap it in between batches.
type Client struct {
	baseURL   string
	token     string
	userAgent string
	http      *http.Client
	log       *zap.Logger
}

func NewClient(cfg config.PlatformConfig, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		token:     normalizeToken(cfg.Token),
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: timeout},
		log:       logger.OrNop(log),
	}
}

// WithToken returns a copy of c that authenticates with token. c itself is untouched, so
// requests already in flight keep their credentials.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = normalizeToken(token)
	return &cp
}

func (c *Client) Get(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, params, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any, out any) error {
	mutation := method != http.MethodGet
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindDecode, Method: method, Path: path, Err: fmt.Errorf("marshal request: %w", err)}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &Error{Kind: KindTransport, Method: method, Path: path, Err: err}
	}
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("platform request failed",
			zap.String("method", method), zap.String("path", path), zap.Error(err))
		return &Error{Kind: KindTransport, Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindTransport, Method: method, Path: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	c.log.Debug("platform request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := classify(resp.StatusCode, mutation)
		c.log.Warn("platform request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("kind", string(kind)))
		return &Error{
			Kind:       kind,
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Body:       truncate(strings.TrimSpace(string(raw)), maxErrorBody),
		}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: KindDecode, Method: method, Path: path, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// normalizeToken keeps the header value in "Bearer <token>" form whether or not the
// operator pasted the scheme.
func normalizeToken(token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return ""
	}
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		return "Bearer " + strings.TrimSpace(token[7:])
	}
	return "Bearer " + token
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
