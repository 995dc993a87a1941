// Package api is the REST client for the backend notification endpoints
// under /api/notifications. It owns bearer authentication, per-request
// timeouts, JSON (de)serialization and status-code mapping; it never
// touches engine state.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"notifyd/internal/auth"
	"notifyd/internal/notification"
)

// Config controls the client.
//
// Timeout bounds a single request (default 10s; notification endpoints
// are expected to be fast). RatePerSec is a politeness cap on outbound
// calls (default 5).
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	RatePerSec int
}

type Client struct {
	base    string
	hc      *http.Client
	tokens  auth.TokenSource
	limiter *rate.Limiter
	timeout time.Duration
	log     *slog.Logger
}

func New(cfg Config, tokens auth.TokenSource, log *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
		tokens:  tokens,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		timeout: timeout,
		log:     log,
	}
}

type listResponse struct {
	Notifications []notification.Notification `json:"notifications"`
	UnreadCount   int                         `json:"unreadCount"`
}

type unreadCountResponse struct {
	UnreadCount int `json:"unreadCount"`
}

// List fetches one page of notifications plus the server's unread count.
func (c *Client) List(ctx context.Context, page, limit int) ([]notification.Notification, int, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/notifications"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	var out listResponse
	if err := c.do(ctx, http.MethodGet, path, &out); err != nil {
		return nil, 0, err
	}
	return out.Notifications, out.UnreadCount, nil
}

// UnreadCount is the lightweight probe used by the polling tick.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out unreadCountResponse
	if err := c.do(ctx, http.MethodGet, "/notifications/unread-count", &out); err != nil {
		return 0, err
	}
	return out.UnreadCount, nil
}

func (c *Client) MarkRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/notifications/mark-read/"+url.PathEscape(id), nil)
}

func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/notifications/mark-all-read", nil)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/notifications/"+url.PathEscape(id), nil)
}

// Clear deletes every notification server-side.
func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/notifications", nil)
}

func (c *Client) do(ctx context.Context, method, path string, result any) error {
	token, ok := c.tokens.Token()
	if !ok {
		return ErrNoToken
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if c.log != nil {
		c.log.Debug("api call",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.Duration("took", time.Since(start)))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}
