// Package postgrest talks to a hosted backend that exposes PostgREST tables
// under /rest/v1, object storage under /storage/v1 and GoTrue auth under
// /auth/v1 (the Supabase layout).
package postgrest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"resty.dev/v3"

	"github.com/cppla/discourse/gateway"
)

// Config locates the hosted project.
type Config struct {
	URL     string
	AnonKey string
	Timeout time.Duration
}

// Client implements gateway.Gateway over HTTP.
type Client struct {
	gateway.Notifier

	client  *resty.Client
	baseURL string
	anonKey string
}

var _ gateway.Gateway = (*Client)(nil)

// New returns a client for the project at cfg.URL.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" || cfg.AnonKey == "" {
		return nil, errors.New("postgrest: project url and anon key are required")
	}
	base := strings.TrimRight(cfg.URL, "/")
	client := resty.New().
		SetBaseURL(base).
		SetHeader("apikey", cfg.AnonKey)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &Client{client: client, baseURL: base, anonKey: cfg.AnonKey}, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	return c.client.Close()
}

// r starts a request authorized as the caller's session, or as the anonymous role.
func (c *Client) r(ctx context.Context) *resty.Request {
	token := gateway.AccessToken(ctx)
	if token == "" {
		token = c.anonKey
	}
	return c.authorized(ctx, token)
}

func (c *Client) authorized(ctx context.Context, bearer string) *resty.Request {
	return c.client.R().
		WithContext(ctx).
		SetHeader("Authorization", "Bearer "+bearer).
		SetError(&apiError{})
}

type apiError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Msg         string `json:"msg"`
	ErrorName   string `json:"error"`
	Description string `json:"error_description"`
}

// check converts a non-2xx response into a *gateway.Error.
func check(res *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !res.IsError() {
		return nil
	}
	var body apiError
	if parsed, ok := res.Error().(*apiError); ok && parsed != nil {
		body = *parsed
	} else {
		_ = json.Unmarshal(res.Bytes(), &body)
	}
	msg := firstNonEmpty(body.Message, body.Msg, body.Description, body.ErrorName, http.StatusText(res.StatusCode()))
	return &gateway.Error{Status: res.StatusCode(), Code: body.Code, Message: msg}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func tablePath(table string) string {
	return fmt.Sprintf("/rest/v1/%s", table)
}
