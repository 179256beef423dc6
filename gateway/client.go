package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	maxBodyBytes    = 1 << 20
	requestIDHeader = "X-Request-ID"
)

// Config configures a [Client].
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Option customises a [Client].
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Config.Timeout is
// ignored when this option is used.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRequestIDFunc replaces the request ID generator.
func WithRequestIDFunc(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.requestID = fn
		}
	}
}

// Client calls the authentication endpoints of one authority.
type Client struct {
	base      *url.URL
	http      *http.Client
	userAgent string
	requestID func() string
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("gateway base URL required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid gateway base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.New("gateway base URL must be http or https")
	}
	if cfg.Timeout < 0 {
		return nil, errors.New("gateway timeout must be >= 0")
	}

	c := &Client{
		base:      base,
		http:      &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		requestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, "login", http.MethodPost, PathLogin, "", loginRequest{Email: email, Password: password}, &out)
	return out, err
}

func (c *Client) StaffLogin(ctx context.Context, staffID string) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, "staff-login", http.MethodPost, PathStaffLogin, "", staffLoginRequest{StaffID: staffID}, &out)
	return out, err
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, "register", http.MethodPost, PathRegister, "", req, &out)
	return out, err
}

func (c *Client) GoogleSignIn(ctx context.Context, oauthCredential string) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, "google-signin", http.MethodPost, PathGoogleSignIn, "", googleSignInRequest{Token: oauthCredential}, &out)
	return out, err
}

func (c *Client) ValidateToken(ctx context.Context, credential string) (ValidateResponse, error) {
	var out ValidateResponse
	err := c.do(ctx, "validate-token", http.MethodGet, PathValidateToken, credential, nil, &out)
	return out, err
}

func (c *Client) RegistrationStatus(ctx context.Context, credential string) (RegistrationStatus, error) {
	var out RegistrationStatus
	err := c.do(ctx, "registration-status", http.MethodGet, PathRegistrationStatus, credential, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, op, method, path, credential string, body, out any) error {
	reqID := c.requestID()
	fail := func(status int, msg string, err error) error {
		return &Error{Op: op, StatusCode: status, Message: msg, RequestID: reqID, Err: err}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fail(0, "", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return fail(0, "", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(0, "", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fail(resp.StatusCode, "", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, serverMessage(data), errors.New(http.StatusText(resp.StatusCode)))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fail(resp.StatusCode, "", fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	return nil
}

func serverMessage(data []byte) string {
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
