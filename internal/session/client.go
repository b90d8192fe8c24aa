package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/five82/carrel/internal/seat"
)

// Role is the account role reported at login.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the client-side projection of the logged-in account.
type User struct {
	Username string
	Role     Role
}

// Response is a successful (2xx) HTTP exchange.
type Response struct {
	Code   int
	Header http.Header
	Body   []byte
}

// Options tune a Client. Zero values use defaults.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Logger    *slog.Logger
}

// Client owns the authenticated session with one reservation server at a
// time: the base address, the per-host cookie jar and the logged-in user.
type Client struct {
	mu      sync.RWMutex
	baseURL *url.URL
	users   map[string]User // by host, alongside the host's cookies

	jar       *Jar
	http      *http.Client
	userAgent string
	logger    *slog.Logger
}

const (
	DefaultServer    = "127.0.0.1:5000"
	defaultUserAgent = "carrel/0.1"
	requestTimeout   = 10 * time.Second
	maxBodyBytes     = 4 << 20
)

// NewClient builds a Client for the server at addr (host:port or URL).
func NewClient(addr string, opts Options) (*Client, error) {
	base, err := parseBaseURL(addr)
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = requestTimeout
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	jar := NewJar()
	return &Client{
		baseURL: base,
		users:   make(map[string]User),
		jar:     jar,
		http: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		userAgent: userAgent,
		logger:    logger,
	}, nil
}

// BaseURL returns the current server address.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL.String()
}

// Host returns the host name cookies are currently keyed by.
func (c *Client) Host() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return hostKey(c.baseURL)
}

// User returns the logged-in user for the current host.
func (c *Client) User() User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.users[hostKey(c.baseURL)]
}

// Username returns the logged-in username for the current host, or "".
func (c *Client) Username() string {
	return c.User().Username
}

// LoggedIn reports whether the current host has a user and session cookies.
func (c *Client) LoggedIn() bool {
	host := c.Host()
	return c.Username() != "" && c.jar.Has(host)
}

// SwitchHost points the client at a different server. The old host's cookies
// and user are dropped; sessions held for other hosts are kept, so switching
// back to one of them does not require a new login.
func (c *Client) SwitchHost(addr string) error {
	base, err := parseBaseURL(addr)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	oldHost := hostKey(c.baseURL)
	newHost := hostKey(base)
	if oldHost != newHost {
		c.jar.Clear(oldHost)
		delete(c.users, oldHost)
		c.logger.Info("switched server", "from", oldHost, "to", newHost)
	}
	c.baseURL = base
	return nil
}

// Logout forgets the session for the current host.
func (c *Client) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	host := hostKey(c.baseURL)
	c.jar.Clear(host)
	delete(c.users, host)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginReply struct {
	OK    bool   `json:"ok"`
	Role  string `json:"role"`
	Error string `json:"error"`
}

// Login posts credentials to /api/login. Session cookies from the response
// are captured by the jar.
func (c *Client) Login(ctx context.Context, username, password string) (User, error) {
	if c == nil {
		return User{}, fmt.Errorf("client is nil")
	}
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, fmt.Errorf("%w: username and password are required", ErrInvalidCredentials)
	}

	resp, err := c.Do(ctx, http.MethodPost, "/api/login", credentials{Username: username, Password: password})
	if errors.Is(err, ErrUnauthorized) {
		return User{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	body, err := ReplyBody(resp, err)
	if err != nil {
		return User{}, err
	}

	var reply loginReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return User{}, &seat.ParseError{Body: body, Err: err}
	}
	if !reply.OK {
		reason := strings.TrimSpace(reply.Error)
		if reason == "" {
			reason = "login rejected"
		}
		c.logger.Warn("login rejected", "username", username, "reason", reason)
		return User{}, fmt.Errorf("%w: %s", ErrInvalidCredentials, reason)
	}

	user := User{Username: username, Role: parseRole(reply.Role)}
	c.mu.Lock()
	c.users[hostKey(c.baseURL)] = user
	c.mu.Unlock()
	c.logger.Info("logged in", "username", username, "role", string(user.Role))
	return user, nil
}

// FetchState retrieves the raw /api/state document.
func (c *Client) FetchState(ctx context.Context) ([]byte, error) {
	resp, err := c.Do(ctx, http.MethodGet, "/api/state", nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Do sends an authenticated request. body, when non-nil, is sent as JSON.
// Non-2xx responses return a *StatusError carrying the body; transport
// failures return a *NetworkError.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	c.mu.RLock()
	reqURL := c.baseURL.ResolveReference(&url.URL{Path: path})
	c.mu.RUnlock()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return nil, &NetworkError{Op: method + " " + path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &NetworkError{Op: "read " + path, Err: err}
	}
	c.logger.Debug("request done",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Path: path, Code: resp.StatusCode, Body: data}
	}
	return &Response{Code: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// ReplyBody returns the body of a business reply. Servers answer some
// rejections with 4xx and a JSON body; those bodies are returned so the
// caller can interpret them. Authorization failures, 5xx and transport
// errors pass through.
func ReplyBody(resp *Response, err error) ([]byte, error) {
	if err == nil {
		return resp.Body, nil
	}
	var serr *StatusError
	if errors.As(err, &serr) && serr.Code < 500 && !errors.Is(err, ErrUnauthorized) {
		if trimmed := bytes.TrimSpace(serr.Body); len(trimmed) > 0 && json.Valid(trimmed) {
			return serr.Body, nil
		}
	}
	return nil, err
}

func parseRole(raw string) Role {
	if strings.EqualFold(strings.TrimSpace(raw), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleUser
}

func parseBaseURL(addr string) (*url.URL, error) {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		trimmed = DefaultServer
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server address %q: %w", addr, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse server address %q: missing host", addr)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
