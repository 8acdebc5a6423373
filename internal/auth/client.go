// Package auth integrates the external authentication provider: credential
// sign-in, account lookup, profile updates, and password changes. Sessions
// live in the Manager, which exposes an observer stream.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/clinicdesk/dashboard/pkg/logging"
)

// Client talks to the authentication provider's REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

// Config holds configuration for the auth provider client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Logger  *logging.Logger
}

// NewClient creates a new auth provider client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("auth: BaseURL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("auth: APIKey is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Session is an authenticated provider session.
type Session struct {
	UserID       string
	Email        string
	DisplayName  string
	PhotoURL     string
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the session's token lifetime has passed.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !s.ExpiresAt.After(now)
}

// ProviderError is a non-2xx response from the auth provider.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("auth: provider error (status %d): %s", e.StatusCode, e.Message)
}

// SignIn exchanges email/password credentials for a session.
// Provider API: POST /accounts:signInWithPassword?key=<apiKey>
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, fmt.Errorf("auth: email and password are required")
	}

	var resp struct {
		LocalID      string `json:"localId"`
		Email        string `json:"email"`
		DisplayName  string `json:"displayName"`
		ProfilePhoto string `json:"photoUrl"`
		IDToken      string `json:"idToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    string `json:"expiresIn"`
	}
	err := c.post(ctx, "/accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &Session{
		UserID:       resp.LocalID,
		Email:        resp.Email,
		DisplayName:  resp.DisplayName,
		PhotoURL:     resp.ProfilePhoto,
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    time.Now().Add(parseExpiresIn(resp.ExpiresIn)),
	}, nil
}

// UpdateProfile sets the display name and/or photo URL on the signed-in
// account. Empty fields are left unchanged.
// Provider API: POST /accounts:update?key=<apiKey>
func (c *Client) UpdateProfile(ctx context.Context, idToken, displayName, photoURL string) error {
	if idToken == "" {
		return fmt.Errorf("auth: id token is required")
	}
	body := map[string]any{
		"idToken":           idToken,
		"returnSecureToken": false,
	}
	if displayName != "" {
		body["displayName"] = displayName
	}
	if photoURL != "" {
		body["photoUrl"] = photoURL
	}
	return c.post(ctx, "/accounts:update", body, nil)
}

// UpdatePassword sets a new password for the account behind idToken. The
// caller must reauthenticate first; see Manager.ChangePassword.
// Provider API: POST /accounts:update?key=<apiKey>
func (c *Client) UpdatePassword(ctx context.Context, idToken, newPassword string) error {
	if idToken == "" {
		return fmt.Errorf("auth: id token is required")
	}
	if len(newPassword) < 6 {
		return fmt.Errorf("auth: new password is too short")
	}
	return c.post(ctx, "/accounts:update", map[string]any{
		"idToken":           idToken,
		"password":          newPassword,
		"returnSecureToken": false,
	}, nil)
}

// Lookup fetches the account profile behind an id token.
// Provider API: POST /accounts:lookup?key=<apiKey>
func (c *Client) Lookup(ctx context.Context, idToken string) (*Session, error) {
	if idToken == "" {
		return nil, fmt.Errorf("auth: id token is required")
	}

	var resp struct {
		Users []struct {
			LocalID     string `json:"localId"`
			Email       string `json:"email"`
			DisplayName string `json:"displayName"`
			PhotoURL    string `json:"photoUrl"`
		} `json:"users"`
	}
	if err := c.post(ctx, "/accounts:lookup", map[string]any{"idToken": idToken}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Users) == 0 {
		return nil, fmt.Errorf("auth: no account behind token")
	}

	u := resp.Users[0]
	return &Session{
		UserID:      u.LocalID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		PhotoURL:    u.PhotoURL,
		IDToken:     idToken,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("auth: failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + path + "?key=" + c.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("auth: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		message := strings.TrimSpace(string(raw))
		if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Error.Message != "" {
			message = errResp.Error.Message
		}
		return &ProviderError{StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("auth: failed to decode response: %w", err)
	}
	return nil
}

func parseExpiresIn(raw string) time.Duration {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return time.Hour
	}
	return time.Duration(seconds) * time.Second
}
