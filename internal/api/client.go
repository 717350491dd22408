// ABOUTME: Resty-based client with bearer auth for every backend endpoint
// ABOUTME: Failures carry status context; no retries anywhere

package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"

	"github.com/hariharan-cs21/chat-ui/internal/chat"
)

// Client calls the backend's REST endpoints. A zero token is valid for
// the unauthenticated auth endpoints; everything else requires one.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

// New creates a client for the given base URL (".../api"). token may be
// empty before login. Pass nil logger for default.
func New(baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	httpc := resty.New().SetBaseURL(baseURL)
	if token != "" {
		httpc.SetAuthToken(token)
	}

	return &Client{
		http:   httpc,
		logger: logger.With("component", "api"),
	}
}

// SetToken installs the bearer credential on subsequent requests.
func (c *Client) SetToken(token string) {
	c.http.SetAuthToken(token)
}

// AuthResponse is the body returned by login and register.
type AuthResponse struct {
	Token string    `json:"token"`
	User  chat.User `json:"user"`
}

// apiError is the backend's error body shape.
type apiError struct {
	Msg string `json:"msg"`
}

// Login exchanges credentials for a bearer token and the local user's
// identity.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var out AuthResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/auth/login")
	if err != nil {
		return AuthResponse{}, fmt.Errorf("login request: %w", err)
	}
	if resp.IsError() {
		return AuthResponse{}, respError("login", resp)
	}
	return out, nil
}

// Register creates an account. photoPath is optional; when set the
// profile photo is uploaded as part of the multipart form.
func (c *Client) Register(ctx context.Context, username, email, password, photoPath string) (AuthResponse, error) {
	var out AuthResponse
	req := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"username": username,
			"email":    email,
			"password": password,
		}).
		SetResult(&out).
		SetError(&apiError{})
	if photoPath != "" {
		req.SetFile("photo", photoPath)
	}

	resp, err := req.Post("/auth/register")
	if err != nil {
		return AuthResponse{}, fmt.Errorf("register request: %w", err)
	}
	if resp.IsError() {
		return AuthResponse{}, respError("register", resp)
	}
	return out, nil
}

// Users fetches the full roster. Callers filter out the local user.
func (c *Client) Users(ctx context.Context) ([]chat.User, error) {
	var out []chat.User
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiError{}).
		Get("/auth/users")
	if err != nil {
		return nil, fmt.Errorf("users request: %w", err)
	}
	if resp.IsError() {
		return nil, respError("users", resp)
	}
	return out, nil
}

// profilePhotoResponse is the body returned by the profile photo upload.
type profilePhotoResponse struct {
	ProfilePhoto string `json:"profilePhoto"`
}

// UpdateProfilePhoto uploads a new avatar and returns the new server
// reference.
func (c *Client) UpdateProfilePhoto(ctx context.Context, photoPath string) (string, error) {
	var out profilePhotoResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFile("photo", photoPath).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/auth/profile-photo")
	if err != nil {
		return "", fmt.Errorf("profile photo request: %w", err)
	}
	if resp.IsError() {
		return "", respError("profile photo", resp)
	}
	return out.ProfilePhoto, nil
}

// History returns the persisted messages for the conversation with the
// given peer, oldest first. Implements chat.HistoryFetcher.
func (c *Client) History(ctx context.Context, peerID string) ([]chat.Message, error) {
	var out []chat.Message
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiError{}).
		Get("/messages/history/" + peerID)
	if err != nil {
		return nil, fmt.Errorf("history request: %w", err)
	}
	if resp.IsError() {
		return nil, respError("history", resp)
	}
	return out, nil
}

// SendAttachment submits an attachment-bearing message as a multipart
// form and returns the persisted message, including the server-assigned
// attachment URL. Implements chat.Uploader.
func (c *Client) SendAttachment(ctx context.Context, receiver, content, filePath string) (chat.Message, error) {
	var out chat.Message
	resp, err := c.http.R().
		SetContext(ctx).
		SetFile("file", filePath).
		SetFormData(map[string]string{
			"receiver": receiver,
			"content":  content,
		}).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/messages/send")
	if err != nil {
		return chat.Message{}, fmt.Errorf("send request: %w", err)
	}
	if resp.IsError() {
		return chat.Message{}, respError("send", resp)
	}
	return out, nil
}

// respError turns a non-2xx response into an error, preferring the
// backend's msg field when present.
func respError(op string, resp *resty.Response) error {
	if apiErr, ok := resp.Error().(*apiError); ok && apiErr.Msg != "" {
		return fmt.Errorf("%s failed: %s (status %d)", op, apiErr.Msg, resp.StatusCode())
	}
	return fmt.Errorf("%s failed: status %d", op, resp.StatusCode())
}
