package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/go-resty/resty/v2"
)

// AuthOptions configures an [AuthClient].
type AuthOptions struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *log.Logger
}

// AuthClient registers accounts and exchanges credentials for a session token.
type AuthClient struct {
	client *resty.Client
	logger *log.Logger
}

// NewAuthClient creates an auth client for the backend at opts.BaseURL.
func NewAuthClient(opts AuthOptions) *AuthClient {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &AuthClient{
		client: newRestClient(strings.TrimRight(opts.BaseURL, "/"), opts.Timeout, opts.HTTPClient),
		logger: opts.Logger,
	}
}

// Register creates an account and returns the backend's confirmation message.
// Invalid input is rejected with a [shared.ValidationError] before any request is sent.
func (c *AuthClient) Register(ctx context.Context, in models.RegisterInput) (string, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := shared.ValidateRegister(in); err != nil {
		return "", err
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(in).
		Post("/auth/register")
	if err != nil {
		return "", fmt.Errorf("%w: register: %v", shared.ErrAPIRequest, err)
	}
	if !resp.IsSuccess() {
		return "", requestError(resp, "Registration failed")
	}

	// the message sits beside any data envelope, never inside it
	var body messageBody
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &body); err != nil {
			return "", fmt.Errorf("%w: malformed response: %v", shared.ErrAPIRequest, err)
		}
	}
	c.logger.Info("registered account", "email", in.Email)
	return body.Message, nil
}

// Login exchanges credentials for a session token. An empty token in a success response is a [shared.RequestError].
func (c *AuthClient) Login(ctx context.Context, in models.LoginInput) (string, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := shared.ValidateLogin(in); err != nil {
		return "", err
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(in).
		Post("/auth/login")
	if err != nil {
		return "", fmt.Errorf("%w: login: %v", shared.ErrAPIRequest, err)
	}
	if !resp.IsSuccess() {
		return "", requestError(resp, "Login failed")
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := decodeData(resp.Body(), &body); err != nil {
		return "", err
	}
	if body.Token == "" {
		return "", &shared.RequestError{Status: resp.StatusCode(), Message: "Login failed"}
	}

	c.logger.Info("logged in", "email", in.Email)
	return body.Token, nil
}
