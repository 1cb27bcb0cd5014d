package userpool

// Package userpool implements ports.IdentityProvider against the user
// pool service's HTTP JSON API. The pool owns credential storage and
// confirmation-code delivery; this client maps its error envelope onto
// AppError codes so callers never see transport detail.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/peoplehub/portal-api/internal/domain/auth"
	apperrors "github.com/peoplehub/portal-api/internal/errors"
	"github.com/peoplehub/portal-api/internal/ports"
)

const defaultTimeout = 10 * time.Second

// Config controls the user pool client.
type Config struct {
	// BaseURL is the pool API root, e.g. https://pool.internal.example.com
	BaseURL string
	// APIKey authenticates this service to the pool.
	APIKey string
	// Timeout bounds each request; defaultTimeout when zero.
	Timeout time.Duration
}

// Client talks to the user pool API.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	apiKey     string
}

// NewClient constructs a user pool client from Config.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("user pool: BaseURL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
	}, nil
}

type registerRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
}

type registerResponse struct {
	Confirmed          bool   `json:"confirmed"`
	CodeDeliveryMasked string `json:"code_delivery_masked,omitempty"`
}

type confirmRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signInResponse struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	ExpiresIn  int64  `json:"expires_in"`
}

// errorEnvelope is the pool's uniform error body.
type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) Register(ctx context.Context, in ports.RegisterInput) (ports.RegisterResult, error) {
	var out registerResponse
	err := c.post(ctx, "/v1/signup", registerRequest{
		Username:   in.Username,
		Password:   in.Password,
		Email:      in.Email,
		GivenName:  in.GivenName,
		FamilyName: in.FamilyName,
	}, &out)
	if err != nil {
		return ports.RegisterResult{}, err
	}
	return ports.RegisterResult{
		ConfirmationRequired: !out.Confirmed,
		Destination:          out.CodeDeliveryMasked,
	}, nil
}

func (c *Client) Confirm(ctx context.Context, in ports.ConfirmInput) error {
	return c.post(ctx, "/v1/confirm", confirmRequest{
		Username: in.Username,
		Code:     in.Code,
	}, nil)
}

func (c *Client) SignIn(ctx context.Context, in ports.SignInInput) (domainauth.Identity, error) {
	var out signInResponse
	err := c.post(ctx, "/v1/signin", signInRequest{
		Username: in.Username,
		Password: in.Password,
	}, &out)
	if err != nil {
		return domainauth.Identity{}, err
	}
	return domainauth.Identity{
		UserID:    out.Sub,
		FirstName: out.GivenName,
		LastName:  out.FamilyName,
		Email:     out.Email,
		ExpiresAt: time.Now().Add(time.Duration(out.ExpiresIn) * time.Second),
	}, nil
}

// post sends a JSON POST and decodes the response into out (when out is
// non-nil). Non-2xx responses are translated via mapError.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("user pool request failed",
			"path", path,
			"error", err)
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "the account service is unavailable")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.mapError(path, resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// mapError converts a pool error response into an AppError. The pool's
// documented code strings take priority; unknown responses fall back on
// HTTP status semantics.
func (c *Client) mapError(path string, status int, body []byte) error {
	var envelope errorEnvelope
	_ = json.Unmarshal(body, &envelope)

	msg := envelope.Message

	switch envelope.Code {
	case "username_exists":
		if msg == "" {
			msg = "an account with this email already exists"
		}
		return apperrors.Conflict(msg)
	case "invalid_password":
		if msg == "" {
			msg = "the password does not meet the security requirements"
		}
		return apperrors.Validation(msg)
	case "code_mismatch":
		if msg == "" {
			msg = "the confirmation code is incorrect"
		}
		return apperrors.Unauthorized(msg)
	case "expired_code":
		if msg == "" {
			msg = "this confirmation code has expired"
		}
		return apperrors.Expired(msg)
	case "not_authorized":
		if msg == "" {
			msg = "invalid email or password"
		}
		return apperrors.Unauthorized(msg)
	case "user_not_found":
		if msg == "" {
			msg = "no account exists for this email"
		}
		return apperrors.NotFound(msg)
	}

	c.logger.Error("user pool returned unexpected error",
		"path", path,
		"status", status,
		"code", envelope.Code)

	switch {
	case status == http.StatusConflict:
		return apperrors.Conflict("an account with this email already exists")
	case status == http.StatusBadRequest:
		return apperrors.Validation("the account service rejected the request")
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperrors.Unauthorized("the account service rejected the credentials")
	default:
		return apperrors.Internalf("the account service returned status %d", status)
	}
}
