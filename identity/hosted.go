package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/user/quizcraft-go/config"
)

// Client is the HTTP binding to the hosted identity service.
type Client struct {
	baseURL    string
	serviceKey string
	adminKey   string
	httpClient *http.Client
}

// NewClient creates a hosted identity client from configuration.
func NewClient(cfg *config.IdentityConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		serviceKey: cfg.ServiceKey,
		adminKey:   cfg.AdminKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// signupRequest is the create-account payload. Metadata rides along under
// "data", the hosted service's slot for custom account attributes.
type signupRequest struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Data     Metadata `json:"data"`
}

type signupResponse struct {
	ID   string `json:"id"`
	User struct {
		ID string `json:"id"`
	} `json:"user"`
}

type passwordGrantRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshGrantRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// upstreamError is the union of error payload shapes the hosted service is
// known to return.
type upstreamError struct {
	ErrorCode        string `json:"error_code"`
	Code             string `json:"code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

func (u upstreamError) code() string {
	if u.ErrorCode != "" {
		return u.ErrorCode
	}
	return u.Code
}

func (u upstreamError) message() string {
	switch {
	case u.Msg != "":
		return u.Msg
	case u.Message != "":
		return u.Message
	default:
		return u.ErrorDescription
	}
}

// CreateAccount registers credentials with the hosted service.
func (c *Client) CreateAccount(ctx context.Context, email, password string, meta Metadata) (string, error) {
	var resp signupResponse
	err := c.do(ctx, http.MethodPost, "/signup", c.serviceKey, signupRequest{
		Email:    email,
		Password: password,
		Data:     meta,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.ID != "" {
		return resp.ID, nil
	}
	if resp.User.ID != "" {
		return resp.User.ID, nil
	}
	return "", &Error{Kind: KindUnknown, Message: "signup response carried no identity id"}
}

// SignIn exchanges credentials for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var resp sessionResponse
	err := c.do(ctx, http.MethodPost, "/token?grant_type=password", c.serviceKey, passwordGrantRequest{
		Email:    email,
		Password: password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return sessionFrom(resp), nil
}

// Refresh exchanges a refresh token for a new session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	var resp sessionResponse
	err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", c.serviceKey, refreshGrantRequest{
		RefreshToken: refreshToken,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return sessionFrom(resp), nil
}

// DeleteAccount removes an identity using the elevated admin key. It is the
// compensating action after a failed record insert.
func (c *Client) DeleteAccount(ctx context.Context, id string) error {
	key := c.adminKey
	if key == "" {
		key = c.serviceKey
	}
	return c.do(ctx, http.MethodDelete, "/admin/users/"+id, key, nil, nil)
}

func sessionFrom(resp sessionResponse) *Session {
	tokenType := resp.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    tokenType,
		ExpiresIn:    resp.ExpiresIn,
	}
}

// do sends one request and decodes either the success payload into out or
// the upstream error payload into a classified *Error. Transport failures
// are the network kind.
func (c *Client) do(ctx context.Context, method, path, key string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Kind: KindUnknown, Message: "malformed provider response", Err: err}
		}
		return nil
	}

	var ue upstreamError
	// Decode failures leave ue empty; classification then falls back to the
	// HTTP status alone.
	_ = json.NewDecoder(resp.Body).Decode(&ue)

	return &Error{
		Kind:    Classify(ue.code(), ue.message(), resp.StatusCode),
		Code:    ue.code(),
		Message: ue.message(),
	}
}

// interface guard
var _ Provider = (*Client)(nil)
