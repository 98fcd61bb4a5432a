// Package identity talks to the external GitLab-compatible identity
// provider that hosts users' published OpenPGP keys: username→user-id
// lookup, GPG key listing, key publishing, and token verification.
package identity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// TokenType selects the authorization header shape used against the
// identity provider's API.
type TokenType int

const (
	// TokenClassic sends `PRIVATE-TOKEN: <token>`.
	TokenClassic TokenType = iota
	// TokenOAuth sends `Authorization: Bearer <token>`.
	TokenOAuth
)

// Errors surfaced by the client.
var (
	ErrInvalidToken = errors.New("identity: invalid token")
	ErrNetwork      = errors.New("identity: network error")
	ErrUserNotFound = errors.New("identity: user not found")
	ErrBadFormat    = errors.New("identity: bad key format")
)

// Client is a synchronous GitLab-compatible identity-provider client.
type Client struct {
	BaseURL   string
	Token     string
	TokenType TokenType
	HTTP      *http.Client
}

// NewClient returns a client with a bounded default timeout.
func NewClient(baseURL, token string, tokenType TokenType) *Client {
	return &Client{
		BaseURL:   baseURL,
		Token:     token,
		TokenType: tokenType,
		HTTP:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) authorize(req *http.Request) {
	switch c.TokenType {
	case TokenOAuth:
		req.Header.Set("Authorization", "Bearer "+c.Token)
	default:
		req.Header.Set("PRIVATE-TOKEN", c.Token)
	}
}

// VerifyToken performs a lightweight authenticated call to confirm the
// configured token is still accepted by the identity provider.
func (c *Client) VerifyToken() (bool, error) {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL+"/api/v4/user", nil)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	c.authorize(req)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return false, ErrInvalidToken
	}
	return resp.StatusCode == http.StatusOK, nil
}

type gitlabUser struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

type gitlabGPGKey struct {
	ID  int    `json:"id"`
	Key string `json:"key"`
}

// GetKeys resolves login's published OpenPGP keys via a two-call lookup:
// find the user id by username, then list GPG keys for that id.
func (c *Client) GetKeys(login string) ([]string, error) {
	userID, err := c.findUserID(login)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/v4/users/%d/gpg_keys", c.BaseURL, userID), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	c.authorize(req)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: gpg_keys status %d", ErrNetwork, resp.StatusCode)
	}
	var keys []gitlabGPGKey
	if err := json.NewDecoder(resp.Body).Decode(&keys); err != nil {
		return nil, fmt.Errorf("%w: decode gpg keys: %v", ErrBadFormat, err)
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.Key)
	}
	return out, nil
}

func (c *Client) findUserID(login string) (int, error) {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL+"/api/v4/users?username="+url.QueryEscape(login), nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	c.authorize(req)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: users status %d", ErrNetwork, resp.StatusCode)
	}
	var users []gitlabUser
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return 0, fmt.Errorf("%w: decode users: %v", ErrBadFormat, err)
	}
	if len(users) == 0 {
		return 0, ErrUserNotFound
	}
	return users[0].ID, nil
}

// PublishKey publishes an ASCII-armored public key under the configured
// token's identity.
func (c *Client) PublishKey(armoredKey string) error {
	body, err := json.Marshal(map[string]string{"key": armoredKey})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	req, err := http.NewRequest(http.MethodPost, c.BaseURL+"/api/v4/user/gpg_keys", bytesReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: publish status %d", ErrBadFormat, resp.StatusCode)
	}
	return nil
}

func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
