package api

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-lms-client/users"
)

// TokenPair is the payload returned by POST /token/.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// RegisterRequest carries the fields for POST /users/register/.
type RegisterRequest struct {
	Username  string         `json:"username"`
	Email     string         `json:"email"`
	Password  string         `json:"password"`
	FirstName string         `json:"first_name,omitempty"`
	LastName  string         `json:"last_name,omitempty"`
	Role      users.RoleType `json:"role,omitempty"`
}

// ProfileUpdate carries the partial fields for PATCH /users/profile/.
// Role is deliberately absent: it is never writable from the client.
type ProfileUpdate struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// ObtainPair exchanges username and password for a token pair.
func (c *Client) ObtainPair(ctx context.Context, username, password string) (*TokenPair, error) {
	resp, err := c.gw.Post(ctx, "/token/", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var pair TokenPair
	if err := resp.Decode(&pair); err != nil {
		return nil, errors.Wrap(err, "[Client.ObtainPair] decode token pair")
	}
	if pair.Access == "" || pair.Refresh == "" {
		return nil, errors.New("[Client.ObtainPair] token endpoint returned incomplete pair")
	}
	return &pair, nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	_, err := c.gw.Post(ctx, "/users/register/", req)
	return err
}

// Profile fetches the authenticated user's record.
func (c *Client) Profile(ctx context.Context) (*users.User, error) {
	resp, err := c.gw.Get(ctx, "/users/profile/")
	if err != nil {
		return nil, err
	}

	var user users.User
	if err := resp.Decode(&user); err != nil {
		return nil, errors.Wrap(err, "[Client.Profile] decode user")
	}
	return &user, nil
}

// UpdateProfile applies a partial update and returns the new record.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*users.User, error) {
	resp, err := c.gw.Patch(ctx, "/users/profile/", update)
	if err != nil {
		return nil, err
	}

	var user users.User
	if err := resp.Decode(&user); err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateProfile] decode user")
	}
	return &user, nil
}
