package api

import (
	"context"
	"fmt"
	"net/http"
)

// Login authenticates and stores the returned token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.call(ctx, http.MethodPost, "/auth/login", "/auth/login", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := c.storeToken(ctx, resp.Token); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &resp, nil
}

// Register creates an account. The token is stored when the backend returns one.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.call(ctx, http.MethodPost, "/auth/register", "/auth/register", nil, req, &resp); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if err := c.storeToken(ctx, resp.Token); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &resp, nil
}

// Logout ends the session on the backend, then erases the stored token.
func (c *Client) Logout(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.call(ctx, http.MethodPost, "/auth/logout", "/auth/logout", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("logout: %w", err)
	}
	if c.creds != nil {
		if err := c.creds.Clear(ctx); err != nil {
			return nil, fmt.Errorf("logout: %w", err)
		}
	}
	return &resp, nil
}

// GetProfile fetches the current user.
func (c *Client) GetProfile(ctx context.Context) (*ProfileResponse, error) {
	var resp ProfileResponse
	if err := c.call(ctx, http.MethodGet, "/auth/profile", "/auth/profile", nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &resp, nil
}

// UpdateProfile changes the fields set in update.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*ProfileResponse, error) {
	var resp ProfileResponse
	if err := c.call(ctx, http.MethodPut, "/auth/profile", "/auth/profile", nil, update, &resp); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &resp, nil
}

func (c *Client) storeToken(ctx context.Context, token string) error {
	if token == "" || c.creds == nil {
		return nil
	}
	return c.creds.Save(ctx, token)
}
