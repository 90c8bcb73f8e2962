package gateway

import (
	"context"
	"net/http"
)

// Login exchanges credentials for access and refresh bearer tokens.
func (c *Client) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	out := &LoginOutput{}
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", input, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Register creates a new account. It does not log the user in.
func (c *Client) Register(ctx context.Context, input RegisterInput) (*RegisterOutput, error) {
	out := &RegisterOutput{}
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", input, out); err != nil {
		return nil, err
	}
	return out, nil
}

// RefreshToken exchanges a refresh token for a renewed access token. The
// gateway may also rotate and return a new refresh token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*RefreshTokenOutput, error) {
	out := &RefreshTokenOutput{}
	input := RefreshTokenInput{RefreshToken: refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh-token", "", input, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChangePassword updates the account password.
func (c *Client) ChangePassword(ctx context.Context, input ChangePasswordInput, token string) (*ChangePasswordOutput, error) {
	out := &ChangePasswordOutput{}
	if err := c.do(ctx, http.MethodPost, "/auth/change-password", token, input, out); err != nil {
		return nil, err
	}
	return out, nil
}
