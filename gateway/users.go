package gateway

import (
	"context"
	"fmt"
	"net/http"
)

func (c *Client) CreateBuyerProfile(ctx context.Context, input BuyerProfilePayload, token string) (*BuyerProfileResponse, error) {
	out := &BuyerProfileResponse{}
	if err := c.do(ctx, http.MethodPost, "/users/buyers", token, input, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetBuyerProfile(ctx context.Context, userID int64, token string) (*BuyerProfileResponse, error) {
	out := &BuyerProfileResponse{}
	path := fmt.Sprintf("/users/buyers/%d", userID)
	if err := c.do(ctx, http.MethodGet, path, token, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateBuyerProfile(ctx context.Context, userID int64, input BuyerProfilePayload, token string) (*BuyerProfileResponse, error) {
	out := &BuyerProfileResponse{}
	path := fmt.Sprintf("/users/buyers/%d", userID)
	if err := c.do(ctx, http.MethodPut, path, token, input, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateSellerProfile(ctx context.Context, input SellerProfilePayload, token string) (*SellerProfileResponse, error) {
	out := &SellerProfileResponse{}
	if err := c.do(ctx, http.MethodPost, "/users/sellers", token, input, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetSellerProfile(ctx context.Context, userID int64, token string) (*SellerProfileResponse, error) {
	out := &SellerProfileResponse{}
	path := fmt.Sprintf("/users/sellers/%d", userID)
	if err := c.do(ctx, http.MethodGet, path, token, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateSellerProfile(ctx context.Context, userID int64, input SellerProfilePayload, token string) (*SellerProfileResponse, error) {
	out := &SellerProfileResponse{}
	path := fmt.Sprintf("/users/sellers/%d", userID)
	if err := c.do(ctx, http.MethodPut, path, token, input, out); err != nil {
		return nil, err
	}
	return out, nil
}
