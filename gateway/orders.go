package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// CreateOrder submits an order built from the cart contents.
func (c *Client) CreateOrder(ctx context.Context, input CreateOrderInput, token string) (*CreateOrderOutput, error) {
	out := &CreateOrderOutput{}
	if err := c.do(ctx, http.MethodPost, "/orders", token, input, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOrdersByBuyerStatus lists a buyer's orders in the given status.
func (c *Client) GetOrdersByBuyerStatus(ctx context.Context, buyerID int64, status OrderStatus, token string) (*GetOrdersByBuyerStatusOutput, error) {
	out := &GetOrdersByBuyerStatusOutput{}
	params := url.Values{
		"buyer_id": []string{strconv.FormatInt(buyerID, 10)},
		"status":   []string{string(status)},
	}
	if err := c.do(ctx, http.MethodGet, "/orders?"+params.Encode(), token, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}
