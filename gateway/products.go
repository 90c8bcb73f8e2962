package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// GetProducts lists the catalog page by page.
func (c *Client) GetProducts(ctx context.Context, page, pageSize int, token string) (*GetProductsOutput, error) {
	out := &GetProductsOutput{}
	params := url.Values{
		"page":      []string{strconv.Itoa(page)},
		"page_size": []string{strconv.Itoa(pageSize)},
	}
	if err := c.do(ctx, http.MethodGet, "/products?"+params.Encode(), token, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProductByID(ctx context.Context, id int64, token string) (*GetProductByIDOutput, error) {
	out := &GetProductByIDOutput{}
	path := fmt.Sprintf("/products/%d", id)
	if err := c.do(ctx, http.MethodGet, path, token, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProductsBySeller(ctx context.Context, sellerID int64, token string) (*GetProductsOutput, error) {
	out := &GetProductsOutput{}
	path := fmt.Sprintf("/products/seller/%d", sellerID)
	if err := c.do(ctx, http.MethodGet, path, token, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateProduct(ctx context.Context, input CreateProductInput, token string) (*CreateProductOutput, error) {
	out := &CreateProductOutput{}
	if err := c.do(ctx, http.MethodPost, "/products", token, input, out); err != nil {
		return nil, err
	}
	return out, nil
}
