// Package marketplace ties the gateway client, session manager, and cart
// aggregate into one customer-facing client. It is the programmatic
// equivalent of the storefront: authenticated calls resolve a valid access
// token first and fail with a session-expired error when none can be had.
package marketplace

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/minimarket/go-marketplace-client/cart"
	"github.com/minimarket/go-marketplace-client/gateway"
	"github.com/minimarket/go-marketplace-client/internal/config"
	apperrors "github.com/minimarket/go-marketplace-client/internal/errors"
	"github.com/minimarket/go-marketplace-client/session"
	"github.com/minimarket/go-marketplace-client/storage"
)

// Client is the assembled marketplace client.
type Client struct {
	gateway *gateway.Client
	session *session.Manager
	cart    *cart.Cart
	logger  zerolog.Logger
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithLogger sets the logger propagated to all components.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New assembles a client from configuration: a file-backed store under the
// data folder, a gateway client against the configured base URL, and session
// and cart state reloaded from the store.
func New(cfg config.Config, options ...Option) (*Client, error) {
	c := &Client{logger: zerolog.Nop()}
	for _, opt := range options {
		opt(c)
	}

	store, err := storage.NewFileStore(cfg.GetDataFolder())
	if err != nil {
		return nil, errors.Wrap(err, "[marketplace.New] storage.NewFileStore")
	}

	c.gateway = gateway.New(cfg.GetBaseURL(),
		gateway.WithLogger(c.logger),
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.GetRequestTimeout()}),
	)

	c.session, err = session.NewManager(c.gateway, store, session.WithLogger(c.logger))
	if err != nil {
		return nil, errors.Wrap(err, "[marketplace.New] session.NewManager")
	}

	c.cart = cart.New(store, cart.WithLogger(c.logger))
	return c, nil
}

// NewWithComponents assembles a client from explicit components (primarily
// for testing with fakes).
func NewWithComponents(gw *gateway.Client, sess *session.Manager, crt *cart.Cart, options ...Option) (*Client, error) {
	if gw == nil {
		return nil, errors.New("[NewWithComponents] gateway client is required")
	}
	if sess == nil {
		return nil, errors.New("[NewWithComponents] session manager is required")
	}
	if crt == nil {
		return nil, errors.New("[NewWithComponents] cart is required")
	}

	c := &Client{
		gateway: gw,
		session: sess,
		cart:    crt,
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Session exposes the session manager.
func (c *Client) Session() *session.Manager {
	return c.session
}

// Cart exposes the cart aggregate.
func (c *Client) Cart() *cart.Cart {
	return c.cart
}

// Gateway exposes the raw gateway client.
func (c *Client) Gateway() *gateway.Client {
	return c.gateway
}

// Login authenticates and populates the session.
func (c *Client) Login(ctx context.Context, input gateway.LoginInput) (*gateway.LoginOutput, error) {
	return c.session.Login(ctx, input)
}

// Register creates an account without mutating the session.
func (c *Client) Register(ctx context.Context, input gateway.RegisterInput) (*gateway.RegisterOutput, error) {
	return c.session.Register(ctx, input)
}

// Logout clears the session and empties the cart.
func (c *Client) Logout() {
	c.session.Logout()
	c.cart.Clear()
}

// Close releases the session manager's scheduled refresh.
func (c *Client) Close() {
	c.session.Close()
}

// ChangePassword updates the account password using the current session.
func (c *Client) ChangePassword(ctx context.Context, input gateway.ChangePasswordInput) (*gateway.ChangePasswordOutput, error) {
	token, err := c.validToken(ctx)
	if err != nil {
		return nil, err
	}
	return c.gateway.ChangePassword(ctx, input, token)
}

// Products lists the catalog. Browsing works logged out; a token is attached
// when one is available.
func (c *Client) Products(ctx context.Context, page, pageSize int) (*gateway.GetProductsOutput, error) {
	return c.gateway.GetProducts(ctx, page, pageSize, c.session.GetValidAccessToken(ctx))
}

// ProductByID fetches a single product.
func (c *Client) ProductByID(ctx context.Context, id int64) (*gateway.GetProductByIDOutput, error) {
	return c.gateway.GetProductByID(ctx, id, c.session.GetValidAccessToken(ctx))
}

// MyProducts lists the products of the logged-in seller.
func (c *Client) MyProducts(ctx context.Context) (*gateway.GetProductsOutput, error) {
	token, err := c.validToken(ctx)
	if err != nil {
		return nil, err
	}
	userID := c.session.State().UserID
	if userID == nil {
		return nil, apperrors.ErrNoSession
	}
	return c.gateway.GetProductsBySeller(ctx, *userID, token)
}

// CreateProduct creates a product for the logged-in seller.
func (c *Client) CreateProduct(ctx context.Context, input gateway.CreateProductInput) (*gateway.CreateProductOutput, error) {
	token, err := c.validToken(ctx)
	if err != nil {
		return nil, err
	}
	return c.gateway.CreateProduct(ctx, input, token)
}

// Checkout submits the cart as a pending order for the logged-in buyer and
// clears the cart only when the gateway accepts it. Every entry must carry a
// numeric product id; carts holding id-less product snapshots cannot be
// checked out until reloaded from the catalog.
func (c *Client) Checkout(ctx context.Context) (*gateway.CreateOrderOutput, error) {
	entries := c.cart.Entries()
	if len(entries) == 0 {
		return nil, apperrors.ErrEmptyCart
	}

	token, err := c.validToken(ctx)
	if err != nil {
		return nil, err
	}
	buyerID := c.session.State().UserID
	if buyerID == nil {
		return nil, apperrors.ErrNoSession
	}

	orderItems := make([]gateway.OrderItem, 0, len(entries))
	totalPrice := 0.0
	for _, entry := range entries {
		if entry.Product.ID == nil {
			return nil, apperrors.ErrProductMissingID
		}
		orderItems = append(orderItems, gateway.OrderItem{
			ProductID: *entry.Product.ID,
			Name:      entry.Product.Name,
			Price:     entry.Product.Price,
			Quantity:  entry.Quantity,
		})
		totalPrice += entry.Product.Price * float64(entry.Quantity)
	}

	out, err := c.gateway.CreateOrder(ctx, gateway.CreateOrderInput{
		Order: gateway.Order{
			BuyerID:    *buyerID,
			Status:     gateway.OrderStatusPending,
			TotalPrice: totalPrice,
			OrderItems: orderItems,
		},
	}, token)
	if err != nil {
		return nil, err
	}

	c.cart.Clear()
	return out, nil
}

// Orders lists the logged-in buyer's orders in the given status.
func (c *Client) Orders(ctx context.Context, status gateway.OrderStatus) (*gateway.GetOrdersByBuyerStatusOutput, error) {
	token, err := c.validToken(ctx)
	if err != nil {
		return nil, err
	}
	buyerID := c.session.State().UserID
	if buyerID == nil {
		return nil, apperrors.ErrNoSession
	}
	return c.gateway.GetOrdersByBuyerStatus(ctx, *buyerID, status, token)
}

// BuyerProfile fetches the logged-in buyer's profile.
func (c *Client) BuyerProfile(ctx context.Context) (*gateway.BuyerProfileResponse, error) {
	token, err := c.validToken(ctx)
	if err != nil {
		return nil, err
	}
	userID := c.session.State().UserID
	if userID == nil {
		return nil, apperrors.ErrNoSession
	}
	return c.gateway.GetBuyerProfile(ctx, *userID, token)
}

// SaveBuyerProfile creates or updates the logged-in buyer's profile. create
// selects POST over PUT, mirroring whether a profile already exists.
func (c *Client) SaveBuyerProfile(ctx context.Context, profile gateway.BuyerProfile, create bool) (*gateway.BuyerProfileResponse, error) {
	token, err := c.validToken(ctx)
	if err != nil {
		return nil, err
	}
	userID := c.session.State().UserID
	if userID == nil {
		return nil, apperrors.ErrNoSession
	}

	profile.UserID = *userID
	payload := gateway.BuyerProfilePayload{Buyer: profile}
	if create {
		return c.gateway.CreateBuyerProfile(ctx, payload, token)
	}
	return c.gateway.UpdateBuyerProfile(ctx, *userID, payload, token)
}

// SellerProfile fetches the logged-in seller's profile.
func (c *Client) SellerProfile(ctx context.Context) (*gateway.SellerProfileResponse, error) {
	token, err := c.validToken(ctx)
	if err != nil {
		return nil, err
	}
	userID := c.session.State().UserID
	if userID == nil {
		return nil, apperrors.ErrNoSession
	}
	return c.gateway.GetSellerProfile(ctx, *userID, token)
}

// SaveSellerProfile creates or updates the logged-in seller's profile.
func (c *Client) SaveSellerProfile(ctx context.Context, profile gateway.SellerProfile, create bool) (*gateway.SellerProfileResponse, error) {
	token, err := c.validToken(ctx)
	if err != nil {
		return nil, err
	}
	userID := c.session.State().UserID
	if userID == nil {
		return nil, apperrors.ErrNoSession
	}

	payload := gateway.SellerProfilePayload{Seller: profile, UserID: *userID}
	if create {
		return c.gateway.CreateSellerProfile(ctx, payload, token)
	}
	return c.gateway.UpdateSellerProfile(ctx, *userID, payload, token)
}

// validToken resolves a currently-valid access token or reports the session
// as expired. The session manager has already logged out by the time this
// returns an error.
func (c *Client) validToken(ctx context.Context) (string, error) {
	token := c.session.GetValidAccessToken(ctx)
	if token == "" {
		return "", apperrors.ErrSessionExpired
	}
	return token, nil
}
