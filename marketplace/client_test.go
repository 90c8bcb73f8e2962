package marketplace_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/minimarket/go-marketplace-client/cart"
	"github.com/minimarket/go-marketplace-client/gateway"
	"github.com/minimarket/go-marketplace-client/internal/config"
	apperrors "github.com/minimarket/go-marketplace-client/internal/errors"
	"github.com/minimarket/go-marketplace-client/internal/utils"
	"github.com/minimarket/go-marketplace-client/marketplace"
	"github.com/minimarket/go-marketplace-client/session"
	"github.com/minimarket/go-marketplace-client/storage/storefakes"
)

// fakeGateway is an httptest server standing in for the API gateway.
type fakeGateway struct {
	server *httptest.Server

	lock         sync.Mutex
	lastOrder    *gateway.CreateOrderInput
	orderError   string
	lastPassword *gateway.ChangePasswordInput
	lastProduct  *gateway.CreateProductInput
	buyers       map[int64]gateway.BuyerProfile
	sellers      map[int64]gateway.SellerProfile
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	fg := &fakeGateway{
		buyers:  map[int64]gateway.BuyerProfile{},
		sellers: map[int64]gateway.SellerProfile{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var input gateway.LoginInput
		_ = json.NewDecoder(r.Body).Decode(&input)

		accessToken, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
			"userId":   7,
			"username": input.Username,
			"role":     string(input.Role),
			"exp":      time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte("key"))
		require.NoError(t, err)

		refreshToken, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
			"type": "refresh",
			"exp":  time.Now().Add(24 * time.Hour).Unix(),
		}).SignedString([]byte("key"))
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(gateway.LoginOutput{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			Success:      true,
		})
	})
	mux.HandleFunc("POST /orders", func(w http.ResponseWriter, r *http.Request) {
		fg.lock.Lock()
		defer fg.lock.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if fg.orderError != "" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": fg.orderError})
			return
		}

		var input gateway.CreateOrderInput
		_ = json.NewDecoder(r.Body).Decode(&input)
		fg.lastOrder = &input
		_ = json.NewEncoder(w).Encode(gateway.CreateOrderOutput{Success: true, Message: "order created"})
	})
	mux.HandleFunc("POST /auth/change-password", func(w http.ResponseWriter, r *http.Request) {
		var input gateway.ChangePasswordInput
		_ = json.NewDecoder(r.Body).Decode(&input)
		fg.lock.Lock()
		fg.lastPassword = &input
		fg.lock.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(gateway.ChangePasswordOutput{Success: true, Message: "password updated"})
	})
	mux.HandleFunc("GET /products/seller/{id}", func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(gateway.GetProductsOutput{
			Success: true,
			Products: []gateway.Product{
				{ID: utils.Ptr[int64](31), Name: "keyboard", Price: 100, Inventory: 5, SellerID: sellerID},
			},
		})
	})
	mux.HandleFunc("POST /products", func(w http.ResponseWriter, r *http.Request) {
		var input gateway.CreateProductInput
		_ = json.NewDecoder(r.Body).Decode(&input)
		fg.lock.Lock()
		fg.lastProduct = &input
		fg.lock.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(gateway.CreateProductOutput{Success: true, Message: "product created"})
	})
	mux.HandleFunc("POST /users/buyers", func(w http.ResponseWriter, r *http.Request) {
		var payload gateway.BuyerProfilePayload
		_ = json.NewDecoder(r.Body).Decode(&payload)
		fg.lock.Lock()
		fg.buyers[payload.Buyer.UserID] = payload.Buyer
		fg.lock.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(gateway.BuyerProfileResponse{Success: true, Buyer: &payload.Buyer})
	})
	mux.HandleFunc("GET /users/buyers/{id}", func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		fg.lock.Lock()
		buyer, ok := fg.buyers[userID]
		fg.lock.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "buyer not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(gateway.BuyerProfileResponse{Success: true, Buyer: &buyer})
	})
	mux.HandleFunc("PUT /users/buyers/{id}", func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		require.NoError(t, err)

		var payload gateway.BuyerProfilePayload
		_ = json.NewDecoder(r.Body).Decode(&payload)
		fg.lock.Lock()
		fg.buyers[userID] = payload.Buyer
		fg.lock.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(gateway.BuyerProfileResponse{Success: true, Buyer: &payload.Buyer})
	})
	mux.HandleFunc("POST /users/sellers", func(w http.ResponseWriter, r *http.Request) {
		var payload gateway.SellerProfilePayload
		_ = json.NewDecoder(r.Body).Decode(&payload)
		fg.lock.Lock()
		fg.sellers[payload.UserID] = payload.Seller
		fg.lock.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(gateway.SellerProfileResponse{Success: true, Seller: &payload.Seller})
	})
	mux.HandleFunc("GET /users/sellers/{id}", func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		fg.lock.Lock()
		seller, ok := fg.sellers[userID]
		fg.lock.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "seller not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(gateway.SellerProfileResponse{Success: true, Seller: &seller})
	})
	mux.HandleFunc("PUT /users/sellers/{id}", func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		require.NoError(t, err)

		var payload gateway.SellerProfilePayload
		_ = json.NewDecoder(r.Body).Decode(&payload)
		fg.lock.Lock()
		fg.sellers[userID] = payload.Seller
		fg.lock.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(gateway.SellerProfileResponse{Success: true, Seller: &payload.Seller})
	})

	fg.server = httptest.NewServer(mux)
	t.Cleanup(fg.server.Close)
	return fg
}

func (fg *fakeGateway) order() *gateway.CreateOrderInput {
	fg.lock.Lock()
	defer fg.lock.Unlock()
	return fg.lastOrder
}

func (fg *fakeGateway) failOrders(message string) {
	fg.lock.Lock()
	defer fg.lock.Unlock()
	fg.orderError = message
}

func (fg *fakeGateway) passwordChange() *gateway.ChangePasswordInput {
	fg.lock.Lock()
	defer fg.lock.Unlock()
	return fg.lastPassword
}

func (fg *fakeGateway) createdProduct() *gateway.CreateProductInput {
	fg.lock.Lock()
	defer fg.lock.Unlock()
	return fg.lastProduct
}

func setupClient(t *testing.T) (*marketplace.Client, *fakeGateway) {
	t.Helper()

	fg := newFakeGateway(t)
	store := storefakes.NewFakeStore()
	gw := gateway.New(fg.server.URL)

	sess, err := session.NewManager(gw, store)
	require.NoError(t, err)
	t.Cleanup(sess.Close)

	client, err := marketplace.NewWithComponents(gw, sess, cart.New(store))
	require.NoError(t, err)
	return client, fg
}

func login(t *testing.T, client *marketplace.Client) {
	t.Helper()
	loginAs(t, client, "alice", gateway.RoleBuyer)
}

func loginAs(t *testing.T, client *marketplace.Client, username string, role gateway.Role) {
	t.Helper()
	_, err := client.Login(context.Background(), gateway.LoginInput{
		Username: username,
		Password: "pw",
		Role:     role,
	})
	require.NoError(t, err)
}

func TestClient_Checkout(t *testing.T) {
	t.Run("submits a pending order from the cart and clears it", func(t *testing.T) {
		client, fg := setupClient(t)
		login(t, client)

		client.Cart().AddItem(gateway.Product{ID: utils.Ptr[int64](1), Name: "keyboard", Price: 10000}, 2)
		client.Cart().AddItem(gateway.Product{ID: utils.Ptr[int64](2), Name: "mouse", Price: 5000}, 1)

		out, err := client.Checkout(context.Background())
		require.NoError(t, err)
		require.True(t, out.Success)

		order := fg.order()
		require.NotNil(t, order)
		require.Equal(t, int64(7), order.Order.BuyerID)
		require.Equal(t, gateway.OrderStatusPending, order.Order.Status)
		require.Equal(t, 25000.0, order.Order.TotalPrice)
		require.Len(t, order.Order.OrderItems, 2)
		require.Equal(t, int64(1), order.Order.OrderItems[0].ProductID)
		require.Equal(t, 2, order.Order.OrderItems[0].Quantity)

		require.Empty(t, client.Cart().Entries(), "cart must be cleared after a successful checkout")
	})

	t.Run("empty cart", func(t *testing.T) {
		client, _ := setupClient(t)
		login(t, client)

		_, err := client.Checkout(context.Background())
		require.ErrorIs(t, err, apperrors.ErrEmptyCart)
	})

	t.Run("requires a session", func(t *testing.T) {
		client, _ := setupClient(t)
		client.Cart().AddItem(gateway.Product{ID: utils.Ptr[int64](1), Name: "keyboard", Price: 100}, 1)

		_, err := client.Checkout(context.Background())
		require.ErrorIs(t, err, apperrors.ErrSessionExpired)
		require.NotEmpty(t, client.Cart().Entries(), "cart must survive a failed checkout")
	})

	t.Run("entries without a product id cannot be checked out", func(t *testing.T) {
		client, _ := setupClient(t)
		login(t, client)

		client.Cart().AddItem(gateway.Product{Name: "mystery box", Price: 100}, 1)

		_, err := client.Checkout(context.Background())
		require.ErrorIs(t, err, apperrors.ErrProductMissingID)
	})

	t.Run("gateway rejection keeps the cart intact", func(t *testing.T) {
		client, fg := setupClient(t)
		login(t, client)
		fg.failOrders("insufficient inventory")

		client.Cart().AddItem(gateway.Product{ID: utils.Ptr[int64](1), Name: "keyboard", Price: 100}, 1)

		_, err := client.Checkout(context.Background())
		require.Error(t, err)
		require.Equal(t, "insufficient inventory", err.Error())
		require.Len(t, client.Cart().Entries(), 1)
	})
}

func TestClient_ChangePassword(t *testing.T) {
	t.Run("forwards the session identity with both passwords", func(t *testing.T) {
		client, fg := setupClient(t)
		login(t, client)

		out, err := client.ChangePassword(context.Background(), gateway.ChangePasswordInput{
			OldPassword: "pw",
			NewPassword: "better-pw",
			Username:    "alice",
			Role:        gateway.RoleBuyer,
		})
		require.NoError(t, err)
		require.True(t, out.Success)

		change := fg.passwordChange()
		require.NotNil(t, change)
		require.Equal(t, "alice", change.Username)
		require.Equal(t, gateway.RoleBuyer, change.Role)
		require.Equal(t, "pw", change.OldPassword)
		require.Equal(t, "better-pw", change.NewPassword)
	})

	t.Run("requires a session", func(t *testing.T) {
		client, _ := setupClient(t)

		_, err := client.ChangePassword(context.Background(), gateway.ChangePasswordInput{})
		require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	})
}

func TestClient_SellerProducts(t *testing.T) {
	t.Run("lists the logged-in seller's products", func(t *testing.T) {
		client, _ := setupClient(t)
		loginAs(t, client, "bob", gateway.RoleSellerAdmin)

		out, err := client.MyProducts(context.Background())
		require.NoError(t, err)
		require.Len(t, out.Products, 1)
		require.Equal(t, int64(7), out.Products[0].SellerID, "listing must use the session's user id")
	})

	t.Run("creates a product", func(t *testing.T) {
		client, fg := setupClient(t)
		loginAs(t, client, "bob", gateway.RoleSellerAdmin)

		out, err := client.CreateProduct(context.Background(), gateway.CreateProductInput{
			Name:      "keyboard",
			Price:     100,
			Inventory: 5,
			SellerID:  7,
		})
		require.NoError(t, err)
		require.True(t, out.Success)

		created := fg.createdProduct()
		require.NotNil(t, created)
		require.Equal(t, "keyboard", created.Name)
		require.Equal(t, int64(7), created.SellerID)
	})

	t.Run("requires a session", func(t *testing.T) {
		client, _ := setupClient(t)

		_, err := client.MyProducts(context.Background())
		require.ErrorIs(t, err, apperrors.ErrSessionExpired)

		_, err = client.CreateProduct(context.Background(), gateway.CreateProductInput{Name: "keyboard"})
		require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	})
}

func TestClient_Profiles(t *testing.T) {
	t.Run("buyer profile round trip", func(t *testing.T) {
		client, _ := setupClient(t)
		login(t, client)

		_, err := client.BuyerProfile(context.Background())
		require.Error(t, err)
		require.Equal(t, "buyer not found", err.Error())

		saved, err := client.SaveBuyerProfile(context.Background(), gateway.BuyerProfile{
			Name:  "Alice",
			Phone: "555",
		}, true)
		require.NoError(t, err)
		require.NotNil(t, saved.Buyer)
		require.Equal(t, int64(7), saved.Buyer.UserID, "user id must come from the session, not the caller")

		out, err := client.BuyerProfile(context.Background())
		require.NoError(t, err)
		require.Equal(t, "Alice", out.Buyer.Name)

		_, err = client.SaveBuyerProfile(context.Background(), gateway.BuyerProfile{
			Name:  "Alice",
			Phone: "777",
		}, false)
		require.NoError(t, err)

		out, err = client.BuyerProfile(context.Background())
		require.NoError(t, err)
		require.Equal(t, "777", out.Buyer.Phone)
	})

	t.Run("seller profile round trip", func(t *testing.T) {
		client, _ := setupClient(t)
		loginAs(t, client, "bob", gateway.RoleSellerAdmin)

		_, err := client.SellerProfile(context.Background())
		require.Error(t, err)
		require.Equal(t, "seller not found", err.Error())

		_, err = client.SaveSellerProfile(context.Background(), gateway.SellerProfile{
			Name:    "Bob's Store",
			TaxCode: "TC-1",
		}, true)
		require.NoError(t, err)

		out, err := client.SellerProfile(context.Background())
		require.NoError(t, err)
		require.Equal(t, "Bob's Store", out.Seller.Name)

		_, err = client.SaveSellerProfile(context.Background(), gateway.SellerProfile{
			Name:    "Bob's Bigger Store",
			TaxCode: "TC-1",
		}, false)
		require.NoError(t, err)

		out, err = client.SellerProfile(context.Background())
		require.NoError(t, err)
		require.Equal(t, "Bob's Bigger Store", out.Seller.Name)
	})

	t.Run("requires a session", func(t *testing.T) {
		client, _ := setupClient(t)

		_, err := client.BuyerProfile(context.Background())
		require.ErrorIs(t, err, apperrors.ErrSessionExpired)

		_, err = client.SaveSellerProfile(context.Background(), gateway.SellerProfile{}, true)
		require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	})
}

// testConfig satisfies config.Config without touching the environment.
type testConfig struct {
	baseURL string
	folder  string
	timeout time.Duration
}

var _ config.Config = testConfig{}

func (c testConfig) GetAppName() string               { return "test" }
func (c testConfig) GetBaseURL() string               { return c.baseURL }
func (c testConfig) GetDataFolder() string            { return c.folder }
func (c testConfig) GetEnv() string                   { return "TEST" }
func (c testConfig) GetRequestTimeout() time.Duration { return c.timeout }

func TestNew_HonorsConfiguredRequestTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer slow.Close()

	client, err := marketplace.New(testConfig{
		baseURL: slow.URL,
		folder:  t.TempDir(),
		timeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	_, err = client.Products(context.Background(), 1, 20)
	require.Error(t, err, "a response slower than the configured timeout must fail")
}

func TestClient_Logout(t *testing.T) {
	client, _ := setupClient(t)
	login(t, client)
	client.Cart().AddItem(gateway.Product{ID: utils.Ptr[int64](1), Name: "keyboard", Price: 100}, 1)

	client.Logout()

	require.False(t, client.Session().State().LoggedIn())
	require.Empty(t, client.Cart().Entries())
}
