package gateway

import (
	"bytes"
	"math"
	"strconv"
)

// Role is the marketplace account role carried in token claims and
// login/register payloads.
type Role string

const (
	RoleBuyer          Role = "buyer"
	RoleSellerAdmin    Role = "seller_admin"
	RoleSellerEmployee Role = "seller_employee"
)

// Valid reports whether the role is one of the closed set the gateway issues.
func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleSellerAdmin, RoleSellerEmployee:
		return true
	}
	return false
}

// OrderStatus is the order lifecycle state as reported by the order service.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "PENDING"
	OrderStatusFailed  OrderStatus = "FAILED"
	OrderStatusSuccess OrderStatus = "SUCCESS"
)

// FlexInt64 is an int64 that tolerates being sent as either a JSON number or
// a quoted string. The gateway's user_id field has been observed in both
// shapes depending on the upstream service. Unparseable values are ignored
// rather than failing the surrounding response.
type FlexInt64 int64

func (f *FlexInt64) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	parsed, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return nil
	}
	*f = FlexInt64(parsed)
	return nil
}

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

type LoginOutput struct {
	AccessToken  string     `json:"access_token,omitempty"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	Message      string     `json:"message,omitempty"`
	Success      bool       `json:"success,omitempty"`
	Role         Role       `json:"role,omitempty"`
	Username     string     `json:"username,omitempty"`
	UserID       *FlexInt64 `json:"user_id,omitempty"`
}

type RegisterInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

type RegisterOutput struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
}

type RefreshTokenInput struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenOutput struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Message      string `json:"message,omitempty"`
	Success      bool   `json:"success,omitempty"`
}

type ChangePasswordInput struct {
	Username    string `json:"username"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
	Role        Role   `json:"role"`
}

type ChangePasswordOutput struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
}

type BuyerProfile struct {
	UserID      int64  `json:"user_id"`
	Name        string `json:"name"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"date_of_birth"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

type BuyerProfilePayload struct {
	Buyer BuyerProfile `json:"buyer"`
}

type BuyerProfileResponse struct {
	Success bool          `json:"success,omitempty"`
	Message string        `json:"message,omitempty"`
	Buyer   *BuyerProfile `json:"buyer,omitempty"`
}

type SellerProfile struct {
	ID          *int64 `json:"id,omitempty"`
	Name        string `json:"name"`
	BankAccount string `json:"bank_account"`
	TaxCode     string `json:"tax_code"`
	Description string `json:"description"`
	DateOfBirth string `json:"date_of_birth"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

type SellerProfilePayload struct {
	Seller SellerProfile `json:"seller"`
	UserID int64         `json:"user_id,omitempty"`
}

type SellerProfileResponse struct {
	Success bool           `json:"success,omitempty"`
	Message string         `json:"message,omitempty"`
	Seller  *SellerProfile `json:"seller,omitempty"`
}

// Product is the catalog product snapshot as the gateway serves it. ID is a
// pointer: products returned by some list endpoints can lack a numeric id,
// and such products cannot be merged or updated in a cart.
type Product struct {
	ID         *int64         `json:"id,omitempty"`
	Name       string         `json:"name"`
	Price      float64        `json:"price"`
	Inventory  int            `json:"inventory"`
	SellerID   int64          `json:"seller_id"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type GetProductsOutput struct {
	Success  bool      `json:"success,omitempty"`
	Message  string    `json:"message,omitempty"`
	Products []Product `json:"products,omitempty"`
}

type GetProductByIDOutput struct {
	Success bool     `json:"success,omitempty"`
	Message string   `json:"message,omitempty"`
	Product *Product `json:"product,omitempty"`
}

type CreateProductInput struct {
	Name       string         `json:"name"`
	Price      float64        `json:"price"`
	Inventory  int            `json:"inventory"`
	SellerID   int64          `json:"seller_id"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type CreateProductOutput struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
}

type OrderItem struct {
	ID        *int64  `json:"id,omitempty"`
	OrderID   *int64  `json:"order_id,omitempty"`
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name,omitempty"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type Order struct {
	ID         *int64      `json:"id,omitempty"`
	BuyerID    int64       `json:"buyer_id"`
	Status     OrderStatus `json:"status,omitempty"`
	TotalPrice float64     `json:"total_price,omitempty"`
	OrderItems []OrderItem `json:"order_items"`
}

type CreateOrderInput struct {
	Order Order `json:"order"`
}

type CreateOrderOutput struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
}

type GetOrdersByBuyerStatusOutput struct {
	Success bool    `json:"success,omitempty"`
	Message string  `json:"message,omitempty"`
	Orders  []Order `json:"orders,omitempty"`
}
