package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"storefront/internal/domain"
)

func (c *Client) Products(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	if err := c.do(ctx, http.MethodGet, "/public/products", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Product(ctx context.Context, id int) (*domain.Product, error) {
	var out domain.Product
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/public/products/%d", id), "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	if err := c.do(ctx, http.MethodGet, "/public/categories", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (c *Client) Signup(ctx context.Context, in SignupRequest) (*domain.User, error) {
	var out struct {
		Message string       `json:"message"`
		User    *domain.User `json:"user_created"`
	}
	if err := c.do(ctx, http.MethodPost, "/user/signup", "", in, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	in := map[string]string{"email": email, "password": password}
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/user/login", "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context, token string) (*domain.User, error) {
	var out domain.User
	if err := c.do(ctx, http.MethodGet, "/user/me", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateMe(ctx context.Context, token string, fields map[string]any) (*domain.User, error) {
	var out domain.User
	if err := c.do(ctx, http.MethodPut, "/user/me", token, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Addresses(ctx context.Context, token string) (*domain.Addresses, error) {
	var out domain.Addresses
	if err := c.do(ctx, http.MethodGet, "/user/address", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddressUpdate replaces one address; Type is "billing" or "shipping".
type AddressUpdate struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func (c *Client) UpdateAddress(ctx context.Context, token string, in AddressUpdate) error {
	return c.do(ctx, http.MethodPut, "/user/address", token, in, nil)
}

func (c *Client) Orders(ctx context.Context, token string) ([]domain.Order, error) {
	var out []domain.Order
	if err := c.do(ctx, http.MethodGet, "/user/orders", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type OrderRequest struct {
	ShippingAddress string `json:"shipping_address"`
	PaymentMethod   string `json:"payment_method"`
}

// CreateOrder accepts both the bare order and the {"order": ...} envelope.
func (c *Client) CreateOrder(ctx context.Context, token string, in OrderRequest) (*domain.Order, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/user/orders", token, in, &raw); err != nil {
		return nil, err
	}
	var envelope struct {
		Order *domain.Order `json:"order"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Order != nil {
		return envelope.Order, nil
	}
	var order domain.Order
	if err := json.Unmarshal(bytes.TrimSpace(raw), &order); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return &order, nil
}

type PreferenceItem struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type Payer struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
}

type PreferenceRequest struct {
	Items     []PreferenceItem `json:"items"`
	Payer     Payer            `json:"payer"`
	FormEmail string           `json:"form_email"`
}

type Preference struct {
	ID               string `json:"preference_id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// CreatePreference registers a checkout with the payment provider. token
// is optional; guests check out without one.
func (c *Client) CreatePreference(ctx context.Context, token string, in PreferenceRequest) (*Preference, error) {
	var out Preference
	if err := c.do(ctx, http.MethodPost, "/api/mercadopago/create-preference", token, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AutoLogin exchanges an approved payment id for a session token.
func (c *Client) AutoLogin(ctx context.Context, paymentID string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	path := "/api/mercadopago/auto-login/" + url.PathEscape(paymentID)
	if err := c.do(ctx, http.MethodPost, path, "", nil, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// MessageResponse is the {"message": ...} body the account email flows return.
type MessageResponse struct {
	Message string `json:"message"`
}

// RegisterEmail starts account creation by mailing a password setup link.
func (c *Client) RegisterEmail(ctx context.Context, email string) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.do(ctx, http.MethodPost, "/user/register-email", "", map[string]string{"email": email}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type SetupPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// SetupPassword completes an emailed registration.
func (c *Client) SetupPassword(ctx context.Context, in SetupPasswordRequest) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.do(ctx, http.MethodPost, "/user/setup-password", "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.do(ctx, http.MethodPost, "/user/forgot-password", "", map[string]string{"email": email}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (c *Client) ResetPassword(ctx context.Context, in ResetPasswordRequest) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.do(ctx, http.MethodPost, "/user/reset-password", "", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
