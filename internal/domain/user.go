package domain

import "encoding/json"

// User is the account object returned by the backend. Fields the storefront
// does not read are kept in Extra so the object round-trips unchanged.
type User struct {
	ID      int            `json:"id,omitempty"`
	Email   string         `json:"email,omitempty"`
	Name    string         `json:"name,omitempty"`
	Phone   string         `json:"phone,omitempty"`
	Address string         `json:"address,omitempty"`
	Role    string         `json:"role,omitempty"`
	IsAdmin bool           `json:"is_admin,omitempty"`
	Extra   map[string]any `json:"-"`
}

type userFields User

var userKeys = []string{"id", "email", "name", "phone", "address", "role", "is_admin"}

func (u *User) UnmarshalJSON(data []byte) error {
	var fields userFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range userKeys {
		delete(raw, k)
	}
	*u = User(fields)
	if len(raw) > 0 {
		u.Extra = raw
	}
	return nil
}

func (u User) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(userFields(u))
	if err != nil || len(u.Extra) == 0 {
		return base, err
	}
	merged := make(map[string]any, len(u.Extra)+len(userKeys))
	for k, v := range u.Extra {
		merged[k] = v
	}
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	return json.Marshal(merged)
}

// Addresses is the account's billing and shipping data.
type Addresses struct {
	BillingAddress  map[string]any `json:"billing_address"`
	ShippingAddress map[string]any `json:"shipping_address"`
	DNI             string         `json:"dni,omitempty"`
}

type OrderItem struct {
	ID          int     `json:"id,omitempty"`
	OrderID     int     `json:"order_id,omitempty"`
	ProductID   int     `json:"product_id"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	ProductName string  `json:"product_name,omitempty"`
	Subtotal    float64 `json:"subtotal,omitempty"`
}

type Order struct {
	ID              int         `json:"id,omitempty"`
	UserID          int         `json:"user_id,omitempty"`
	TotalAmount     float64     `json:"total_amount"`
	Status          string      `json:"status,omitempty"`
	ShippingAddress string      `json:"shipping_address,omitempty"`
	PaymentMethod   string      `json:"payment_method,omitempty"`
	CreatedAt       string      `json:"created_at,omitempty"`
	UpdatedAt       string      `json:"updated_at,omitempty"`
	Items           []OrderItem `json:"order_items,omitempty"`
}
