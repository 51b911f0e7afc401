// Package checkout turns a session cart into a payment preference and
// finishes the purchase when the provider redirects back.
package checkout

import (
	"context"
	"fmt"
	"math"
	"net/mail"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/backend"
	"storefront/internal/domain"
	"storefront/internal/store"
)

// StatusApproved is the payment status that completes a purchase.
const StatusApproved = "approved"

type preferenceClient interface {
	CreatePreference(ctx context.Context, token string, in backend.PreferenceRequest) (*backend.Preference, error)
	AutoLogin(ctx context.Context, paymentID string) (string, error)
}

type accountService interface {
	Token(ctx context.Context, sess *store.Session) (string, error)
	SetToken(ctx context.Context, sess *store.Session, token string) (*domain.User, error)
}

type Service struct {
	backend   preferenceClient
	accounts  accountService
	publicKey string
	logger    *zap.Logger
}

func New(backend preferenceClient, accounts accountService, publicKey string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, accounts: accounts, publicKey: publicKey, logger: logger}
}

// Form is the buyer data collected before paying.
type Form struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	ZipCode   string `json:"zipCode"`
}

func (f Form) trimmed() Form {
	return Form{
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Email:     strings.TrimSpace(f.Email),
		Phone:     strings.TrimSpace(f.Phone),
		Address:   strings.TrimSpace(f.Address),
		City:      strings.TrimSpace(f.City),
		ZipCode:   strings.TrimSpace(f.ZipCode),
	}
}

// Validate reports every missing or malformed field.
func (f Form) Validate() error {
	f = f.trimmed()
	var verr domain.ValidationError
	required := []struct{ field, value string }{
		{"firstName", f.FirstName},
		{"lastName", f.LastName},
		{"email", f.Email},
		{"phone", f.Phone},
		{"address", f.Address},
		{"city", f.City},
		{"zipCode", f.ZipCode},
	}
	for _, r := range required {
		if r.value == "" {
			verr.Add(r.field, "required")
		}
	}
	if f.Email != "" {
		if _, err := mail.ParseAddress(f.Email); err != nil {
			verr.Add("email", "invalid email")
		}
	}
	return verr.Err()
}

// Prefill builds a form from the logged-in user's profile.
func Prefill(u *domain.User) Form {
	if u == nil {
		return Form{}
	}
	first, last, _ := strings.Cut(strings.TrimSpace(u.Name), " ")
	return Form{
		FirstName: first,
		LastName:  strings.TrimSpace(last),
		Email:     u.Email,
		Phone:     u.Phone,
		Address:   u.Address,
	}
}

type Totals struct {
	Subtotal  float64 `json:"subtotal"`
	Shipping  float64 `json:"shipping"`
	Total     float64 `json:"total"`
	ItemCount int     `json:"itemCount"`
}

// Summarize prices the cart. Shipping is always free.
func Summarize(c domain.Cart) Totals {
	sub := c.Subtotal()
	return Totals{Subtotal: sub, Total: sub, ItemCount: c.ItemCount()}
}

// Items maps cart lines to provider items. Every line must have a positive
// finite price.
func Items(c domain.Cart) ([]backend.PreferenceItem, error) {
	items := make([]backend.PreferenceItem, 0, len(c))
	for _, line := range c {
		if line.Price <= 0 || math.IsInf(line.Price, 0) || math.IsNaN(line.Price) {
			return nil, fmt.Errorf("%w: line %d has no valid price", ErrInvalidPrice, line.ProductID)
		}
		title := line.Name
		if line.Variant != "" {
			title += " - " + line.Variant
		}
		items = append(items, backend.PreferenceItem{
			ID:        strconv.Itoa(line.ProductID),
			Title:     title,
			Quantity:  max(1, line.Quantity),
			UnitPrice: line.Price,
		})
	}
	return items, nil
}

// Checkout is what the client needs to open the payment widget.
type Checkout struct {
	PreferenceID     string `json:"preferenceId"`
	InitPoint        string `json:"initPoint"`
	SandboxInitPoint string `json:"sandboxInitPoint,omitempty"`
	PublicKey        string `json:"publicKey"`
	Totals           Totals `json:"totals"`
}

// CreatePreference validates form and registers the cart with the payment
// provider. Guests check out without a token.
func (s *Service) CreatePreference(ctx context.Context, sess *store.Session, form Form) (*Checkout, error) {
	cart := sess.Store.Cart()
	if len(cart) == 0 {
		return nil, domain.ErrEmptyCart
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}
	form = form.trimmed()
	items, err := Items(cart)
	if err != nil {
		return nil, err
	}

	token, _ := s.accounts.Token(ctx, sess)
	pref, err := s.backend.CreatePreference(ctx, token, backend.PreferenceRequest{
		Items: items,
		Payer: backend.Payer{
			Email:   form.Email,
			Name:    form.FirstName,
			Surname: form.LastName,
		},
		FormEmail: form.Email,
	})
	if err != nil {
		s.logger.Warn("checkout: create preference failed", zap.String("session", sess.ID), zap.Error(err))
		return nil, err
	}
	s.logger.Info("checkout: preference created",
		zap.String("session", sess.ID),
		zap.String("preference", pref.ID),
		zap.Int("items", len(items)),
	)
	return &Checkout{
		PreferenceID:     pref.ID,
		InitPoint:        pref.InitPoint,
		SandboxInitPoint: pref.SandboxInitPoint,
		PublicKey:        s.publicKey,
		Totals:           Summarize(cart),
	}, nil
}

// Result describes the outcome of the provider redirect.
type Result struct {
	Status   string       `json:"status"`
	Approved bool         `json:"approved"`
	User     *domain.User `json:"user,omitempty"`
}

// Confirm handles the return from the payment provider. An approved payment
// empties the cart and logs the buyer in with the token the backend issues
// for that payment. A failed auto-login leaves the purchase confirmed.
func (s *Service) Confirm(ctx context.Context, sess *store.Session, paymentID, status string) (*Result, error) {
	res := &Result{Status: status}
	if status != StatusApproved {
		return res, nil
	}
	res.Approved = true
	sess.Store.ClearCart()
	if paymentID == "" {
		return res, nil
	}

	token, err := s.backend.AutoLogin(ctx, paymentID)
	if err != nil || token == "" {
		s.logger.Warn("checkout: auto-login failed",
			zap.String("session", sess.ID),
			zap.String("payment", paymentID),
			zap.Error(err),
		)
		return res, nil
	}
	user, err := s.accounts.SetToken(ctx, sess, token)
	if err != nil {
		s.logger.Warn("checkout: hydrate after auto-login failed", zap.String("session", sess.ID), zap.Error(err))
		return res, nil
	}
	res.User = user
	return res, nil
}

// PublicKey is the payment provider key the client widget needs.
func (s *Service) PublicKey() string {
	return s.publicKey
}
