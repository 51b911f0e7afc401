// Package account covers login, signup, profile, addresses and orders for a
// visitor session. The bearer token lives in the session's "token" slot.
package account

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"storefront/internal/backend"
	"storefront/internal/domain"
	"storefront/internal/store"
)

const TokenKey = "token"

const minPasswordLen = 6

type backendClient interface {
	Signup(ctx context.Context, in backend.SignupRequest) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*backend.LoginResponse, error)
	Me(ctx context.Context, token string) (*domain.User, error)
	UpdateMe(ctx context.Context, token string, fields map[string]any) (*domain.User, error)
	Addresses(ctx context.Context, token string) (*domain.Addresses, error)
	UpdateAddress(ctx context.Context, token string, in backend.AddressUpdate) error
	Orders(ctx context.Context, token string) ([]domain.Order, error)
	CreateOrder(ctx context.Context, token string, in backend.OrderRequest) (*domain.Order, error)
	RegisterEmail(ctx context.Context, email string) (*backend.MessageResponse, error)
	SetupPassword(ctx context.Context, in backend.SetupPasswordRequest) (*backend.MessageResponse, error)
	ForgotPassword(ctx context.Context, email string) (*backend.MessageResponse, error)
	ResetPassword(ctx context.Context, in backend.ResetPasswordRequest) (*backend.MessageResponse, error)
}

type Service struct {
	backend backendClient
	logger  *zap.Logger
	now     func() time.Time
}

func New(backend backendClient, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, logger: logger, now: time.Now}
}

type SignupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (in SignupInput) validate() error {
	var verr domain.ValidationError
	if _, err := mail.ParseAddress(strings.TrimSpace(in.Email)); err != nil {
		verr.Add("email", "a valid email is required")
	}
	if len(in.Password) < minPasswordLen {
		verr.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}
	if strings.TrimSpace(in.Name) == "" {
		verr.Add("name", "required")
	}
	return verr.Err()
}

// Signup registers an account. It does not log the visitor in.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	user, err := s.backend.Signup(ctx, backend.SignupRequest{
		Email:    strings.TrimSpace(in.Email),
		Password: in.Password,
		Name:     strings.TrimSpace(in.Name),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("account: signup", zap.String("email", in.Email))
	return user, nil
}

// Login exchanges credentials for a token, stores it and loads the profile.
// When the profile cannot be fetched the user is just the returned role.
func (s *Service) Login(ctx context.Context, sess *store.Session, email, password string) (*domain.User, error) {
	var verr domain.ValidationError
	if strings.TrimSpace(email) == "" {
		verr.Add("email", "required")
	}
	if password == "" {
		verr.Add("password", "required")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	resp, err := s.backend.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}
	if err := s.storeToken(ctx, sess, resp.AccessToken); err != nil {
		return nil, err
	}
	user, err := s.backend.Me(ctx, resp.AccessToken)
	if err != nil {
		s.logger.Warn("account: profile fetch after login failed", zap.String("session", sess.ID), zap.Error(err))
		user = &domain.User{Email: strings.TrimSpace(email), Role: resp.Role}
	}
	sess.Store.SetUser(user)
	return user, nil
}

// SetToken stores a token obtained elsewhere and hydrates the user from it.
func (s *Service) SetToken(ctx context.Context, sess *store.Session, token string) (*domain.User, error) {
	if err := s.storeToken(ctx, sess, token); err != nil {
		return nil, err
	}
	return s.Hydrate(ctx, sess)
}

func (s *Service) storeToken(ctx context.Context, sess *store.Session, token string) error {
	if token == "" {
		return domain.ErrUnauthorized
	}
	if err := sess.Slots.Set(ctx, TokenKey, []byte(token)); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

// Token returns the session's bearer token, or ErrUnauthorized.
func (s *Service) Token(ctx context.Context, sess *store.Session) (string, error) {
	raw, err := sess.Slots.Get(ctx, TokenKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrUnauthorized
		}
		return "", err
	}
	if len(raw) == 0 {
		return "", domain.ErrUnauthorized
	}
	return string(raw), nil
}

// Expired reports whether token carries an exp claim in the past. The
// signature is not checked; the backend does that on every call.
func Expired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return true
	}
	return exp != nil && !exp.After(now)
}

// Hydrate restores the user from the stored token. A missing, expired or
// rejected token is removed and the user cleared.
func (s *Service) Hydrate(ctx context.Context, sess *store.Session) (*domain.User, error) {
	token, err := s.Token(ctx, sess)
	if err != nil {
		sess.Store.SetUser(nil)
		return nil, err
	}
	if Expired(token, s.now()) {
		s.drop(ctx, sess)
		return nil, domain.ErrUnauthorized
	}
	user, err := s.backend.Me(ctx, token)
	if err != nil {
		s.logger.Info("account: stored token rejected", zap.String("session", sess.ID), zap.Error(err))
		s.drop(ctx, sess)
		if status := backend.StatusOf(err); status == 401 || status == 403 {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	sess.Store.SetUser(user)
	return user, nil
}

// Current returns the session user, hydrating it on first use.
func (s *Service) Current(ctx context.Context, sess *store.Session) (*domain.User, error) {
	if u := sess.Store.User(); u != nil {
		return u, nil
	}
	return s.Hydrate(ctx, sess)
}

func (s *Service) Logout(ctx context.Context, sess *store.Session) {
	s.drop(ctx, sess)
	sess.Store.SetOrders(nil)
}

func (s *Service) drop(ctx context.Context, sess *store.Session) {
	if err := sess.Slots.Delete(ctx, TokenKey); err != nil {
		s.logger.Warn("account: remove token failed", zap.String("session", sess.ID), zap.Error(err))
	}
	sess.Store.SetUser(nil)
}

// authorized returns the token or ErrUnauthorized.
func (s *Service) authorized(ctx context.Context, sess *store.Session) (string, error) {
	token, err := s.Token(ctx, sess)
	if err != nil {
		sess.Store.SetUser(nil)
		return "", err
	}
	return token, nil
}

// rejected logs the session out when the backend refuses the token.
func (s *Service) rejected(ctx context.Context, sess *store.Session, err error) error {
	if backend.StatusOf(err) == 401 {
		s.drop(ctx, sess)
		return fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return err
}

func (s *Service) UpdateProfile(ctx context.Context, sess *store.Session, fields map[string]any) (*domain.User, error) {
	token, err := s.authorized(ctx, sess)
	if err != nil {
		return nil, err
	}
	user, err := s.backend.UpdateMe(ctx, token, fields)
	if err != nil {
		return nil, s.rejected(ctx, sess, err)
	}
	sess.Store.SetUser(user)
	return user, nil
}

func (s *Service) Addresses(ctx context.Context, sess *store.Session) (*domain.Addresses, error) {
	token, err := s.authorized(ctx, sess)
	if err != nil {
		return nil, err
	}
	out, err := s.backend.Addresses(ctx, token)
	if err != nil {
		return nil, s.rejected(ctx, sess, err)
	}
	return out, nil
}

// UpdateAddress replaces the billing or shipping address.
func (s *Service) UpdateAddress(ctx context.Context, sess *store.Session, kind string, payload map[string]any) error {
	if kind != "billing" && kind != "shipping" {
		var verr domain.ValidationError
		verr.Add("type", "must be billing or shipping")
		return verr.Err()
	}
	token, err := s.authorized(ctx, sess)
	if err != nil {
		return err
	}
	if err := s.backend.UpdateAddress(ctx, token, backend.AddressUpdate{Type: kind, Payload: payload}); err != nil {
		return s.rejected(ctx, sess, err)
	}
	return nil
}

// Orders fetches the order history into the store.
func (s *Service) Orders(ctx context.Context, sess *store.Session) ([]domain.Order, error) {
	token, err := s.authorized(ctx, sess)
	if err != nil {
		return nil, err
	}
	orders, err := s.backend.Orders(ctx, token)
	if err != nil {
		return nil, s.rejected(ctx, sess, err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	sess.Store.SetOrders(orders)
	return orders, nil
}

// CreateOrder places an order for the backend-side cart and empties the
// local cart on success.
func (s *Service) CreateOrder(ctx context.Context, sess *store.Session, in backend.OrderRequest) (*domain.Order, error) {
	if sess.Store.Cart().ItemCount() == 0 {
		return nil, domain.ErrEmptyCart
	}
	token, err := s.authorized(ctx, sess)
	if err != nil {
		return nil, err
	}
	order, err := s.backend.CreateOrder(ctx, token, in)
	if err != nil {
		return nil, s.rejected(ctx, sess, err)
	}
	sess.Store.ClearCart()
	orders := append([]domain.Order{*order}, sess.Store.Snapshot().Orders...)
	sess.Store.SetOrders(orders)
	s.logger.Info("account: order created", zap.String("session", sess.ID), zap.Int("order", order.ID))
	return order, nil
}
