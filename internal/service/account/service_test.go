package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/backend"
	"storefront/internal/domain"
	"storefront/internal/repository/slot"
	"storefront/internal/store"
)

type stubBackend struct {
	loginResp   *backend.LoginResponse
	loginErr    error
	me          *domain.User
	meErr       error
	orders      []domain.Order
	ordersErr   error
	created     *domain.Order
	lastToken   string
	lastSignup  backend.SignupRequest
	lastAddress backend.AddressUpdate
	signupCalls int
	lastEmail   string
	lastSetup   backend.SetupPasswordRequest
	lastReset   backend.ResetPasswordRequest
	mailCalls   int
}

func (s *stubBackend) Signup(_ context.Context, in backend.SignupRequest) (*domain.User, error) {
	s.signupCalls++
	s.lastSignup = in
	return &domain.User{Email: in.Email, Name: in.Name}, nil
}

func (s *stubBackend) Login(_ context.Context, _, _ string) (*backend.LoginResponse, error) {
	return s.loginResp, s.loginErr
}

func (s *stubBackend) Me(_ context.Context, token string) (*domain.User, error) {
	s.lastToken = token
	return s.me, s.meErr
}

func (s *stubBackend) UpdateMe(_ context.Context, token string, fields map[string]any) (*domain.User, error) {
	s.lastToken = token
	return &domain.User{Email: "ana@example.com", Name: fields["name"].(string)}, nil
}

func (s *stubBackend) Addresses(_ context.Context, token string) (*domain.Addresses, error) {
	s.lastToken = token
	return &domain.Addresses{DNI: "123"}, nil
}

func (s *stubBackend) UpdateAddress(_ context.Context, token string, in backend.AddressUpdate) error {
	s.lastToken = token
	s.lastAddress = in
	return nil
}

func (s *stubBackend) Orders(_ context.Context, token string) ([]domain.Order, error) {
	s.lastToken = token
	return s.orders, s.ordersErr
}

func (s *stubBackend) CreateOrder(_ context.Context, token string, _ backend.OrderRequest) (*domain.Order, error) {
	s.lastToken = token
	return s.created, nil
}

func (s *stubBackend) RegisterEmail(_ context.Context, email string) (*backend.MessageResponse, error) {
	s.mailCalls++
	s.lastEmail = email
	return &backend.MessageResponse{Message: "setup sent"}, nil
}

func (s *stubBackend) SetupPassword(_ context.Context, in backend.SetupPasswordRequest) (*backend.MessageResponse, error) {
	s.lastSetup = in
	return &backend.MessageResponse{Message: "password set"}, nil
}

func (s *stubBackend) ForgotPassword(_ context.Context, email string) (*backend.MessageResponse, error) {
	s.mailCalls++
	s.lastEmail = email
	return &backend.MessageResponse{Message: "reset sent"}, nil
}

func (s *stubBackend) ResetPassword(_ context.Context, in backend.ResetPasswordRequest) (*backend.MessageResponse, error) {
	s.lastReset = in
	return &backend.MessageResponse{Message: "password reset"}, nil
}

func newSession() *store.Session {
	return &store.Session{ID: "s1", Store: store.New(nil, 0), Slots: slot.NewMemory()}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": jwt.NewNumericDate(exp),
	})
	raw, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)
	return raw
}

func TestSignupValidation(t *testing.T) {
	b := &stubBackend{}
	svc := New(b, nil)

	_, err := svc.Signup(context.Background(), SignupInput{Email: "nope", Password: "123", Name: " "})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")
	assert.Contains(t, verr.Fields, "name")
	assert.Equal(t, 0, b.signupCalls)

	user, err := svc.Signup(context.Background(), SignupInput{Email: " ana@example.com ", Password: "123456", Name: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, "ana@example.com", b.lastSignup.Email)
}

func TestLoginStoresTokenAndUser(t *testing.T) {
	b := &stubBackend{
		loginResp: &backend.LoginResponse{AccessToken: "tok", Role: "user"},
		me:        &domain.User{ID: 1, Email: "ana@example.com", Name: "Ana"},
	}
	svc := New(b, nil)
	sess := newSession()

	user, err := svc.Login(context.Background(), sess, "ana@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.Name)
	assert.Equal(t, "tok", b.lastToken)

	raw, err := sess.Slots.Get(context.Background(), TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "tok", string(raw))
	assert.Equal(t, user, sess.Store.User())
}

func TestLoginFallsBackToRole(t *testing.T) {
	b := &stubBackend{
		loginResp: &backend.LoginResponse{AccessToken: "tok", Role: "admin"},
		meErr:     errors.New("boom"),
	}
	svc := New(b, nil)
	sess := newSession()

	user, err := svc.Login(context.Background(), sess, "ana@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Role)
	assert.Equal(t, "ana@example.com", user.Email)
}

func TestLoginRejected(t *testing.T) {
	b := &stubBackend{loginErr: &backend.StatusError{Status: 401, Message: "Credenciales inválidas"}}
	svc := New(b, nil)
	sess := newSession()

	_, err := svc.Login(context.Background(), sess, "ana@example.com", "bad")
	assert.Equal(t, 401, backend.StatusOf(err))
	_, err = sess.Slots.Get(context.Background(), TokenKey)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, sess.Store.User())
}

func TestHydrate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("valid token loads user", func(t *testing.T) {
		b := &stubBackend{me: &domain.User{Email: "ana@example.com"}}
		svc := New(b, nil)
		svc.now = func() time.Time { return now }
		sess := newSession()
		token := signedToken(t, now.Add(time.Hour))
		require.NoError(t, sess.Slots.Set(ctx, TokenKey, []byte(token)))

		user, err := svc.Hydrate(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, "ana@example.com", user.Email)
		assert.Equal(t, token, b.lastToken)
	})

	t.Run("expired token is removed", func(t *testing.T) {
		b := &stubBackend{me: &domain.User{Email: "ana@example.com"}}
		svc := New(b, nil)
		svc.now = func() time.Time { return now }
		sess := newSession()
		require.NoError(t, sess.Slots.Set(ctx, TokenKey, []byte(signedToken(t, now.Add(-time.Minute)))))

		_, err := svc.Hydrate(ctx, sess)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.Empty(t, b.lastToken)
		_, err = sess.Slots.Get(ctx, TokenKey)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("rejected token clears user", func(t *testing.T) {
		b := &stubBackend{meErr: &backend.StatusError{Status: 401}}
		svc := New(b, nil)
		svc.now = func() time.Time { return now }
		sess := newSession()
		sess.Store.SetUser(&domain.User{Email: "stale@example.com"})
		require.NoError(t, sess.Slots.Set(ctx, TokenKey, []byte(signedToken(t, now.Add(time.Hour)))))

		_, err := svc.Hydrate(ctx, sess)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.Nil(t, sess.Store.User())
		_, err = sess.Slots.Get(ctx, TokenKey)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("no token", func(t *testing.T) {
		svc := New(&stubBackend{}, nil)
		_, err := svc.Hydrate(ctx, newSession())
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, Expired(signedToken(t, now.Add(time.Hour)), now))
	assert.True(t, Expired(signedToken(t, now.Add(-time.Hour)), now))
	assert.True(t, Expired("not-a-jwt", now))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1"}).SignedString([]byte("k"))
	require.NoError(t, err)
	assert.False(t, Expired(noExp, now))
}

func TestOrdersRequireToken(t *testing.T) {
	svc := New(&stubBackend{}, nil)
	_, err := svc.Orders(context.Background(), newSession())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestOrdersRejectedTokenLogsOut(t *testing.T) {
	ctx := context.Background()
	b := &stubBackend{ordersErr: &backend.StatusError{Status: 401}}
	svc := New(b, nil)
	sess := newSession()
	require.NoError(t, sess.Slots.Set(ctx, TokenKey, []byte("tok")))
	sess.Store.SetUser(&domain.User{Email: "ana@example.com"})

	_, err := svc.Orders(ctx, sess)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Nil(t, sess.Store.User())
}

func TestCreateOrderClearsCart(t *testing.T) {
	ctx := context.Background()
	b := &stubBackend{created: &domain.Order{ID: 42, TotalAmount: 1500}}
	svc := New(b, nil)
	sess := newSession()
	require.NoError(t, sess.Slots.Set(ctx, TokenKey, []byte("tok")))

	_, err := svc.CreateOrder(ctx, sess, backend.OrderRequest{ShippingAddress: "Calle 1"})
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	_, err = sess.Store.AddToCart(domain.Product{ID: 1, Price: 1500}, 1, "")
	require.NoError(t, err)

	order, err := svc.CreateOrder(ctx, sess, backend.OrderRequest{ShippingAddress: "Calle 1"})
	require.NoError(t, err)
	assert.Equal(t, 42, order.ID)
	assert.Empty(t, sess.Store.Cart())
	assert.Equal(t, []domain.Order{{ID: 42, TotalAmount: 1500}}, sess.Store.Snapshot().Orders)
}

func TestUpdateAddressValidatesType(t *testing.T) {
	ctx := context.Background()
	b := &stubBackend{}
	svc := New(b, nil)
	sess := newSession()
	require.NoError(t, sess.Slots.Set(ctx, TokenKey, []byte("tok")))

	var verr *domain.ValidationError
	require.ErrorAs(t, svc.UpdateAddress(ctx, sess, "home", nil), &verr)

	payload := map[string]any{"street": "Calle 1"}
	require.NoError(t, svc.UpdateAddress(ctx, sess, "shipping", payload))
	assert.Equal(t, "shipping", b.lastAddress.Type)
	assert.Equal(t, "tok", b.lastToken)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	svc := New(&stubBackend{}, nil)
	sess := newSession()
	require.NoError(t, sess.Slots.Set(ctx, TokenKey, []byte("tok")))
	sess.Store.SetUser(&domain.User{Email: "ana@example.com"})
	sess.Store.SetOrders([]domain.Order{{ID: 1}})

	svc.Logout(ctx, sess)
	assert.Nil(t, sess.Store.User())
	assert.Empty(t, sess.Store.Snapshot().Orders)
	_, err := svc.Token(ctx, sess)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
