package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/backend"
	"storefront/internal/domain"
	"storefront/internal/repository/slot"
	"storefront/internal/store"
)

type stubBackend struct {
	pref      *backend.Preference
	prefErr   error
	lastToken string
	lastReq   backend.PreferenceRequest
	autoToken string
	autoErr   error
	lastPayID string
}

func (s *stubBackend) CreatePreference(_ context.Context, token string, in backend.PreferenceRequest) (*backend.Preference, error) {
	s.lastToken = token
	s.lastReq = in
	return s.pref, s.prefErr
}

func (s *stubBackend) AutoLogin(_ context.Context, paymentID string) (string, error) {
	s.lastPayID = paymentID
	return s.autoToken, s.autoErr
}

type stubAccounts struct {
	token    string
	setToken string
	user     *domain.User
}

func (s *stubAccounts) Token(context.Context, *store.Session) (string, error) {
	if s.token == "" {
		return "", domain.ErrUnauthorized
	}
	return s.token, nil
}

func (s *stubAccounts) SetToken(_ context.Context, sess *store.Session, token string) (*domain.User, error) {
	s.setToken = token
	sess.Store.SetUser(s.user)
	return s.user, nil
}

func validForm() Form {
	return Form{
		FirstName: "Ana",
		LastName:  "Gómez",
		Email:     "ana@example.com",
		Phone:     "1155550000",
		Address:   "Calle 1",
		City:      "CABA",
		ZipCode:   "1000",
	}
}

func sessionWithCart(t *testing.T) *store.Session {
	t.Helper()
	st := store.New(nil, 0)
	_, err := st.AddToCart(domain.Product{ID: 7, Name: "Pod", Price: 1200}, 2, "")
	require.NoError(t, err)
	_, err = st.AddToCart(domain.Product{ID: 9, Name: "Liquid", Price: 800}, 1, "mint")
	require.NoError(t, err)
	return &store.Session{ID: "s1", Store: st, Slots: slot.NewMemory()}
}

func TestFormValidate(t *testing.T) {
	require.NoError(t, validForm().Validate())

	var verr *domain.ValidationError
	require.ErrorAs(t, Form{Email: "broken"}.Validate(), &verr)
	for _, field := range []string{"firstName", "lastName", "phone", "address", "city", "zipCode"} {
		assert.Equal(t, "required", verr.Fields[field], field)
	}
	assert.Equal(t, "invalid email", verr.Fields["email"])
}

func TestPrefill(t *testing.T) {
	f := Prefill(&domain.User{Name: "Ana María Gómez", Email: "ana@example.com", Phone: "11"})
	assert.Equal(t, "Ana", f.FirstName)
	assert.Equal(t, "María Gómez", f.LastName)
	assert.Equal(t, "ana@example.com", f.Email)
	assert.Equal(t, Form{}, Prefill(nil))
}

func TestItems(t *testing.T) {
	cart := domain.Cart{
		{ProductID: 7, Name: "Pod", Price: 1200, Quantity: 2},
		{ProductID: 9, Name: "Liquid", Price: 800, Quantity: 0, Variant: "mint"},
	}
	items, err := Items(cart)
	require.NoError(t, err)
	assert.Equal(t, []backend.PreferenceItem{
		{ID: "7", Title: "Pod", Quantity: 2, UnitPrice: 1200},
		{ID: "9", Title: "Liquid - mint", Quantity: 1, UnitPrice: 800},
	}, items)

	_, err = Items(domain.Cart{{ProductID: 1, Price: 0, Quantity: 1}})
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestCreatePreference(t *testing.T) {
	b := &stubBackend{pref: &backend.Preference{ID: "pref-1", InitPoint: "https://pay/init"}}
	svc := New(b, &stubAccounts{}, "PUB-KEY", nil)
	sess := sessionWithCart(t)

	out, err := svc.CreatePreference(context.Background(), sess, validForm())
	require.NoError(t, err)
	assert.Equal(t, "pref-1", out.PreferenceID)
	assert.Equal(t, "PUB-KEY", out.PublicKey)
	assert.Equal(t, Totals{Subtotal: 3200, Total: 3200, ItemCount: 3}, out.Totals)

	assert.Empty(t, b.lastToken)
	assert.Len(t, b.lastReq.Items, 2)
	assert.Equal(t, backend.Payer{Email: "ana@example.com", Name: "Ana", Surname: "Gómez"}, b.lastReq.Payer)
	assert.Equal(t, "ana@example.com", b.lastReq.FormEmail)
}

func TestCreatePreferenceSendsToken(t *testing.T) {
	b := &stubBackend{pref: &backend.Preference{ID: "pref-1"}}
	svc := New(b, &stubAccounts{token: "tok"}, "PUB-KEY", nil)

	_, err := svc.CreatePreference(context.Background(), sessionWithCart(t), validForm())
	require.NoError(t, err)
	assert.Equal(t, "tok", b.lastToken)
}

func TestCreatePreferenceRejections(t *testing.T) {
	b := &stubBackend{prefErr: errors.New("provider down")}
	svc := New(b, &stubAccounts{}, "", nil)

	empty := &store.Session{ID: "s2", Store: store.New(nil, 0), Slots: slot.NewMemory()}
	_, err := svc.CreatePreference(context.Background(), empty, validForm())
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	var verr *domain.ValidationError
	_, err = svc.CreatePreference(context.Background(), sessionWithCart(t), Form{})
	assert.ErrorAs(t, err, &verr)

	_, err = svc.CreatePreference(context.Background(), sessionWithCart(t), validForm())
	assert.EqualError(t, err, "provider down")
}

func TestConfirmApproved(t *testing.T) {
	b := &stubBackend{autoToken: "jwt"}
	accounts := &stubAccounts{user: &domain.User{Email: "ana@example.com"}}
	svc := New(b, accounts, "", nil)
	sess := sessionWithCart(t)

	res, err := svc.Confirm(context.Background(), sess, "pay-9", StatusApproved)
	require.NoError(t, err)
	assert.True(t, res.Approved)
	assert.Equal(t, "ana@example.com", res.User.Email)
	assert.Empty(t, sess.Store.Cart())
	assert.Equal(t, "pay-9", b.lastPayID)
	assert.Equal(t, "jwt", accounts.setToken)
}

func TestConfirmAutoLoginFailureKeepsApproval(t *testing.T) {
	b := &stubBackend{autoErr: &backend.StatusError{Status: 404}}
	accounts := &stubAccounts{}
	svc := New(b, accounts, "", nil)
	sess := sessionWithCart(t)

	res, err := svc.Confirm(context.Background(), sess, "pay-9", StatusApproved)
	require.NoError(t, err)
	assert.True(t, res.Approved)
	assert.Nil(t, res.User)
	assert.Empty(t, sess.Store.Cart())
	assert.Empty(t, accounts.setToken)
}

func TestConfirmNotApproved(t *testing.T) {
	b := &stubBackend{}
	svc := New(b, &stubAccounts{}, "", nil)
	sess := sessionWithCart(t)

	res, err := svc.Confirm(context.Background(), sess, "pay-9", "rejected")
	require.NoError(t, err)
	assert.False(t, res.Approved)
	assert.Len(t, sess.Store.Cart(), 2)
	assert.Empty(t, b.lastPayID)
}
