package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/farmerhub/marketplace-api/internal/auth"
	"github.com/farmerhub/marketplace-api/internal/metrics"
	"github.com/farmerhub/marketplace-api/internal/models"
	"github.com/farmerhub/marketplace-api/internal/store"
	"github.com/farmerhub/marketplace-api/internal/store/memory"
)

type sentMail struct {
	kind, to, payload string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) record(kind, to, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{kind: kind, to: to, payload: payload})
	return nil
}

func (f *fakeMailer) SendVerification(_ context.Context, to, _, code string) error {
	return f.record("verify", to, code)
}

func (f *fakeMailer) SendResetRequest(_ context.Context, to, link string) error {
	return f.record("reset-request", to, link)
}

func (f *fakeMailer) SendResetSuccess(_ context.Context, to string) error {
	return f.record("reset-success", to, "")
}

func (f *fakeMailer) SendWelcome(_ context.Context, to, name string) error {
	return f.record("welcome", to, name)
}

func (f *fakeMailer) SendSupportNotification(_ context.Context, to, _, subject, _ string, _ int64) error {
	return f.record("support", to, subject)
}

func (f *fakeMailer) last(kind string) (sentMail, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].kind == kind {
			return f.sent[i], true
		}
	}
	return sentMail{}, false
}

type fixture struct {
	db       *memory.DB
	stores   store.Stores
	mail     *fakeMailer
	tokens   *auth.Tokens
	metrics  *metrics.AppMetrics
	accounts *AccountService
	products *ProductService
	carts    *CartService
	orders   *OrderService
	wishlist *WishlistService
	support  *SupportService
	admin    *AdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.New()
	stores := db.Stores()
	m := metrics.NewDiscardMetrics("test")
	mail := &fakeMailer{}
	tokens := auth.NewTokens("test-secret", time.Hour)

	f := &fixture{db: db, stores: stores, mail: mail, tokens: tokens, metrics: m}
	f.accounts = NewAccountService(stores.Accounts, tokens, mail, "http://client.test/", m)
	f.products = NewProductService(stores.Products, m)
	f.carts = NewCartService(stores.Carts, stores.Products, m)
	f.orders = NewOrderService(stores, nil, m)
	f.wishlist = NewWishlistService(stores.Accounts, stores.Products)
	f.support = NewSupportService(stores.Support, mail, m)
	f.admin = NewAdminService(stores, f.orders, f.support)
	return f
}

// account creates an account directly in the store and returns its identity
func (f *fixture) account(t *testing.T, email string, role models.Role) auth.Identity {
	t.Helper()
	hash, err := auth.HashPassword("secret1")
	require.NoError(t, err)
	a := &models.Account{Email: email, PasswordHash: hash, Name: "Test " + string(role), Role: role}
	require.NoError(t, f.stores.Accounts.Create(context.Background(), a))
	return auth.Identity{SubjectID: a.ID, Role: role}
}

func (f *fixture) product(t *testing.T, seller auth.Identity, name string, price float64, stock int) *models.Product {
	t.Helper()
	p, err := f.products.Create(context.Background(), seller, models.ProductRequest{
		Name: name, Category: "vegetables", Price: &price, Stock: &stock,
	})
	require.NoError(t, err)
	return p
}

func requireKind(t *testing.T, err error, kind error) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, errors.Is(err, kind), "expected %v, got %v", kind, err)
}
