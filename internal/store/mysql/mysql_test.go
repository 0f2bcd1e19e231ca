package mysql

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmerhub/marketplace-api/internal/db"
	"github.com/farmerhub/marketplace-api/internal/metrics"
	"github.com/farmerhub/marketplace-api/internal/models"
	"github.com/farmerhub/marketplace-api/internal/store"
)

func newMockStores(t *testing.T) (store.Stores, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return New(db.Wrap(sqlDB, "test"), metrics.NewDiscardMetrics("test")), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestAccountCreateDuplicateEmail(t *testing.T) {
	s, mock := newMockStores(t)

	mock.ExpectExec(q("INSERT INTO accounts")).
		WillReturnError(&mysqldriver.MySQLError{Number: errDuplicateEntry, Message: "Duplicate entry"})

	err := s.Accounts.Create(context.Background(), &models.Account{Email: "a@x.io", Role: models.RoleUser})
	assert.ErrorIs(t, err, store.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountCreateSetsID(t *testing.T) {
	s, mock := newMockStores(t)

	mock.ExpectExec(q("INSERT INTO accounts")).WillReturnResult(sqlmock.NewResult(17, 1))

	a := &models.Account{Email: "a@x.io", Role: models.RoleSeller, ShopName: "Green Acres"}
	require.NoError(t, s.Accounts.Create(context.Background(), a))
	assert.Equal(t, int64(17), a.ID)
	assert.False(t, a.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountGetByEmail(t *testing.T) {
	s, mock := newMockStores(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "name", "role", "location", "is_verified",
		"verification_token", "verification_expires_at", "reset_token", "reset_expires_at",
		"shop_name", "is_seller_verified", "last_login", "created_at", "updated_at"}).
		AddRow(3, "s@x.io", "hash", "Sam", "seller", "Pune", true, "", nil, "", nil, "Sam Farms", false, now, now, now)
	mock.ExpectQuery(q("SELECT id, email")).WithArgs("s@x.io").WillReturnRows(rows)

	a, err := s.Accounts.GetByEmail(context.Background(), "s@x.io")
	require.NoError(t, err)
	assert.Equal(t, int64(3), a.ID)
	assert.Equal(t, models.RoleSeller, a.Role)
	assert.Equal(t, "Sam Farms", a.ShopName)
	assert.Nil(t, a.VerificationExpiresAt)
	require.NotNil(t, a.LastLogin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountGetByIDNotFound(t *testing.T) {
	s, mock := newMockStores(t)

	mock.ExpectQuery(q("SELECT id, email")).WithArgs(int64(9)).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.Accounts.GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountCountPendingSellers(t *testing.T) {
	s, mock := newMockStores(t)

	mock.ExpectQuery(q("SELECT COUNT(*) FROM accounts WHERE role = ? AND is_seller_verified = FALSE")).
		WithArgs("seller").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(4))

	n, err := s.Accounts.Count(context.Background(), store.AccountFilter{PendingSellersOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleWishlistRemovesExisting(t *testing.T) {
	s, mock := newMockStores(t)

	mock.ExpectExec(q("DELETE FROM wishlist_items")).WithArgs(int64(1), int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))

	added, err := s.Accounts.ToggleWishlist(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.False(t, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleWishlistAddsMissing(t *testing.T) {
	s, mock := newMockStores(t)

	mock.ExpectExec(q("DELETE FROM wishlist_items")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q("INSERT INTO wishlist_items")).WithArgs(int64(1), int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))

	added, err := s.Accounts.ToggleWishlist(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.True(t, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductListBuildsFilters(t *testing.T) {
	s, mock := newMockStores(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "seller_id", "name", "description", "price", "category", "image_url", "stock", "created_at", "updated_at"}).
		AddRow(1, 2, "Tomato", nil, 40.5, "Vegetables", "", 10, now, now)
	mock.ExpectQuery(q("FROM products WHERE category = ? AND (name LIKE ? OR description LIKE ?) ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?")).
		WithArgs("Vegetables", "%tom%", "%tom%", 10, 0).
		WillReturnRows(rows)

	products, err := s.Products.List(context.Background(), store.ProductFilter{Category: "Vegetables", Search: "tom", Limit: 10})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 40.5, products[0].Price)
	assert.Equal(t, "", products[0].Description)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductListEmptyIsNotNil(t *testing.T) {
	s, mock := newMockStores(t)

	mock.ExpectQuery(q("FROM products ORDER BY")).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	products, err := s.Products.List(context.Background(), store.ProductFilter{})
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductDeleteMissing(t *testing.T) {
	s, mock := newMockStores(t)

	mock.ExpectExec(q("DELETE FROM products WHERE id = ?")).WithArgs(int64(8)).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.Products.Delete(context.Background(), 8), store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductUpdateUnchangedRowStillSucceeds(t *testing.T) {
	s, mock := newMockStores(t)

	mock.ExpectExec(q("UPDATE products SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT 1 FROM products WHERE id = ?")).WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	require.NoError(t, s.Products.Update(context.Background(), &models.Product{ID: 4, Name: "x"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderCreateDecrementsStockInTransaction(t *testing.T) {
	s, mock := newMockStores(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE products SET stock = stock - ?")).
		WithArgs(3, sqlmock.AnyArg(), int64(1), 3).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE products SET stock = stock - ?")).
		WithArgs(1, sqlmock.AnyArg(), int64(2), 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO orders")).WillReturnResult(sqlmock.NewResult(55, 1))
	mock.ExpectExec(q("INSERT INTO order_items")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(q("INSERT INTO order_items")).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(q("INSERT INTO order_items")).WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	order := &models.Order{BuyerID: 9, Status: models.OrderPending, TotalAmount: 100, Items: []models.OrderItem{
		{ProductID: 1, Quantity: 2, Price: 10},
		{ProductID: 2, Quantity: 1, Price: 50},
		{ProductID: 1, Quantity: 1, Price: 10},
	}}
	require.NoError(t, s.Orders.Create(context.Background(), order))
	assert.Equal(t, int64(55), order.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderCreateInsufficientStockRollsBack(t *testing.T) {
	s, mock := newMockStores(t)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE products SET stock = stock - ?")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	order := &models.Order{BuyerID: 9, Status: models.OrderPending, Items: []models.OrderItem{{ProductID: 1, Quantity: 99}}}
	err := s.Orders.Create(context.Background(), order)
	assert.ErrorIs(t, err, store.ErrInsufficientStock)
	assert.Zero(t, order.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderListByProductsAttachesItems(t *testing.T) {
	s, mock := newMockStores(t)
	now := time.Now()

	mock.ExpectQuery(q("FROM orders WHERE id IN (SELECT DISTINCT order_id FROM order_items WHERE product_id IN (?,?))")).
		WithArgs(int64(4), int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "buyer_id", "status", "total_amount", "created_at", "updated_at"}).
			AddRow(10, 1, "Pending", 30.0, now, now).
			AddRow(11, 2, "Shipped", 12.5, now, now))
	mock.ExpectQuery(q("FROM order_items WHERE order_id IN (?,?)")).
		WithArgs(int64(10), int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "product_id", "name", "quantity", "price"}).
			AddRow(10, 4, "Rice", 3, 10.0).
			AddRow(11, 5, "Dal", 1, 12.5).
			AddRow(11, 6, "Salt", 1, 0.0))

	orders, err := s.Orders.ListByProducts(context.Background(), []int64{4, 5})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Len(t, orders[0].Items, 1)
	assert.Len(t, orders[1].Items, 2)
	assert.Equal(t, models.OrderShipped, orders[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderGetByIDNotFound(t *testing.T) {
	s, mock := newMockStores(t)

	mock.ExpectQuery(q("FROM orders WHERE id = ?")).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "buyer_id", "status", "total_amount", "created_at", "updated_at"}))

	_, err := s.Orders.GetByID(context.Background(), 3)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartAddUnknownProduct(t *testing.T) {
	s, mock := newMockStores(t)

	mock.ExpectExec(q("INSERT INTO cart_items")).
		WillReturnError(&mysqldriver.MySQLError{Number: errNoReferencedRow2})

	assert.ErrorIs(t, s.Carts.Add(context.Background(), 1, 404, 1), store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSupportCreateWithoutUser(t *testing.T) {
	s, mock := newMockStores(t)

	mock.ExpectExec(q("INSERT INTO support_tickets")).WillReturnResult(sqlmock.NewResult(6, 1))

	ticket := &models.SupportTicket{Name: "A", Email: "a@x.io", Subject: "s", Message: "m", Status: models.SupportOpen}
	require.NoError(t, s.Support.Create(context.Background(), ticket))
	assert.Equal(t, int64(6), ticket.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSupportUpdateStatusMissing(t *testing.T) {
	s, mock := newMockStores(t)

	mock.ExpectExec(q("UPDATE support_tickets SET status = ?")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT 1 FROM support_tickets WHERE id = ?")).WillReturnRows(sqlmock.NewRows([]string{"1"}))

	assert.ErrorIs(t, s.Support.UpdateStatus(context.Background(), 1, models.SupportOpen, models.SupportClosed), store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderUpdateStatusIsConditional(t *testing.T) {
	s, mock := newMockStores(t)

	mock.ExpectExec(q("UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND status = ?")).
		WithArgs(string(models.OrderShipped), sqlmock.AnyArg(), int64(4), string(models.OrderProcessing)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Orders.UpdateStatus(context.Background(), 4, models.OrderProcessing, models.OrderShipped))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderUpdateStatusStale(t *testing.T) {
	s, mock := newMockStores(t)

	mock.ExpectExec(q("UPDATE orders SET status = ?")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT 1 FROM orders WHERE id = ?")).WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	err := s.Orders.UpdateStatus(context.Background(), 4, models.OrderProcessing, models.OrderCancelled)
	assert.ErrorIs(t, err, store.ErrStaleStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}
