package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/farmerhub/marketplace-api/internal/models"
	"github.com/farmerhub/marketplace-api/internal/store"
)

const accountColumns = `id, email, password_hash, name, role, location, is_verified,
	verification_token, verification_expires_at, reset_token, reset_expires_at,
	shop_name, is_seller_verified, last_login, created_at, updated_at`

type accountStore struct{ base }

func scanAccount(row scanner) (*models.Account, error) {
	var a models.Account
	var verifyExp, resetExp, lastLogin sql.NullTime
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.Role, &a.Location, &a.IsVerified,
		&a.VerificationToken, &verifyExp, &a.ResetToken, &resetExp,
		&a.ShopName, &a.IsSellerVerified, &lastLogin, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.VerificationExpiresAt = timePtr(verifyExp)
	a.ResetExpiresAt = timePtr(resetExp)
	a.LastLogin = timePtr(lastLogin)
	return &a, nil
}

func (s *accountStore) Create(ctx context.Context, a *models.Account) error {
	start := time.Now()
	now := start.UTC()
	query := `INSERT INTO accounts (email, password_hash, name, role, location, is_verified,
		verification_token, verification_expires_at, reset_token, reset_expires_at,
		shop_name, is_seller_verified, last_login, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := s.db.ExecContext(ctx, query, a.Email, a.PasswordHash, a.Name, a.Role, a.Location, a.IsVerified,
		a.VerificationToken, nullTime(a.VerificationExpiresAt), a.ResetToken, nullTime(a.ResetExpiresAt),
		a.ShopName, a.IsSellerVerified, nullTime(a.LastLogin), now, now)
	s.record(ctx, "INSERT", "accounts", query, start, err)
	if isMySQLError(err, errDuplicateEntry) {
		return store.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get account ID: %w", err)
	}
	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

func (s *accountStore) getOne(ctx context.Context, where string, arg any) (*models.Account, error) {
	start := time.Now()
	query := "SELECT " + accountColumns + " FROM accounts WHERE " + where
	a, err := scanAccount(s.db.QueryRowContext(ctx, query, arg))
	s.record(ctx, "SELECT", "accounts", query, start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

func (s *accountStore) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return s.getOne(ctx, "id = ?", id)
}

func (s *accountStore) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.getOne(ctx, "email = ?", email)
}

func (s *accountStore) GetByVerificationToken(ctx context.Context, token string) (*models.Account, error) {
	if token == "" {
		return nil, store.ErrNotFound
	}
	return s.getOne(ctx, "verification_token = ?", token)
}

func (s *accountStore) GetByResetToken(ctx context.Context, token string) (*models.Account, error) {
	if token == "" {
		return nil, store.ErrNotFound
	}
	return s.getOne(ctx, "reset_token = ?", token)
}

func (s *accountStore) Update(ctx context.Context, a *models.Account) error {
	start := time.Now()
	now := start.UTC()
	query := `UPDATE accounts SET email = ?, password_hash = ?, name = ?, role = ?, location = ?, is_verified = ?,
		verification_token = ?, verification_expires_at = ?, reset_token = ?, reset_expires_at = ?,
		shop_name = ?, is_seller_verified = ?, last_login = ?, updated_at = ?
		WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, a.Email, a.PasswordHash, a.Name, a.Role, a.Location, a.IsVerified,
		a.VerificationToken, nullTime(a.VerificationExpiresAt), a.ResetToken, nullTime(a.ResetExpiresAt),
		a.ShopName, a.IsSellerVerified, nullTime(a.LastLogin), now, a.ID)
	s.record(ctx, "UPDATE", "accounts", query, start, err)
	if isMySQLError(err, errDuplicateEntry) {
		return store.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		ok, err := s.exists(ctx, "accounts", a.ID)
		if err != nil {
			return err
		}
		if !ok {
			return store.ErrNotFound
		}
	}
	a.UpdatedAt = now
	return nil
}

func (s *accountStore) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	query := "DELETE FROM accounts WHERE id = ?"
	result, err := s.db.ExecContext(ctx, query, id)
	s.record(ctx, "DELETE", "accounts", query, start, err)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func accountWhere(filter store.AccountFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Role != "" {
		clauses = append(clauses, "role = ?")
		args = append(args, filter.Role)
	}
	if filter.PendingSellersOnly {
		clauses = append(clauses, "role = ?", "is_seller_verified = FALSE")
		args = append(args, models.RoleSeller)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *accountStore) List(ctx context.Context, filter store.AccountFilter) ([]models.Account, error) {
	where, args := accountWhere(filter)
	start := time.Now()
	query := "SELECT " + accountColumns + " FROM accounts" + where + " ORDER BY created_at DESC, id DESC"
	rows, err := s.db.QueryContext(ctx, query, args...)
	s.record(ctx, "SELECT", "accounts", query, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

func (s *accountStore) Count(ctx context.Context, filter store.AccountFilter) (int64, error) {
	where, args := accountWhere(filter)
	start := time.Now()
	query := "SELECT COUNT(*) FROM accounts" + where
	var n int64
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&n)
	s.record(ctx, "SELECT", "accounts", query, start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return n, nil
}

func (s *accountStore) WishlistIDs(ctx context.Context, accountID int64) ([]int64, error) {
	start := time.Now()
	query := "SELECT product_id FROM wishlist_items WHERE account_id = ? ORDER BY created_at"
	rows, err := s.db.QueryContext(ctx, query, accountID)
	s.record(ctx, "SELECT", "wishlist_items", query, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query wishlist: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan wishlist item: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *accountStore) ToggleWishlist(ctx context.Context, accountID, productID int64) (bool, error) {
	start := time.Now()
	deleteQuery := "DELETE FROM wishlist_items WHERE account_id = ? AND product_id = ?"
	result, err := s.db.ExecContext(ctx, deleteQuery, accountID, productID)
	s.record(ctx, "DELETE", "wishlist_items", deleteQuery, start, err)
	if err != nil {
		return false, fmt.Errorf("failed to remove wishlist item: %w", err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		return false, nil
	}

	start = time.Now()
	insertQuery := "INSERT INTO wishlist_items (account_id, product_id) VALUES (?, ?)"
	_, err = s.db.ExecContext(ctx, insertQuery, accountID, productID)
	s.record(ctx, "INSERT", "wishlist_items", insertQuery, start, err)
	if isMySQLError(err, errNoReferencedRow2) {
		return false, store.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to add wishlist item: %w", err)
	}
	return true, nil
}
