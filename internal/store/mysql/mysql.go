// Package mysql implements the store contracts on MySQL with raw SQL.
// Every statement is reported through AppMetrics.RecordDBQuery.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/farmerhub/marketplace-api/internal/db"
	"github.com/farmerhub/marketplace-api/internal/metrics"
	"github.com/farmerhub/marketplace-api/internal/store"
)

const (
	errDuplicateEntry   = 1062
	errNoReferencedRow2 = 1452
)

type base struct {
	db      *db.DB
	metrics *metrics.AppMetrics
}

// New returns MySQL-backed implementations of every store
func New(database *db.DB, m *metrics.AppMetrics) store.Stores {
	b := base{db: database, metrics: m}
	return store.Stores{
		Accounts: &accountStore{b},
		Products: &productStore{b},
		Orders:   &orderStore{b},
		Carts:    &cartStore{b},
		Support:  &supportStore{b},
	}
}

func (b base) record(ctx context.Context, operation, table, query string, start time.Time, err error) {
	b.metrics.RecordDBQuery(ctx, operation, table, query, start, err == nil || errors.Is(err, sql.ErrNoRows))
}

// exists distinguishes "row missing" from "row unchanged" after an UPDATE
// that reported zero affected rows.
func (b base) exists(ctx context.Context, table string, id int64) (bool, error) {
	start := time.Now()
	query := fmt.Sprintf("SELECT 1 FROM %s WHERE id = ?", table)
	var one int
	err := b.db.QueryRowContext(ctx, query, id).Scan(&one)
	b.record(ctx, "SELECT", table, query, start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s existence: %w", table, err)
	}
	return true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func isMySQLError(err error, number uint16) bool {
	var me *mysqldriver.MySQLError
	return errors.As(err, &me) && me.Number == number
}

// inClause returns "?,?,?" for n values together with the matching args
func inClause(ids []int64) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ","), args
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
