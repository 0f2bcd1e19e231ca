package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/farmerhub/marketplace-api/internal/models"
	"github.com/farmerhub/marketplace-api/internal/store"
)

const ticketColumns = "id, user_id, name, email, subject, message, status, created_at, updated_at"

type supportStore struct{ base }

func scanTicket(row scanner) (*models.SupportTicket, error) {
	var t models.SupportTicket
	var userID sql.NullInt64
	if err := row.Scan(&t.ID, &userID, &t.Name, &t.Email, &t.Subject, &t.Message, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if userID.Valid {
		id := userID.Int64
		t.UserID = &id
	}
	return &t, nil
}

func (s *supportStore) Create(ctx context.Context, t *models.SupportTicket) error {
	var userID sql.NullInt64
	if t.UserID != nil {
		userID = sql.NullInt64{Int64: *t.UserID, Valid: true}
	}

	start := time.Now()
	now := start.UTC()
	query := `INSERT INTO support_tickets (user_id, name, email, subject, message, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := s.db.ExecContext(ctx, query, userID, t.Name, t.Email, t.Subject, t.Message, t.Status, now, now)
	s.record(ctx, "INSERT", "support_tickets", query, start, err)
	if err != nil {
		return fmt.Errorf("failed to create support ticket: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get support ticket ID: %w", err)
	}
	t.ID = id
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

func (s *supportStore) GetByID(ctx context.Context, id int64) (*models.SupportTicket, error) {
	start := time.Now()
	query := "SELECT " + ticketColumns + " FROM support_tickets WHERE id = ?"
	t, err := scanTicket(s.db.QueryRowContext(ctx, query, id))
	s.record(ctx, "SELECT", "support_tickets", query, start, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get support ticket: %w", err)
	}
	return t, nil
}

func (s *supportStore) List(ctx context.Context) ([]models.SupportTicket, error) {
	start := time.Now()
	query := "SELECT " + ticketColumns + " FROM support_tickets ORDER BY created_at DESC, id DESC"
	rows, err := s.db.QueryContext(ctx, query)
	s.record(ctx, "SELECT", "support_tickets", query, start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query support tickets: %w", err)
	}
	defer rows.Close()

	tickets := []models.SupportTicket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan support ticket: %w", err)
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

func (s *supportStore) UpdateStatus(ctx context.Context, id int64, from, to models.SupportStatus) error {
	start := time.Now()
	query := "UPDATE support_tickets SET status = ?, updated_at = ? WHERE id = ? AND status = ?"
	result, err := s.db.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	s.record(ctx, "UPDATE", "support_tickets", query, start, err)
	if err != nil {
		return fmt.Errorf("failed to update support ticket: %w", err)
	}

	if n, _ := result.RowsAffected(); n == 0 {
		ok, err := s.exists(ctx, "support_tickets", id)
		if err != nil {
			return err
		}
		if !ok {
			return store.ErrNotFound
		}
		return store.ErrStaleStatus
	}
	return nil
}
