package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/farmerhub/marketplace-api/internal/auth"
	"github.com/farmerhub/marketplace-api/internal/metrics"
	"github.com/farmerhub/marketplace-api/internal/models"
	"github.com/farmerhub/marketplace-api/internal/store"
)

// supportMailTimeout bounds the notification mail sent after a ticket is created
const supportMailTimeout = 30 * time.Second

var validate = validator.New()

var supportOrder = map[models.SupportStatus]int{
	models.SupportOpen:       0,
	models.SupportInProgress: 1,
	models.SupportResolved:   2,
	models.SupportClosed:     3,
}

// SupportService manages help requests
type SupportService struct {
	tickets store.SupportStore
	mail    Mailer
	metrics *metrics.AppMetrics
}

// NewSupportService creates a new support service
func NewSupportService(tickets store.SupportStore, mail Mailer, metrics *metrics.AppMetrics) *SupportService {
	return &SupportService{tickets: tickets, mail: mail, metrics: metrics}
}

// Create opens a ticket for the caller and mails a receipt in the background
func (s *SupportService) Create(ctx context.Context, caller auth.Identity, req models.SupportRequest) (*models.SupportTicket, error) {
	ticket := &models.SupportTicket{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Subject: strings.TrimSpace(req.Subject),
		Message: strings.TrimSpace(req.Message),
		Status:  models.SupportOpen,
	}
	if ticket.Name == "" || ticket.Email == "" || ticket.Subject == "" || ticket.Message == "" {
		return nil, validationError("name, email, subject and message are required")
	}
	if err := validate.Var(ticket.Email, "email"); err != nil {
		return nil, validationError("invalid email address")
	}
	if caller.SubjectID != 0 {
		uid := caller.SubjectID
		ticket.UserID = &uid
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, fmt.Errorf("failed to create support ticket: %w", err)
	}
	s.metrics.Inc(ctx, s.metrics.SupportTicketsCreated)
	log.Printf("[SUPPORT] Ticket %d created by %s", ticket.ID, ticket.Email)

	go s.notify(*ticket)
	return ticket, nil
}

func (s *SupportService) notify(ticket models.SupportTicket) {
	ctx, cancel := context.WithTimeout(context.Background(), supportMailTimeout)
	defer cancel()

	if err := s.mail.SendSupportNotification(ctx, ticket.Email, ticket.Name, ticket.Subject, ticket.Message, ticket.ID); err != nil {
		log.Printf("[SUPPORT] Notification for ticket %d failed: %v", ticket.ID, err)
	}
}

// List returns every ticket, newest first
func (s *SupportService) List(ctx context.Context) ([]models.SupportTicket, error) {
	tickets, err := s.tickets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list support tickets: %w", err)
	}
	if tickets == nil {
		tickets = []models.SupportTicket{}
	}
	return tickets, nil
}

// UpdateStatus moves a ticket forward through Open, In Progress, Resolved
// and Closed. Steps may be skipped but never reversed.
func (s *SupportService) UpdateStatus(ctx context.Context, id int64, status string) (*models.SupportTicket, error) {
	target := models.SupportStatus(status)
	to, ok := supportOrder[target]
	if !ok {
		return nil, validationError("Invalid support status %q", status)
	}

	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Support ticket")
	}
	if ticket.Status == target {
		return ticket, nil
	}
	if to < supportOrder[ticket.Status] {
		return nil, conflictError("Cannot change ticket status from %s to %s", ticket.Status, target)
	}

	if err := s.tickets.UpdateStatus(ctx, id, ticket.Status, target); err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			return nil, conflictError("Ticket %d was updated by someone else, reload and retry", id)
		}
		return nil, notFoundOr(err, "Support ticket")
	}
	log.Printf("[SUPPORT] Ticket %d: %s -> %s", id, ticket.Status, target)
	return s.tickets.GetByID(ctx, id)
}
