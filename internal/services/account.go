package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/farmerhub/marketplace-api/internal/auth"
	"github.com/farmerhub/marketplace-api/internal/metrics"
	"github.com/farmerhub/marketplace-api/internal/models"
	"github.com/farmerhub/marketplace-api/internal/store"
)

// Mailer is the subset of the mail dispatcher the services rely on
type Mailer interface {
	SendVerification(ctx context.Context, to, name, code string) error
	SendResetRequest(ctx context.Context, to, link string) error
	SendResetSuccess(ctx context.Context, to string) error
	SendWelcome(ctx context.Context, to, name string) error
	SendSupportNotification(ctx context.Context, to, name, subject, message string, ticketID int64) error
}

// AccountService handles signup, login and the email-driven account flows
type AccountService struct {
	accounts  store.AccountStore
	tokens    *auth.Tokens
	mail      Mailer
	clientURL string
	metrics   *metrics.AppMetrics
	now       func() time.Time
	newCode   func() (string, error)
}

// codeAttempts bounds the retries for a verification code no other account holds
const codeAttempts = 10

// NewAccountService creates a new account service
func NewAccountService(accounts store.AccountStore, tokens *auth.Tokens, mail Mailer, clientURL string, metrics *metrics.AppMetrics) *AccountService {
	return &AccountService{
		accounts:  accounts,
		tokens:    tokens,
		mail:      mail,
		clientURL: strings.TrimRight(clientURL, "/"),
		metrics:   metrics,
		now:       time.Now,
		newCode:   auth.NewVerificationCode,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates a user or seller account and mails its verification code.
// A previously used email is rejected whatever role it belongs to.
func (s *AccountService) Signup(ctx context.Context, role models.Role, req models.SignupRequest) (*models.Account, error) {
	if role != models.RoleUser && role != models.RoleSeller {
		return nil, validationError("Cannot sign up as %s", role)
	}

	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if email == "" || req.Password == "" || name == "" {
		return nil, validationError("All fields are required")
	}
	if len(req.Password) < 6 {
		return nil, validationError("Password must be at least 6 characters")
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, validationError("An account with this email already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	code, err := s.verificationCode(ctx)
	if err != nil {
		return nil, err
	}
	expires := s.now().Add(auth.VerificationCodeTTL)

	account := &models.Account{
		Email:                 email,
		PasswordHash:          hash,
		Name:                  name,
		Role:                  role,
		Location:              strings.TrimSpace(req.Location),
		VerificationToken:     code,
		VerificationExpiresAt: &expires,
	}
	if role == models.RoleSeller {
		account.ShopName = strings.TrimSpace(req.ShopName)
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, validationError("An account with this email already exists")
		}
		return nil, err
	}

	s.metrics.Inc(ctx, s.metrics.AccountsSignedUp, attribute.String("role", string(role)))
	log.Printf("[AUTH] Account created: id=%d, role=%s", account.ID, role)

	if err := s.mail.SendVerification(ctx, account.Email, account.Name, code); err != nil {
		log.Printf("[AUTH] Verification mail for account %d failed: %v", account.ID, err)
	}

	return account, nil
}

// verificationCode draws codes until one is not pending on another account,
// since verification looks accounts up by code alone
func (s *AccountService) verificationCode(ctx context.Context) (string, error) {
	for range codeAttempts {
		code, err := s.newCode()
		if err != nil {
			return "", err
		}
		_, err = s.accounts.GetByVerificationToken(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", errors.New("failed to find an unused verification code")
}

// loginAllowed reports whether an account with role may use the login
// endpoint of family. Admins sign in through the user endpoint.
func loginAllowed(family, role models.Role) bool {
	switch family {
	case models.RoleUser:
		return role == models.RoleUser || role == models.RoleAdmin
	case models.RoleSeller:
		return role == models.RoleSeller
	}
	return false
}

// Login checks credentials and issues exactly one session token
func (s *AccountService) Login(ctx context.Context, family models.Role, email, password string) (*models.Account, string, error) {
	outcome := "failure"
	defer func() {
		s.metrics.Inc(ctx, s.metrics.LoginsTotal, attribute.String("family", string(family)), attribute.String("outcome", outcome))
	}()

	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", authenticationError("Invalid credentials")
	}
	if err != nil {
		return nil, "", err
	}
	if !auth.CheckPassword(account.PasswordHash, password) || !loginAllowed(family, account.Role) {
		return nil, "", authenticationError("Invalid credentials")
	}

	now := s.now()
	account.LastLogin = &now
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(account.ID, account.Role)
	if err != nil {
		return nil, "", err
	}

	outcome = "success"
	log.Printf("[AUTH] Login: id=%d, role=%s", account.ID, account.Role)
	return account, token, nil
}

// VerifyEmail consumes a verification code
func (s *AccountService) VerifyEmail(ctx context.Context, code string) (*models.Account, error) {
	code = strings.TrimSpace(code)
	account, err := s.accounts.GetByVerificationToken(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, validationError("Invalid or expired verification code")
	}
	if err != nil {
		return nil, err
	}
	if account.VerificationExpiresAt == nil || !s.now().Before(*account.VerificationExpiresAt) {
		return nil, validationError("Invalid or expired verification code")
	}

	account.IsVerified = true
	account.VerificationToken = ""
	account.VerificationExpiresAt = nil
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}

	if err := s.mail.SendWelcome(ctx, account.Email, account.Name); err != nil {
		log.Printf("[AUTH] Welcome mail for account %d failed: %v", account.ID, err)
	}
	return account, nil
}

// ForgotPassword stores a reset token and mails the reset link
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return notFoundOr(err, "User")
	}

	token, err := auth.NewResetToken()
	if err != nil {
		return err
	}
	expires := s.now().Add(auth.ResetTokenTTL)
	account.ResetToken = token
	account.ResetExpiresAt = &expires
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password/%s", s.clientURL, token)
	if err := s.mail.SendResetRequest(ctx, account.Email, link); err != nil {
		return err
	}
	return nil
}

// ResetPassword consumes a reset token and replaces the password
func (s *AccountService) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < 6 {
		return validationError("Password must be at least 6 characters")
	}

	account, err := s.accounts.GetByResetToken(ctx, strings.TrimSpace(token))
	if errors.Is(err, store.ErrNotFound) {
		return validationError("Invalid or expired reset token")
	}
	if err != nil {
		return err
	}
	if account.ResetExpiresAt == nil || !s.now().Before(*account.ResetExpiresAt) {
		return validationError("Invalid or expired reset token")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	account.PasswordHash = hash
	account.ResetToken = ""
	account.ResetExpiresAt = nil
	if err := s.accounts.Update(ctx, account); err != nil {
		return err
	}

	if err := s.mail.SendResetSuccess(ctx, account.Email); err != nil {
		log.Printf("[AUTH] Reset confirmation mail for account %d failed: %v", account.ID, err)
	}
	return nil
}

// CheckAuth returns the account behind a verified session
func (s *AccountService) CheckAuth(ctx context.Context, id auth.Identity) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, id.SubjectID)
	if err != nil {
		return nil, notFoundOr(err, "User")
	}
	return account, nil
}

// UpdateProfile edits name, location and, for sellers, the shop name
func (s *AccountService) UpdateProfile(ctx context.Context, id auth.Identity, req models.UpdateProfileRequest) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, id.SubjectID)
	if err != nil {
		return nil, notFoundOr(err, "User")
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, validationError("Name cannot be empty")
		}
		account.Name = name
	}
	if req.Location != nil {
		account.Location = strings.TrimSpace(*req.Location)
	}
	if req.ShopName != nil {
		if account.Role != models.RoleSeller {
			return nil, validationError("Only sellers have a shop name")
		}
		account.ShopName = strings.TrimSpace(*req.ShopName)
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// PromoteToAdmin gives an existing account the admin role
func (s *AccountService) PromoteToAdmin(ctx context.Context, email string) (*models.Account, error) {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, notFoundOr(err, "User")
	}
	if account.Role == models.RoleAdmin {
		return account, nil
	}

	account.Role = models.RoleAdmin
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, err
	}
	log.Printf("[AUTH] Account %d promoted to admin", account.ID)
	return account, nil
}
