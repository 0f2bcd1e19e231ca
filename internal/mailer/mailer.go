// Package mailer renders the transactional emails and hands them to a Sender.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"

	"go.opentelemetry.io/otel/attribute"

	"github.com/farmerhub/marketplace-api/internal/metrics"
)

// Message is a rendered email
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers rendered messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

const (
	TemplateVerify        = "verify"
	TemplateResetRequest  = "reset-request"
	TemplateResetSuccess  = "reset-success"
	TemplateWelcome       = "welcome"
	TemplateSupportNotify = "support-notification"
)

var subjects = map[string]string{
	TemplateVerify:        "Verify your FarmerHub email",
	TemplateResetRequest:  "Reset your FarmerHub password",
	TemplateResetSuccess:  "Your FarmerHub password was changed",
	TemplateWelcome:       "Welcome to FarmerHub",
	TemplateSupportNotify: "We received your support request",
}

const layout = `{{define "header"}}<!DOCTYPE html><html><body style="font-family:Arial,sans-serif;color:#1f2d1f">
<div style="max-width:560px;margin:0 auto;padding:24px"><h2 style="color:#2e7d32">FarmerHub</h2>{{end}}
{{define "footer"}}<p style="font-size:12px;color:#777">This is an automated message, please do not reply.</p></div></body></html>{{end}}

{{define "verify"}}{{template "header"}}
<p>Hello {{.Name}},</p>
<p>Use this code to verify your email address:</p>
<p style="font-size:28px;letter-spacing:6px;font-weight:bold">{{.Code}}</p>
<p>The code expires in 24 hours.</p>
{{template "footer"}}{{end}}

{{define "reset-request"}}{{template "header"}}
<p>We received a request to reset your password.</p>
<p><a href="{{.Link}}" style="background:#2e7d32;color:#fff;padding:10px 18px;text-decoration:none">Reset password</a></p>
<p>The link expires in one hour. If you did not ask for this, ignore this email.</p>
{{template "footer"}}{{end}}

{{define "reset-success"}}{{template "header"}}
<p>Your password has been reset successfully.</p>
<p>If you did not make this change, contact support immediately.</p>
{{template "footer"}}{{end}}

{{define "welcome"}}{{template "header"}}
<p>Welcome {{.Name}}!</p>
<p>Your email is verified. Fresh produce straight from the farm is a click away.</p>
{{template "footer"}}{{end}}

{{define "support-notification"}}{{template "header"}}
<p>Hello {{.Name}},</p>
<p>Your support request <strong>{{.Subject}}</strong> was received (ticket #{{.TicketID}}). Our team will get back to you soon.</p>
<blockquote style="border-left:3px solid #ccc;padding-left:12px;color:#555">{{.Message}}</blockquote>
{{template "footer"}}{{end}}`

var templates = template.Must(template.New("mail").Parse(layout))

// Mailer renders templates and records delivery outcomes
type Mailer struct {
	sender  Sender
	metrics *metrics.AppMetrics
}

func New(sender Sender, m *metrics.AppMetrics) *Mailer {
	return &Mailer{sender: sender, metrics: m}
}

// Render executes a named template
func Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s mail: %w", name, err)
	}
	return buf.String(), nil
}

func (m *Mailer) send(ctx context.Context, name, to string, data any) error {
	body, err := Render(name, data)
	if err != nil {
		return err
	}

	err = m.sender.Send(ctx, Message{To: to, Subject: subjects[name], HTML: body})
	status := "success"
	if err != nil {
		status = "error"
	}
	m.metrics.Inc(ctx, m.metrics.MailsSent, attribute.String("template", name), attribute.String("status", status))
	if err != nil {
		return fmt.Errorf("failed to send %s mail: %w", name, err)
	}
	log.Printf("[MAIL] Sent %s mail to %s", name, to)
	return nil
}

func (m *Mailer) SendVerification(ctx context.Context, to, name, code string) error {
	return m.send(ctx, TemplateVerify, to, map[string]string{"Name": name, "Code": code})
}

func (m *Mailer) SendResetRequest(ctx context.Context, to, link string) error {
	return m.send(ctx, TemplateResetRequest, to, map[string]string{"Link": link})
}

func (m *Mailer) SendResetSuccess(ctx context.Context, to string) error {
	return m.send(ctx, TemplateResetSuccess, to, nil)
}

func (m *Mailer) SendWelcome(ctx context.Context, to, name string) error {
	return m.send(ctx, TemplateWelcome, to, map[string]string{"Name": name})
}

func (m *Mailer) SendSupportNotification(ctx context.Context, to, name, subject, message string, ticketID int64) error {
	return m.send(ctx, TemplateSupportNotify, to, map[string]any{
		"Name":     name,
		"Subject":  subject,
		"Message":  message,
		"TicketID": ticketID,
	})
}
