/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package notifications delivers rendered backup reports over SMTP.
package notifications

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/muninn/internal/config"
	"github.com/friendsincode/muninn/internal/models"
)

// sendFunc matches smtp.SendMail; replaced in tests.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service sends backup reports by email.
type Service struct {
	cfg    config.EmailConfig
	logger zerolog.Logger
	send   sendFunc
	now    func() time.Time
}

func NewService(cfg config.EmailConfig, logger zerolog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		logger: logger.With().Str("component", "notifications").Logger(),
		send:   smtp.SendMail,
		now:    time.Now,
	}
}

// Subject builds the report subject line from the analysis summary.
func (s *Service) Subject(summary models.AnalysisSummary, issueCount int) string {
	prefix := s.cfg.SubjectPrefix
	if prefix == "" {
		prefix = "[Backup Monitor]"
	}
	subject := fmt.Sprintf("%s Report %s - Health %.0f%%",
		prefix, s.now().Format("2006-01-02"), summary.HealthPercentage)
	if issueCount > 0 {
		subject += fmt.Sprintf(" - %d issue(s)", issueCount)
	}
	return subject
}

// SendReport delivers the rendered report to the configured recipients.
// When both bodies are non-empty the message is multipart/alternative so
// mail clients prefer the HTML part.
func (s *Service) SendReport(ctx context.Context, subject, textBody, htmlBody string) error {
	if !s.cfg.Enabled {
		s.logger.Debug().Msg("email delivery disabled")
		return nil
	}
	if s.cfg.SMTPHost == "" {
		return fmt.Errorf("SMTP not configured")
	}
	if len(s.cfg.ToAddresses) == 0 {
		return fmt.Errorf("no report recipients configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := s.buildMessage(subject, textBody, htmlBody)

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}

	if err := s.send(addr, auth, s.cfg.FromAddress, s.cfg.ToAddresses, msg); err != nil {
		return fmt.Errorf("SMTP send failed: %w", err)
	}

	s.logger.Info().
		Strs("to", s.cfg.ToAddresses).
		Str("subject", subject).
		Msg("report email sent")
	return nil
}

func (s *Service) buildMessage(subject, textBody, htmlBody string) []byte {
	from := s.cfg.FromAddress
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromAddress)
	}

	msg := strings.Builder{}
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(s.cfg.ToAddresses, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", s.now().Format(time.RFC1123Z)))
	msg.WriteString("MIME-Version: 1.0\r\n")

	switch {
	case textBody != "" && htmlBody != "":
		boundary := strings.ReplaceAll(uuid.NewString(), "-", "")
		msg.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%q\r\n", boundary))
		msg.WriteString("\r\n")

		msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(textBody)
		msg.WriteString("\r\n")

		msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(htmlBody)
		msg.WriteString("\r\n")

		msg.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	case htmlBody != "":
		msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(htmlBody)

	default:
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(textBody)
	}

	return []byte(msg.String())
}
