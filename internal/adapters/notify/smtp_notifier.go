package notify

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/inboxguard/inboxguard/internal/config"
)

// SMTPNotifier delivers plain-text run reports through a local MTA
type SMTPNotifier struct {
	smtpAddr string
	smtpPort int
	from     string
	to       []string
	logger   *zap.Logger
}

// NewSMTPNotifier creates a new SMTP notifier. The recipient list is a
// comma-separated string in the configuration.
func NewSMTPNotifier(cfg config.NotifyConfig, logger *zap.Logger) *SMTPNotifier {
	var to []string
	for _, recipient := range strings.Split(cfg.To, ",") {
		if recipient = strings.TrimSpace(recipient); recipient != "" {
			to = append(to, recipient)
		}
	}
	return &SMTPNotifier{
		smtpAddr: cfg.SMTPAddress,
		smtpPort: cfg.SMTPPort,
		from:     cfg.From,
		to:       to,
		logger:   logger,
	}
}

// Notify sends the report to the configured recipients over SMTP
func (n *SMTPNotifier) Notify(ctx context.Context, subject string, body string) error {
	if len(n.to) == 0 {
		return fmt.Errorf("no notification recipients configured")
	}

	addr := fmt.Sprintf("%s:%d", n.smtpAddr, n.smtpPort)

	// Get hostname for EHLO
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	// Connect to the MTA with a timeout
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}

	// Set a deadline for the whole exchange
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if err := c.Mail(n.from, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range n.to {
		if err := c.Rcpt(recipient, nil); err != nil {
			n.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			// Continue with other recipients even if one fails
		} else {
			recipientOK = true
		}
	}
	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}

	if _, err := wc.Write(n.buildMessage(subject, body)); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send message data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		n.logger.Warn("QUIT command failed", zap.Error(err))
		// Not returning an error here as the message has already been sent
	}

	n.logger.Info("Sent notification",
		zap.String("subject", subject),
		zap.Strings("recipients", n.to))

	return nil
}

// buildMessage assembles a minimal plain-text RFC 5322 message
func (n *SMTPNotifier) buildMessage(subject string, body string) []byte {
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", n.from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(n.to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	if !strings.HasSuffix(body, "\r\n") {
		msg.WriteString("\r\n")
	}
	return msg.Bytes()
}
