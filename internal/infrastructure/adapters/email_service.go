package adapters

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// EmailServiceConfig holds email delivery configuration
type EmailServiceConfig struct {
	Provider  string
	APIKey    string
	FromEmail string
	FromName  string
	ReplyTo   string
	// SMTP settings (for mailpit, smtp providers)
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPUseTLS   bool
}

// EmailService delivers user-facing emails via the configured provider
type EmailService struct {
	logger *zap.Logger
	config EmailServiceConfig
	client *sendgrid.Client
}

// NewEmailService creates a new email service
func NewEmailService(logger *zap.Logger, config EmailServiceConfig) (*EmailService, error) {
	provider := strings.ToLower(strings.TrimSpace(config.Provider))
	if provider == "" {
		return nil, fmt.Errorf("email provider is required")
	}
	if strings.TrimSpace(config.FromEmail) == "" {
		return nil, fmt.Errorf("email from address is required")
	}

	var client *sendgrid.Client
	switch provider {
	case "sendgrid":
		if strings.TrimSpace(config.APIKey) == "" {
			return nil, fmt.Errorf("sendgrid api key is required")
		}
		client = sendgrid.NewSendClient(config.APIKey)
	case "mailpit", "smtp":
		if config.SMTPHost == "" {
			return nil, fmt.Errorf("smtp host is required for %s provider", provider)
		}
		if config.SMTPPort == 0 {
			config.SMTPPort = 1025 // default mailpit port
		}
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", provider)
	}

	return &EmailService{
		logger: logger,
		config: config,
		client: client,
	}, nil
}

func (e *EmailService) sendEmail(ctx context.Context, to, subject, htmlContent, textContent string) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	switch strings.ToLower(e.config.Provider) {
	case "sendgrid":
		return e.sendViaSendgrid(ctxWithTimeout, to, subject, htmlContent, textContent)
	case "mailpit", "smtp":
		return e.sendViaSMTP(ctxWithTimeout, to, subject, htmlContent)
	default:
		return fmt.Errorf("unsupported email provider: %s", e.config.Provider)
	}
}

func (e *EmailService) sendViaSendgrid(ctx context.Context, to, subject, htmlContent, textContent string) error {
	if e.client == nil {
		return fmt.Errorf("sendgrid client not configured")
	}

	from := mail.NewEmail(e.config.FromName, e.config.FromEmail)
	toEmail := mail.NewEmail("", to)
	message := mail.NewSingleEmail(from, subject, toEmail, textContent, htmlContent)

	if strings.TrimSpace(e.config.ReplyTo) != "" {
		message.SetReplyTo(mail.NewEmail(e.config.FromName, e.config.ReplyTo))
	}

	response, err := e.client.SendWithContext(ctx, message)
	if err != nil {
		e.logger.Error("Failed to send email",
			zap.String("provider", "sendgrid"),
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	if response.StatusCode >= 400 {
		e.logger.Error("Email service returned error",
			zap.String("provider", "sendgrid"),
			zap.String("to", to),
			zap.Int("status_code", response.StatusCode),
			zap.String("response_body", response.Body))
		return fmt.Errorf("email service error: status %d", response.StatusCode)
	}

	e.logger.Info("Email sent",
		zap.String("provider", "sendgrid"),
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}

func (e *EmailService) sendViaSMTP(_ context.Context, to, subject, htmlContent string) error {
	from := e.config.FromEmail
	if e.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", e.config.FromName, e.config.FromEmail)
	}

	var msg bytes.Buffer
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	if e.config.ReplyTo != "" {
		msg.WriteString(fmt.Sprintf("Reply-To: %s\r\n", e.config.ReplyTo))
	}
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlContent)

	addr := fmt.Sprintf("%s:%d", e.config.SMTPHost, e.config.SMTPPort)

	var auth smtp.Auth
	if e.config.SMTPUsername != "" {
		auth = smtp.PlainAuth("", e.config.SMTPUsername, e.config.SMTPPassword, e.config.SMTPHost)
	}

	var err error
	if e.config.SMTPUseTLS {
		err = e.sendSMTPWithTLS(addr, auth, e.config.FromEmail, to, msg.Bytes())
	} else {
		err = e.sendSMTPWithSTARTTLS(addr, auth, e.config.FromEmail, to, msg.Bytes())
	}
	if err != nil {
		e.logger.Error("Failed to send email via SMTP",
			zap.String("to", to),
			zap.String("host", e.config.SMTPHost),
			zap.Error(err))
		return fmt.Errorf("smtp send failed: %w", err)
	}

	e.logger.Info("Email sent",
		zap.String("provider", e.config.Provider),
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}

func (e *EmailService) sendSMTPWithTLS(addr string, auth smtp.Auth, from, to string, msg []byte) error {
	conn, err := tls.DialWithDialer(&net.Dialer{Timeout: 10 * time.Second}, "tcp", addr, &tls.Config{ServerName: e.config.SMTPHost})
	if err != nil {
		return fmt.Errorf("tls dial failed: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.config.SMTPHost)
	if err != nil {
		return err
	}
	defer client.Close()

	return e.submitMessage(client, auth, from, to, msg)
}

func (e *EmailService) sendSMTPWithSTARTTLS(addr string, auth smtp.Auth, from, to string, msg []byte) error {
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("smtp dial failed: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.config.SMTPHost)
	if err != nil {
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err = client.StartTLS(&tls.Config{ServerName: e.config.SMTPHost}); err != nil {
			return fmt.Errorf("starttls failed: %w", err)
		}
	}

	return e.submitMessage(client, auth, from, to, msg)
}

func (e *EmailService) submitMessage(client *smtp.Client, auth smtp.Auth, from, to string, msg []byte) error {
	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err = w.Write(msg); err != nil {
		return err
	}
	if err = w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// SendTransactionEmail notifies the user that a transaction reached a
// terminal state
func (e *EmailService) SendTransactionEmail(ctx context.Context, email, txType, status, amount, currency string) error {
	var subject, heading, body string
	switch status {
	case "completed":
		subject = fmt.Sprintf("Your %s is complete", readableTxType(txType))
		heading = "All done."
		body = fmt.Sprintf("Your %s of %s %s has completed.", readableTxType(txType), amount, currency)
	default:
		subject = fmt.Sprintf("Your %s was not completed", readableTxType(txType))
		heading = "Something went wrong."
		body = fmt.Sprintf("Your %s of %s %s ended with status: %s. Your funds have not been affected beyond what the transaction history shows.", readableTxType(txType), amount, currency, status)
	}

	htmlContent := e.renderCard(heading, body, "")
	textContent := fmt.Sprintf("%s\n\n%s\n\n— Aurum", heading, body)
	return e.sendEmail(ctx, email, subject, htmlContent, textContent)
}

// SendKYCDecisionEmail notifies the user of a verification decision
func (e *EmailService) SendKYCDecisionEmail(ctx context.Context, email string, approved bool, reason string) error {
	var subject, heading, body, extra string
	if approved {
		subject = "Identity verified"
		heading = "You're verified."
		body = "Your identity verification is complete. You can now buy, sell and take delivery of gold."
	} else {
		subject = "Verification needs attention"
		heading = "We need a bit more."
		body = "We couldn't complete your verification. Please review the reason below and resubmit."
		if reason != "" {
			extra = fmt.Sprintf(`<table width="100%%" cellpadding="0" cellspacing="0" style="background-color:#f5f5f7;border-radius:12px;"><tr><td style="padding:20px 24px;"><p style="font-family:-apple-system,Helvetica Neue,Helvetica,Arial,sans-serif;font-size:14px;color:#424245;margin:0;line-height:1.5;">%s</p></td></tr></table>`, html.EscapeString(reason))
		}
	}

	htmlContent := e.renderCard(heading, body, extra)
	textContent := fmt.Sprintf("%s\n\n%s\n%s\n\n— Aurum", heading, body, reason)
	return e.sendEmail(ctx, email, subject, htmlContent, textContent)
}

func (e *EmailService) renderCard(heading, body, extra string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><meta charset="UTF-8"><meta name="viewport" content="width=device-width,initial-scale=1.0"></head>
<body style="margin:0;padding:0;background-color:#f5f5f7;-webkit-font-smoothing:antialiased;">
<table width="100%%" cellpadding="0" cellspacing="0" style="background-color:#f5f5f7;padding:40px 20px;">
<tr><td align="center">
<table width="480" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:16px;overflow:hidden;">
<tr><td style="padding:40px 40px 0 40px;">
  <p style="font-family:-apple-system,Helvetica Neue,Helvetica,Arial,sans-serif;font-size:28px;font-weight:700;color:#1d1d1f;margin:0;letter-spacing:-0.5px;">Aurum</p>
</td></tr>
<tr><td style="padding:32px 40px;">
  <p style="font-family:-apple-system,Helvetica Neue,Helvetica,Arial,sans-serif;font-size:22px;font-weight:600;color:#1d1d1f;margin:0 0 16px 0;letter-spacing:-0.3px;">%s</p>
  <p style="font-family:-apple-system,Helvetica Neue,Helvetica,Arial,sans-serif;font-size:15px;color:#1d1d1f;margin:0 0 24px 0;line-height:1.5;">%s</p>%s
</td></tr>
<tr><td style="padding:0 40px 40px 40px;border-top:1px solid #f5f5f7;">
  <p style="font-family:-apple-system,Helvetica Neue,Helvetica,Arial,sans-serif;font-size:12px;color:#86868b;margin:20px 0 0 0;line-height:1.5;">Aurum — Gold that moves at the speed of money.</p>
</td></tr>
</table>
</td></tr></table>
</body></html>`, html.EscapeString(heading), html.EscapeString(body), extra)
}

func readableTxType(txType string) string {
	switch txType {
	case "buy_gold":
		return "gold purchase"
	case "sell_gold":
		return "gold sale"
	case "physical_delivery":
		return "delivery request"
	default:
		return strings.ReplaceAll(txType, "_", " ")
	}
}
