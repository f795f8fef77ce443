// Package notify отправляет уведомления о пересчётах по электронной почте.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/mmeshcher/cashdesk/internal/model"
)

// Sender отправляет одно HTML-письмо одному адресату.
type Sender interface {
	Send(ctx context.Context, to model.Recipient, subject, htmlBody string) error
}

// MailerConfig содержит параметры SMTP-сервера.
type MailerConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	Timeout  time.Duration
}

// Mailer отправляет письма через SMTP.
type Mailer struct {
	client   *mail.Client
	from     string
	fromName string
}

// NewMailer создаёт SMTP-клиент. Соединение устанавливается при каждой отправке.
func NewMailer(cfg MailerConfig) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &Mailer{client: client, from: cfg.From, fromName: cfg.FromName}, nil
}

// Send отправляет письмо адресату.
func (m *Mailer) Send(ctx context.Context, to model.Recipient, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.fromName, m.from); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := msg.AddToFormat(to.Name, to.Email); err != nil {
		return fmt.Errorf("set recipient %s: %w", to.Email, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to.Email, err)
	}
	return nil
}

// LogSender пишет письма в лог вместо отправки. Используется, когда SMTP не настроен.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender создаёт отправитель, пишущий в лог.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send записывает адресата и тему письма в лог.
func (s *LogSender) Send(_ context.Context, to model.Recipient, subject, _ string) error {
	s.logger.Info("mail delivery disabled, skipping",
		zap.String("to", to.Email),
		zap.String("subject", subject),
	)
	return nil
}
