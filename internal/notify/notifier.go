package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/mmeshcher/cashdesk/internal/metrics"
	"github.com/mmeshcher/cashdesk/internal/model"
)

// Notifier рассылает письмо о пересчёте всем адресатам по одному.
type Notifier struct {
	sender   Sender
	template *Template
	logger   *zap.Logger
}

// NewNotifier создаёт рассыльщик. При nil-шаблоне используется шаблон по умолчанию.
func NewNotifier(sender Sender, tpl *Template, logger *zap.Logger) (*Notifier, error) {
	if tpl == nil {
		var err error
		tpl, err = NewTemplate("")
		if err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{sender: sender, template: tpl, logger: logger}, nil
}

// NotifyCount отправляет отчёт о пересчёте каждому адресату и возвращает число успешных отправок.
// Ошибка одного адресата не прерывает рассылку остальным.
func (n *Notifier) NotifyCount(ctx context.Context, recipients []model.Recipient, report CountReport) int {
	body, err := n.template.Render(report)
	if err != nil {
		n.logger.Error("render count report", zap.Error(err), zap.String("invoice", report.InvoiceNumber))
		metrics.IncNotification(metrics.ResultError)
		return 0
	}

	subject := report.Subject()
	sent := 0
	for _, rcpt := range recipients {
		if err := n.sender.Send(ctx, rcpt, subject, body); err != nil {
			n.logger.Error("send count notification",
				zap.Error(err),
				zap.String("invoice", report.InvoiceNumber),
				zap.String("recipient", rcpt.Email),
			)
			metrics.IncNotification(metrics.ResultError)
			continue
		}
		metrics.IncNotification(metrics.ResultSuccess)
		sent++
	}

	return sent
}
