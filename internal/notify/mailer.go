// Package notify renders customer emails and hands them to the job queue.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/odyssey-erp/odyssey-bank/jobs"
)

// Enqueuer queues a send-email task.
type Enqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) (*asynq.TaskInfo, error)
}

// Mailer implements the business and withdrawal notifiers.
type Mailer struct {
	queue    Enqueuer
	printer  *message.Printer
	currency string
	logger   *slog.Logger
}

// NewMailer builds a Mailer formatting amounts for locale (a BCP 47 tag,
// "ru" when empty or unknown).
func NewMailer(queue Enqueuer, locale string, logger *slog.Logger) *Mailer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Russian
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{queue: queue, printer: message.NewPrinter(tag), currency: "RUB", logger: logger}
}

// BusinessApproved sends the login credentials of a newly approved business.
func (m *Mailer) BusinessApproved(ctx context.Context, email, businessName, accountNumber, login, password string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Your application for %s has been approved.\n\n", businessName)
	fmt.Fprintf(&b, "Business account: %s\n", accountNumber)
	fmt.Fprintf(&b, "Login: %s\n", login)
	fmt.Fprintf(&b, "Temporary password: %s\n\n", password)
	b.WriteString("Change the password after your first sign in.\n")
	return m.send(ctx, email, "Business application approved", b.String())
}

// BusinessRejected tells the applicant why the application was declined.
func (m *Mailer) BusinessRejected(ctx context.Context, email, businessName, notes string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Your application for %s has been rejected.\n\n", businessName)
	fmt.Fprintf(&b, "Reason: %s\n", notes)
	return m.send(ctx, email, "Business application rejected", b.String())
}

// WithdrawalProcessed reports the decision on a withdrawal request.
func (m *Mailer) WithdrawalProcessed(ctx context.Context, email, businessName string, amount decimal.Decimal, approved bool, notes string) error {
	verdict := "rejected"
	if approved {
		verdict = "approved"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "The withdrawal of %s from %s has been %s.\n", m.FormatAmount(amount), businessName, verdict)
	if notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", notes)
	}
	return m.send(ctx, email, "Withdrawal request "+verdict, b.String())
}

// FormatAmount renders amount with two decimals, locale grouping and the
// currency code.
func (m *Mailer) FormatAmount(amount decimal.Decimal) string {
	return m.printer.Sprintf("%v %s", number.Decimal(amount.InexactFloat64(), number.Scale(2)), m.currency)
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		m.logger.Warn("skip email without recipient", slog.String("subject", subject))
		return nil
	}
	if m.queue == nil {
		m.logger.Info("email queue not configured", slog.String("to", to), slog.String("subject", subject))
		return nil
	}
	info, err := m.queue.EnqueueSendEmail(ctx, jobs.SendEmailPayload{To: to, Subject: subject, Body: body})
	if err != nil {
		return fmt.Errorf("enqueue email %q: %w", subject, err)
	}
	m.logger.Debug("email queued", slog.String("task_id", info.ID), slog.String("subject", subject))
	return nil
}
