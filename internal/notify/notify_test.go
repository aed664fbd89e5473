package notify

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-bank/jobs"
)

type queue struct {
	payloads []jobs.SendEmailPayload
	err      error
}

func (q *queue) EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.payloads = append(q.payloads, payload)
	return &asynq.TaskInfo{ID: "task-1"}, nil
}

func TestBusinessApprovedCarriesCredentials(t *testing.T) {
	q := &queue{}
	m := NewMailer(q, "en", nil)

	require.NoError(t, m.BusinessApproved(context.Background(), "cfo@coffee.test", "Coffee Ltd", "BUS123456", "BUS1", "0123456789"))
	require.Len(t, q.payloads, 1)
	msg := q.payloads[0]
	require.Equal(t, "cfo@coffee.test", msg.To)
	require.Equal(t, "Business application approved", msg.Subject)
	require.Contains(t, msg.Body, "BUS123456")
	require.Contains(t, msg.Body, "Login: BUS1")
	require.Contains(t, msg.Body, "0123456789")
}

func TestWithdrawalAmountIsLocalized(t *testing.T) {
	q := &queue{}
	m := NewMailer(q, "en", nil)

	require.Equal(t, "1,250.50 RUB", m.FormatAmount(decimal.RequireFromString("1250.5")))
	require.NoError(t, m.WithdrawalProcessed(context.Background(), "a@b.test", "Coffee Ltd", decimal.RequireFromString("1250.5"), false, "no invoice"))
	require.Equal(t, "Withdrawal request rejected", q.payloads[0].Subject)
	require.Contains(t, q.payloads[0].Body, "1,250.50 RUB")
	require.Contains(t, q.payloads[0].Body, "Notes: no invoice")
}

func TestMailerSkipsMissingRecipientAndWrapsQueueErrors(t *testing.T) {
	boom := errors.New("redis down")
	m := NewMailer(&queue{err: boom}, "", nil)

	require.NoError(t, m.BusinessRejected(context.Background(), " ", "Coffee", "dup"))
	require.ErrorIs(t, m.BusinessRejected(context.Background(), "a@b.test", "Coffee", "dup"), boom)
}

func TestSMTPSenderRendersPlainText(t *testing.T) {
	var gotAddr string
	var gotMsg []byte
	s := NewSMTPSender(SMTPConfig{Host: "mail.local", Port: 1025, From: "bank@odyssey.test"})
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotMsg = addr, msg
		require.Nil(t, a)
		require.Equal(t, []string{"a@b.test"}, to)
		return nil
	}

	require.NoError(t, s.Send(context.Background(), jobs.SendEmailPayload{To: "a@b.test", Subject: "Hi", Body: "line1\nline2"}))
	require.Equal(t, "mail.local:1025", gotAddr)
	require.Contains(t, string(gotMsg), "Subject: Hi\r\n")
	require.Contains(t, string(gotMsg), "line1\r\nline2")

	require.Error(t, NewSMTPSender(SMTPConfig{}).Send(context.Background(), jobs.SendEmailPayload{To: "a@b.test"}))
}
