package telegram

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/genstudio/internal/models"
	"github.com/digkill/genstudio/pkg/logger"
)

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func TestNotifyPaymentRequest(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender, 42, logger.Nop())

	err := n.NotifyPaymentRequest(context.Background(), models.PaymentRequest{
		ID: "p1", UserEmail: "jane@example.com", PlanCredits: 50, PlanPrice: 199, PromoCode: "SAVE10",
		FinalPrice: 179, PaymentMethod: models.PaymentMethodUPI, UserAccountNumber: "jane@upi", TransactionID: "TX-1",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Contains(t, msg.Text, "jane@example.com")
	assert.Contains(t, msg.Text, "promo SAVE10")
	assert.Contains(t, msg.Text, "To pay: 179")
	assert.Contains(t, msg.Text, "Transaction: TX-1")
}

func TestNotifyPaymentRequestWithoutPromo(t *testing.T) {
	text := formatPaymentRequest(models.PaymentRequest{ID: "p2", PlanCredits: 100, PlanPrice: 299, FinalPrice: 299})
	assert.NotContains(t, text, "promo")
}

func TestNotifyPaymentRequestSendError(t *testing.T) {
	n := NewNotifier(&fakeSender{err: errors.New("forbidden")}, 42, logger.Nop())
	err := n.NotifyPaymentRequest(context.Background(), models.PaymentRequest{ID: "p1"})
	assert.ErrorContains(t, err, "forbidden")
}

func TestConnectDisabledWithoutToken(t *testing.T) {
	n, err := Connect("", 42, logger.Nop())
	require.NoError(t, err)
	assert.Nil(t, n)
}
