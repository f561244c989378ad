package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/digkill/genstudio/internal/models"
)

// Sender is the part of the bot API the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts operator alerts to one Telegram chat.
type Notifier struct {
	api    Sender
	chatID int64
	log    *slog.Logger
}

func NewNotifier(api Sender, chatID int64, log *slog.Logger) *Notifier {
	return &Notifier{api: api, chatID: chatID, log: log}
}

// Connect logs in with token. An empty token or chat disables notifications
// and returns nil.
func Connect(token string, chatID int64, log *slog.Logger) (*Notifier, error) {
	if strings.TrimSpace(token) == "" || chatID == 0 {
		return nil, nil
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	log.Info("telegram notifier ready", "bot", api.Self.UserName)
	return NewNotifier(api, chatID, log), nil
}

func (n *Notifier) NotifyPaymentRequest(ctx context.Context, req models.PaymentRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.send(formatPaymentRequest(req))
}

func (n *Notifier) send(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

func formatPaymentRequest(req models.PaymentRequest) string {
	var b strings.Builder
	b.WriteString("New payment request\n")
	fmt.Fprintf(&b, "User: %s\n", req.UserEmail)
	fmt.Fprintf(&b, "Plan: %d credits, price %d", req.PlanCredits, req.PlanPrice)
	if req.PromoCode != "" {
		fmt.Fprintf(&b, ", promo %s", req.PromoCode)
	}
	fmt.Fprintf(&b, "\nTo pay: %d\n", req.FinalPrice)
	fmt.Fprintf(&b, "Method: %s, account %s\n", req.PaymentMethod, req.UserAccountNumber)
	fmt.Fprintf(&b, "Transaction: %s\n", req.TransactionID)
	fmt.Fprintf(&b, "Request: %s", req.ID)
	return b.String()
}
