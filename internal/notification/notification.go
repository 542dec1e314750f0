// Package notification fans purchase and linking events out to users.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
)

const (
	// KindPurchaseCompleted indicates a settled and recorded purchase.
	KindPurchaseCompleted = "purchase_completed"
	// KindBankLinked indicates a user linked a bank account.
	KindBankLinked = "bank_linked"
)

// Message describes a notification payload addressed to a user.
type Message struct {
	Kind   string
	UserID string
	Body   string
}

// PurchaseCompleted builds the message sent after a purchase is recorded.
func PurchaseCompleted(userID string, quantity decimal.Decimal, settlementRef string) Message {
	return Message{
		Kind:   KindPurchaseCompleted,
		UserID: userID,
		Body:   fmt.Sprintf("Purchase of %s BTC settled in transaction %s", quantity.String(), settlementRef),
	}
}

// BankLinked builds the message sent after a bank account is linked.
func BankLinked(userID, depositAddress string) Message {
	return Message{
		Kind:   KindBankLinked,
		UserID: userID,
		Body:   "Bank account linked; deposit address " + depositAddress,
	}
}

// Notifier delivers notifications to downstream systems. Delivery is best
// effort; callers never fail a request because a notification failed.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(ctx context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.InfoContext(ctx, "notification",
		slog.String("kind", message.Kind),
		slog.String("user_id", message.UserID),
		slog.String("body", message.Body),
	)
	return nil
}
