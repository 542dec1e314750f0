package purchase

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseRequest captures the user-provided purchase details. Quantity
// accepts either a JSON number or a decimal string.
type PurchaseRequest struct {
	AccountID string          `json:"account_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// PurchaseResponse represents the API response for a completed purchase.
type PurchaseResponse struct {
	Message       string    `json:"message"`
	TransactionID string    `json:"transaction_id"`
	Quantity      string    `json:"quantity"`
	UnitPrice     string    `json:"unit_price"`
	FiatCost      string    `json:"fiat_cost"`
	Balance       string    `json:"balance"`
	CompletedAt   time.Time `json:"completed_at"`
}
