package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holdings is the user's locally recorded on-chain position.
type Holdings struct {
	UserID         string
	DepositAddress string
	Balance        decimal.Decimal
	AsOf           time.Time
}
