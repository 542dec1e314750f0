package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nevy-wallets/satoshi/internal/apperr"
	"github.com/nevy-wallets/satoshi/internal/bank"
	"github.com/nevy-wallets/satoshi/internal/chain"
	"github.com/nevy-wallets/satoshi/internal/ledger"
	"github.com/nevy-wallets/satoshi/internal/metrics"
	"github.com/nevy-wallets/satoshi/internal/notification"
	"github.com/nevy-wallets/satoshi/internal/rates"
	"github.com/nevy-wallets/satoshi/internal/userlock"
)

// Stage names the purchase state machine's states.
type Stage string

const (
	StagePricing    Stage = "pricing"
	StageValidating Stage = "validating"
	StageSettling   Stage = "settling"
	StageRecording  Stage = "recording"
	StageCompleted  Stage = "completed"
	StageAborted    Stage = "aborted"
)

// quantityPlaces is the smallest unit the node accepts (one satoshi).
const quantityPlaces = 8

// recordTimeout bounds the ledger write once a settlement has gone out.
const recordTimeout = 5 * time.Second

// DefaultFeeRate is the fixed fee policy applied before every send, in coins per kvB.
var DefaultFeeRate = decimal.New(1, -5)

// Deps aggregates the collaborators of the purchase service.
type Deps struct {
	Oracle         rates.Oracle
	Balances       BalanceSource
	Wallets        WalletProvisioner
	Node           chain.Node
	Store          ledger.Store
	Locks          userlock.Locker
	Notifier       notification.Notifier
	Logger         *slog.Logger
	TreasuryWallet string
	FeeRate        decimal.Decimal
}

// Service coordinates a bank-funded purchase settled on-chain.
type Service struct {
	oracle   rates.Oracle
	balances BalanceSource
	wallets  WalletProvisioner
	node     chain.Node
	store    ledger.Store
	locks    userlock.Locker
	notifier notification.Notifier
	logger   *slog.Logger
	treasury string
	feeRate  decimal.Decimal
}

// NewService validates the dependencies and builds the service.
func NewService(d Deps) (*Service, error) {
	switch {
	case d.Oracle == nil:
		return nil, fmt.Errorf("rate oracle is required")
	case d.Balances == nil:
		return nil, fmt.Errorf("balance source is required")
	case d.Wallets == nil:
		return nil, fmt.Errorf("wallet provisioner is required")
	case d.Node == nil:
		return nil, fmt.Errorf("node is required")
	case d.Store == nil:
		return nil, fmt.Errorf("ledger store is required")
	}
	if d.Locks == nil {
		d.Locks = userlock.NewMemory()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if !d.FeeRate.IsPositive() {
		d.FeeRate = DefaultFeeRate
	}
	return &Service{
		oracle:   d.Oracle,
		balances: d.Balances,
		wallets:  d.Wallets,
		node:     d.Node,
		store:    d.Store,
		locks:    d.Locks,
		notifier: d.Notifier,
		logger:   d.Logger.With("component", "purchase"),
		treasury: d.TreasuryWallet,
		feeRate:  d.FeeRate,
	}, nil
}

// Request captures one purchase attempt.
type Request struct {
	UserID    string
	AccountID string
	Quantity  decimal.Decimal
}

// Outcome represents a completed purchase. It is never mutated after creation.
type Outcome struct {
	SettlementRef string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	FiatCost      decimal.Decimal
	Balance       decimal.Decimal
	CompletedAt   time.Time
}

// Purchase prices the quantity, checks the target bank account can cover
// it, settles on-chain to the user's deposit address and records the new
// balance. The funds check is advisory: no hold is placed with the bank, so
// attempts for the same user are serialized from validation to recording.
func (s *Service) Purchase(ctx context.Context, req Request) (Outcome, error) {
	run := s.begin(req)

	if err := validate(req); err != nil {
		return Outcome{}, run.abort(err)
	}

	run.enter(StagePricing)
	price, err := s.oracle.Price(ctx)
	if err != nil {
		return Outcome{}, run.abort(tag(err, apperr.KindRateUnavailable, "exchange rate unavailable"))
	}
	cost := req.Quantity.Mul(price)

	unlock, err := s.locks.Lock(ctx, "purchase:"+req.UserID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{}, run.abort(apperr.Wrap(apperr.KindConflict, "another purchase is in progress", err))
		}
		return Outcome{}, run.abort(apperr.Wrap(apperr.KindInternal, "purchase lock unavailable", err))
	}
	defer unlock()

	run.enter(StageValidating)
	snapshots, err := s.balances.Balances(ctx, req.UserID)
	if err != nil {
		return Outcome{}, run.abort(tag(err, apperr.KindBankUnavailable, "bank balances unavailable"))
	}
	account, ok := bank.Find(snapshots, req.AccountID)
	if !ok {
		return Outcome{}, run.abort(apperr.New(apperr.KindAccountNotFound, "bank account not found"))
	}
	if account.Available.LessThan(cost) {
		return Outcome{}, run.abort(apperr.New(apperr.KindInsufficientFunds,
			"insufficient funds in the bank account for this purchase"))
	}

	run.enter(StageSettling)
	address, err := s.wallets.EnsureWallet(ctx, req.UserID)
	if err != nil {
		return Outcome{}, run.abort(tag(err, apperr.KindWalletProvisionFailed, "could not provision wallet"))
	}
	if err := s.node.SetTxFee(ctx, s.treasury, s.feeRate); err != nil {
		return Outcome{}, run.abort(apperr.Wrap(apperr.KindSettlementFailed, "settlement failed", err))
	}
	txid, err := s.node.SendToAddress(ctx, s.treasury, address, req.Quantity)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("settlement outcome unknown",
				slog.String("user_id", req.UserID),
				slog.String("address", address),
				slog.String("quantity", req.Quantity.String()),
				slog.Any("error", err))
		}
		return Outcome{}, run.abort(apperr.Wrap(apperr.KindSettlementFailed, "settlement failed", err))
	}

	run.enter(StageRecording)
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	balance, err := s.store.Credit(recordCtx, req.UserID, req.Quantity)
	if err != nil {
		// The coins are already on-chain; the local record now under-states
		// holdings until reconciled against the node.
		metrics.RecordUnrecordedSettlement()
		s.logger.Error("settled purchase not recorded",
			slog.String("user_id", req.UserID),
			slog.String("settlement_ref", txid),
			slog.String("address", address),
			slog.String("quantity", req.Quantity.String()),
			slog.Any("error", err),
		)
		return Outcome{}, run.abort(apperr.Wrap(apperr.KindStoreWriteFailed,
			"purchase settled but balance could not be recorded", err))
	}

	outcome := Outcome{
		SettlementRef: txid,
		Quantity:      req.Quantity,
		UnitPrice:     price,
		FiatCost:      cost,
		Balance:       balance,
		CompletedAt:   time.Now().UTC(),
	}
	run.complete(outcome)

	if s.notifier != nil {
		if err := s.notifier.Send(recordCtx, notification.PurchaseCompleted(req.UserID, req.Quantity, txid)); err != nil {
			s.logger.Warn("purchase notification failed", slog.String("user_id", req.UserID), slog.Any("error", err))
		}
	}
	return outcome, nil
}

func validate(req Request) error {
	if strings.TrimSpace(req.UserID) == "" {
		return apperr.New(apperr.KindUnauthorized, "user is required")
	}
	if !req.Quantity.IsPositive() {
		return apperr.New(apperr.KindInvalidQuantity, "quantity must be positive")
	}
	if !req.Quantity.Equal(req.Quantity.Truncate(quantityPlaces)) {
		return apperr.New(apperr.KindInvalidQuantity, "quantity supports at most 8 decimal places")
	}
	if strings.TrimSpace(req.AccountID) == "" {
		return apperr.New(apperr.KindInvalid, "account_id is required")
	}
	return nil
}

// tag keeps an already tagged failure and wraps anything else in kind.
func tag(err error, kind apperr.Kind, message string) error {
	var tagged *apperr.Error
	if errors.As(err, &tagged) {
		return err
	}
	return apperr.Wrap(kind, message, err)
}

// attempt tracks one run through the state machine for logs and metrics.
type attempt struct {
	logger  *slog.Logger
	stage   Stage
	entered time.Time
}

func (s *Service) begin(req Request) *attempt {
	return &attempt{
		logger: s.logger.With(
			slog.String("user_id", req.UserID),
			slog.String("account_id", req.AccountID),
			slog.String("quantity", req.Quantity.String()),
		),
		entered: time.Now(),
	}
}

func (a *attempt) leave() {
	if a.stage != "" {
		metrics.ObserveStage(string(a.stage), time.Since(a.entered))
	}
}

func (a *attempt) enter(stage Stage) {
	a.leave()
	a.stage = stage
	a.entered = time.Now()
	a.logger.Debug("purchase stage", slog.String("stage", string(stage)))
}

func (a *attempt) abort(err error) error {
	a.leave()
	kind := apperr.KindOf(err)
	attrs := []any{
		slog.String("stage", string(a.stage)),
		slog.String("reason", string(kind)),
		slog.Any("error", err),
	}
	if kind.Class() == apperr.ClassClient {
		a.logger.Info("purchase aborted", attrs...)
	} else {
		a.logger.Error("purchase aborted", attrs...)
	}
	a.stage = StageAborted
	metrics.RecordPurchase(string(kind))
	return err
}

func (a *attempt) complete(o Outcome) {
	a.leave()
	a.stage = StageCompleted
	metrics.RecordPurchase(string(StageCompleted))
	a.logger.Info("purchase completed",
		slog.String("settlement_ref", o.SettlementRef),
		slog.String("fiat_cost", o.FiatCost.String()),
		slog.String("balance", o.Balance.String()),
	)
}
