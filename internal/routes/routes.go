package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nevy-wallets/satoshi/internal/auth"
	"github.com/nevy-wallets/satoshi/internal/bank"
	"github.com/nevy-wallets/satoshi/internal/chain"
	"github.com/nevy-wallets/satoshi/internal/config"
	"github.com/nevy-wallets/satoshi/internal/identity"
	"github.com/nevy-wallets/satoshi/internal/ledger"
	"github.com/nevy-wallets/satoshi/internal/middleware"
	"github.com/nevy-wallets/satoshi/internal/notification"
	"github.com/nevy-wallets/satoshi/internal/purchase"
	"github.com/nevy-wallets/satoshi/internal/rates"
	"github.com/nevy-wallets/satoshi/internal/userlock"
	"github.com/nevy-wallets/satoshi/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes. DB and Cache
// may be nil in development, where in-memory stores take their place.
type Deps struct {
	Cfg        config.Config
	DB         *pgxpool.Pool
	Cache      *redis.Client
	Logger     *slog.Logger
	Node       chain.Node
	Oracle     rates.Oracle
	Aggregator bank.Aggregator
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	switch {
	case d.Node == nil:
		return fmt.Errorf("bitcoin node is required")
	case d.Oracle == nil:
		return fmt.Errorf("rate oracle is required")
	case d.Aggregator == nil:
		return fmt.Errorf("bank aggregator is required")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Metrics())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	// Stores
	var (
		records      ledger.Store
		identityRepo identity.Repository
		locks        userlock.Locker
	)
	if d.DB != nil {
		records = ledger.NewPostgresStore(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		records = ledger.NewInMemory()
		identityRepo = identity.NewMemoryRepository()
	}
	if d.Cache != nil {
		locks = userlock.NewRedis(d.Cache, d.Cfg.LockTTL, d.Logger)
	} else {
		locks = userlock.NewMemory()
	}

	// Services and handlers
	notifier := notification.NewLoggerNotifier(d.Logger.With("component", "notification"))
	identitySvc := identity.NewService(identityRepo, records)
	tokens, err := auth.NewService(d.Cfg.JWTSecret, d.Cfg.AccessTokenTTL, d.Cfg.AppName)
	if err != nil {
		return err
	}
	walletSvc := wallet.NewService(d.Node, records, locks, d.Cfg.WalletPrefix, d.Logger)
	bankAdapter, err := bank.NewAdapter(d.Aggregator, identitySvc)
	if err != nil {
		return err
	}
	purchaseSvc, err := purchase.NewService(purchase.Deps{
		Oracle:         d.Oracle,
		Balances:       bankAdapter,
		Wallets:        walletSvc,
		Node:           d.Node,
		Store:          records,
		Locks:          locks,
		Notifier:       notifier,
		Logger:         d.Logger,
		TreasuryWallet: d.Cfg.Node.TreasuryWallet,
		FeeRate:        d.Cfg.Node.FeeRate,
	})
	if err != nil {
		return err
	}

	identityHandler := identity.NewHandler(identitySvc)
	authHandler := auth.NewHandler(identitySvc, tokens)
	bankHandler := bank.NewHandler(bankAdapter, walletSvc, notifier, d.Logger)
	walletHandler := wallet.NewHandler(walletSvc)
	purchaseHandler := purchase.NewHandler(purchaseSvc)

	var idempotent fiber.Handler
	if d.Cache != nil {
		idempotent = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterAuthRoutes(api, identityHandler, authHandler, middleware.LoginRateLimit(d.Cache, d.Cfg.LoginPerMinute))

	// Protected routes
	protected := api.Group("", middleware.JWTAuth(tokens, identityRepo))
	protected.Get("/me", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		user, err := identitySvc.Get(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return c.JSON(fiber.Map{
			"user_id":     user.ID,
			"email":       user.Email,
			"name":        user.Name,
			"bank_linked": user.BankAccessToken != "",
			"created_at":  user.CreatedAt,
		})
	})
	RegisterBankRoutes(protected, bankHandler, idempotent)
	RegisterBitcoinRoutes(protected, walletHandler, purchaseHandler, idempotent)

	return nil
}
