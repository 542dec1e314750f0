package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/nevy-wallets/satoshi/internal/bank"
	"github.com/nevy-wallets/satoshi/internal/chain"
	"github.com/nevy-wallets/satoshi/internal/config"
	"github.com/nevy-wallets/satoshi/internal/logging"
	"github.com/nevy-wallets/satoshi/internal/rates"
	"github.com/nevy-wallets/satoshi/internal/routes"
)

func newTestServer(t *testing.T) (*fiber.App, *chain.SimulatedNode) {
	t.Helper()
	node := chain.NewSimulatedNode()
	if err := node.CreateWallet(context.Background(), "treasury"); err != nil {
		t.Fatalf("create treasury: %v", err)
	}
	cfg := config.Config{
		AppName:        "satoshi",
		AppEnv:         "test",
		JWTSecret:      "test-secret",
		AccessTokenTTL: time.Hour,
		LoginPerMinute: 100,
		WalletPrefix:   "wallet_",
		LockTTL:        time.Second,
		Node: config.NodeConfig{
			TreasuryWallet: "treasury",
			FeeRate:        decimal.RequireFromString("0.00001"),
		},
	}
	srv, err := New(routes.Deps{
		Cfg:        cfg,
		Logger:     logging.Discard(),
		Node:       node,
		Oracle:     rates.StaticOracle{UnitPrice: decimal.NewFromInt(50_000)},
		Aggregator: bank.NewSandboxAggregator(),
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv.App(), node
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestPurchaseFlow(t *testing.T) {
	app, node := newTestServer(t)

	status, _ := call(t, app, fiber.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email": "ada@example.com", "password": "correct-horse", "name": "Ada",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("signup: expected 201, got %d", status)
	}

	status, login := call(t, app, fiber.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "correct-horse",
	})
	if status != fiber.StatusOK {
		t.Fatalf("login: expected 200, got %d", status)
	}
	token, _ := login["access_token"].(string)

	status, body := call(t, app, fiber.MethodPost, "/api/v1/bitcoin/purchase", token, map[string]string{
		"account_id": "sandbox-checking", "quantity": "0.002",
	})
	if status != fiber.StatusBadRequest || body["error"] != "link a bank account first" {
		t.Fatalf("purchase before linking: got %d %v", status, body)
	}

	status, linked := call(t, app, fiber.MethodPost, "/api/v1/bank/exchange_public_token", token, map[string]string{
		"public_token": "public-sandbox-1",
	})
	if status != fiber.StatusOK {
		t.Fatalf("exchange: expected 200, got %d %v", status, linked)
	}
	address, _ := linked["deposit_address"].(string)
	if address == "" {
		t.Fatal("expected deposit address after linking")
	}

	status, bought := call(t, app, fiber.MethodPost, "/api/v1/bitcoin/purchase", token, map[string]string{
		"account_id": "sandbox-checking", "quantity": "0.002",
	})
	if status != fiber.StatusOK {
		t.Fatalf("purchase: expected 200, got %d %v", status, bought)
	}
	if bought["fiat_cost"] != "100" || bought["balance"] != "0.002" {
		t.Fatalf("unexpected outcome %v", bought)
	}
	if !node.SentTo(address).Equal(decimal.RequireFromString("0.002")) {
		t.Fatalf("expected node to send 0.002 to %s", address)
	}

	status, body = call(t, app, fiber.MethodPost, "/api/v1/bitcoin/purchase", token, map[string]string{
		"account_id": "sandbox-checking", "quantity": "1",
	})
	if status != fiber.StatusBadRequest {
		t.Fatalf("oversized purchase: expected 400, got %d %v", status, body)
	}

	status, body = call(t, app, fiber.MethodGet, "/api/v1/bitcoin/balance", token, nil)
	if status != fiber.StatusOK || body["balance"] != "0.002" {
		t.Fatalf("balance: got %d %v", status, body)
	}
	status, body = call(t, app, fiber.MethodGet, "/api/v1/bitcoin/address", token, nil)
	if status != fiber.StatusOK || body["deposit_address"] != address {
		t.Fatalf("address: got %d %v", status, body)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app, _ := newTestServer(t)
	status, body := call(t, app, fiber.MethodGet, "/api/v1/bitcoin/balance", "", nil)
	if status != fiber.StatusUnauthorized || body["error"] == nil {
		t.Fatalf("expected 401 json error, got %d %v", status, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := newTestServer(t)
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/metrics", nil))
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}
