package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	rpcUser = "rpcuser"
	rpcPass = "rpcpass"
)

var fakeTxID = strings.Repeat("ab", 32)

// fakeBitcoind answers the subset of the wallet RPC surface the node uses.
type fakeBitcoind struct {
	user, pass string
	sendDelay  time.Duration
	address    string

	mu      sync.Mutex
	wallets map[string]bool
	loaded  map[string]bool
	fees    map[string]float64
	sends   []string
}

func newFakeBitcoind(t *testing.T) *fakeBitcoind {
	t.Helper()
	addr, err := btcutil.NewAddressWitnessPubKeyHash(make([]byte, 20), &chaincfg.RegressionNetParams)
	if err != nil {
		t.Fatalf("build address: %v", err)
	}
	return &fakeBitcoind{
		user:    rpcUser,
		pass:    rpcPass,
		address: addr.EncodeAddress(),
		wallets: make(map[string]bool),
		loaded:  make(map[string]bool),
		fees:    make(map[string]float64),
	}
}

func (f *fakeBitcoind) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if u, p, ok := r.BasicAuth(); !ok || u != f.user || p != f.pass {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	body, _ := io.ReadAll(r.Body)
	id := json.RawMessage(gjson.GetBytes(body, "id").Raw)
	method := gjson.GetBytes(body, "method").String()
	params := gjson.GetBytes(body, "params").Array()

	if method == "sendtoaddress" && f.sendDelay > 0 {
		time.Sleep(f.sendDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch method {
	case "createwallet":
		name := params[0].String()
		if f.wallets[name] {
			writeRPCError(w, id, -4, "Wallet file verification failed. Failed to create database path '/data/"+name+"'. Database already exists.")
			return
		}
		f.wallets[name], f.loaded[name] = true, true
		writeRPCResult(w, id, map[string]string{"name": name, "warning": ""})
		return
	case "loadwallet":
		name := params[0].String()
		switch {
		case !f.wallets[name]:
			writeRPCError(w, id, -18, "Wallet file verification failed. Failed to load database path '/data/"+name+"'. Path does not exist.")
		case f.loaded[name]:
			writeRPCError(w, id, -35, "Wallet file verification failed. Refusing to load database. Data file '/data/"+name+"/wallet.dat' is already loaded.")
		default:
			f.loaded[name] = true
			writeRPCResult(w, id, map[string]string{"name": name, "warning": ""})
		}
		return
	}

	wallet := strings.TrimPrefix(r.URL.Path, "/wallet/")
	if wallet == r.URL.Path || !f.loaded[wallet] {
		writeRPCError(w, id, -18, "Requested wallet does not exist or is not loaded")
		return
	}
	switch method {
	case "getnewaddress":
		writeRPCResult(w, id, f.address)
	case "settxfee":
		f.fees[wallet] = params[0].Float()
		writeRPCResult(w, id, true)
	case "sendtoaddress":
		f.sends = append(f.sends, wallet+" "+params[0].String()+" "+params[1].Raw)
		writeRPCResult(w, id, fakeTxID)
	default:
		writeRPCError(w, id, -32601, "Method not found")
	}
}

func (f *fakeBitcoind) Fee(wallet string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fees[wallet]
}

func (f *fakeBitcoind) Sends() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sends...)
}

func writeRPCResult(w http.ResponseWriter, id json.RawMessage, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"result": result, "error": nil, "id": id})
}

func writeRPCError(w http.ResponseWriter, id json.RawMessage, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"result": nil,
		"error":  map[string]any{"code": code, "message": msg},
		"id":     id,
	})
}

func startNode(t *testing.T, fake *fakeBitcoind, cfg RPCConfig) *RPCNode {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg.Host = srv.URL
	node, err := NewRPCNode(cfg)
	if err != nil {
		t.Fatalf("new rpc node: %v", err)
	}
	t.Cleanup(node.Close)
	return node
}

func TestRPCNodeWalletLifecycle(t *testing.T) {
	fake := newFakeBitcoind(t)
	node := startNode(t, fake, RPCConfig{User: rpcUser, Pass: rpcPass, Network: "regtest"})
	ctx := context.Background()

	if err := node.CreateWallet(ctx, "wallet_a"); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if err := node.CreateWallet(ctx, "wallet_a"); !errors.Is(err, ErrWalletAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
	if err := node.LoadWallet(ctx, "wallet_a"); !errors.Is(err, ErrWalletAlreadyLoaded) {
		t.Fatalf("expected already loaded, got %v", err)
	}
	if err := node.LoadWallet(ctx, "missing"); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := node.NewAddress(ctx, "missing"); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected not found for unloaded wallet, got %v", err)
	}

	addr, err := node.NewAddress(ctx, "wallet_a")
	if err != nil {
		t.Fatalf("new address: %v", err)
	}
	if addr != fake.address {
		t.Fatalf("expected %s, got %s", fake.address, addr)
	}

	if err := node.SetTxFee(ctx, "wallet_a", decimal.RequireFromString("0.00001")); err != nil {
		t.Fatalf("set tx fee: %v", err)
	}
	if got := fake.Fee("wallet_a"); got != 0.00001 {
		t.Fatalf("expected fee 0.00001 on wallet_a, got %v", got)
	}

	txid, err := node.SendToAddress(ctx, "wallet_a", addr, decimal.RequireFromString("0.002"))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if txid != fakeTxID {
		t.Fatalf("expected txid %s, got %s", fakeTxID, txid)
	}
	sends := fake.Sends()
	if len(sends) != 1 || sends[0] != "wallet_a "+addr+" 0.002" {
		t.Fatalf("unexpected sends: %v", sends)
	}
}

func TestRPCNodeRejectsForeignAddress(t *testing.T) {
	fake := newFakeBitcoind(t)
	node := startNode(t, fake, RPCConfig{User: rpcUser, Pass: rpcPass, Network: "regtest"})

	mainnet, err := btcutil.NewAddressWitnessPubKeyHash(make([]byte, 20), &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("build address: %v", err)
	}
	if _, err := node.SendToAddress(context.Background(), "wallet_a", mainnet.EncodeAddress(), decimal.NewFromInt(1)); err == nil {
		t.Fatal("expected mainnet address to be rejected on regtest")
	}
	if len(fake.Sends()) != 0 {
		t.Fatal("no send should reach the node")
	}
}

func TestNewRPCNodeRequiresCredentials(t *testing.T) {
	if _, err := NewRPCNode(RPCConfig{Host: "127.0.0.1:18443"}); err == nil {
		t.Fatal("expected error without credentials")
	}
	if _, err := NewRPCNode(RPCConfig{Host: "127.0.0.1:18443", User: rpcUser}); err == nil {
		t.Fatal("expected error with user but no pass")
	}
	if _, err := NewRPCNode(RPCConfig{Host: "127.0.0.1:18443", CookiePath: "/data/.cookie"}); err != nil {
		t.Fatalf("cookie path alone should be accepted: %v", err)
	}
	if _, err := NewRPCNode(RPCConfig{User: rpcUser, Pass: rpcPass}); err == nil {
		t.Fatal("expected error without host")
	}
}

func TestRPCNodeCookieAuth(t *testing.T) {
	cookie := filepath.Join(t.TempDir(), ".cookie")
	if err := os.WriteFile(cookie, []byte("__cookie__:s3cret"), 0o600); err != nil {
		t.Fatalf("write cookie: %v", err)
	}
	fake := newFakeBitcoind(t)
	fake.user, fake.pass = "__cookie__", "s3cret"
	node := startNode(t, fake, RPCConfig{CookiePath: cookie, Network: "regtest"})

	if err := node.CreateWallet(context.Background(), "wallet_c"); err != nil {
		t.Fatalf("create wallet with cookie auth: %v", err)
	}
}

func TestRPCNodeWrongCredentials(t *testing.T) {
	fake := newFakeBitcoind(t)
	node := startNode(t, fake, RPCConfig{User: rpcUser, Pass: "wrong", Network: "regtest"})

	if err := node.CreateWallet(context.Background(), "wallet_a"); err == nil {
		t.Fatal("expected unauthorized call to fail")
	}
}

// syncBuffer lets the background send goroutine and the test share a log.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRPCNodeLogsSendThatOutlivesCaller(t *testing.T) {
	logs := &syncBuffer{}
	fake := newFakeBitcoind(t)
	fake.sendDelay = 300 * time.Millisecond
	node := startNode(t, fake, RPCConfig{
		User:    rpcUser,
		Pass:    rpcPass,
		Network: "regtest",
		Logger:  slog.New(slog.NewJSONHandler(logs, nil)),
	})
	if err := node.CreateWallet(context.Background(), "treasury"); err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := node.SendToAddress(ctx, "treasury", fake.address, decimal.RequireFromString("0.5"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		out := logs.String()
		if strings.Contains(out, "send completed after caller gave up") && strings.Contains(out, fakeTxID) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("late settlement was not logged, logs: %s", out)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if n := len(fake.Sends()); n != 1 {
		t.Fatalf("expected one send on the node, got %d", n)
	}
}
