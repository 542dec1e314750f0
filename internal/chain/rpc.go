package chain

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/shopspring/decimal"

	"github.com/nevy-wallets/satoshi/internal/metrics"
)

// RPCConfig describes how to reach bitcoind's JSON-RPC interface. Either
// User and Pass or CookiePath must be set.
type RPCConfig struct {
	Host       string
	User       string
	Pass       string
	CookiePath string
	Network    string
	Logger     *slog.Logger
}

// RPCNode talks to bitcoind over HTTP POST JSON-RPC. One client is kept per
// wallet endpoint (/wallet/<name>).
type RPCNode struct {
	cfg    RPCConfig
	params *chaincfg.Params
	logger *slog.Logger

	mu      sync.Mutex
	clients map[string]*rpcclient.Client
}

// NewRPCNode validates cfg and prepares the node handle. No connection is
// made until the first call.
func NewRPCNode(cfg RPCConfig) (*RPCNode, error) {
	cfg.Host = strings.TrimPrefix(cfg.Host, "http://")
	if cfg.Host == "" {
		return nil, fmt.Errorf("node host is required")
	}
	if (cfg.User == "" || cfg.Pass == "") && cfg.CookiePath == "" {
		return nil, fmt.Errorf("node credentials are required: set user and pass or a cookie path")
	}
	params, err := networkParams(cfg.Network)
	if err != nil {
		return nil, err
	}
	cfg.Network = params.Name
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RPCNode{cfg: cfg, params: params, logger: logger, clients: make(map[string]*rpcclient.Client)}, nil
}

func networkParams(network string) (*chaincfg.Params, error) {
	switch strings.ToLower(network) {
	case "", "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	case "mainnet", "main":
		return &chaincfg.MainNetParams, nil
	default:
		return nil, fmt.Errorf("unknown node network %q", network)
	}
}

func (n *RPCNode) client(wallet string) (*rpcclient.Client, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if c, ok := n.clients[wallet]; ok {
		return c, nil
	}
	host := strings.TrimSuffix(n.cfg.Host, "/")
	if wallet != "" {
		host += "/wallet/" + url.PathEscape(wallet)
	}
	c, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         host,
		User:         n.cfg.User,
		Pass:         n.cfg.Pass,
		CookiePath:   n.cfg.CookiePath,
		Params:       n.cfg.Network,
		HTTPPostMode: true,
		DisableTLS:   true,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("rpc client for %q: %w", wallet, err)
	}
	n.clients[wallet] = c
	return c, nil
}

// LoadWallet loads a wallet on the node.
func (n *RPCNode) LoadWallet(ctx context.Context, name string) error {
	c, err := n.client("")
	if err != nil {
		return err
	}
	_, err = await(ctx, func() (struct{}, error) {
		_, err := c.LoadWallet(name)
		return struct{}{}, err
	}, nil)
	return Classify(err)
}

// CreateWallet creates a new named wallet.
func (n *RPCNode) CreateWallet(ctx context.Context, name string) error {
	c, err := n.client("")
	if err != nil {
		return err
	}
	_, err = await(ctx, func() (struct{}, error) {
		_, err := c.CreateWallet(name)
		return struct{}{}, err
	}, nil)
	return Classify(err)
}

// NewAddress allocates a fresh receiving address in wallet.
func (n *RPCNode) NewAddress(ctx context.Context, wallet string) (string, error) {
	c, err := n.client(wallet)
	if err != nil {
		return "", err
	}
	addr, err := await(ctx, func() (btcutil.Address, error) {
		return c.GetNewAddress("")
	}, nil)
	if err != nil {
		return "", Classify(err)
	}
	return addr.EncodeAddress(), nil
}

// SetTxFee sets the wallet fee rate in coins per kvB.
func (n *RPCNode) SetTxFee(ctx context.Context, wallet string, feeRate decimal.Decimal) error {
	c, err := n.client(wallet)
	if err != nil {
		return err
	}
	fee, err := btcutil.NewAmount(feeRate.InexactFloat64())
	if err != nil {
		return fmt.Errorf("fee rate %s: %w", feeRate, err)
	}
	_, err = await(ctx, func() (struct{}, error) {
		return struct{}{}, c.SetTxFee(fee)
	}, nil)
	return Classify(err)
}

// SendToAddress sends amount coins from wallet and returns the txid.
func (n *RPCNode) SendToAddress(ctx context.Context, wallet, address string, amount decimal.Decimal) (string, error) {
	c, err := n.client(wallet)
	if err != nil {
		return "", err
	}
	dest, err := btcutil.DecodeAddress(address, n.params)
	if err != nil {
		return "", fmt.Errorf("decode address %s: %w", address, err)
	}
	if !dest.IsForNet(n.params) {
		return "", fmt.Errorf("address %s is not a %s address", address, n.params.Name)
	}
	amt, err := btcutil.NewAmount(amount.InexactFloat64())
	if err != nil {
		return "", fmt.Errorf("amount %s: %w", amount, err)
	}
	txid, err := await(ctx, func() (string, error) {
		hash, err := c.SendToAddress(dest, amt)
		if err != nil {
			return "", err
		}
		return hash.String(), nil
	}, func(txid string, err error) {
		n.lateSend(wallet, address, amount, txid, err)
	})
	if err != nil {
		return "", Classify(err)
	}
	return txid, nil
}

// lateSend reports a send whose caller stopped waiting. A txid here means
// coins moved without anyone recording them.
func (n *RPCNode) lateSend(wallet, address string, amount decimal.Decimal, txid string, err error) {
	attrs := []any{
		slog.String("wallet", wallet),
		slog.String("address", address),
		slog.String("amount", amount.String()),
	}
	if err != nil {
		n.logger.Warn("abandoned send failed", append(attrs, slog.Any("error", Classify(err)))...)
		return
	}
	metrics.RecordLateSettlement()
	n.logger.Error("send completed after caller gave up", append(attrs, slog.String("txid", txid))...)
}

// Close shuts down every wallet client.
func (n *RPCNode) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for name, c := range n.clients {
		c.Shutdown()
		delete(n.clients, name)
	}
}

// await runs a blocking RPC and gives up when ctx is done. The rpcclient
// calls are not context aware, so an abandoned call finishes in the
// background and its result goes to late, or is dropped when late is nil.
func await[T any](ctx context.Context, call func() (T, error), late func(T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	ch := make(chan result, 1)
	go func() {
		v, err := call()
		ch <- result{val: v, err: err}
	}()
	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		if late != nil {
			go func() {
				r := <-ch
				late(r.val, r.err)
			}()
		}
		var zero T
		return zero, ctx.Err()
	}
}
