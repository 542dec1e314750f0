package infra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nevy-wallets/satoshi/internal/chain"
	"github.com/nevy-wallets/satoshi/internal/config"
)

// NewNode connects to the configured bitcoin node and makes sure the
// treasury wallet is loaded. The returned closer releases RPC clients.
func NewNode(ctx context.Context, cfg config.NodeConfig, logger *slog.Logger) (chain.Node, func(), error) {
	node, err := chain.NewRPCNode(chain.RPCConfig{
		Host:       cfg.Host,
		User:       cfg.User,
		Pass:       cfg.Pass,
		CookiePath: cfg.CookiePath,
		Network:    cfg.Network,
		Logger:     logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect node: %w", err)
	}

	if err := chain.Classify(node.LoadWallet(ctx, cfg.TreasuryWallet)); err != nil && !errors.Is(err, chain.ErrWalletAlreadyLoaded) {
		node.Close()
		return nil, nil, fmt.Errorf("load treasury wallet %q: %w", cfg.TreasuryWallet, err)
	}
	return node, node.Close, nil
}
