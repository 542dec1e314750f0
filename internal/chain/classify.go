package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcjson"
)

// bitcoind wallet RPC error codes.
const (
	rpcWalletError         btcjson.RPCErrorCode = -4
	rpcWalletNotFound      btcjson.RPCErrorCode = -18
	rpcWalletAlreadyLoaded btcjson.RPCErrorCode = -35
)

// Classify maps a raw node error onto the package sentinels where the cause
// is recognised, by RPC code first and message pattern second. Unrecognised
// errors are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrWalletNotFound) || errors.Is(err, ErrWalletAlreadyLoaded) || errors.Is(err, ErrWalletAlreadyExists) {
		return err
	}

	var rpcErr *btcjson.RPCError
	if errors.As(err, &rpcErr) {
		switch rpcErr.Code {
		case rpcWalletNotFound:
			return fmt.Errorf("%w: %s", ErrWalletNotFound, rpcErr.Message)
		case rpcWalletAlreadyLoaded:
			return fmt.Errorf("%w: %s", ErrWalletAlreadyLoaded, rpcErr.Message)
		case rpcWalletError:
			if strings.Contains(strings.ToLower(rpcErr.Message), "already exists") {
				return fmt.Errorf("%w: %s", ErrWalletAlreadyExists, rpcErr.Message)
			}
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "already loaded"):
		return fmt.Errorf("%w: %v", ErrWalletAlreadyLoaded, err)
	case strings.Contains(msg, "does not exist"), strings.Contains(msg, "wallet file not found"):
		return fmt.Errorf("%w: %v", ErrWalletNotFound, err)
	case strings.Contains(msg, "already exists"):
		return fmt.Errorf("%w: %v", ErrWalletAlreadyExists, err)
	}
	return err
}
