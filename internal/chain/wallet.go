package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/illomx/market-dashboard/internal/config"
)

// ErrWalletNotConnected is returned when no viewer account is available.
var ErrWalletNotConnected = errors.New("wallet not connected")

// ResolveAccount returns the viewer's address from config. An explicit address
// wins; otherwise it is derived from the private key.
func ResolveAccount(cfg config.WalletConfig) (common.Address, error) {
	if cfg.Address != "" {
		if !common.IsHexAddress(cfg.Address) {
			return common.Address{}, fmt.Errorf("invalid wallet address %q", cfg.Address)
		}
		return common.HexToAddress(cfg.Address), nil
	}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return common.Address{}, fmt.Errorf("parse wallet private key: %w", err)
		}
		return crypto.PubkeyToAddress(key.PublicKey), nil
	}

	return common.Address{}, ErrWalletNotConnected
}

// ParseAccount parses a hex address supplied by a caller (CLI flag, URL path).
func ParseAccount(s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, ErrWalletNotConnected
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid account %q", s)
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return common.Address{}, ErrWalletNotConnected
	}
	return addr, nil
}
