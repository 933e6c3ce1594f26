package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// isHexAddress requires the 0x prefix that common.IsHexAddress leaves optional.
func isHexAddress(s string) bool {
	return (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) && common.IsHexAddress(s)
}

// Validate checks that all required fields are set and values are valid.
// The wallet section is not checked here: a server can run without a fixed viewer.
func (c *Config) Validate() error {
	if c.Chain.RPCURL == "" {
		return errors.New("chain.rpc_url is required")
	}
	if c.Chain.MarketAddress == "" {
		return errors.New("chain.market_address is required")
	}
	if !isHexAddress(c.Chain.MarketAddress) {
		return fmt.Errorf("chain.market_address is not a hex address: %q", c.Chain.MarketAddress)
	}
	if c.Chain.NFTAddress == "" {
		return errors.New("chain.nft_address is required")
	}
	if !isHexAddress(c.Chain.NFTAddress) {
		return fmt.Errorf("chain.nft_address is not a hex address: %q", c.Chain.NFTAddress)
	}
	if c.Chain.ChainID < 0 {
		return errors.New("chain.chain_id must be >= 0")
	}

	if c.Wallet.Address != "" && !isHexAddress(c.Wallet.Address) {
		return fmt.Errorf("wallet.address is not a hex address: %q", c.Wallet.Address)
	}

	if c.Metadata.Retries() < 0 {
		return errors.New("metadata.max_retries must be >= 0")
	}

	if c.Aggregator.Concurrency < 0 {
		return errors.New("aggregator.concurrency must be >= 0")
	}
	switch c.Aggregator.OnItemFailure {
	case FailureDrop, FailureAbort:
	default:
		return fmt.Errorf("aggregator.on_item_failure must be %q or %q, got %q",
			FailureDrop, FailureAbort, c.Aggregator.OnItemFailure)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Watch.Interval <= 0 {
		return errors.New("watch.interval must be > 0")
	}

	return nil
}
