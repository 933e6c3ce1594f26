package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/illomx/market-dashboard/internal/config"
)

// ErrChainIDMismatch is returned by Dial when the node serves a different chain.
var ErrChainIDMismatch = errors.New("chain id mismatch")

// Client holds the RPC connection and the contract readers built on it.
type Client struct {
	eth    *ethclient.Client
	Market *Market
	Token  *Token
}

// Dial connects to the JSON-RPC endpoint and binds the configured contracts.
func Dial(ctx context.Context, cfg config.ChainConfig) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	if cfg.ChainID != 0 {
		id, err := eth.ChainID(ctx)
		if err != nil {
			eth.Close()
			return nil, fmt.Errorf("get chain id: %w", err)
		}
		if id.Cmp(big.NewInt(cfg.ChainID)) != 0 {
			eth.Close()
			return nil, fmt.Errorf("%w: node serves %s, want %d", ErrChainIDMismatch, id, cfg.ChainID)
		}
	}

	return &Client{
		eth:    eth,
		Market: NewMarket(common.HexToAddress(cfg.MarketAddress), eth, cfg.Timeout),
		Token:  NewToken(eth, common.HexToAddress(cfg.NFTAddress), cfg.Timeout),
	}, nil
}

// Ping verifies the node answers.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.eth.BlockNumber(ctx); err != nil {
		return fmt.Errorf("ping rpc: %w", err)
	}
	return nil
}

// Close closes the RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}
