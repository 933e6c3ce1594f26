package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// MarketItem is one record returned by the market contract.
type MarketItem struct {
	ItemID      *big.Int
	NFTContract common.Address
	TokenID     *big.Int
	Seller      common.Address
	Owner       common.Address
	Price       *big.Int // wei
	Sold        bool
}

// rawMarketItem mirrors the ABI tuple layout; field names must match the ABI
// component names for abi.ConvertType.
type rawMarketItem struct {
	ItemId      *big.Int
	NftContract common.Address
	TokenId     *big.Int
	Seller      common.Address
	Owner       common.Address
	Price       *big.Int
	Sold        bool
}

// Market reads the NFTMarket contract.
type Market struct {
	address  common.Address
	contract *bind.BoundContract
	timeout  time.Duration
}

// NewMarket binds the market contract at address. A zero timeout means calls
// are bounded only by the caller's context.
func NewMarket(address common.Address, caller bind.ContractCaller, timeout time.Duration) *Market {
	return &Market{
		address:  address,
		contract: bind.NewBoundContract(address, marketABI, caller, nil, nil),
		timeout:  timeout,
	}
}

// Address returns the bound contract address.
func (m *Market) Address() common.Address {
	return m.address
}

// FetchItemsCreated returns the items listed by account.
func (m *Market) FetchItemsCreated(ctx context.Context, account common.Address) ([]MarketItem, error) {
	items, err := m.fetchItems(ctx, account, "fetchItemsCreated")
	if err != nil {
		return nil, fmt.Errorf("fetch items created: %w", err)
	}
	return items, nil
}

// FetchMyNFTs returns the items account has bought.
func (m *Market) FetchMyNFTs(ctx context.Context, account common.Address) ([]MarketItem, error) {
	items, err := m.fetchItems(ctx, account, "fetchMyNFTs")
	if err != nil {
		return nil, fmt.Errorf("fetch my nfts: %w", err)
	}
	return items, nil
}

// FetchMarketItems returns the unsold items currently on the market.
func (m *Market) FetchMarketItems(ctx context.Context) ([]MarketItem, error) {
	items, err := m.fetchItems(ctx, common.Address{}, "fetchMarketItems")
	if err != nil {
		return nil, fmt.Errorf("fetch market items: %w", err)
	}
	return items, nil
}

func (m *Market) fetchItems(ctx context.Context, account common.Address, method string) ([]MarketItem, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	var out []interface{}
	opts := &bind.CallOpts{Context: ctx, From: account}
	if err := m.contract.Call(opts, &out, method); err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected output count %d", len(out))
	}

	raw := *abi.ConvertType(out[0], new([]rawMarketItem)).(*[]rawMarketItem)

	items := make([]MarketItem, len(raw))
	for i, r := range raw {
		items[i] = MarketItem{
			ItemID:      r.ItemId,
			NFTContract: r.NftContract,
			TokenID:     r.TokenId,
			Seller:      r.Seller,
			Owner:       r.Owner,
			Price:       r.Price,
			Sold:        r.Sold,
		}
	}
	return items, nil
}
