package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Token resolves ERC-721 token URIs. It is not bound to a single contract:
// market items carry the address of the contract that minted them.
type Token struct {
	caller   bind.ContractCaller
	fallback common.Address
	timeout  time.Duration
}

// NewToken creates a token reader. fallback is used for items whose contract
// address is zero.
func NewToken(caller bind.ContractCaller, fallback common.Address, timeout time.Duration) *Token {
	return &Token{
		caller:   caller,
		fallback: fallback,
		timeout:  timeout,
	}
}

// TokenURI calls tokenURI(tokenID) on contract.
func (t *Token) TokenURI(ctx context.Context, contract common.Address, tokenID *big.Int) (string, error) {
	if contract == (common.Address{}) {
		contract = t.fallback
	}
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	bound := bind.NewBoundContract(contract, tokenABI, t.caller, nil, nil)

	var out []interface{}
	if err := bound.Call(&bind.CallOpts{Context: ctx}, &out, "tokenURI", tokenID); err != nil {
		return "", fmt.Errorf("token uri %s on %s: %w", tokenID, contract.Hex(), err)
	}

	uri, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("token uri %s on %s: unexpected output %T", tokenID, contract.Hex(), out[0])
	}
	return uri, nil
}
