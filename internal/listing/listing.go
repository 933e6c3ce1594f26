package listing

import (
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidTokenID is returned for token ids that do not fit in an int64.
var ErrInvalidTokenID = errors.New("invalid token id")

// Listing is one NFT as displayed: on-chain fields merged with its metadata.
type Listing struct {
	TokenID     int64          `json:"tokenId"`
	Price       string         `json:"price"` // ether, decimal
	Seller      common.Address `json:"seller"`
	Owner       common.Address `json:"owner"`
	Sold        bool           `json:"sold"`
	Image       string         `json:"image"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
}

// FilterSold returns the sold listings, preserving order.
func FilterSold(listings []Listing) []Listing {
	sold := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if l.Sold {
			sold = append(sold, l)
		}
	}
	return sold
}

// FormatEther renders a wei amount in ether.
func FormatEther(wei *big.Int) string {
	return FormatUnits(wei, 18)
}

// FormatUnits renders v scaled down by 10^decimals. The fraction keeps at
// least one digit and drops trailing zeros: 1e18 wei is "1.0", 25e15 is "0.025".
func FormatUnits(v *big.Int, decimals int) string {
	if v == nil {
		v = new(big.Int)
	}

	abs := new(big.Int).Abs(v)
	base := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(abs, base, new(big.Int))

	fs := frac.String()
	if pad := decimals - len(fs); pad > 0 {
		fs = strings.Repeat("0", pad) + fs
	}
	fs = strings.TrimRight(fs, "0")
	if fs == "" {
		fs = "0"
	}

	s := whole.String() + "." + fs
	if v.Sign() < 0 {
		s = "-" + s
	}
	return s
}

func tokenIDInt64(id *big.Int) (int64, error) {
	if id == nil || !id.IsInt64() || id.Sign() < 0 {
		return 0, ErrInvalidTokenID
	}
	return id.Int64(), nil
}
