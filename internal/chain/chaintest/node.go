// Package chaintest provides an in-process JSON-RPC node serving the market
// and token contract views from fixtures.
package chaintest

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/illomx/market-dashboard/internal/chain"
)

// Item mirrors the MarketItem ABI tuple for packing.
type Item struct {
	ItemId      *big.Int
	NftContract common.Address
	TokenId     *big.Int
	Seller      common.Address
	Owner       common.Address
	Price       *big.Int
	Sold        bool
}

// Node answers eth_chainId, eth_blockNumber, eth_getCode and eth_call.
type Node struct {
	ChainID int64
	Created map[common.Address][]Item // keyed by msg.sender
	Owned   map[common.Address][]Item // keyed by msg.sender
	ForSale []Item
	URIs    map[int64]string // tokenURI by token id
	CallErr string           // when set, every eth_call fails with this message

	mu    sync.Mutex
	calls []string

	server *httptest.Server
	market abi.ABI
	token  abi.ABI
}

// NewNode starts a node; it is closed with the test.
func NewNode(t *testing.T) *Node {
	t.Helper()

	market, err := abi.JSON(strings.NewReader(chain.MarketABI))
	if err != nil {
		t.Fatalf("parse market abi: %v", err)
	}
	token, err := abi.JSON(strings.NewReader(chain.TokenABI))
	if err != nil {
		t.Fatalf("parse token abi: %v", err)
	}

	n := &Node{
		ChainID: 31337,
		Created: make(map[common.Address][]Item),
		Owned:   make(map[common.Address][]Item),
		URIs:    make(map[int64]string),
		market:  market,
		token:   token,
	}
	n.server = httptest.NewServer(http.HandlerFunc(n.serveHTTP))
	t.Cleanup(n.server.Close)
	return n
}

// URL is the node's JSON-RPC endpoint.
func (n *Node) URL() string {
	return n.server.URL
}

// Calls returns the contract methods called so far, in order.
func (n *Node) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type callArgs struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Input hexutil.Bytes  `json:"input"`
	Data  hexutil.Bytes  `json:"data"`
}

func (n *Node) serveHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
	result, err := n.dispatch(req)
	if err != nil {
		resp.Error = &rpcError{Code: -32000, Message: err.Error()}
	} else {
		resp.Result = result
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (n *Node) dispatch(req rpcRequest) (any, error) {
	switch req.Method {
	case "eth_chainId":
		return hexutil.EncodeBig(big.NewInt(n.ChainID)), nil
	case "eth_blockNumber":
		return "0x10", nil
	case "eth_getCode":
		return "0x6080", nil
	case "eth_call":
		if len(req.Params) == 0 {
			return nil, fmt.Errorf("missing call args")
		}
		var args callArgs
		if err := json.Unmarshal(req.Params[0], &args); err != nil {
			return nil, err
		}
		input := args.Input
		if len(input) == 0 {
			input = args.Data
		}
		out, err := n.call(args.From, input)
		if err != nil {
			return nil, err
		}
		return hexutil.Encode(out), nil
	default:
		return nil, fmt.Errorf("method %s not supported", req.Method)
	}
}

func (n *Node) call(from common.Address, input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, fmt.Errorf("short call data")
	}

	if m, err := n.market.MethodById(input[:4]); err == nil {
		n.record(m.Name)
		if n.CallErr != "" {
			return nil, fmt.Errorf("%s", n.CallErr)
		}
		switch m.Name {
		case "fetchItemsCreated":
			return m.Outputs.Pack(orEmpty(n.Created[from]))
		case "fetchMyNFTs":
			return m.Outputs.Pack(orEmpty(n.Owned[from]))
		case "fetchMarketItems":
			return m.Outputs.Pack(orEmpty(n.ForSale))
		}
	}

	m, err := n.token.MethodById(input[:4])
	if err != nil {
		return nil, fmt.Errorf("execution reverted")
	}
	n.record(m.Name)
	if n.CallErr != "" {
		return nil, fmt.Errorf("%s", n.CallErr)
	}
	args, err := m.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, err
	}
	id := args[0].(*big.Int)
	uri, ok := n.URIs[id.Int64()]
	if !ok {
		return nil, fmt.Errorf("execution reverted: ERC721Metadata: URI query for nonexistent token")
	}
	return m.Outputs.Pack(uri)
}

func (n *Node) record(method string) {
	n.mu.Lock()
	n.calls = append(n.calls, method)
	n.mu.Unlock()
}

func orEmpty(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	return items
}
