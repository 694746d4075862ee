// Package artblockstest provides an in-memory chain that answers the
// contract reads issued by artblocks.Reader.
package artblockstest

import (
	"context"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/Mohsinsiddi/ogview/internal/artblocks"
	"github.com/Mohsinsiddi/ogview/internal/chain"
	"github.com/Mohsinsiddi/ogview/internal/deployments"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Well-known addresses used by fakes.
var (
	GeneratorAddress          = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	DependencyRegistryAddress = common.HexToAddress("0x00000000000000000000000000000000000000a2")
)

// Core describes one fake core contract.
type Core struct {
	// Shape selects which invocation read the contract answers.
	Shape deployments.Version
	// NextProjectID is returned by nextProjectId().
	NextProjectID uint64
	// StartingProjectID is returned by startingProjectId(); nil reverts.
	StartingProjectID *uint64
	// Invocations per project id. Missing projects report 0.
	Invocations map[uint64]uint64
	// Status per project id. Missing projects are fully on chain.
	Status map[uint64]artblocks.OnChainStatus
}

// Gate runs before every answered call. Returning an error fails the call;
// blocking delays it.
type Gate func(ctx context.Context, to common.Address, method string) error

// Chain is a fake artblocks.Caller.
type Chain struct {
	mu        sync.Mutex
	cores     map[common.Address]*Core
	html      map[string]string
	supported []common.Address
	gate      Gate
	calls     []string
}

// New returns an empty fake chain.
func New() *Chain {
	return &Chain{
		cores: make(map[common.Address]*Core),
		html:  make(map[string]string),
	}
}

// AddCore registers a core contract.
func (c *Chain) AddCore(addr common.Address, core *Core) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cores[addr] = core
	return c
}

// SetSupported sets the dependency registry's core contract list.
func (c *Chain) SetSupported(addrs ...common.Address) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supported = addrs
	return c
}

// SetTokenHTML overrides the markup served for a token.
func (c *Chain) SetTokenHTML(core common.Address, tokenID *big.Int, html string) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.html[tokenKey(core, tokenID)] = html
	return c
}

// SetGate installs g.
func (c *Chain) SetGate(g Gate) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gate = g
	return c
}

// Calls returns "method@address" for each call received, in order.
func (c *Chain) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// CountCalls counts calls to method.
func (c *Chain) CountCalls(method string) int {
	n := 0
	for _, call := range c.Calls() {
		if strings.HasPrefix(call, method+"@") {
			n++
		}
	}
	return n
}

// DefaultHTML is the markup served for tokens without an override.
func DefaultHTML(tokenID *big.Int) string {
	return fmt.Sprintf("<html><body><canvas></canvas><script>var token=%q;</script></body></html>", tokenID.String())
}

// Revert returns the error a node reports for a reverted call.
func Revert() error {
	return &chain.RPCError{Code: 3, Message: "execution reverted"}
}

// CallContract implements artblocks.Caller.
func (c *Chain) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, Revert()
	}
	method, args, err := decodeCall(data)
	if err != nil {
		return nil, Revert()
	}

	c.mu.Lock()
	c.calls = append(c.calls, method+"@"+to.Hex())
	gate := c.gate
	c.mu.Unlock()

	if gate != nil {
		if err := gate(ctx, to, method); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch to {
	case GeneratorAddress:
		return c.answerGenerator(method, args)
	case DependencyRegistryAddress:
		if method != "getSupportedCoreContracts" {
			return nil, Revert()
		}
		return pack(artblocks.DependencyRegistryABI, method, c.supported)
	}
	core, ok := c.cores[to]
	if !ok {
		// No code at the address.
		return []byte{}, nil
	}
	return answerCore(core, method, args)
}

func answerCore(core *Core, method string, args []interface{}) ([]byte, error) {
	switch method {
	case "nextProjectId":
		return pack(artblocks.CoreCountersABI, method, new(big.Int).SetUint64(core.NextProjectID))
	case "startingProjectId":
		if core.StartingProjectID == nil {
			return nil, Revert()
		}
		return pack(artblocks.CoreCountersABI, method, new(big.Int).SetUint64(*core.StartingProjectID))
	}

	if method != "projectTokenInfo" && method != "projectStateData" {
		return nil, Revert()
	}
	pid := args[0].(*big.Int).Uint64()
	inv := new(big.Int).SetUint64(core.Invocations[pid])
	zero := common.Address{}
	switch {
	case method == "projectTokenInfo" && core.Shape == deployments.V0:
		return pack(artblocks.CoreV0ABI, method, zero, big.NewInt(0), inv, big.NewInt(1000), true, zero, big.NewInt(0))
	case method == "projectTokenInfo" && core.Shape == deployments.V1:
		return pack(artblocks.CoreV1ABI, method, zero, big.NewInt(0), inv, big.NewInt(1000), true, zero, big.NewInt(0), "ETH", zero)
	case method == "projectStateData" && core.Shape == deployments.V3:
		return pack(artblocks.CoreV3ABI, method, inv, big.NewInt(1000), true, false, big.NewInt(0), false)
	}
	return nil, Revert()
}

func (c *Chain) answerGenerator(method string, args []interface{}) ([]byte, error) {
	core, _ := args[0].(common.Address)
	id, _ := args[1].(*big.Int)
	if _, ok := c.cores[core]; !ok {
		return nil, Revert()
	}
	switch method {
	case "getTokenHtml", "getTokenHtmlBase64EncodedDataUri":
		html, ok := c.html[tokenKey(core, id)]
		if !ok {
			html = DefaultHTML(id)
		}
		if method == "getTokenHtml" {
			return pack(artblocks.GeneratorABI, method, html)
		}
		uri := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(html))
		return pack(artblocks.GeneratorABI, method, uri)
	case "getProjectScript":
		return pack(artblocks.GeneratorABI, method, fmt.Sprintf("// project %s\nlet seed = tokenData.hash;", id))
	case "getOnChainStatus":
		st, ok := c.cores[core].Status[id.Uint64()]
		if !ok {
			st = artblocks.OnChainStatus{DependencyFullyOnChain: true}
		}
		return pack(artblocks.GeneratorABI, method,
			st.DependencyFullyOnChain, st.InjectsDecentralizedStorageNetworkAssets, st.HasOffChainFlexDepRegDependencies)
	}
	return nil, Revert()
}

var allABIs = []abi.ABI{
	artblocks.CoreCountersABI,
	artblocks.CoreV1ABI,
	artblocks.CoreV3ABI,
	artblocks.GeneratorABI,
	artblocks.DependencyRegistryABI,
}

func decodeCall(data []byte) (string, []interface{}, error) {
	for _, a := range allABIs {
		m, err := a.MethodById(data[:4])
		if err != nil {
			continue
		}
		args, err := m.Inputs.Unpack(data[4:])
		if err != nil {
			return "", nil, err
		}
		return m.Name, args, nil
	}
	return "", nil, fmt.Errorf("unknown selector %x", data[:4])
}

func pack(a abi.ABI, method string, values ...interface{}) ([]byte, error) {
	return a.Methods[method].Outputs.Pack(values...)
}

func tokenKey(core common.Address, id *big.Int) string {
	return strings.ToLower(core.Hex()) + "/" + id.String()
}

// Uint64 returns a pointer to v.
func Uint64(v uint64) *uint64 { return &v }
