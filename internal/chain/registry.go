package chain

import (
	"errors"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNetworkNotFound is returned when a network is not in the registry.
var ErrNetworkNotFound = errors.New("network not found")

// Network holds everything needed to read generative-art tokens from one chain.
type Network struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	ChainID     int64    `json:"chain_id"`
	RPCs        []string `json:"rpcs"`
	Explorer    string   `json:"explorer"`

	// Generator assembles token HTML from on-chain scripts and dependencies.
	Generator common.Address `json:"generator"`
	// DependencyRegistry lists the core contracts the generator supports.
	DependencyRegistry common.Address `json:"dependency_registry"`
}

// HasGenerator reports whether a generator address is configured.
func (n *Network) HasGenerator() bool {
	return n.Generator != (common.Address{})
}

// HasDependencyRegistry reports whether a dependency registry is configured.
func (n *Network) HasDependencyRegistry() bool {
	return n.DependencyRegistry != (common.Address{})
}

// WithContracts returns a copy of n with the non-empty overrides applied.
func (n Network) WithContracts(generator, dependencyRegistry string) Network {
	if common.IsHexAddress(generator) {
		n.Generator = common.HexToAddress(generator)
	}
	if common.IsHexAddress(dependencyRegistry) {
		n.DependencyRegistry = common.HexToAddress(dependencyRegistry)
	}
	return n
}

// Registry is the network registry.
type Registry struct {
	networks []Network
	byName   map[string]*Network
	byID     map[int64]*Network
}

// NewRegistry returns the registry of supported networks.
func NewRegistry() *Registry {
	networks := allNetworks()
	r := &Registry{
		networks: networks,
		byName:   make(map[string]*Network, len(networks)),
		byID:     make(map[int64]*Network, len(networks)),
	}
	for i := range r.networks {
		n := &r.networks[i]
		r.byName[n.Name] = n
		r.byID[n.ChainID] = n
	}
	return r
}

// All returns every network in the registry.
func (r *Registry) All() []Network {
	return r.networks
}

// Names returns the network slugs in registry order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.networks))
	for i, n := range r.networks {
		names[i] = n.Name
	}
	return names
}

// Resolve finds a network by slug ("mainnet", "sepolia"), a few common
// aliases, or a decimal chain id.
func (r *Registry) Resolve(input string) (*Network, error) {
	key := strings.ToLower(strings.TrimSpace(input))
	switch key {
	case "ethereum", "eth", "homestead":
		key = "mainnet"
	}
	if n, ok := r.byName[key]; ok {
		return n, nil
	}
	if id, err := strconv.ParseInt(key, 10, 64); err == nil {
		if n, ok := r.byID[id]; ok {
			return n, nil
		}
	}
	return nil, ErrNetworkNotFound
}

// GetByChainID finds a network by its numeric chain ID.
func (r *Registry) GetByChainID(id int64) (*Network, error) {
	n, ok := r.byID[id]
	if !ok {
		return nil, ErrNetworkNotFound
	}
	return n, nil
}

// --- network data ---

func allNetworks() []Network {
	return []Network{
		{
			Name: "mainnet", DisplayName: "Ethereum", ChainID: 1,
			RPCs:               []string{"https://eth.llamarpc.com", "https://ethereum-rpc.publicnode.com"},
			Explorer:           "https://etherscan.io",
			Generator:          common.HexToAddress("0x953D288708bB771F969FCfD9BA0819eF506Ac718"),
			DependencyRegistry: common.HexToAddress("0x37861f95882ACDba2cCD84F5bFc4598e2ECDDdAF"),
		},
		{
			// Sepolia contract addresses rotate with test deployments; set
			// them with OGVIEW_GENERATOR_ADDRESS / OGVIEW_DEPENDENCY_REGISTRY_ADDRESS.
			Name: "sepolia", DisplayName: "Sepolia", ChainID: 11155111,
			RPCs:     []string{"https://ethereum-sepolia-rpc.publicnode.com", "https://sepolia.gateway.tenderly.co"},
			Explorer: "https://sepolia.etherscan.io",
		},
	}
}
