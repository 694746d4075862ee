// Package deployments is the static registry of generative-art core
// contracts known per network, optionally extended with core contracts
// discovered on chain.
package deployments

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
)

// ErrUnknownDeployment is returned when an address is not a known core contract.
var ErrUnknownDeployment = errors.New("unknown core contract")

// Version selects which historical core ABI a contract speaks.
type Version int

const (
	V0 Version = 0
	V1 Version = 1
	V3 Version = 3
)

func (v Version) String() string { return fmt.Sprintf("v%d", int(v)) }

// Deployment is one generative-art core contract.
type Deployment struct {
	Address common.Address `json:"address"`
	Label   string         `json:"label,omitempty"`
	// Version is nil when the ABI shape is unknown and must be probed.
	Version *Version `json:"version,omitempty"`
	// StartingProjectID short-circuits the on-chain startingProjectId read.
	StartingProjectID *uint64 `json:"starting_project_id,omitempty"`
}

// DisplayName is the label, or the short address for discovered contracts.
func (d Deployment) DisplayName() string {
	if d.Label != "" {
		return d.Label
	}
	hex := d.Address.Hex()
	return hex[:6] + "…" + hex[len(hex)-4:]
}

// VersionString renders the declared version or "auto".
func (d Deployment) VersionString() string {
	if d.Version == nil {
		return "auto"
	}
	return d.Version.String()
}

// Registry is an ordered, case-insensitive set of deployments.
// The first entry is the default selection.
type Registry struct {
	items []Deployment
	byKey map[string]int
}

// New builds a registry from items, dropping duplicate addresses (first wins).
func New(items []Deployment) *Registry {
	r := &Registry{byKey: make(map[string]int, len(items))}
	for _, d := range items {
		key := keyOf(d.Address)
		if _, dup := r.byKey[key]; dup {
			continue
		}
		r.byKey[key] = len(r.items)
		r.items = append(r.items, d)
	}
	return r
}

// ForChain returns the registry of hardcoded deployments for a chain.
// Unknown chains yield an empty registry.
func ForChain(chainID int64) *Registry {
	return New(static[chainID])
}

// All returns the deployments in display order.
func (r *Registry) All() []Deployment {
	return append([]Deployment(nil), r.items...)
}

// Len returns the number of deployments.
func (r *Registry) Len() int { return len(r.items) }

// Default returns the first deployment.
func (r *Registry) Default() (Deployment, bool) {
	if len(r.items) == 0 {
		return Deployment{}, false
	}
	return r.items[0], true
}

// Lookup finds a deployment by address, ignoring hex case.
func (r *Registry) Lookup(address string) (Deployment, bool) {
	if !common.IsHexAddress(address) {
		return Deployment{}, false
	}
	i, ok := r.byKey[keyOf(common.HexToAddress(address))]
	if !ok {
		return Deployment{}, false
	}
	return r.items[i], true
}

// Resolve is Lookup returning ErrUnknownDeployment on a miss.
func (r *Registry) Resolve(address string) (Deployment, error) {
	d, ok := r.Lookup(address)
	if !ok {
		return Deployment{}, fmt.Errorf("%w: %s", ErrUnknownDeployment, address)
	}
	return d, nil
}

// Merge returns a new registry with the hardcoded entries first followed by
// discovered addresses not already present. Known entries keep their metadata.
func (r *Registry) Merge(discovered []common.Address) *Registry {
	extra := lo.FilterMap(lo.UniqBy(discovered, keyOf), func(a common.Address, _ int) (Deployment, bool) {
		_, known := r.byKey[keyOf(a)]
		return Deployment{Address: a}, !known
	})
	return New(append(r.All(), extra...))
}

func keyOf(a common.Address) string {
	return strings.ToLower(a.Hex())
}

func ptr[T any](v T) *T { return &v }

var static = map[int64][]Deployment{
	1: {
		{
			Label:   "Art Blocks Flagship: V0",
			Address: common.HexToAddress("0x059EDD72Cd353dF5106D2B9cC5ab83a52287aC3a"),
			Version: ptr(V0),
		},
		{
			Label:             "Art Blocks Flagship: V1",
			Address:           common.HexToAddress("0xa7d8d9ef8D8Ce8992Df33D8b8CF4Aebabd5bD270"),
			Version:           ptr(V1),
			StartingProjectID: ptr[uint64](3),
		},
		{
			Label:             "Art Blocks Flagship: V3",
			Address:           common.HexToAddress("0x99a9B7c1116f9ceEB1652de04d5969CcE509B069"),
			Version:           ptr(V3),
			StartingProjectID: ptr[uint64](374),
		},
		{
			Label:   "Art Blocks Curated: V3.2",
			Address: common.HexToAddress("0xAB0000000000aa06f89B268D604a9c1C41524Ac6"),
			Version: ptr(V3),
		},
	},
	11155111: {
		{
			Label:   "Sepolia Example",
			Address: common.HexToAddress("0xEC5DaE4b11213290B2dBe5295093f75920bD2982"),
		},
	},
}
