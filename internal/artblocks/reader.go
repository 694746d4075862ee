// Package artblocks reads generative-art projects and tokens from core,
// generator and dependency-registry contracts with read-only calls.
package artblocks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/Mohsinsiddi/ogview/internal/logging"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrNoGenerator is returned when the network has no generator configured.
	ErrNoGenerator = errors.New("no generator contract configured for this network")
	// ErrNoDependencyRegistry is returned when the network has no dependency registry configured.
	ErrNoDependencyRegistry = errors.New("no dependency registry configured for this network")
)

// Caller executes a read-only contract call and returns the raw return data.
// *chain.EVMClient satisfies it.
type Caller interface {
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// Range is an inclusive range of project ids.
type Range struct {
	Min uint64 `json:"min"`
	Max uint64 `json:"max"`
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v uint64) bool { return v >= r.Min && v <= r.Max }

// Clamp pulls v into the range.
func (r Range) Clamp(v uint64) uint64 {
	return max(r.Min, min(v, r.Max))
}

func (r Range) String() string { return fmt.Sprintf("[%d, %d]", r.Min, r.Max) }

// OnChainStatus describes how much of a project's dependency graph the
// generator can serve from chain state alone.
type OnChainStatus struct {
	DependencyFullyOnChain                   bool `json:"dependency_fully_on_chain"`
	InjectsDecentralizedStorageNetworkAssets bool `json:"injects_decentralized_storage_network_assets"`
	HasOffChainFlexDepRegDependencies        bool `json:"has_off_chain_flex_dep_reg_dependencies"`
}

// FullyOnChain is true when the token renders without any off-chain fetches.
func (s OnChainStatus) FullyOnChain() bool {
	return s.DependencyFullyOnChain &&
		!s.InjectsDecentralizedStorageNetworkAssets &&
		!s.HasOffChainFlexDepRegDependencies
}

// DefaultTieWindow is how long an unversioned invocation probe waits for a
// higher-priority ABI variant after a lower-priority one has succeeded.
const DefaultTieWindow = 25 * time.Millisecond

// Reader issues read-only calls against a single network.
type Reader struct {
	caller             Caller
	generator          common.Address
	dependencyRegistry common.Address
	tieWindow          time.Duration
	log                *slog.Logger
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger used for non-fatal read failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reader) { r.log = logging.OrDiscard(l) }
}

// WithTieWindow overrides DefaultTieWindow.
func WithTieWindow(d time.Duration) Option {
	return func(r *Reader) { r.tieWindow = d }
}

// NewReader creates a Reader. A zero generator or dependency registry
// address disables the reads that need it.
func NewReader(caller Caller, generator, dependencyRegistry common.Address, opts ...Option) *Reader {
	r := &Reader{
		caller:             caller,
		generator:          generator,
		dependencyRegistry: dependencyRegistry,
		tieWindow:          DefaultTieWindow,
		log:                logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generator returns the configured generator address.
func (r *Reader) Generator() common.Address { return r.generator }

// SupportedCoreContracts lists the core contracts registered with the
// dependency registry.
func (r *Reader) SupportedCoreContracts(ctx context.Context) ([]common.Address, error) {
	if r.dependencyRegistry == (common.Address{}) {
		return nil, ErrNoDependencyRegistry
	}
	vals, err := r.read(ctx, r.dependencyRegistry, DependencyRegistryABI, "getSupportedCoreContracts")
	if err != nil {
		return nil, err
	}
	addrs, ok := vals[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("getSupportedCoreContracts: unexpected type %T", vals[0])
	}
	return addrs, nil
}

// OnChainStatus reads the generator's on-chain completeness flags for a project.
func (r *Reader) OnChainStatus(ctx context.Context, core common.Address, projectID uint64) (OnChainStatus, error) {
	if r.generator == (common.Address{}) {
		return OnChainStatus{}, ErrNoGenerator
	}
	vals, err := r.read(ctx, r.generator, GeneratorABI, "getOnChainStatus", core, new(big.Int).SetUint64(projectID))
	if err != nil {
		return OnChainStatus{}, err
	}
	var st OnChainStatus
	flags := []*bool{
		&st.DependencyFullyOnChain,
		&st.InjectsDecentralizedStorageNetworkAssets,
		&st.HasOffChainFlexDepRegDependencies,
	}
	for i, dst := range flags {
		b, ok := vals[i].(bool)
		if !ok {
			return OnChainStatus{}, fmt.Errorf("getOnChainStatus: output %d has type %T", i, vals[i])
		}
		*dst = b
	}
	return st, nil
}

// ProjectScript returns the raw project script stored on chain.
func (r *Reader) ProjectScript(ctx context.Context, core common.Address, projectID uint64) (string, error) {
	return r.generatorString(ctx, "getProjectScript", core, new(big.Int).SetUint64(projectID))
}

// TokenHTML returns the fully assembled token markup.
func (r *Reader) TokenHTML(ctx context.Context, core common.Address, tokenID *big.Int) (string, error) {
	return r.generatorString(ctx, "getTokenHtml", core, tokenID)
}

// TokenHTMLDataURI returns the token markup as a base64 data URI.
func (r *Reader) TokenHTMLDataURI(ctx context.Context, core common.Address, tokenID *big.Int) (string, error) {
	return r.generatorString(ctx, "getTokenHtmlBase64EncodedDataUri", core, tokenID)
}

func (r *Reader) generatorString(ctx context.Context, method string, args ...interface{}) (string, error) {
	if r.generator == (common.Address{}) {
		return "", ErrNoGenerator
	}
	vals, err := r.read(ctx, r.generator, GeneratorABI, method, args...)
	if err != nil {
		return "", err
	}
	s, ok := vals[0].(string)
	if !ok {
		return "", fmt.Errorf("%s: unexpected type %T", method, vals[0])
	}
	return s, nil
}

// read packs a call, executes it and unpacks the outputs.
func (r *Reader) read(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}
	out, err := r.caller.CallContract(ctx, to, data)
	if err != nil {
		return nil, fmt.Errorf("%s on %s: %w", method, to.Hex(), err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s on %s: empty return data", method, to.Hex())
	}
	vals, err := contractABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", method, err)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("decoding %s: no outputs", method)
	}
	return vals, nil
}

func toUint64(method string, v interface{}) (uint64, error) {
	n, ok := v.(*big.Int)
	if !ok {
		return 0, fmt.Errorf("%s: unexpected type %T", method, v)
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("%s: value %s overflows uint64", method, n)
	}
	return n.Uint64(), nil
}
