package artblocks

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"github.com/Mohsinsiddi/ogview/internal/deployments"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// TokenIDMultiplier separates the project id from the invocation in a token id.
const TokenIDMultiplier = 1_000_000

// TokenID returns projectID*1_000_000 + invocation.
func TokenID(projectID, invocation uint64) *big.Int {
	id := new(big.Int).Mul(new(big.Int).SetUint64(projectID), big.NewInt(TokenIDMultiplier))
	return id.Add(id, new(big.Int).SetUint64(invocation))
}

// SplitTokenID is the inverse of TokenID.
func SplitTokenID(tokenID *big.Int) (projectID, invocation uint64, err error) {
	if tokenID == nil || tokenID.Sign() < 0 {
		return 0, 0, fmt.Errorf("invalid token id %v", tokenID)
	}
	p, inv := new(big.Int).QuoRem(tokenID, big.NewInt(TokenIDMultiplier), new(big.Int))
	if !p.IsUint64() {
		return 0, 0, fmt.Errorf("token id %s: project id overflows", tokenID)
	}
	return p.Uint64(), inv.Uint64(), nil
}

// ProjectRange reads the inclusive range of valid project ids for d.
// The upper bound never drops below the lower bound, so an empty contract
// yields a single-element range.
func (r *Reader) ProjectRange(ctx context.Context, d deployments.Deployment) (Range, error) {
	vals, err := r.read(ctx, d.Address, CoreCountersABI, "nextProjectId")
	if err != nil {
		return Range{}, err
	}
	next, err := toUint64("nextProjectId", vals[0])
	if err != nil {
		return Range{}, err
	}
	start := r.startingProjectID(ctx, d)

	upper := start
	if next > 0 && next-1 > start {
		upper = next - 1
	}
	return Range{Min: start, Max: upper}, nil
}

func (r *Reader) startingProjectID(ctx context.Context, d deployments.Deployment) uint64 {
	if d.StartingProjectID != nil && *d.StartingProjectID != 0 {
		return *d.StartingProjectID
	}
	vals, err := r.read(ctx, d.Address, CoreCountersABI, "startingProjectId")
	if err != nil {
		r.log.Debug("startingProjectId unavailable, using 0", "contract", d.Address.Hex(), "err", err)
		return 0
	}
	start, err := toUint64("startingProjectId", vals[0])
	if err != nil {
		r.log.Debug("startingProjectId unreadable, using 0", "contract", d.Address.Hex(), "err", err)
		return 0
	}
	return start
}

// variant is one core ABI generation's way of exposing a project's
// invocation count.
type variant struct {
	version deployments.Version
	abi     abi.ABI
	method  string
	index   int
}

// variants are listed in tie-break priority order.
var variants = []variant{
	{deployments.V0, CoreV0ABI, "projectTokenInfo", 2},
	{deployments.V1, CoreV1ABI, "projectTokenInfo", 2},
	{deployments.V3, CoreV3ABI, "projectStateData", 0},
}

func variantFor(v deployments.Version) (variant, bool) {
	for _, vr := range variants {
		if vr.version == v {
			return vr, true
		}
	}
	return variant{}, false
}

// ProjectInvocations returns how many tokens have been minted for a
// project. With a declared version the matching read is used and its error
// is returned. Without one every variant is tried concurrently and a total
// failure resolves to 0. A cancelled or expired ctx is always an error.
func (r *Reader) ProjectInvocations(ctx context.Context, d deployments.Deployment, projectID uint64) (uint64, error) {
	if d.Version != nil {
		vr, ok := variantFor(*d.Version)
		if !ok {
			return 0, fmt.Errorf("unsupported core version %s", d.Version)
		}
		return r.invocations(ctx, d.Address, vr, projectID)
	}
	n, v, ok, err := r.probeInvocations(ctx, d.Address, projectID)
	if err != nil {
		return 0, err
	}
	if !ok {
		r.log.Debug("no core variant answered, using 0 invocations", "contract", d.Address.Hex(), "project", projectID)
		return 0, nil
	}
	r.log.Debug("core variant detected", "contract", d.Address.Hex(), "version", v.String())
	return n, nil
}

func (r *Reader) invocations(ctx context.Context, core common.Address, vr variant, projectID uint64) (uint64, error) {
	vals, err := r.read(ctx, core, vr.abi, vr.method, new(big.Int).SetUint64(projectID))
	if err != nil {
		return 0, err
	}
	if vr.index >= len(vals) {
		return 0, fmt.Errorf("%s: missing output %d", vr.method, vr.index)
	}
	return toUint64(vr.method, vals[vr.index])
}

type probeResult struct {
	rank int
	n    uint64
	err  error
}

// probeInvocations races every variant. The first success wins unless a
// higher-priority variant also succeeds within the tie window. The error is
// non-nil only when the parent ctx ended before a result was accepted.
func (r *Reader) probeInvocations(parent context.Context, core common.Address, projectID uint64) (uint64, deployments.Version, bool, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	results := make(chan probeResult, len(variants))
	for i, vr := range variants {
		go func(rank int, vr variant) {
			n, err := r.invocations(ctx, core, vr, projectID)
			results <- probeResult{rank: rank, n: n, err: err}
		}(i, vr)
	}

	settled := make([]bool, len(variants))
	var (
		winner *probeResult
		window <-chan time.Time
	)
	for pending := len(variants); pending > 0; {
		select {
		case res := <-results:
			pending--
			settled[res.rank] = true
			if res.err != nil {
				if !errors.Is(res.err, context.Canceled) {
					r.log.Debug("core variant failed", "version", variants[res.rank].version.String(), "err", res.err)
				}
			} else if winner == nil || res.rank < winner.rank {
				winner = &res
			}
			if winner == nil {
				continue
			}
			if higherSettled(settled, winner.rank) {
				return winner.n, variants[winner.rank].version, true, nil
			}
			if window == nil {
				t := time.NewTimer(r.tieWindow)
				defer t.Stop()
				window = t.C
			}
		case <-window:
			return winner.n, variants[winner.rank].version, true, nil
		case <-ctx.Done():
			return 0, 0, false, parent.Err()
		}
	}
	// Variants that failed only because the caller gave up say nothing
	// about the contract.
	if err := parent.Err(); err != nil {
		return 0, 0, false, err
	}
	if winner == nil {
		return 0, 0, false, nil
	}
	return winner.n, variants[winner.rank].version, true, nil
}

func higherSettled(settled []bool, rank int) bool {
	for _, s := range settled[:rank] {
		if !s {
			return false
		}
	}
	return true
}

// DecodeDataURI extracts the payload from a data URI, handling both base64
// and percent-encoded bodies.
func DecodeDataURI(uri string) (mediaType string, body []byte, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, errors.New("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, errors.New("data URI has no payload separator")
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if mediaType == "" {
		mediaType = "text/plain;charset=US-ASCII"
	}
	if isBase64 {
		body, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, fmt.Errorf("decoding base64 payload: %w", err)
		}
		return mediaType, body, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decoding payload: %w", err)
	}
	return mediaType, []byte(s), nil
}
