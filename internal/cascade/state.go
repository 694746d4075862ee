package cascade

import (
	"math/big"

	"github.com/Mohsinsiddi/ogview/internal/artblocks"
	"github.com/Mohsinsiddi/ogview/internal/deployments"
)

// Selection is the user's choice of contract, project and token. Fields
// are nil (or empty) until resolved and each depends on the one before it.
type Selection struct {
	Contract  string  `json:"contract,omitempty"`
	ProjectID *uint64 `json:"project_id,omitempty"`
	Token     *uint64 `json:"token,omitempty"`
}

// Loading reports which derived values are being fetched.
type Loading struct {
	ProjectRange bool `json:"project_range"`
	Invocations  bool `json:"invocations"`
}

// State is a snapshot of the controller. Pointer fields are never mutated
// after publication, so snapshots are safe to keep.
type State struct {
	Selection
	Deployment   *deployments.Deployment  `json:"deployment,omitempty"`
	ProjectRange *artblocks.Range         `json:"project_range,omitempty"`
	Invocations  *uint64                  `json:"invocations,omitempty"`
	OnChain      *artblocks.OnChainStatus `json:"on_chain,omitempty"`
	Loading      Loading                  `json:"loading"`
	Err          error                    `json:"-"`

	// Seq increases with every change.
	Seq uint64 `json:"seq"`
}

// Complete reports whether contract, project and token are all resolved.
func (s State) Complete() bool {
	return s.Deployment != nil && s.ProjectID != nil && s.Token != nil
}

// Busy reports whether any fetch is outstanding.
func (s State) Busy() bool {
	return s.Loading.ProjectRange || s.Loading.Invocations
}

// TokenID returns the token id for a complete selection.
func (s State) TokenID() (*big.Int, bool) {
	if !s.Complete() {
		return nil, false
	}
	return artblocks.TokenID(*s.ProjectID, *s.Token), true
}

// maxInvocation is the largest invocation a token id can carry without
// spilling into the next project.
const maxInvocation = artblocks.TokenIDMultiplier - 1

func tokenValid(inv, count uint64) bool {
	if inv > maxInvocation {
		return false
	}
	return count == 0 || inv < count
}

// clampToken pulls inv below count, or to 0 when nothing has been minted.
func clampToken(inv, count uint64) uint64 {
	if count == 0 {
		return 0
	}
	return min(inv, count-1, maxInvocation)
}

func ptr[T any](v T) *T { return &v }
