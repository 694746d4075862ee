// Package cascade keeps a contract → project → token selection consistent
// with the on-chain bounds it depends on.
//
// Every upstream change clears its dependents synchronously, bumps a
// generation counter and cancels the fetch it replaces. Fetch results are
// applied only while their generation is still current; otherwise the call
// returns ErrSuperseded.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Mohsinsiddi/ogview/internal/artblocks"
	"github.com/Mohsinsiddi/ogview/internal/deployments"
	"github.com/Mohsinsiddi/ogview/internal/logging"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrSuperseded is returned by a fetch whose result was discarded
	// because a newer selection replaced it.
	ErrSuperseded = errors.New("superseded by a newer selection")
	// ErrNotReady is returned when an upstream value has not resolved yet.
	ErrNotReady = errors.New("selection not ready")
	// ErrOutOfRange is returned for a project or token outside its bounds.
	ErrOutOfRange = errors.New("out of range")
)

// Reader is the chain access the controller needs. *artblocks.Reader
// satisfies it.
type Reader interface {
	ProjectRange(ctx context.Context, d deployments.Deployment) (artblocks.Range, error)
	ProjectInvocations(ctx context.Context, d deployments.Deployment, projectID uint64) (uint64, error)
	OnChainStatus(ctx context.Context, core common.Address, projectID uint64) (artblocks.OnChainStatus, error)
	SupportedCoreContracts(ctx context.Context) ([]common.Address, error)
}

// Controller owns the selection and its derived state.
type Controller struct {
	reader Reader
	log    *slog.Logger

	mu             sync.Mutex
	registry       *deployments.Registry
	state          State
	contractGen    uint64
	projectGen     uint64
	cancelContract context.CancelFunc
	cancelProject  context.CancelFunc

	notifyMu  sync.Mutex
	delivered uint64
	subs      map[int]func(State)
	nextSub   int
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = logging.OrDiscard(l) }
}

// New creates a controller over the given deployments.
func New(reader Reader, registry *deployments.Registry, opts ...Option) *Controller {
	c := &Controller{
		reader:   reader,
		registry: registry,
		log:      logging.Discard(),
		subs:     make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the current deployment registry, including discovered
// core contracts once Initialize has run.
func (c *Controller) Registry() *deployments.Registry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn for state changes and returns a function that
// removes it. Notifications arrive in mutation order; a listener never sees
// an older snapshot after a newer one. Listeners must not call controller
// mutators synchronously.
func (c *Controller) Subscribe(fn func(State)) (cancel func()) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.notifyMu.Lock()
		defer c.notifyMu.Unlock()
		delete(c.subs, id)
	}
}

// Close cancels any in-flight fetch.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contractGen++
	c.projectGen++
	c.cancelInFlight()
}

// Initialize merges discovered core contracts into the registry and then
// applies sel. An empty or unknown contract selects the default deployment;
// a project or token outside its resolved bounds is replaced by the lower
// bound or 0.
func (c *Controller) Initialize(ctx context.Context, sel Selection) error {
	c.discover(ctx)

	c.mu.Lock()
	if _, known := c.registry.Lookup(sel.Contract); !known {
		def, ok := c.registry.Default()
		if !ok {
			c.mu.Unlock()
			return fmt.Errorf("%w: no deployments configured for this network", deployments.ErrUnknownDeployment)
		}
		if sel.Contract != "" {
			c.log.Info("unknown contract, using default deployment", "contract", sel.Contract, "default", def.Address.Hex())
		}
		sel = Selection{Contract: def.Address.Hex()}
	}
	c.mu.Unlock()

	return c.setContract(ctx, sel.Contract, sel.ProjectID, sel.Token)
}

func (c *Controller) discover(ctx context.Context) {
	found, err := c.reader.SupportedCoreContracts(ctx)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, artblocks.ErrNoDependencyRegistry) {
			level = slog.LevelDebug
		}
		c.log.Log(ctx, level, "core contract discovery failed", "err", err)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	before := c.registry.Len()
	c.registry = c.registry.Merge(found)
	c.log.Debug("core contracts discovered", "reported", len(found), "added", c.registry.Len()-before)
}

// SetContract selects a deployment, resolves its project range and
// auto-selects the first project and its first token.
func (c *Controller) SetContract(ctx context.Context, address string) error {
	return c.setContract(ctx, address, nil, nil)
}

func (c *Controller) setContract(ctx context.Context, address string, wantProject, wantToken *uint64) error {
	c.mu.Lock()
	c.contractGen++
	c.projectGen++
	c.cancelInFlight()
	c.state = State{Seq: c.state.Seq}

	d, ok := c.registry.Lookup(address)
	if !ok {
		snap := c.commitLocked()
		c.mu.Unlock()
		c.publish(snap)
		return fmt.Errorf("%w: %q", deployments.ErrUnknownDeployment, address)
	}
	c.state.Contract = d.Address.Hex()
	c.state.Deployment = &d
	c.state.Loading.ProjectRange = true
	fctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancelContract = cancel
	gen := c.contractGen
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(snap)

	rng, err := c.reader.ProjectRange(fctx, d)

	c.mu.Lock()
	if gen != c.contractGen {
		c.mu.Unlock()
		return ErrSuperseded
	}
	c.state.Loading.ProjectRange = false
	if err != nil {
		c.state.Err = err
		snap := c.commitLocked()
		c.mu.Unlock()
		c.publish(snap)
		return fmt.Errorf("reading project range of %s: %w", d.DisplayName(), err)
	}
	c.state.ProjectRange = &rng
	id := rng.Min
	if wantProject != nil && rng.Contains(*wantProject) {
		id = *wantProject
	}
	f := c.beginProjectLocked(ctx, d, id, wantToken)
	snap = c.commitLocked()
	c.mu.Unlock()
	c.publish(snap)

	return c.runProject(f)
}

// SetProject selects a project within the resolved range and resolves its
// invocation count.
func (c *Controller) SetProject(ctx context.Context, projectID uint64) error {
	c.mu.Lock()
	if c.state.Deployment == nil || c.state.ProjectRange == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: project range not resolved", ErrNotReady)
	}
	if !c.state.ProjectRange.Contains(projectID) {
		rng := *c.state.ProjectRange
		c.mu.Unlock()
		return fmt.Errorf("%w: project %d not in %s", ErrOutOfRange, projectID, rng)
	}
	f := c.beginProjectLocked(ctx, *c.state.Deployment, projectID, nil)
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(snap)

	return c.runProject(f)
}

// SetToken selects a token invocation within the resolved count.
func (c *Controller) SetToken(invocation uint64) error {
	c.mu.Lock()
	if c.state.Invocations == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: invocations not resolved", ErrNotReady)
	}
	if n := *c.state.Invocations; !tokenValid(invocation, n) {
		c.mu.Unlock()
		if n == 0 {
			return fmt.Errorf("%w: token %d above %d", ErrOutOfRange, invocation, maxInvocation)
		}
		return fmt.Errorf("%w: token %d not below %d", ErrOutOfRange, invocation, n)
	}
	c.state.Token = ptr(invocation)
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(snap)
	return nil
}

// ClampProject pulls v into the resolved project range. ok is false while
// the range is unresolved.
func (c *Controller) ClampProject(v uint64) (clamped uint64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.ProjectRange == nil {
		return 0, false
	}
	return c.state.ProjectRange.Clamp(v), true
}

// ClampToken pulls v below the resolved invocation count. ok is false while
// the count is unresolved.
func (c *Controller) ClampToken(v uint64) (clamped uint64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Invocations == nil {
		return 0, false
	}
	return clampToken(v, *c.state.Invocations), true
}

type projectFetch struct {
	ctx       context.Context
	cancel    context.CancelFunc
	gen       uint64
	d         deployments.Deployment
	projectID uint64
	wantToken *uint64
}

// beginProjectLocked clears project dependents and supersedes any
// project-level fetch. c.mu must be held.
func (c *Controller) beginProjectLocked(ctx context.Context, d deployments.Deployment, projectID uint64, wantToken *uint64) projectFetch {
	c.projectGen++
	if c.cancelProject != nil {
		c.cancelProject()
	}
	fctx, cancel := context.WithCancel(ctx)
	c.cancelProject = cancel

	c.state.ProjectID = ptr(projectID)
	c.state.Token = nil
	c.state.Invocations = nil
	c.state.OnChain = nil
	c.state.Err = nil
	c.state.Loading.Invocations = true

	return projectFetch{
		ctx:       fctx,
		cancel:    cancel,
		gen:       c.projectGen,
		d:         d,
		projectID: projectID,
		wantToken: wantToken,
	}
}

func (c *Controller) runProject(f projectFetch) error {
	defer f.cancel()

	var (
		wg       sync.WaitGroup
		status   artblocks.OnChainStatus
		statusOK bool
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		st, err := c.reader.OnChainStatus(f.ctx, f.d.Address, f.projectID)
		if err != nil {
			c.log.Debug("on-chain status unavailable", "contract", f.d.Address.Hex(), "project", f.projectID, "err", err)
			return
		}
		status, statusOK = st, true
	}()
	count, err := c.reader.ProjectInvocations(f.ctx, f.d, f.projectID)
	wg.Wait()

	c.mu.Lock()
	if f.gen != c.projectGen {
		c.mu.Unlock()
		return ErrSuperseded
	}
	c.state.Loading.Invocations = false
	if err != nil {
		c.state.Err = err
		snap := c.commitLocked()
		c.mu.Unlock()
		c.publish(snap)
		return fmt.Errorf("reading invocations of project %d: %w", f.projectID, err)
	}
	if statusOK {
		c.state.OnChain = &status
	}
	c.state.Invocations = ptr(count)
	token := uint64(0)
	if f.wantToken != nil && tokenValid(*f.wantToken, count) {
		token = *f.wantToken
	}
	c.state.Token = ptr(token)
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(snap)
	return nil
}

// cancelInFlight cancels both fetch levels. c.mu must be held.
func (c *Controller) cancelInFlight() {
	if c.cancelContract != nil {
		c.cancelContract()
		c.cancelContract = nil
	}
	if c.cancelProject != nil {
		c.cancelProject()
		c.cancelProject = nil
	}
}

// commitLocked stamps the state with a new sequence number and returns the
// snapshot to publish. c.mu must be held.
func (c *Controller) commitLocked() State {
	c.state.Seq++
	return c.state
}

func (c *Controller) publish(s State) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if s.Seq <= c.delivered {
		return
	}
	c.delivered = s.Seq
	for _, fn := range c.subs {
		fn(s)
	}
}
