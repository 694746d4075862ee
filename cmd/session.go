package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/ogview/internal/artblocks"
	"github.com/Mohsinsiddi/ogview/internal/chain"
	"github.com/Mohsinsiddi/ogview/internal/config"
	"github.com/Mohsinsiddi/ogview/internal/deployments"
	"github.com/Mohsinsiddi/ogview/internal/rpc"
	"github.com/Mohsinsiddi/ogview/internal/secrets"
	"github.com/Mohsinsiddi/ogview/internal/ui"
)

// session is everything a read command needs for one network.
type session struct {
	network   chain.Network
	rpcURL    string
	rpcSource config.RPCSource
	reader    *artblocks.Reader
	registry  *deployments.Registry
}

// resolveNetwork returns the effective network with contract overrides applied.
func resolveNetwork() (chain.Network, error) {
	name := cfg.EffectiveNetwork(networkFlag, env)
	n, err := chain.NewRegistry().Resolve(name)
	if err != nil {
		return chain.Network{}, fmt.Errorf("%w: %q (known: %s)", err, name, strings.Join(chain.NewRegistry().Names(), ", "))
	}
	return cfg.ApplyContracts(*n, env), nil
}

// secretStore opens the keychain only when the network's override lives there.
func secretStore(network string) secrets.Store {
	if !secrets.IsRef(cfg.RPCOverride(network)) {
		return nil
	}
	return secrets.OpenKeychain(cfg.Dir())
}

// resolveRPC applies the configured precedence and falls back to picking one
// of the network's endpoints with the configured algorithm.
func resolveRPC(ctx context.Context, net chain.Network) (string, config.RPCSource, error) {
	url, src, err := cfg.ResolveRPC(net.Name, rpcFlag, env, secretStore(net.Name))
	if err != nil || url != "" {
		return url, src, err
	}

	algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
	if err != nil {
		logger.Warn("invalid rpc_algorithm in config, using fastest", "value", cfg.RPCAlgorithm)
		algo = rpc.AlgorithmFastest
	}
	sctx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	defer cancel()

	spin := ui.NewSpinner(fmt.Sprintf("Selecting an RPC endpoint for %s…", net.DisplayName))
	spin.Start()
	url, err = rpc.Select(sctx, cfg.Candidates(net), net.ChainID, algo)
	spin.Stop()
	if err != nil {
		return "", "", fmt.Errorf("selecting RPC for %s: %w", net.Name, err)
	}
	return url, config.SourceBenchmark, nil
}

func openSession(ctx context.Context) (*session, error) {
	net, err := resolveNetwork()
	if err != nil {
		return nil, err
	}
	url, src, err := resolveRPC(ctx, net)
	if err != nil {
		return nil, err
	}
	logger.Debug("session", "network", net.Name, "rpc", url, "rpc_source", string(src),
		"generator", net.Generator.Hex(), "dependency_registry", net.DependencyRegistry.Hex())

	client := chain.NewEVMClient(url)
	return &session{
		network:   net,
		rpcURL:    url,
		rpcSource: src,
		reader:    artblocks.NewReader(client, net.Generator, net.DependencyRegistry, artblocks.WithLogger(logger)),
		registry:  deployments.ForChain(net.ChainID),
	}, nil
}

// discover merges the dependency registry's core contracts into the
// session registry. Failures are logged and ignored.
func (s *session) discover(ctx context.Context) {
	found, err := s.reader.SupportedCoreContracts(ctx)
	if err != nil {
		if !errors.Is(err, artblocks.ErrNoDependencyRegistry) {
			logger.Warn("core contract discovery failed", "err", err)
		}
		return
	}
	s.registry = s.registry.Merge(found)
}

// deployment resolves a contract address, trying discovery when it is not
// one of the built-in deployments.
func (s *session) deployment(ctx context.Context, address string) (deployments.Deployment, error) {
	d, err := s.registry.Resolve(address)
	if err == nil || !errors.Is(err, deployments.ErrUnknownDeployment) {
		return d, err
	}
	s.discover(ctx)
	return s.registry.Resolve(address)
}
