package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Mohsinsiddi/ogview/internal/chain"
	"github.com/Mohsinsiddi/ogview/internal/secrets"
	"github.com/ethereum/go-ethereum/common"
)

const (
	DefaultNetwork    = "mainnet"
	defaultAlgorithm  = "fastest"
	defaultListenAddr = "127.0.0.1:7878"
	defaultRenderMode = "html"

	configFile = "config.json"
)

// Load reads config from dir (or creates defaults). dir defaults to ~/.ogview.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".ogview")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	data, err := os.ReadFile(filepath.Join(dir, configFile))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// ---------------------------------------------------------------------------
// network
// ---------------------------------------------------------------------------

// EffectiveNetwork applies the precedence flag > config > env > mainnet.
func (c *Config) EffectiveNetwork(flag string, env Env) string {
	for _, v := range []string{flag, c.Network, env.Network} {
		if v != "" {
			return v
		}
	}
	return DefaultNetwork
}

// ApplyContracts layers env and then config contract overrides onto net.
func (c *Config) ApplyContracts(net chain.Network, env Env) chain.Network {
	net = net.WithContracts(env.Generator, env.DependencyRegistry)
	if o, ok := c.Contracts[net.Name]; ok {
		net = net.WithContracts(o.Generator, o.DependencyRegistry)
	}
	return net
}

// SetContracts persists contract overrides for a network. Empty values
// leave the existing override alone.
func (c *Config) SetContracts(network, generator, dependencyRegistry string) error {
	for _, a := range []string{generator, dependencyRegistry} {
		if a != "" && !common.IsHexAddress(a) {
			return fmt.Errorf("invalid contract address %q", a)
		}
	}
	if c.Contracts == nil {
		c.Contracts = make(map[string]ContractOverrides)
	}
	o := c.Contracts[network]
	if generator != "" {
		o.Generator = common.HexToAddress(generator).Hex()
	}
	if dependencyRegistry != "" {
		o.DependencyRegistry = common.HexToAddress(dependencyRegistry).Hex()
	}
	c.Contracts[network] = o
	return nil
}

// ---------------------------------------------------------------------------
// RPC endpoints
// ---------------------------------------------------------------------------

// AddRPC adds a custom RPC URL for a network.
func (c *Config) AddRPC(network, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if slices.Contains(c.CustomRPCs[network], url) {
		return fmt.Errorf("RPC %s already exists for network %s", url, network)
	}
	c.CustomRPCs[network] = append(c.CustomRPCs[network], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a network.
func (c *Config) RemoveRPC(network, url string) error {
	rpcs := c.CustomRPCs[network]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for network %s", url, network)
	}
	c.CustomRPCs[network] = slices.Delete(rpcs, idx, idx+1)
	return nil
}

// GetRPCs returns custom RPCs for a network.
func (c *Config) GetRPCs(network string) []string {
	return c.CustomRPCs[network]
}

// RPCOverride returns the raw persisted override (URL or keychain reference).
func (c *Config) RPCOverride(network string) string {
	return c.RPCOverrides[network]
}

// SetRPCOverride persists url as the network's RPC endpoint. With a
// non-nil store the URL goes to the keychain and only its reference is
// written to config.json.
func (c *Config) SetRPCOverride(network, url string, store secrets.Store) error {
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("RPC URL must start with http:// or https://, got %q", url)
	}
	if _, err := c.ResetRPCOverride(network, store); err != nil {
		return err
	}
	value := url
	if store != nil {
		ref, err := store.Put(secrets.RPCName(network), url)
		if err != nil {
			return err
		}
		value = ref
	}
	if c.RPCOverrides == nil {
		c.RPCOverrides = make(map[string]string)
	}
	c.RPCOverrides[network] = value
	return nil
}

// ResetRPCOverride removes the network's override, deleting any keychain
// entry it points at. It reports whether an override existed.
func (c *Config) ResetRPCOverride(network string, store secrets.Store) (bool, error) {
	prev, ok := c.RPCOverrides[network]
	if !ok {
		return false, nil
	}
	if secrets.IsRef(prev) && store != nil {
		if err := store.Delete(prev); err != nil && !errors.Is(err, secrets.ErrNotFound) {
			return true, fmt.Errorf("removing stored RPC URL: %w", err)
		}
	}
	delete(c.RPCOverrides, network)
	return true, nil
}

// ResolveRPC applies the precedence flag > persisted override > env.
// An empty URL with a nil error means the caller should pick one of the
// network's built-in endpoints.
func (c *Config) ResolveRPC(network, flag string, env Env, store secrets.Store) (string, RPCSource, error) {
	if flag != "" {
		return flag, SourceFlag, nil
	}
	if v := c.RPCOverrides[network]; v != "" {
		if !secrets.IsRef(v) {
			return v, SourceConfig, nil
		}
		if store == nil {
			return "", "", fmt.Errorf("RPC URL for %s is in the keychain but no keychain is available", network)
		}
		url, err := store.Get(v)
		if err != nil {
			return "", "", fmt.Errorf("loading RPC URL for %s: %w", network, err)
		}
		return url, SourceKeychain, nil
	}
	if env.RPCURL != "" {
		return env.RPCURL, SourceEnv, nil
	}
	return "", "", nil
}

// Candidates returns the endpoints to benchmark for a network: custom RPCs
// first, then the built-in ones.
func (c *Config) Candidates(net chain.Network) []string {
	out := append([]string(nil), c.CustomRPCs[net.Name]...)
	for _, u := range net.RPCs {
		if !slices.Contains(out, u) {
			out = append(out, u)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// viewer selection
// ---------------------------------------------------------------------------

// SaveSelection remembers sel for a network.
func (c *Config) SaveSelection(network string, sel Selection) {
	if c.LastSelection == nil {
		c.LastSelection = make(map[string]Selection)
	}
	c.LastSelection[network] = sel
}

// Selection returns the remembered selection for a network.
func (c *Config) Selection(network string) (Selection, bool) {
	sel, ok := c.LastSelection[network]
	return sel, ok
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		RPCAlgorithm: defaultAlgorithm,
		ListenAddr:   defaultListenAddr,
		RenderMode:   defaultRenderMode,
		CustomRPCs:   make(map[string][]string),
		configDir:    dir,
	}
}
