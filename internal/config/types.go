package config

// Config holds all ogview configuration persisted in config.json.
type Config struct {
	// Network is the persisted network name. Empty means "not chosen",
	// which lets OGVIEW_NETWORK apply.
	Network      string              `json:"network,omitempty"`
	RPCAlgorithm string              `json:"rpc_algorithm"` // "fastest" | "round-robin" | "failover"
	ListenAddr   string              `json:"listen_addr"`
	RenderMode   string              `json:"render_mode"` // "html" | "data-uri"
	CustomRPCs   map[string][]string `json:"custom_rpcs"`

	// RPCOverrides maps a network to its user-chosen RPC URL, or to a
	// keychain reference when the URL was stored with --secure.
	RPCOverrides map[string]string `json:"rpc_overrides,omitempty"`

	// Contracts overrides the built-in generator and dependency registry per network.
	Contracts map[string]ContractOverrides `json:"contracts,omitempty"`

	// LastSelection remembers the viewer's selection per network.
	LastSelection map[string]Selection `json:"last_selection,omitempty"`

	// internal: config dir path used for Save()
	configDir string
}

// ContractOverrides replaces a network's built-in contract addresses.
type ContractOverrides struct {
	Generator          string `json:"generator,omitempty"`
	DependencyRegistry string `json:"dependency_registry,omitempty"`
}

// Selection is a persisted contract/project/token choice.
type Selection struct {
	Contract  string  `json:"contract"`
	ProjectID *uint64 `json:"project_id,omitempty"`
	Token     *uint64 `json:"token,omitempty"`
}

// RPCSource names where the effective RPC URL came from.
type RPCSource string

const (
	SourceFlag      RPCSource = "flag"
	SourceKeychain  RPCSource = "keychain"
	SourceConfig    RPCSource = "config"
	SourceEnv       RPCSource = "env"
	SourceBenchmark RPCSource = "benchmark"
)
