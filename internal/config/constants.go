package config

import "time"

// Environment variables read by ogview. .env and .env.local in the working
// directory may set them too.
const (
	EnvConfigDir          = "OGVIEW_CONFIG_DIR"
	EnvNetwork            = "OGVIEW_NETWORK"
	EnvRPCURL             = "OGVIEW_JSON_RPC_PROVIDER_URL"
	EnvGenerator          = "OGVIEW_GENERATOR_ADDRESS"
	EnvDependencyRegistry = "OGVIEW_DEPENDENCY_REGISTRY_ADDRESS"
)

// Timeout constants used across cmd.
const (
	RPCSelectTimeout = 10 * time.Second // benchmark of built-in endpoints
	ReadTimeout      = 30 * time.Second // one cascade step or token fetch from the CLI
)
