package chain_test

import (
	"testing"

	"github.com/Mohsinsiddi/ogview/internal/chain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryResolveByName(t *testing.T) {
	reg := chain.NewRegistry()

	n, err := reg.Resolve("mainnet")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n.ChainID)

	n, err = reg.Resolve("Sepolia")
	require.NoError(t, err)
	assert.Equal(t, int64(11155111), n.ChainID)
}

func TestRegistryResolveAliases(t *testing.T) {
	reg := chain.NewRegistry()
	for _, alias := range []string{"ethereum", "eth", "homestead", "1"} {
		n, err := reg.Resolve(alias)
		require.NoError(t, err, alias)
		assert.Equal(t, "mainnet", n.Name, alias)
	}
}

func TestRegistryResolveByChainID(t *testing.T) {
	n, err := chain.NewRegistry().Resolve("11155111")
	require.NoError(t, err)
	assert.Equal(t, "sepolia", n.Name)
}

func TestRegistryResolveUnknown(t *testing.T) {
	_, err := chain.NewRegistry().Resolve("base")
	assert.ErrorIs(t, err, chain.ErrNetworkNotFound)

	_, err = chain.NewRegistry().Resolve("8453")
	assert.ErrorIs(t, err, chain.ErrNetworkNotFound)
}

func TestRegistryGetByChainID(t *testing.T) {
	reg := chain.NewRegistry()
	n, err := reg.GetByChainID(1)
	require.NoError(t, err)
	assert.Equal(t, "Ethereum", n.DisplayName)

	_, err = reg.GetByChainID(999)
	assert.ErrorIs(t, err, chain.ErrNetworkNotFound)
}

func TestRegistryNames(t *testing.T) {
	assert.Equal(t, []string{"mainnet", "sepolia"}, chain.NewRegistry().Names())
}

func TestEveryNetworkHasRPCs(t *testing.T) {
	for _, n := range chain.NewRegistry().All() {
		assert.NotEmpty(t, n.RPCs, n.Name)
		assert.NotEmpty(t, n.Explorer, n.Name)
	}
}

func TestMainnetShipsContracts(t *testing.T) {
	n, err := chain.NewRegistry().Resolve("mainnet")
	require.NoError(t, err)
	assert.True(t, n.HasGenerator())
	assert.True(t, n.HasDependencyRegistry())
}

func TestWithContractsOverrides(t *testing.T) {
	n, err := chain.NewRegistry().Resolve("sepolia")
	require.NoError(t, err)
	assert.False(t, n.HasGenerator())

	over := n.WithContracts("0x1111111111111111111111111111111111111111", "")
	assert.True(t, over.HasGenerator())
	assert.False(t, over.HasDependencyRegistry())
	assert.Equal(t, "0x1111111111111111111111111111111111111111", over.Generator.Hex())

	// Registry entry itself is untouched.
	assert.False(t, n.HasGenerator())
}

func TestWithContractsIgnoresGarbage(t *testing.T) {
	n, _ := chain.NewRegistry().Resolve("mainnet")
	over := n.WithContracts("not-an-address", "0x12")
	assert.Equal(t, n.Generator, over.Generator)
	assert.Equal(t, n.DependencyRegistry, over.DependencyRegistry)
}
