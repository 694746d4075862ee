package e2e_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Mohsinsiddi/ogview/internal/artblocks"
	"github.com/Mohsinsiddi/ogview/internal/artblocks/artblockstest"
	"github.com/Mohsinsiddi/ogview/internal/config"
	"github.com/Mohsinsiddi/ogview/internal/deployments"
	"github.com/Mohsinsiddi/ogview/internal/logging"
	"github.com/Mohsinsiddi/ogview/internal/render"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var binaryPath string

var (
	flagshipV3  = common.HexToAddress("0x99a9B7c1116f9ceEB1652de04d5969CcE509B069")
	sepoliaCore = common.HexToAddress("0xEC5DaE4b11213290B2dBe5295093f75920bD2982")
)

func TestMain(m *testing.M) {
	// Build the binary before all E2E tests.
	tmp, err := os.MkdirTemp("", "ogview-e2e-test")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmp)

	binaryPath = filepath.Join(tmp, "ogview")
	// Build from the module root (two levels up from test/e2e/).
	moduleRoot, err := filepath.Abs(filepath.Join("..", ".."))
	if err != nil {
		panic(err)
	}
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = moduleRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("build failed: " + string(out))
	}

	os.Exit(m.Run())
}

// cleanEnv drops inherited OGVIEW_* variables so the host cannot leak into a run.
func cleanEnv() []string {
	var out []string
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, "OGVIEW_") {
			out = append(out, kv)
		}
	}
	return out
}

func runCLIWithEnv(t *testing.T, configDir string, extraEnv []string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	// Run inside the config dir so no stray .env file is picked up.
	cmd.Dir = configDir
	cmd.Env = append(cleanEnv(), config.EnvConfigDir+"="+configDir)
	cmd.Env = append(cmd.Env, extraEnv...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func runCLI(t *testing.T, configDir string, args ...string) (string, error) {
	t.Helper()
	return runCLIWithEnv(t, configDir, nil, args...)
}

// ---------------------------------------------------------------------------
// Root
// ---------------------------------------------------------------------------

func TestVersionFlag(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, dir, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "ogview")
	assert.Contains(t, out, "0.1.0")
}

func TestHelpCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, dir, "--help")
	require.NoError(t, err)
	for _, sub := range []string{"deployments", "projects", "invocations", "status", "token", "serve", "view", "config", "rpc"} {
		assert.Contains(t, out, sub)
	}
}

func TestUnknownCommandShowsError(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "nonexistentcommand")
	assert.Error(t, err)
}

func TestUnknownNetwork(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, dir, "--network", "atlantis", "deployments")
	require.Error(t, err)
	assert.Contains(t, out, "network not found")
	assert.Contains(t, out, "mainnet")
}

// ---------------------------------------------------------------------------
// Deployments (offline)
// ---------------------------------------------------------------------------

func TestDeploymentsTable(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, dir, "deployments")
	require.NoError(t, err)
	assert.Contains(t, out, flagshipV3.Hex())
	assert.Contains(t, out, "374")
	assert.Contains(t, out, "on chain")
}

func TestDeploymentsJSON(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, dir, "deployments", "--json")
	require.NoError(t, err)

	var got []deployments.Deployment
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 4)
	assert.Equal(t, common.HexToAddress("0x059EDD72Cd353dF5106D2B9cC5ab83a52287aC3a"), got[0].Address)
	require.NotNil(t, got[2].StartingProjectID)
	assert.Equal(t, uint64(374), *got[2].StartingProjectID)
}

func TestDeploymentsFollowNetworkFlag(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, dir, "--network", "sepolia", "deployments")
	require.NoError(t, err)
	assert.Contains(t, out, sepoliaCore.Hex())
	assert.NotContains(t, out, flagshipV3.Hex())
}

func TestDeploymentsFollowEnvNetwork(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLIWithEnv(t, dir, []string{config.EnvNetwork + "=sepolia"}, "deployments")
	require.NoError(t, err)
	assert.Contains(t, out, sepoliaCore.Hex())
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

func TestConfigList(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, dir, "config", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "rpc_algorithm")
	assert.Contains(t, out, "Effective settings")
	assert.Contains(t, out, dir)
}

func TestConfigSetNetwork(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "config", "set-network", "sepolia")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "deployments")
	require.NoError(t, err)
	assert.Contains(t, out, sepoliaCore.Hex())

	// The flag still wins over the persisted network.
	out, err = runCLI(t, dir, "--network", "mainnet", "deployments")
	require.NoError(t, err)
	assert.Contains(t, out, flagshipV3.Hex())
}

func TestConfigSetNetworkUnknown(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "config", "set-network", "atlantis")
	assert.Error(t, err)
}

func TestConfigSetAndResetRPC(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "config", "set-rpc", "https://node.example.org")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "config", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "https://node.example.org (config)")

	out, err = runCLI(t, dir, "config", "reset-rpc")
	require.NoError(t, err)
	assert.Contains(t, out, "reset")

	out, err = runCLI(t, dir, "config", "reset-rpc")
	require.NoError(t, err)
	assert.Contains(t, out, "No RPC override")
}

func TestConfigSetRenderMode(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "config", "set-render-mode", "data-uri")
	require.NoError(t, err)

	out, _ := runCLI(t, dir, "config", "list")
	assert.Contains(t, out, `"render_mode": "data-uri"`)

	_, err = runCLI(t, dir, "config", "set-render-mode", "svg")
	assert.Error(t, err)
}

func TestConfigSetContractsNeedsFlags(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, dir, "config", "set-contracts")
	require.Error(t, err)
	assert.Contains(t, out, "nothing to set")
}

// ---------------------------------------------------------------------------
// RPC
// ---------------------------------------------------------------------------

func TestRPCAddListRemove(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "rpc", "add", "https://custom.rpc.url")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "rpc", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "custom.rpc.url")

	_, err = runCLI(t, dir, "rpc", "remove", "https://custom.rpc.url")
	require.NoError(t, err)

	out, err = runCLI(t, dir, "rpc", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "custom.rpc.url")
}

func TestRPCAlgorithmSet(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "rpc", "algorithm", "set", "round-robin")
	require.NoError(t, err)

	out, _ := runCLI(t, dir, "config", "list")
	assert.Contains(t, out, "round-robin")

	_, err = runCLI(t, dir, "rpc", "algorithm", "set", "random")
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Reads against a local node
// ---------------------------------------------------------------------------

// nodeEnv starts a JSON-RPC node serving the mainnet flagship V3 contract and
// returns the environment that points the binary at it.
func nodeEnv(t *testing.T) (*artblockstest.Chain, []string) {
	t.Helper()
	fc := artblockstest.New().AddCore(flagshipV3, &artblockstest.Core{
		Shape:             deployments.V3,
		NextProjectID:     400,
		StartingProjectID: artblockstest.Uint64(374),
		Invocations:       map[uint64]uint64{380: 25},
		Status: map[uint64]artblocks.OnChainStatus{
			381: {DependencyFullyOnChain: false},
		},
	})
	srv := httptest.NewServer(fc.Handler(1))
	t.Cleanup(srv.Close)
	return fc, []string{
		config.EnvRPCURL + "=" + srv.URL,
		config.EnvGenerator + "=" + artblockstest.GeneratorAddress.Hex(),
		config.EnvDependencyRegistry + "=" + artblockstest.DependencyRegistryAddress.Hex(),
	}
}

func TestProjectsAgainstNode(t *testing.T) {
	dir := t.TempDir()
	_, env := nodeEnv(t)
	out, err := runCLIWithEnv(t, dir, env, "projects", flagshipV3.Hex())
	require.NoError(t, err, out)
	assert.Contains(t, out, "[374, 399]")
	assert.Contains(t, out, "26")
}

func TestInvocationsAgainstNode(t *testing.T) {
	dir := t.TempDir()
	_, env := nodeEnv(t)
	out, err := runCLIWithEnv(t, dir, env, "invocations", flagshipV3.Hex(), "380")
	require.NoError(t, err, out)
	assert.Contains(t, out, "25")
	assert.Contains(t, out, "[0, 24]")

	out, err = runCLIWithEnv(t, dir, env, "invocations", flagshipV3.Hex(), "12")
	require.Error(t, err)
	assert.Contains(t, out, "project 12 not in [374, 399]")
}

func TestStatusAgainstNode(t *testing.T) {
	dir := t.TempDir()
	_, env := nodeEnv(t)
	out, err := runCLIWithEnv(t, dir, env, "status", flagshipV3.Hex(), "380")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Renders entirely from chain state")

	out, err = runCLIWithEnv(t, dir, env, "status", flagshipV3.Hex(), "381")
	require.NoError(t, err, out)
	assert.Contains(t, out, "needs data from outside the chain")
}

func TestTokenAgainstNode(t *testing.T) {
	dir := t.TempDir()
	fc, env := nodeEnv(t)
	markup := "<html><body><p>token 380000007</p></body></html>"
	fc.SetTokenHTML(flagshipV3, artblocks.TokenID(380, 7), markup)

	out, err := runCLIWithEnv(t, dir, env, "token", flagshipV3.Hex(), "380", "7")
	require.NoError(t, err, out)
	assert.Contains(t, out, markup)

	file := filepath.Join(dir, "token.html")
	_, err = runCLIWithEnv(t, dir, env, "token", flagshipV3.Hex(), "380", "7", "--data-uri", "--out", file)
	require.NoError(t, err)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, markup, string(data))
}

func TestTokenFailureIsGeneric(t *testing.T) {
	dir := t.TempDir()
	fc, env := nodeEnv(t)
	fc.SetGate(func(_ context.Context, _ common.Address, method string) error {
		if method == "getTokenHtml" {
			return artblockstest.Revert()
		}
		return nil
	})

	// Keep the warn-level cause log out of the combined output.
	env = append(env, logging.LevelEnv+"=error")
	out, err := runCLIWithEnv(t, dir, env, "token", flagshipV3.Hex(), "380", "1")
	require.Error(t, err)
	assert.Contains(t, out, render.GenericError)
	assert.NotContains(t, out, "execution reverted")
}
