package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Mohsinsiddi/ogview/internal/config"
	"github.com/Mohsinsiddi/ogview/internal/logging"
	"github.com/Mohsinsiddi/ogview/internal/ui"
	"github.com/spf13/cobra"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/ogview/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir      string
	networkFlag string
	rpcFlag     string
	verbose     bool

	cfg    *config.Config
	env    config.Env
	logger = logging.Discard()
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "ogview",
	Short: "View on-chain generative art tokens",
	Long: `ogview reads generative-art core contracts and renders tokens straight
from chain state.

  Pick a core contract, a project within its range and a token among the
  project's invocations, then render the token's HTML through the
  on-chain generator, in the terminal viewer or in a local browser page.

The network comes from --network, then the persisted choice, then
OGVIEW_NETWORK (default: mainnet). The RPC endpoint comes from --rpc, then
the persisted override, then OGVIEW_JSON_RPC_PROVIDER_URL, and otherwise
the fastest healthy built-in endpoint. .env and .env.local in the working
directory are read first.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		loaded, dotErr := config.LoadDotEnv(".")
		logger = logging.New(verbose)
		if dotErr != nil {
			logger.Warn("ignoring unreadable env file", "err", dotErr)
		}
		if len(loaded) > 0 {
			logger.Debug("loaded env files", "files", loaded)
		}
		env = config.ReadEnv()

		if !cmd.Flags().Changed("config") {
			if dir := os.Getenv(config.EnvConfigDir); dir != "" {
				cfgDir = dir
			}
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Err(err.Error()))
		os.Exit(1)
	}
}

// Logger returns the process logger configured by the last command run.
func Logger() *slog.Logger { return logger }

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config directory (default: $"+config.EnvConfigDir+" or ~/.ogview)")
	rootCmd.PersistentFlags().StringVarP(&networkFlag, "network", "n", "", "network name or chain id (mainnet, sepolia)")
	rootCmd.PersistentFlags().StringVar(&rpcFlag, "rpc", "", "JSON-RPC endpoint for this invocation")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")

	rootCmd.AddCommand(
		deploymentsCmd,
		projectsCmd,
		invocationsCmd,
		statusCmd,
		tokenCmd,
		serveCmd,
		viewCmd,
		configCmd,
		rpcCmd,
	)
}
