package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/Mohsinsiddi/ogview/internal/chain"
	"github.com/Mohsinsiddi/ogview/internal/config"
	"github.com/Mohsinsiddi/ogview/internal/render"
	"github.com/Mohsinsiddi/ogview/internal/secrets"
	"github.com/Mohsinsiddi/ogview/internal/ui"
	"github.com/spf13/cobra"
)

var (
	setRPCSecure     bool
	setGenerator     string
	setDependencyReg string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("%s\n\n", ui.StyleTitle.Render("Current Configuration"))
		fmt.Println(string(data))
		fmt.Println()

		net, err := resolveNetwork()
		if err != nil {
			fmt.Println(ui.Warn(err.Error()))
		} else {
			rpcLine := "auto (benchmark built-in endpoints)"
			switch override := cfg.RPCOverride(net.Name); {
			case rpcFlag != "":
				rpcLine = rpcFlag + " (flag)"
			case secrets.IsRef(override):
				rpcLine = "stored in keychain as " + override
			case override != "":
				rpcLine = override + " (config)"
			case env.RPCURL != "":
				rpcLine = env.RPCURL + " (" + config.EnvRPCURL + ")"
			}
			fmt.Println(ui.KeyValueBlock("Effective settings", [][2]string{
				{"Network", net.Name},
				{"RPC", rpcLine},
				{"Generator", net.Generator.Hex()},
				{"Dependency registry", net.DependencyRegistry.Hex()},
			}))
		}
		fmt.Println(ui.Meta("Config directory: " + cfg.Dir()))
		return nil
	},
}

var configSetNetworkCmd = &cobra.Command{
	Use:   "set-network [name]",
	Short: "Persist the network to use",
	Long: `Persist the network used when --network is not given. Without an
argument a filterable list of supported networks is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := chain.NewRegistry()
		var name string
		if len(args) == 1 {
			name = args[0]
		} else {
			var items []ui.PickerItem
			for _, n := range reg.All() {
				items = append(items, ui.PickerItem{Label: n.DisplayName, SubLabel: fmt.Sprintf("%s · chain %d", n.Name, n.ChainID), Value: n.Name})
			}
			picked, err := ui.PickItem("Network", items)
			if err != nil || picked == "" {
				return err
			}
			name = picked
		}

		n, err := reg.Resolve(name)
		if err != nil {
			return fmt.Errorf("%w: %q", err, name)
		}
		cfg.Network = n.Name
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Network set to %s", ui.ChainName(n.Name))))
		return nil
	},
}

var configSetRPCCmd = &cobra.Command{
	Use:   "set-rpc <url>",
	Short: "Persist the RPC endpoint for the network",
	Long: `Persist the JSON-RPC endpoint for the effective network (see --network).
With --secure the URL is stored in the OS keychain and config.json only
keeps a reference, which suits URLs that embed an API key.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		store := secretStore(net.Name)
		if setRPCSecure {
			store = secrets.OpenKeychain(cfg.Dir())
		}
		if err := setRPCOverride(net.Name, args[0], store, setRPCSecure); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		where := "config"
		if setRPCSecure {
			where = "keychain"
		}
		fmt.Println(ui.Success(fmt.Sprintf("RPC for %s saved to %s", ui.ChainName(net.Name), where)))
		return nil
	},
}

// setRPCOverride replaces the override; store only receives the new URL
// when secure is set, but always cleans up a previous keychain entry.
func setRPCOverride(network, url string, store secrets.Store, secure bool) error {
	if !secure {
		if _, err := cfg.ResetRPCOverride(network, store); err != nil {
			return err
		}
		store = nil
	}
	return cfg.SetRPCOverride(network, url, store)
}

var configResetRPCCmd = &cobra.Command{
	Use:   "reset-rpc",
	Short: "Forget the persisted RPC endpoint for the network",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		existed, err := cfg.ResetRPCOverride(net.Name, secretStore(net.Name))
		if err != nil {
			return err
		}
		if !existed {
			fmt.Println(ui.Info(fmt.Sprintf("No RPC override set for %s", net.Name)))
			return nil
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("RPC for %s reset to the default", ui.ChainName(net.Name))))
		return nil
	},
}

var configSetContractsCmd = &cobra.Command{
	Use:   "set-contracts",
	Short: "Override the generator and dependency registry for the network",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if setGenerator == "" && setDependencyReg == "" {
			return fmt.Errorf("nothing to set: pass --generator and/or --dependency-registry")
		}
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		if err := cfg.SetContracts(net.Name, setGenerator, setDependencyReg); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Contracts for %s updated", ui.ChainName(net.Name))))
		return nil
	},
}

var configSetRenderModeCmd = &cobra.Command{
	Use:   "set-render-mode <html|data-uri>",
	Short: "Choose which generator accessor renders tokens",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := render.ParseMode(args[0])
		if err != nil {
			return err
		}
		cfg.RenderMode = mode.String()
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Render mode set to %q", mode.String())))
		return nil
	},
}

func init() {
	configSetRPCCmd.Flags().BoolVar(&setRPCSecure, "secure", false, "store the URL in the OS keychain")
	configSetContractsCmd.Flags().StringVar(&setGenerator, "generator", "", "generator contract address")
	configSetContractsCmd.Flags().StringVar(&setDependencyReg, "dependency-registry", "", "dependency registry contract address")
	configCmd.AddCommand(
		configListCmd,
		configSetNetworkCmd,
		configSetRPCCmd,
		configResetRPCCmd,
		configSetContractsCmd,
		configSetRenderModeCmd,
	)
}
