package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/ogview/internal/config"
	"github.com/Mohsinsiddi/ogview/internal/rpc"
	"github.com/Mohsinsiddi/ogview/internal/ui"
	"github.com/spf13/cobra"
)

var rpcCmd = &cobra.Command{
	Use:   "rpc",
	Short: "Manage RPC endpoints for the network",
}

var rpcListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the RPC endpoints known for the network",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		fmt.Printf("%s\n", ui.StyleTitle.Render(fmt.Sprintf("RPCs for %s", net.DisplayName)))

		fmt.Println(ui.StyleHeader.Render("Built-in RPCs:"))
		for _, r := range net.RPCs {
			fmt.Printf("  %s\n", r)
		}
		if custom := cfg.GetRPCs(net.Name); len(custom) > 0 {
			fmt.Println(ui.StyleHeader.Render("Custom RPCs:"))
			for _, r := range custom {
				fmt.Printf("  %s\n", r)
			}
		}
		if o := cfg.RPCOverride(net.Name); o != "" {
			fmt.Println(ui.StyleHeader.Render("Override:"))
			fmt.Printf("  %s\n", o)
		}
		if env.RPCURL != "" {
			fmt.Println(ui.StyleHeader.Render("Environment:"))
			fmt.Printf("  %s %s\n", env.RPCURL, ui.Meta("("+config.EnvRPCURL+")"))
		}
		fmt.Println(ui.Meta("Selection algorithm: " + cfg.RPCAlgorithm))
		return nil
	},
}

var rpcAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Add a custom RPC URL to benchmark for the network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		if err := cfg.AddRPC(net.Name, args[0]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Added RPC for %s: %s", ui.ChainName(net.Name), args[0])))
		return nil
	},
}

var rpcRemoveCmd = &cobra.Command{
	Use:   "remove <url>",
	Short: "Remove a custom RPC URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		if err := cfg.RemoveRPC(net.Name, args[0]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Removed RPC for %s: %s", net.Name, args[0])))
		return nil
	},
}

var rpcBenchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Probe every RPC for the network and rank them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		urls := cfg.Candidates(net)
		if rpcFlag != "" {
			urls = append([]string{rpcFlag}, urls...)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), config.RPCSelectTimeout)
		defer cancel()

		spin := ui.NewSpinner(fmt.Sprintf("Benchmarking %d %s RPCs…", len(urls), net.DisplayName))
		spin.Start()
		results := rpc.Ranked(rpc.Benchmark(ctx, urls, net.ChainID))
		spin.Stop()

		t := ui.NewTable(
			ui.Column{Title: "RPC URL", Width: 48},
			ui.Column{Title: "Latency", Right: true},
			ui.Column{Title: "Block #", Right: true},
			ui.Column{Title: "Status"},
		)
		for _, r := range results {
			if !r.Healthy() {
				t.AddRow(r.URL, "—", "—", "✗ "+trimStatus(r.Err))
				continue
			}
			t.AddRow(r.URL, fmt.Sprintf("%dms", r.Latency.Milliseconds()), fmt.Sprintf("%d", r.BlockNumber), "✓ healthy")
		}
		fmt.Println(t.Render())

		algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
		if err != nil {
			return err
		}
		best, err := rpc.NewPicker(algo).Pick(results)
		if err != nil {
			fmt.Println(ui.Err(err.Error()))
			return nil
		}
		fmt.Println(ui.Success(fmt.Sprintf("%s picks %s", algo, best.URL)))
		return nil
	},
}

func trimStatus(err error) string {
	s := err.Error()
	if len(s) > 40 {
		return s[:40] + "…"
	}
	return s
}

var rpcAlgorithmCmd = &cobra.Command{
	Use:   "algorithm",
	Short: "Show or set the RPC selection algorithm",
}

var rpcAlgorithmSetCmd = &cobra.Command{
	Use:   "set <fastest|round-robin|failover>",
	Short: "Set the RPC selection algorithm",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		algo, err := rpc.ParseAlgorithm(args[0])
		if err != nil {
			return err
		}
		cfg.RPCAlgorithm = string(algo)
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("RPC algorithm set to %q", algo)))
		return nil
	},
}

func init() {
	rpcAlgorithmCmd.AddCommand(rpcAlgorithmSetCmd)
	rpcCmd.AddCommand(rpcListCmd, rpcAddCmd, rpcRemoveCmd, rpcBenchmarkCmd, rpcAlgorithmCmd)
}
