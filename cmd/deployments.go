package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Mohsinsiddi/ogview/internal/config"
	"github.com/Mohsinsiddi/ogview/internal/deployments"
	"github.com/Mohsinsiddi/ogview/internal/ui"
	"github.com/spf13/cobra"
)

var (
	deploymentsDiscover bool
	deploymentsJSON     bool
)

var deploymentsCmd = &cobra.Command{
	Use:   "deployments",
	Short: "List the core contracts known for the network",
	Long: `List the built-in core contracts for the network. With --discover the
dependency registry is asked for further supported core contracts, which
are appended after the built-in ones.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		net, err := resolveNetwork()
		if err != nil {
			return err
		}
		reg := deployments.ForChain(net.ChainID)

		if deploymentsDiscover {
			ctx, cancel := context.WithTimeout(cmd.Context(), config.ReadTimeout)
			defer cancel()
			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			s.discover(ctx)
			reg = s.registry
		}

		if deploymentsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(reg.All())
		}

		if reg.Len() == 0 {
			fmt.Println(ui.Warn(fmt.Sprintf("No core contracts known for %s", net.DisplayName)))
			return nil
		}

		t := ui.NewTable(
			ui.Column{Title: "#", Right: true},
			ui.Column{Title: "Name"},
			ui.Column{Title: "Address"},
			ui.Column{Title: "ABI"},
			ui.Column{Title: "Start"},
		)
		for i, d := range reg.All() {
			start := "on chain"
			if d.StartingProjectID != nil {
				start = fmt.Sprintf("%d", *d.StartingProjectID)
			}
			t.AddRow(fmt.Sprintf("%d", i+1), d.DisplayName(), d.Address.Hex(), d.VersionString(), start)
		}
		fmt.Printf("%s\n\n", ui.StyleTitle.Render("Core contracts on "+net.DisplayName))
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d contracts; the first one is the default", reg.Len())))
		return nil
	},
}

func init() {
	deploymentsCmd.Flags().BoolVar(&deploymentsDiscover, "discover", false, "include core contracts reported by the dependency registry")
	deploymentsCmd.Flags().BoolVar(&deploymentsJSON, "json", false, "print JSON")
}
