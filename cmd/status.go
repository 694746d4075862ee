package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/ogview/internal/config"
	"github.com/Mohsinsiddi/ogview/internal/ui"
	"github.com/spf13/cobra"
)

var statusScript bool

var statusCmd = &cobra.Command{
	Use:   "status <contract> <project>",
	Short: "Show whether a project renders entirely from chain state",
	Long: `Ask the generator whether a project's dependencies are stored on chain.
With --script the project script assembled by the generator is printed
instead.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID("project", args[1])
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), config.ReadTimeout)
		defer cancel()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		d, err := s.checkedProject(ctx, args[0], projectID)
		if err != nil {
			return err
		}

		if statusScript {
			script, err := s.reader.ProjectScript(ctx, d.Address, projectID)
			if err != nil {
				return fmt.Errorf("reading project script: %w", err)
			}
			fmt.Println(script)
			return nil
		}

		st, err := s.reader.OnChainStatus(ctx, d.Address, projectID)
		if err != nil {
			return fmt.Errorf("reading on-chain status: %w", err)
		}
		fmt.Println(ui.KeyValueBlock(fmt.Sprintf("%s · project %d", d.DisplayName(), projectID), [][2]string{
			{"Dependency on chain", yesNo(st.DependencyFullyOnChain)},
			{"Storage-network assets", yesNo(st.InjectsDecentralizedStorageNetworkAssets)},
			{"Off-chain dependencies", yesNo(st.HasOffChainFlexDepRegDependencies)},
		}))
		if st.FullyOnChain() {
			fmt.Println(ui.Success("Renders entirely from chain state"))
		} else {
			fmt.Println(ui.Warn("Rendering needs data from outside the chain"))
		}
		return nil
	},
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	statusCmd.Flags().BoolVar(&statusScript, "script", false, "print the project script instead")
}
