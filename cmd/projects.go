package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Mohsinsiddi/ogview/internal/cascade"
	"github.com/Mohsinsiddi/ogview/internal/config"
	"github.com/Mohsinsiddi/ogview/internal/deployments"
	"github.com/Mohsinsiddi/ogview/internal/ui"
	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:   "projects <contract>",
	Short: "Show the valid project id range of a core contract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), config.ReadTimeout)
		defer cancel()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		d, err := s.deployment(ctx, args[0])
		if err != nil {
			return err
		}
		rng, err := s.reader.ProjectRange(ctx, d)
		if err != nil {
			return fmt.Errorf("reading project range: %w", err)
		}

		fmt.Println(ui.KeyValueBlock(d.DisplayName(), [][2]string{
			{"Contract", d.Address.Hex()},
			{"ABI", d.VersionString()},
			{"Projects", rng.String()},
			{"Count", strconv.FormatUint(rng.Max-rng.Min+1, 10)},
		}))
		return nil
	},
}

var invocationsCmd = &cobra.Command{
	Use:   "invocations <contract> <project>",
	Short: "Show how many tokens a project has minted",
	Args:  cobra.ExactArgs(2),
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
		n, err := s.reader.ProjectInvocations(ctx, d, projectID)
		if err != nil {
			return fmt.Errorf("reading invocations: %w", err)
		}

		tokens := "none minted"
		if n > 0 {
			tokens = fmt.Sprintf("[0, %d]", n-1)
		}
		fmt.Println(ui.KeyValueBlock(fmt.Sprintf("%s · project %d", d.DisplayName(), projectID), [][2]string{
			{"Invocations", strconv.FormatUint(n, 10)},
			{"Tokens", tokens},
		}))
		return nil
	},
}

// checkedProject resolves the contract and verifies projectID is within
// its range.
func (s *session) checkedProject(ctx context.Context, contract string, projectID uint64) (deployments.Deployment, error) {
	d, err := s.deployment(ctx, contract)
	if err != nil {
		return d, err
	}
	rng, err := s.reader.ProjectRange(ctx, d)
	if err != nil {
		return d, fmt.Errorf("reading project range: %w", err)
	}
	if !rng.Contains(projectID) {
		return d, fmt.Errorf("%w: project %d not in %s", cascade.ErrOutOfRange, projectID, rng)
	}
	return d, nil
}

func parseID(what, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s id %q: must be a non-negative integer", what, s)
	}
	return v, nil
}
