package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Mohsinsiddi/ogview/internal/cascade"
	"github.com/Mohsinsiddi/ogview/internal/config"
	"github.com/Mohsinsiddi/ogview/internal/render"
	"github.com/Mohsinsiddi/ogview/internal/ui"
	"github.com/spf13/cobra"
)

var (
	tokenDataURI bool
	tokenOut     string
)

var tokenCmd = &cobra.Command{
	Use:   "token <contract> <project> <token>",
	Short: "Render a token's HTML from the on-chain generator",
	Long: `Resolve contract, project and token invocation, then print the markup
the generator assembles for the token. The selection is validated against
the project range and the project's invocation count first.

Examples:
  ogview token 0x99a9B7c1116f9ceEB1652de04d5969CcE509B069 400 7
  ogview token 0x99a9B7c1116f9ceEB1652de04d5969CcE509B069 400 7 --out token.html
  ogview token 0x99a9B7c1116f9ceEB1652de04d5969CcE509B069 400 7 --data-uri`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := parseID("project", args[1])
		if err != nil {
			return err
		}
		invocation, err := parseID("token", args[2])
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), config.ReadTimeout)
		defer cancel()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		if _, err := s.deployment(ctx, args[0]); err != nil {
			return err
		}

		ctl := cascade.New(s.reader, s.registry, cascade.WithLogger(logger))
		defer ctl.Close()
		if err := ctl.SetContract(ctx, args[0]); err != nil {
			return err
		}
		if err := ctl.SetProject(ctx, projectID); err != nil {
			return err
		}
		if err := ctl.SetToken(invocation); err != nil {
			return err
		}

		mode, err := renderMode(tokenDataURI)
		if err != nil {
			return err
		}
		f := render.NewFetcher(s.reader, render.WithMode(mode), render.WithFetcherLogger(logger))

		spin := ui.NewSpinner("Fetching token markup…")
		spin.Start()
		html, err := f.Fetch(ctx, ctl.State().Selection)
		spin.Stop()
		if err != nil {
			if errors.Is(err, render.ErrIncompleteSelection) {
				return err
			}
			return errors.New(render.GenericError)
		}

		if tokenOut == "" {
			fmt.Println(html)
			return nil
		}
		if err := os.WriteFile(tokenOut, []byte(html), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", tokenOut, err)
		}
		id := f.Status().TokenID
		fmt.Fprintln(os.Stderr, ui.Success(fmt.Sprintf("Token %s written to %s (%d bytes)", id, tokenOut, len(html))))
		return nil
	},
}

func init() {
	tokenCmd.Flags().BoolVar(&tokenDataURI, "data-uri", false, "read the base64 data URI accessor and decode it")
	tokenCmd.Flags().StringVarP(&tokenOut, "out", "o", "", "write the markup to a file instead of stdout")
}
