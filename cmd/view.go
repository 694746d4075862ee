package cmd

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Mohsinsiddi/ogview/internal/cascade"
	"github.com/Mohsinsiddi/ogview/internal/config"
	"github.com/Mohsinsiddi/ogview/internal/logging"
	"github.com/Mohsinsiddi/ogview/internal/render"
	"github.com/Mohsinsiddi/ogview/internal/ui"
	"github.com/spf13/cobra"
)

var (
	viewPick     bool
	viewNoServer bool
)

var viewCmd = &cobra.Command{
	Use:   "view [contract [project [token]]]",
	Short: "Browse contracts, projects and tokens interactively",
	Long: `Open the terminal viewer. Arguments preselect contract, project and
token; without them the last selection for the network is restored. A
render server is started on a free local port so "o" can open the current
token in the browser.

Keys: ↑/↓ choose a field, ←/→ step, type digits and Enter to jump,
r reloads, o opens the browser page, q quits. Logs go to view.log in the
config directory.`,
	Args: cobra.MaximumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// Log lines would tear the full-screen view, so they go to a file.
		logPath := filepath.Join(cfg.Dir(), "view.log")
		if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600); err == nil {
			defer f.Close()
			logger = logging.NewWithWriter(f, verbose)
		}

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		s.discover(ctx)

		initial, err := viewSelection(args, s.network.Name)
		if err != nil {
			return err
		}
		if viewPick {
			picked, err := pickContract(s)
			if err != nil || picked == "" {
				return err
			}
			initial = cascade.Selection{Contract: picked}
		}

		mode, err := renderMode(false)
		if err != nil {
			return err
		}
		viewerCfg := ui.ViewerConfig{Network: s.network.DisplayName, Version: "v" + Version, Initial: initial}
		if !viewNoServer {
			base, err := startViewerServer(ctx, s, mode)
			if err != nil {
				logger.Warn("render server unavailable", "err", err)
			} else {
				viewerCfg.PageBase = base
			}
		}

		ctl := cascade.New(s.reader, s.registry, cascade.WithLogger(logger))
		defer ctl.Close()
		fetcher := render.NewFetcher(s.reader, render.WithMode(mode), render.WithFetcherLogger(logger))

		if err := ui.RunViewer(ctx, ctl, fetcher, viewerCfg); err != nil {
			return err
		}

		last := ctl.State()
		if last.Contract == "" {
			return nil
		}
		cfg.SaveSelection(s.network.Name, config.Selection{
			Contract:  last.Contract,
			ProjectID: last.ProjectID,
			Token:     last.Token,
		})
		return cfg.Save()
	},
}

// viewSelection builds the initial selection from args or the remembered one.
func viewSelection(args []string, network string) (cascade.Selection, error) {
	if len(args) == 0 {
		prev, ok := cfg.Selection(network)
		if !ok {
			return cascade.Selection{}, nil
		}
		return cascade.Selection{Contract: prev.Contract, ProjectID: prev.ProjectID, Token: prev.Token}, nil
	}
	sel := cascade.Selection{Contract: args[0]}
	if len(args) > 1 {
		p, err := parseID("project", args[1])
		if err != nil {
			return sel, err
		}
		sel.ProjectID = &p
	}
	if len(args) > 2 {
		t, err := parseID("token", args[2])
		if err != nil {
			return sel, err
		}
		sel.Token = &t
	}
	return sel, nil
}

func pickContract(s *session) (string, error) {
	var items []ui.PickerItem
	for _, d := range s.registry.All() {
		items = append(items, ui.PickerItem{
			Label:    d.DisplayName(),
			SubLabel: d.Address.Hex() + " · " + d.VersionString(),
			Value:    d.Address.Hex(),
		})
	}
	return ui.PickItem("Core contract on "+s.network.DisplayName, items)
}

// startViewerServer runs a render server on a free loopback port for the
// lifetime of ctx and returns its base URL.
func startViewerServer(ctx context.Context, s *session, mode render.Mode) (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("listening: %w", err)
	}
	srv := render.NewServer(s.reader, s.registry,
		render.WithNetwork(s.network.Name),
		render.WithServerMode(mode),
		render.WithServerLogger(logger),
	)
	go func() {
		if err := srv.Serve(ctx, ln); err != nil {
			logger.Warn("render server stopped", "err", err)
		}
	}()
	return "http://" + ln.Addr().String(), nil
}

func init() {
	viewCmd.Flags().BoolVar(&viewPick, "pick", false, "choose the contract from a filterable list first")
	viewCmd.Flags().BoolVar(&viewNoServer, "no-server", false, "do not start the local render server")
}
