package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mohsinsiddi/ogview/internal/cascade"
	"github.com/Mohsinsiddi/ogview/internal/render"
	"github.com/Mohsinsiddi/ogview/internal/ui"
	"github.com/spf13/cobra"
)

var (
	serveAddr    string
	serveDataURI bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the token viewer page on a local address",
	Long: `Start the render server. The page at / takes contractAddress, projectId
and tokenInvocation query parameters, so a selection can be shared as a
link. Raw markup is served at /token/{contract}/{project}/{token} and a
JSON API lives under /api. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		mode, err := renderMode(serveDataURI)
		if err != nil {
			return err
		}
		addr := serveAddr
		if addr == "" {
			addr = cfg.ListenAddr
		}
		if addr == "" {
			addr = render.DefaultAddr
		}

		srv := render.NewServer(s.reader, s.registry,
			render.WithNetwork(s.network.Name),
			render.WithServerMode(mode),
			render.WithServerLogger(logger),
		)
		srv.Discover(ctx)

		fmt.Println(ui.Success(fmt.Sprintf("Serving %s tokens on %s", ui.ChainName(s.network.DisplayName), ui.Addr("http://"+addr))))
		if d, ok := srv.Registry().Default(); ok {
			fmt.Println(ui.Hint("Open " + render.PageURL("http://"+addr, cascade.Selection{Contract: d.Address.Hex()})))
		}
		return srv.ListenAndServe(ctx, addr)
	},
}

// renderMode applies --data-uri over the configured render mode.
func renderMode(dataURI bool) (render.Mode, error) {
	if dataURI {
		return render.ModeDataURI, nil
	}
	return render.ParseMode(cfg.RenderMode)
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, "+render.DefaultAddr+")")
	serveCmd.Flags().BoolVar(&serveDataURI, "data-uri", false, "read markup through the base64 data URI accessor")
}
