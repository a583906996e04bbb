package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/homewarden/homewarden/internal/api"
	"github.com/homewarden/homewarden/internal/app"
)

var serveTrustProxy bool

var serveCmd = &cobra.Command{
	Use:   "serve [addr]",
	Short: "Run the HTTP API server",
	Long: `Serve the advisory workflows over a JSON REST API. The listen address
comes from the argument, falling back to the configured listen_addr.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveTrustProxy, "trust-proxy", false, "trust X-Real-IP/X-Forwarded-For headers")
	rootCmd.AddCommand(serveCmd)
}

// parseRateBurst reads HOMEWARDEN_RATE_BURST from the environment.
// Returns 0 (use default) if unset or invalid.
func parseRateBurst() int {
	v := os.Getenv("HOMEWARDEN_RATE_BURST")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel, a, err := setupApp()
	if err != nil {
		return err
	}
	defer cancel()
	defer closeApp(a)

	addr := a.Config.ListenAddr
	if len(args) > 0 {
		addr = args[0]
	}

	srv, err := api.NewServer(api.ServerConfig{
		Logger:         a.Logger,
		Asker:          a.Asker,
		Planner:        a.Planner,
		Troubleshooter: a.Troubleshooter,
		Parts:          a.Parts,
		LoadProfile:    a.LoadProfile,
		Pool:           a.DBPool,
		TrustProxy:     serveTrustProxy,
		RateBurst:      parseRateBurst(),
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	return srv.Run(ctx, addr)
}

// closeApp releases application resources, logging instead of failing.
func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		a.Logger.Warn("shutdown error", "error", err)
	}
}
