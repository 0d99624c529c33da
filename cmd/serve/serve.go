// Package serve provides the "splittable serve" command for the HTTP API.
package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yangming0322/splittable/internal/config"
	"github.com/yangming0322/splittable/internal/job"
	"github.com/yangming0322/splittable/internal/web"
)

// NewCommand returns the serve subcommand.
func NewCommand() *cobra.Command {
	var (
		addr        string
		maxUploadMB int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the splitting HTTP API",
		Long: `Start an HTTP server exposing:

  POST /api/preview   multipart 'file'; returns a token, the columns and the first rows
  POST /api/split     multipart 'file' or 'token', plus 'boundary' and 'group';
                      returns the ZIP archive
  GET  /healthz

Example:
  splittable serve --addr 127.0.0.1:8080
  curl -F file=@staff.xlsx -F boundary=Salary -F group=Dept -OJ localhost:8080/api/split`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("addr") {
				addr = cfg.Server.Addr
			}
			if !cmd.Flags().Changed("max-upload-mb") {
				maxUploadMB = cfg.Server.MaxUploadMB
			}

			srv := web.NewServer(web.Options{
				Template:       job.FromConfig(cfg),
				MaxUploadBytes: int64(maxUploadMB) << 20,
			})

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(addr) }()

			fmt.Fprintf(os.Stderr, "Listening on %s (Ctrl+C to stop)\n", addr)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server failed on %s: %w", addr, err)
			case <-ctx.Done():
			}

			slog.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address (default from config)")
	cmd.Flags().IntVar(&maxUploadMB, "max-upload-mb", 64, "Largest accepted upload in MiB (default from config)")

	return cmd
}
