package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"time"

	"github.com/spf13/cobra"

	"raggy/internal/http"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 10 * time.Second

func serveCmd(newApp AppFactory) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: withApp(newApp, func(cmd *cobra.Command, _ []string, app *App) error {
			if port == "" {
				port = app.Config.Port
			}
			router := http.NewRouter(&http.Deps{
				Service:           app.Service,
				Mirror:            app.Mirror,
				MirrorCollection:  app.Config.QdrantCollection,
				Metrics:           app.Metrics,
				CORSAllowedOrigin: app.Config.CORSAllowedOrigin,
			})
			return serve(cmd.Context(), ":"+port, router)
		}),
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (default $PORT)")
	return cmd
}

// serve runs the server until ctx is cancelled, then shuts it down
// gracefully.
func serve(ctx context.Context, addr string, handler nethttp.Handler) error {
	srv := &nethttp.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting API server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, nethttp.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}
	return nil
}
