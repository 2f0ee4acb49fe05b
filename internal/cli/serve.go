package cli

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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/hiscore/internal/httpapi"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve commands.
type ServeOptions struct {
	*RootOptions
	Database     string
	SignerListen string
	LedgerListen string
}

// NewServeCommand creates the serve command and its signer, ledger and all
// subcommands.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the signer and/or ledger HTTP services",
		Long: `Run the HTTP services until interrupted.

  serve signer  POST /authorize
  serve ledger  /v1 score, ranking and skin routes
  serve all     both, in one process

Example:
  SIGNER_PRIVATE_KEY=0x... hiscore serve signer --config hiscore.yaml
  hiscore serve ledger --db ./hiscore.db --ledger-listen :9090`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides ledger.db_path)")
	cmd.PersistentFlags().StringVar(&opts.SignerListen, "signer-listen", "", "signer listen address (overrides signer.listen)")
	cmd.PersistentFlags().StringVar(&opts.LedgerListen, "ledger-listen", "", "ledger listen address (overrides ledger.listen)")

	for _, target := range []struct {
		name, short   string
		signer, ledgr bool
	}{
		{"signer", "Run the authorization service", true, false},
		{"ledger", "Run the ledger service", false, true},
		{"all", "Run both services", true, true},
	} {
		cmd.AddCommand(&cobra.Command{
			Use:           target.name,
			Short:         target.short,
			Args:          cobra.NoArgs,
			SilenceUsage:  true,
			SilenceErrors: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(opts, target.signer, target.ledgr, cmd)
			},
		})
	}

	return cmd
}

func runServe(opts *ServeOptions, withSigner, withLedger bool, cmd *cobra.Command) error {
	cfg, err := opts.LoadConfig()
	if err != nil {
		return err
	}
	if opts.SignerListen != "" {
		cfg.Signer.Listen = opts.SignerListen
	}
	if opts.LedgerListen != "" {
		cfg.Ledger.Listen = opts.LedgerListen
	}

	logger := slog.Default()
	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := signal.NotifyContext(commandContext(cmd.Context()), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var sess *session
	if withLedger {
		sess, err = openSession(ctx, cfg, dbPath(opts.Database, cfg), logger)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if sess != nil {
		router := httpapi.NewRouter(logger)
		httpapi.NewLedgerHandler(sess.ledger, sess.ranking, sess.store).RegisterRoutes(router)

		g.Go(func() error { return serveHTTP(gctx, "ledger", cfg.Ledger.Listen, router, logger) })
	}

	if withSigner {
		router := httpapi.NewRouter(logger)
		httpapi.NewSignerHandler(cfg.NewSigner(logger),
			httpapi.WithAllowedOrigins(cfg.Signer.AllowedOrigins),
			httpapi.WithRateLimit(cfg.Signer.RateLimit, cfg.Signer.Burst),
			httpapi.WithSignerLogger(logger),
		).RegisterRoutes(router)

		g.Go(func() error { return serveHTTP(gctx, "signer", cfg.Signer.Listen, router, logger) })
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	err = g.Wait()
	// Servers have drained; now stop the writer.
	if sess != nil {
		sess.Close()
	}
	if err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	logger.Info("servers stopped gracefully")
	return nil
}

// serveHTTP runs one server until ctx is done, then shuts it down.
func serveHTTP(ctx context.Context, name, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "service", name, "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s server: %w", name, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s shutdown: %w", name, err)
	}
	logger.Info("http server stopped", "service", name)
	return nil
}

