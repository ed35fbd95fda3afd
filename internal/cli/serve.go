package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"torrents/internal/auth"
	"torrents/internal/handlers"
)

const (
	shutdownTimeout = 10 * time.Second
	purgeInterval   = time.Hour
)

var (
	// Serve flags
	addr        string
	skipMigrate bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Run the HTTP server. The schema is migrated on startup unless
--skip-migrate is given. SIGINT and SIGTERM shut the server down gracefully.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides the config")
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not migrate the schema on startup")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer s.Close()

	if !skipMigrate {
		if err := s.Migrate(ctx); err != nil {
			return err
		}
	}

	sessions := auth.NewManager(s, s, cfg.Auth.CookieName, cfg.Auth.SessionTTL.Duration, cfg.Auth.SecureCookie)
	h, err := handlers.New(s, sessions, cfg, log)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", srv.Addr).WithField("driver", cfg.Database.Driver).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		purgeLoop(ctx, s, purgeInterval, log)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
