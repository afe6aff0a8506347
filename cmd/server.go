package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/curatordash/internal/audit"
	"github.com/ziadkadry99/curatordash/internal/dashboard"
	"github.com/ziadkadry99/curatordash/internal/prefs"
	"github.com/ziadkadry99/curatordash/internal/server"
)

var serverPort int

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the dashboard gateway",
	Long:  `Starts the curatordash HTTP server: the dashboard page, one websocket session per browser tab, the theme form and the backup download proxy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = serverPort
		}
		csrfKey, err := cfg.CSRFKeyBytes()
		if err != nil {
			return err
		}

		client, err := newClient()
		if err != nil {
			return err
		}

		database, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		srv := server.New(server.Config{
			Port:     cfg.Port,
			AllowAll: cfg.AllowAllOrigins,
		}, logger)

		dash := dashboard.New(client, prefs.NewStore(database), audit.NewStore(database), dashboard.Config{
			PollInterval:    cfg.PollInterval,
			ToastTTL:        cfg.ToastTTL,
			CSRFKey:         csrfKey,
			SecureCookies:   cfg.SecureCookies,
			AllowAllOrigins: cfg.AllowAllOrigins,
		}, logger)
		dash.RegisterRoutes(srv.Router())

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("starting curatordash",
			zap.String("version", Version),
			zap.Int("port", cfg.Port),
			zap.String("backend", cfg.BackendURL),
			zap.String("database", database.Path()),
			zap.Duration("poll_interval", cfg.PollInterval),
		)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			logger.Info("shutting down server")
			dash.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serverCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "port to listen on (overrides config)")
	rootCmd.AddCommand(serverCmd)
}
