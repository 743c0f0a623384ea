package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/notifyrelay/gateway/config"
	"github.com/notifyrelay/gateway/health"
	"github.com/notifyrelay/gateway/internal/logger"
	"github.com/notifyrelay/gateway/internal/metrics"
	"github.com/notifyrelay/gateway/pkg/carrier"
	"github.com/notifyrelay/gateway/pkg/carrier/wsrelay"
	"github.com/notifyrelay/gateway/pkg/dispatcher"
	"github.com/notifyrelay/gateway/pkg/jwtauth"
	"github.com/notifyrelay/gateway/pkg/notify"
	"github.com/notifyrelay/gateway/pkg/store"
	"github.com/notifyrelay/gateway/pkg/store/memory"
	"github.com/notifyrelay/gateway/pkg/store/postgres"
)

var runConfigDir string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the gateway process",
	RunE:  runGateway,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runConfigDir, "config-dir", "config", "directory holding <environment>.yaml")
}

func runGateway(cmd *cobra.Command, args []string) error {
	config.LoadDotEnv(".env")

	cfg, err := config.Load(config.LoaderOptions{ConfigDir: runConfigDir})
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log := logger.GetDefaultLogger()
	if lvl, lerr := logger.ParseLevel(cfg.Logging.Level); lerr == nil {
		log.SetLevel(lvl)
	}
	log.SetPrettyPrint(cfg.Logging.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	relay := wsrelay.New(cfg.Carrier.URL)
	relay.SetReconnectDelay(cfg.Carrier.ReconnectDelay)
	if err := relay.Connect(ctx); err != nil {
		return fmt.Errorf("connect to relay: %w", err)
	}
	defer relay.Close()

	keyServer := jwtauth.NewKeyServerClient(cfg.KeyServer.RequestTimeout)

	disp := dispatcher.New(nil, relay, st, dispatcher.DefaultConfig())
	disp.SetLogger(log)

	handler := notify.NewHandler(st, relay, keyServer, disp.Watch, cfg.Carrier.URL)
	disp.SetHandler(handler)

	hc := newHealthChecker(cfg, st, relay)

	var httpServers []*http.Server
	if cfg.Metrics.Enabled {
		httpServers = append(httpServers, startMetricsServer(cfg, log))
	}
	if cfg.Health.Enabled {
		httpServers = append(httpServers, startHealthServer(cfg, log, hc))
	}

	log.Info("notify-gatewayd starting", logger.String("environment", cfg.Environment), logger.String("carrier_url", cfg.Carrier.URL))

	runErr := make(chan error, 1)
	go func() { runErr <- disp.Run(ctx) }()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-runErr:
		if err != nil {
			log.Error("dispatcher exited", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range httpServers {
		_ = srv.Shutdown(shutdownCtx)
	}
	_ = disp.Close()
	log.Info("notify-gatewayd stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	if cfg.Postgres == nil {
		s := memory.NewStore()
		return s, func() { _ = s.Close() }, nil
	}

	s, err := postgres.NewStore(ctx, postgres.Config{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		Database: cfg.Postgres.Database,
		SSLMode:  cfg.Postgres.SSLMode,
	})
	if err != nil {
		return nil, nil, err
	}
	return s, func() { _ = s.Close() }, nil
}

func newHealthChecker(cfg *config.Config, st store.Store, c carrier.Client) *health.HealthChecker {
	hc := health.NewHealthChecker(0)
	hc.SetCacheTTL(cfg.Health.TTL)
	hc.RegisterCheck("store", health.StoreHealthCheck(st.Ping))
	hc.RegisterCheck("carrier", health.CarrierHealthCheck(func() error {
		return c.Publish(context.Background(), "healthcheck", nil, 0, time.Second, false)
	}))
	return hc
}

func startMetricsServer(cfg *config.Config, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, metrics.Handler())
	srv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("metrics server listening", logger.String("addr", cfg.Metrics.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", logger.Error(err))
		}
	}()
	return srv
}

func startHealthServer(cfg *config.Config, log logger.Logger, hc *health.HealthChecker) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Health.Path, func(w http.ResponseWriter, r *http.Request) {
		sys := hc.GetSystemHealth(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if sys.Status != health.StatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(sys)
	})
	srv := &http.Server{
		Addr:              cfg.Health.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("health server listening", logger.String("addr", cfg.Health.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("health server failed", logger.Error(err))
		}
	}()
	return srv
}
