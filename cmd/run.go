package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ovs-container-lab/vport-intents/pkg/config"
	"github.com/ovs-container-lab/vport-intents/pkg/controller"
	"github.com/ovs-container-lab/vport-intents/pkg/intent"
	"github.com/ovs-container-lab/vport-intents/pkg/ovs"
	"github.com/ovs-container-lab/vport-intents/pkg/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Apply the topology and keep its intents installed until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return run(cfg)
	},
}

// backend is an intent service that holds resources
type backend interface {
	intent.Service
	Close() error
}

type restBackend struct {
	*intent.RESTClient
}

func (restBackend) Close() error { return nil }

func newBackend(ctx context.Context, cfg *config.Config) (backend, error) {
	switch cfg.IntentBackend {
	case config.BackendRedis:
		svc := intent.NewRedisService(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := svc.Ping(ctx); err != nil {
			svc.Close()
			return nil, err
		}
		return svc, nil
	default:
		return restBackend{intent.NewRESTClient(cfg.IntentURL, cfg.IntentTimeout)}, nil
	}
}

func run(cfg *config.Config) error {
	logrus.Infof("Starting %s version %s", programName, programVersion)

	if cfg.Topology == "" {
		return fmt.Errorf("%s is required", config.KeyTopology)
	}
	topo, err := config.LoadTopology(cfg.Topology)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := newBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to intent backend: %w", err)
	}
	defer be.Close()

	registry := prometheus.NewRegistry()
	svc := intent.Instrument(be, intent.NewMetrics(registry))
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, registry)
		defer srv.Close()
	}

	journal, err := store.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	// Intents left over by a previous run are withdrawn before new ones are issued
	if n, err := journal.Recover(ctx, be); err != nil {
		logrus.WithError(err).Warnf("Recovered %d intents, some could not be withdrawn", n)
	} else if n > 0 {
		logrus.Infof("Withdrew %d intents left over by a previous run", n)
	}

	ovsClient, err := ovs.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create OVS client: %w", err)
	}
	if err := ovsClient.Ping(); err != nil {
		return fmt.Errorf("OVS is not accessible: %w", err)
	}
	if ok, err := ovsClient.HasBridge(cfg.Bridge); err != nil {
		logrus.WithError(err).Warn("Failed to list bridges")
	} else if !ok {
		logrus.Warnf("Bridge %s does not exist, it will be created on demand", cfg.Bridge)
	}

	ctrl := controller.New(svc, journal, ovsClient, cfg.Bridge)
	if err := ctrl.Apply(ctx, topo); err != nil {
		logrus.WithError(err).Error("Failed to apply topology, tearing down")
		if terr := ctrl.Teardown(context.Background()); terr != nil {
			logrus.WithError(terr).Error("Teardown failed")
		}
		return err
	}
	logrus.Infof("Topology %s applied", cfg.Topology)

	<-ctx.Done()
	logrus.Info("Shutting down")

	teardownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return ctrl.Teardown(teardownCtx)
}

func serveMetrics(addr string, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		logrus.Infof("Serving metrics on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("Metrics server failed")
		}
	}()
	return srv
}
