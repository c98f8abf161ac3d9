package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/infomapapp/parceldash/internal/annotations"
	"github.com/infomapapp/parceldash/internal/config"
	"github.com/infomapapp/parceldash/internal/dispatcher"
	"github.com/infomapapp/parceldash/internal/featureservice"
	"github.com/infomapapp/parceldash/internal/handlers"
	"github.com/infomapapp/parceldash/internal/influx"
	"github.com/infomapapp/parceldash/internal/kvstore"
	"github.com/infomapapp/parceldash/internal/logging"
	"github.com/infomapapp/parceldash/internal/notify"
	"github.com/infomapapp/parceldash/internal/otel"
	"github.com/infomapapp/parceldash/internal/records"
	"github.com/infomapapp/parceldash/internal/selection"
	"github.com/infomapapp/parceldash/internal/sketch"
	"github.com/infomapapp/parceldash/internal/surface/ws"
	"github.com/infomapapp/parceldash/pkg/core"
	"github.com/infomapapp/parceldash/pkg/streaming"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard service",
	Long: `Serve starts the dashboard backend: the HTTP API, the map
surface WebSocket bridge, and the optional stats reporter.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelCfg := config.GetOTelConfig()
	telemetry, err := otel.New(otel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    logFile,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	kv, err := kvstore.NewStore(config.GetStorageConfig(), dbLogger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer kv.Close()

	annStore := annotations.New(kv, config.GetString("keys.annotations"), logger)
	if err := annStore.Load(); err != nil {
		return fmt.Errorf("failed to load annotations: %w", err)
	}

	fetcher := featureservice.New(config.GetFeatureServiceConfig())
	recStore := records.New(kv, config.GetString("keys.records"), fetcher, logger)
	if err := recStore.Load(ctx); err != nil {
		// The dashboard still works without population data.
		logger.Error("failed to load records", "error", err)
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	bridge := ws.New(d, logger)
	defer bridge.Close()

	session := sketch.NewSession(annStore, selection.New(), bridge, notify.NewSlogNotifier(logger), logger)
	registerSurfaceEvents(d, session)

	mux := http.NewServeMux()
	mux.Handle("/surface", bridge.Handler())
	handlers.New(session, annStore, recStore, logger).Register(mux)

	server := &http.Server{
		Addr:    config.GetString("surface.listenAddr"),
		Handler: mux,
	}

	influxCfg := config.GetInfluxConfig()
	if influxCfg.Enabled {
		mgr := influx.NewManager(influxCfg, dbLogger, influxBackupPath())
		if err := mgr.Connect(); err != nil {
			logger.Error("stats reporter disabled", "error", err)
		} else {
			defer mgr.Close()
			reporter := influx.NewReporter(mgr, dbLogger)
			go reporter.Run(ctx, time.Minute, func() ([]core.LocationRecord, int) {
				return recStore.All(), annStore.Len()
			})
		}
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// registerSurfaceEvents wires inbound surface events into the session.
func registerSurfaceEvents(d *dispatcher.Dispatcher, session *sketch.Session) {
	d.Register(streaming.TypeViewReady, func(e dispatcher.Event) (any, error) {
		session.RestoreSurface()
		return "ok", nil
	}, dispatcher.Logged())

	d.Register(streaming.TypeGeometryComplete, func(e dispatcher.Event) (any, error) {
		var p streaming.GeometryCompletePayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return nil, fmt.Errorf("bad geometry payload: %w", err)
		}
		session.GeometryComplete(p.Geometry)
		return "ok", nil
	}, dispatcher.Logged())

	d.Register(streaming.TypeReshapeComplete, func(e dispatcher.Event) (any, error) {
		var p streaming.ReshapeCompletePayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return nil, fmt.Errorf("bad reshape payload: %w", err)
		}
		session.Reshape(p.UID, p.Geometry)
		return "ok", nil
	}, dispatcher.Logged())

	d.Register(streaming.TypeShapeClick, func(e dispatcher.Event) (any, error) {
		var p streaming.ShapeClickPayload
		if err := json.Unmarshal(e.Payload, &p); err != nil {
			return nil, fmt.Errorf("bad click payload: %w", err)
		}
		if p.Extend {
			session.ToggleSelect(p.UID)
		} else {
			session.SelectOnly(p.UID)
		}
		return "ok", nil
	}, dispatcher.Logged())
}
