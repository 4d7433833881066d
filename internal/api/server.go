// Package api provides the HTTP REST API and WebSocket server for
// labstation.
//
// It exposes the station snapshot surface, bus resource queries, and
// real-time parameter updates to lab dashboards and notebooks.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: all methods are safe for concurrent use.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ThorvaldLarsen/labstation/internal/bus"
	"github.com/ThorvaldLarsen/labstation/internal/infrastructure/config"
	"github.com/ThorvaldLarsen/labstation/internal/infrastructure/influxdb"
	"github.com/ThorvaldLarsen/labstation/internal/infrastructure/logging"
	"github.com/ThorvaldLarsen/labstation/internal/infrastructure/mqtt"
	"github.com/ThorvaldLarsen/labstation/internal/station"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Logger    *logging.Logger
	Station   *station.Station
	Bus       *bus.Bus
	Snapshots station.SnapshotRepository // optional; snapshot persistence disabled when nil
	MQTT      *mqtt.Client               // optional; parameter/acquisition publishing and WebSocket relay disabled when nil
	Influx    *influxdb.Client           // optional; acquisition recording disabled when nil
	Version   string
}

// Server is the HTTP API server for labstation.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	station   *station.Station
	bus       *bus.Bus
	snapshots station.SnapshotRepository
	mqtt      *mqtt.Client
	influx    *influxdb.Client
	version   string

	server *http.Server
	hub    *Hub
	cancel context.CancelFunc
}

// New creates an API server with the given dependencies. The server is
// not started until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Station == nil {
		return nil, fmt.Errorf("station is required")
	}
	if deps.Bus == nil {
		return nil, fmt.Errorf("bus is required")
	}

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		station:   deps.Station,
		bus:       deps.Bus,
		snapshots: deps.Snapshots,
		mqtt:      deps.MQTT,
		influx:    deps.Influx,
		version:   deps.Version,
	}, nil
}

// Start begins listening for HTTP connections. It starts the WebSocket
// hub, subscribes to MQTT parameter topics for real-time relay, and
// launches the listener in a background goroutine. Stop with Close.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	if err := s.subscribeTelemetry(); err != nil {
		s.logger.Warn("failed to subscribe to telemetry for WebSocket relay", "error", err)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.GetReadTimeout(),
		WriteTimeout:      s.cfg.GetWriteTimeout(),
		IdleTimeout:       s.cfg.GetIdleTimeout(),
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server, waiting up to 10 seconds
// for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
