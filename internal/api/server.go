package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hearthside/hearthside-core/internal/access"
	"github.com/hearthside/hearthside-core/internal/audit"
	"github.com/hearthside/hearthside-core/internal/command"
	"github.com/hearthside/hearthside-core/internal/device"
	"github.com/hearthside/hearthside-core/internal/energy"
	"github.com/hearthside/hearthside-core/internal/infrastructure/config"
	"github.com/hearthside/hearthside-core/internal/infrastructure/logging"
	"github.com/hearthside/hearthside-core/internal/infrastructure/mqtt"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Logger     *logging.Logger
	Registry   *device.Registry
	Controller *access.Controller
	Monitor    *energy.Monitor
	Trail      audit.Repository
	Recognizer command.Recognizer
	Phrases    []string
	MQTT       *mqtt.Client // optional, only used for health reporting
	Version    string
}

// Server is the HTTP API server. It manages the listener, routes,
// middleware, and the WebSocket hub.
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	logger     *logging.Logger
	registry   *device.Registry
	controller *access.Controller
	monitor    *energy.Monitor
	trail      audit.Repository
	recognizer command.Recognizer
	phrases    []string
	mqtt       *mqtt.Client
	version    string

	server *http.Server
	hub    *Hub
	cancel context.CancelFunc
}

// New creates an API server with the given dependencies. The server is not
// started until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("device registry is required")
	}
	if deps.Controller == nil {
		return nil, fmt.Errorf("access controller is required")
	}
	if deps.Monitor == nil {
		return nil, fmt.Errorf("energy monitor is required")
	}
	if deps.Trail == nil {
		return nil, fmt.Errorf("audit repository is required")
	}

	return &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     deps.Logger,
		registry:   deps.Registry,
		controller: deps.Controller,
		monitor:    deps.Monitor,
		trail:      deps.Trail,
		recognizer: deps.Recognizer,
		phrases:    deps.Phrases,
		mqtt:       deps.MQTT,
		version:    deps.Version,
	}, nil
}

// Start begins listening for HTTP connections. The hub and listener run in
// background goroutines; Close stops them.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
		go s.hub.Run(srvCtx)
	}

	// Mirror device changes to subscribed WebSocket clients.
	s.registry.OnChange(func(d device.Device) {
		s.hub.Broadcast(ChannelDevices, d)
	})

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("api server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", "error", err)
		}
	}()

	return nil
}

// Hub returns the WebSocket hub, available after Start.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Close gracefully shuts down the server, waiting for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("api server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down api server: %w", err)
	}
	return nil
}

// handleHealth reports overall service health, including the broker
// connection when MQTT is configured.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status":  "ok",
		"version": s.version,
		"devices": s.registry.Count(),
	}

	if s.mqtt != nil {
		mqttStatus := "connected"
		if err := s.mqtt.HealthCheck(r.Context()); err != nil {
			mqttStatus = "disconnected"
		}
		health["mqtt"] = mqttStatus
	}

	writeJSON(w, http.StatusOK, health)
}
