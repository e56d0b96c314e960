package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/remoteweather-lightning/internal/log"
	"github.com/chrissnell/remoteweather-lightning/internal/storage"
	"github.com/chrissnell/remoteweather-lightning/internal/types"
	"github.com/chrissnell/remoteweather-lightning/pkg/config"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// StatusSource reports the live state of the lightning service
type StatusSource interface {
	Pending() int
	Binding() types.RecordKind
}

// Pinger is implemented by archives that can check their connection
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the pieces of the running service the REST endpoints expose.
// Archive and Gatherer are optional.
type Deps struct {
	Status     StatusSource
	UnitSystem types.UnitSystem
	Archive    storage.Recorder
	Gatherer   prometheus.Gatherer
}

// Controller represents the REST server controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	restConfig config.RESTServerData
	Server     http.Server
	status     StatusSource
	units      types.UnitSystem
	pinger     Pinger
	querier    storage.Querier
	gatherer   prometheus.Gatherer
	logger     *zap.SugaredLogger
	handlers   *Handlers
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RESTServerData, deps Deps, logger *zap.SugaredLogger) (*Controller, error) {
	if deps.Status == nil {
		return nil, fmt.Errorf("REST server requires a lightning status source")
	}

	ctrl := &Controller{
		ctx:      ctx,
		wg:       wg,
		status:   deps.Status,
		units:    deps.UnitSystem,
		gatherer: deps.Gatherer,
		logger:   logger,
	}

	if deps.Archive != nil {
		if p, ok := deps.Archive.(Pinger); ok {
			ctrl.pinger = p
		}
		if q, ok := deps.Archive.(storage.Querier); ok {
			ctrl.querier = q
		}
	}

	// If a ListenAddr was not provided, listen on all interfaces
	if rc.ListenAddr == "" {
		logger.Info("rest.listen-addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		rc.ListenAddr = "0.0.0.0"
	}
	if rc.Port <= 0 || rc.Port > 65535 {
		return nil, fmt.Errorf("invalid REST server port %d", rc.Port)
	}
	ctrl.restConfig = rc

	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.Port)
	ctrl.Server.Handler = ctrl.setupRouter()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Infof("Starting REST server controller on %s...", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
			log.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(requestLogger)

	router.HandleFunc("/healthz", c.handlers.GetHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/lightning/status", c.handlers.GetLightningStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/lightning/strikes/{span}", c.handlers.GetStrikeSpan).Methods(http.MethodGet)

	if c.gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	return router
}
