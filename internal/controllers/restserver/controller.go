// Package restserver exposes the monitor's state over HTTP.
package restserver

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chrissnell/volcanomonitor/internal/log"
	"github.com/chrissnell/volcanomonitor/internal/storage"
	"github.com/chrissnell/volcanomonitor/internal/types"
	"github.com/chrissnell/volcanomonitor/pkg/config"
	"github.com/chrissnell/volcanomonitor/pkg/responseformat"
)

// StatusSource is the read-only view of the monitor the server reports on.
type StatusSource interface {
	Mode() types.Mode
	AlertMode() types.AlertMode
	Latest() (types.Sample, bool)
	SessionID() string
}

// LogCopier streams the CSV log.
type LogCopier interface {
	CopyTo(w io.Writer) (int64, error)
}

// SampleHistory answers recent-sample queries from a mirror.
type SampleHistory interface {
	Recent(ctx context.Context, limit int) ([]types.Sample, error)
}

// Controller represents the REST server controller
type Controller struct {
	ctx       context.Context
	wg        *sync.WaitGroup
	Server    http.Server
	status    StatusSource
	logs      LogCopier
	health    *storage.HealthManager
	history   SampleHistory
	formatter *responseformat.Formatter
}

// NewController creates a new REST server controller. health may be nil when
// no mirror storage is configured.
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RESTServerData, status StatusSource, logs LogCopier, health *storage.HealthManager) *Controller {
	c := &Controller{
		ctx:       ctx,
		wg:        wg,
		status:    status,
		logs:      logs,
		health:    health,
		formatter: responseformat.NewFormatter(),
	}

	c.Server = http.Server{
		Addr:              rc.ListenAddr,
		Handler:           c.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return c
}

// SetHistory enables /api/samples.
func (c *Controller) SetHistory(h SampleHistory) {
	c.history = h
}

// StartController serves until ctx is cancelled.
func (c *Controller) StartController() error {
	log.Infof("Starting REST server on %s...", c.Server.Addr)
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
		c.Server.Shutdown(context.Background())
	}()

	return nil
}

// Router configures the HTTP router with all endpoints
func (c *Controller) Router() *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", c.GetStatus).Methods(http.MethodGet)
	api.HandleFunc("/latest", c.GetLatest).Methods(http.MethodGet)
	api.HandleFunc("/logs", c.GetLogs).Methods(http.MethodGet)
	api.HandleFunc("/samples", c.GetSamples).Methods(http.MethodGet)
	api.HandleFunc("/health", c.GetHealth).Methods(http.MethodGet)

	router.Handle("/metrics", promhttp.Handler())

	return router
}
