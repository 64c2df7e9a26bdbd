package httpserver

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"git-actions/internal/action"
	"git-actions/internal/webhook"
	"git-actions/pkg/log"
)

// HTTPServer holds all dependencies for the HTTP front end.
type HTTPServer struct {
	gin          *gin.Engine
	l            log.Logger
	host         string
	port         int
	dispatcher   *webhook.Dispatcher
	sched        *action.Scheduler
	drainTimeout time.Duration
}

// Config is the dependency bag passed to New().
type Config struct {
	Logger       log.Logger
	Host         string
	Port         int
	Dispatcher   *webhook.Dispatcher
	Scheduler    *action.Scheduler
	DrainTimeout time.Duration
}

// New creates the HTTP server and registers every route.
func New(cfg Config) (*HTTPServer, error) {
	gin.SetMode(gin.ReleaseMode)

	srv := &HTTPServer{
		gin:          gin.New(),
		l:            cfg.Logger,
		host:         cfg.Host,
		port:         cfg.Port,
		dispatcher:   cfg.Dispatcher,
		sched:        cfg.Scheduler,
		drainTimeout: cfg.DrainTimeout,
	}

	if err := srv.validate(); err != nil {
		return nil, err
	}

	srv.mapHandlers()
	return srv, nil
}

func (srv *HTTPServer) validate() error {
	if srv.l == nil {
		return errors.New("logger is required")
	}
	if srv.port == 0 {
		return errors.New("port is required")
	}
	if srv.dispatcher == nil {
		return errors.New("dispatcher is required")
	}
	if srv.sched == nil {
		return errors.New("scheduler is required")
	}
	return nil
}
