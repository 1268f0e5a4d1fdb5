package httpapi

import (
	"context"
	"net/http"

	"github.com/flowmesh/flowmesh/internal/client"
	"github.com/flowmesh/flowmesh/internal/config"
	"github.com/flowmesh/flowmesh/internal/platform/logger"
)

// Server wraps the Gin engine in a *http.Server so the daemon entrypoint
// can drive a graceful Shutdown alongside its other components. Grounded
// on the Server{Engine *gin.Engine}/NewServer/Run shape used for this
// codebase's other HTTP surface, generalized with the timeouts the
// inference subsystem's own http.Server construction applies.
type Server struct {
	httpServer *http.Server
}

func NewServer(cfg config.HTTPConfig, c client.Client, log *logger.Logger) *Server {
	engine := NewRouter(c, log)
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           engine,
			ReadHeaderTimeout: cfg.ReadHeaderTimeout.Duration,
			IdleTimeout:       cfg.IdleTimeout.Duration,
		},
	}
}

// Run blocks serving HTTP until the listener fails (returning its error)
// or Shutdown is called (returning nil).
func (s *Server) Run() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
