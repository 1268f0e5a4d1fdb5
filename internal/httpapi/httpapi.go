// Package httpapi is the Gin HTTP surface in front of the client API:
// one handler struct wrapping a client.Client, thin methods translating
// request params into client calls and client errors into the shared
// error envelope. Grounded on the handler-struct-wraps-service shape and
// response.RespondOK/RespondError envelope used elsewhere in this
// codebase's HTTP layer.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flowmesh/flowmesh/internal/client"
	"github.com/flowmesh/flowmesh/internal/platform/apierr"
	"github.com/flowmesh/flowmesh/internal/platform/logger"
)

// Handler wraps a client.Client with Gin-bound methods for every
// operation the Client interface exposes.
type Handler struct {
	client client.Client
	log    *logger.Logger
}

func NewHandler(c client.Client, log *logger.Logger) *Handler {
	return &Handler{client: c, log: log.With("component", "httpapi.Handler")}
}

// respondErr unwraps an apierr.Error (if that's what err is) to recover
// the status/code the client layer already chose; anything else maps to
// a bare 500, since it means a failure the client surface didn't wrap.
func respondErr(c *gin.Context, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		Error(c, ae.Status, ae.Code, ae.Err)
		return
	}
	Error(c, http.StatusInternalServerError, "internal_error", err)
}
