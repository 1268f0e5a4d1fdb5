package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type signalRequest struct {
	Payload map[string]any `json:"payload"`
}

// PostSignal handles POST /v1/signals/:topic.
func (h *Handler) PostSignal(c *gin.Context) {
	var req signalRequest
	_ = c.ShouldBindJSON(&req)
	streamID, err := h.client.Signal(c.Request.Context(), c.Param("topic"), req.Payload)
	if err != nil {
		respondErr(c, err)
		return
	}
	OK(c, gin.H{"stream_id": streamID})
}

// PostThrottle handles POST /v1/throttle/:key?window_ms=N, returning
// whether key may fire now, i.e. no earlier allowed call for it is still
// inside window.
func (h *Handler) PostThrottle(c *gin.Context) {
	windowMs := int64(0)
	if v := c.Query("window_ms"); v != "" {
		if parsed, err := parseInt64(v); err == nil {
			windowMs = parsed
		}
	}
	window := defaultThrottleWindow
	if windowMs > 0 {
		window = msToDuration(windowMs)
	}
	ok, err := h.client.Throttle(c.Request.Context(), c.Param("key"), window)
	if err != nil {
		respondErr(c, err)
		return
	}
	OK(c, gin.H{"allowed": ok})
}

func (h *Handler) healthz(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
