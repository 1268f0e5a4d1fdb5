package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flowmesh/flowmesh/internal/domain/workflow"
)

// PostRollCall handles POST /v1/rollcall?delay_ms=N: broadcasts a ping and
// collects the profiles of every mesh member that answers within delay.
func (h *Handler) PostRollCall(c *gin.Context) {
	delay := 200 * time.Millisecond
	if v := c.Query("delay_ms"); v != "" {
		if parsed, err := parseInt64(v); err == nil && parsed > 0 {
			delay = msToDuration(parsed)
		}
	}
	profiles, err := h.client.RollCall(c.Request.Context(), delay)
	if err != nil {
		respondErr(c, err)
		return
	}
	OK(c, gin.H{"members": profiles})
}

// GetSub handles GET /v1/sub/:channel and streams quorum messages on that
// literal channel as server-sent events until the client disconnects.
func (h *Handler) GetSub(c *gin.Context) {
	msgs, cancel, err := h.client.Sub(c.Request.Context(), c.Param("channel"))
	if err != nil {
		respondErr(c, err)
		return
	}
	h.streamMessages(c, msgs, cancel)
}

// GetPSub handles GET /v1/psub/:pattern, identical to GetSub but over a
// glob pattern spanning every literal channel it matches.
func (h *Handler) GetPSub(c *gin.Context) {
	msgs, cancel, err := h.client.PSub(c.Request.Context(), c.Param("pattern"))
	if err != nil {
		respondErr(c, err)
		return
	}
	h.streamMessages(c, msgs, cancel)
}

// streamMessages writes msgs to the response as SSE frames until the
// channel closes or the client goes away. Grounded on the same
// write-then-flush SSE loop the inference HTTP surface uses for
// streamed text generation.
func (h *Handler) streamMessages(c *gin.Context, msgs <-chan *workflow.QuorumMessage, cancel func()) {
	defer cancel()
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case msg, open := <-msgs:
			if !open {
				fmt.Fprint(c.Writer, "data: [DONE]\n\n")
				if ok {
					flusher.Flush()
				}
				return
			}
			b, err := json.Marshal(msg)
			if err != nil {
				h.log.Warn("httpapi: marshal quorum message", "error", err)
				continue
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", b)
			if ok {
				flusher.Flush()
			}
		}
	}
}
