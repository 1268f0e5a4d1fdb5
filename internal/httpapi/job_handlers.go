package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flowmesh/flowmesh/internal/client"
)

func clientInterruptOptions(req interruptRequest) client.InterruptOptions {
	return client.InterruptOptions{Reason: req.Reason, Descend: req.Descend}
}

type pubRequest struct {
	App     string         `json:"app" binding:"required"`
	Version string         `json:"version" binding:"required"`
	Entry   string         `json:"entry" binding:"required"`
	Payload map[string]any `json:"payload"`
}

// PostPub handles POST /v1/pub: fire-and-forget job start, returning the
// new job id immediately.
func (h *Handler) PostPub(c *gin.Context) {
	var req pubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	jobID, err := h.client.Pub(c.Request.Context(), req.App, req.Version, req.Entry, req.Payload)
	if err != nil {
		respondErr(c, err)
		return
	}
	OK(c, gin.H{"job_id": jobID})
}

type pubSubRequest struct {
	pubRequest
	TimeoutMs int64 `json:"timeout_ms"`
}

// PostPubSub handles POST /v1/pubsub: blocks until the job reaches a
// terminal status or the caller-supplied timeout elapses.
func (h *Handler) PostPubSub(c *gin.Context) {
	var req pubSubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	timeout := 30 * time.Second
	if req.TimeoutMs > 0 {
		timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}
	rec, err := h.client.PubSub(c.Request.Context(), req.App, req.Version, req.Entry, req.Payload, timeout)
	if err != nil {
		respondErr(c, err)
		return
	}
	OK(c, gin.H{"job": rec})
}

// GetJobStatus handles GET /v1/jobs/:id/status.
func (h *Handler) GetJobStatus(c *gin.Context) {
	st, err := h.client.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	OK(c, gin.H{"status": int(st)})
}

// GetJobState handles GET /v1/jobs/:id.
func (h *Handler) GetJobState(c *gin.Context) {
	rec, err := h.client.GetState(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	OK(c, gin.H{"job": rec})
}

// GetJobRaw handles GET /v1/jobs/:id/raw: the unprojected reserved-field
// map, for operators debugging durable-runtime scratch fields directly.
func (h *Handler) GetJobRaw(c *gin.Context) {
	raw, err := h.client.GetRaw(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	OK(c, gin.H{"raw": raw})
}

// GetJobQueryState handles GET /v1/jobs/:id/query?fields=a,b,c.
func (h *Handler) GetJobQueryState(c *gin.Context) {
	raw := c.Query("fields")
	var fields []string
	if raw != "" {
		fields = strings.Split(raw, ",")
	}
	state, err := h.client.GetQueryState(c.Request.Context(), c.Param("id"), fields)
	if err != nil {
		respondErr(c, err)
		return
	}
	OK(c, gin.H{"state": state})
}

// GetJobExport handles GET /v1/jobs/:id/export.
func (h *Handler) GetJobExport(c *gin.Context) {
	exp, err := h.client.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	OK(c, exp)
}

type interruptRequest struct {
	Reason  string `json:"reason"`
	Descend bool   `json:"descend"`
}

// PostJobInterrupt handles POST /v1/jobs/:id/interrupt.
func (h *Handler) PostJobInterrupt(c *gin.Context) {
	var req interruptRequest
	// A body is optional; an empty/absent one is a bare interrupt with no
	// reason and no descend.
	_ = c.ShouldBindJSON(&req)
	streamID, err := h.client.Interrupt(c.Request.Context(), c.Param("id"), clientInterruptOptions(req))
	if err != nil {
		respondErr(c, err)
		return
	}
	OK(c, gin.H{"stream_id": streamID})
}

// DeleteJob handles DELETE /v1/jobs/:id (scrub).
func (h *Handler) DeleteJob(c *gin.Context) {
	if err := h.client.Scrub(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
