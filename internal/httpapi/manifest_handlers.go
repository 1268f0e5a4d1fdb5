package httpapi

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flowmesh/flowmesh/internal/manifest"
)

// PostDeploy handles POST /v1/deploy. The body is the raw YAML manifest
// document, matching the manifest store's on-disk/persisted form rather
// than a bespoke JSON shape.
func (h *Handler) PostDeploy(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		Error(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	m, err := manifest.Decode(body)
	if err != nil {
		Error(c, http.StatusUnprocessableEntity, "invalid_manifest", err)
		return
	}
	if err := h.client.Deploy(c.Request.Context(), m); err != nil {
		respondErr(c, err)
		return
	}
	OK(c, gin.H{"app": m.App, "version": m.Version})
}

type activateRequest struct {
	Version string `json:"version" binding:"required"`
}

// PostActivate handles POST /v1/apps/:app/activate.
func (h *Handler) PostActivate(c *gin.Context) {
	app := c.Param("app")
	var req activateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if err := h.client.Activate(c.Request.Context(), app, req.Version); err != nil {
		respondErr(c, err)
		return
	}
	OK(c, gin.H{"app": app, "version": req.Version})
}
