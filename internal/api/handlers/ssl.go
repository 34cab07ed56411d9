package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"certsync/internal/authority"
	"certsync/internal/engine"
)

// SSLHandler handles certificate provisioning and tracking
type SSLHandler struct {
	engine *engine.Engine
}

// NewSSLHandler creates a new SSL handler
func NewSSLHandler(eng *engine.Engine) *SSLHandler {
	return &SSLHandler{engine: eng}
}

// CreateRequest represents a certificate provisioning request
type CreateRequest struct {
	Hostname string `json:"hostname"`
}

// UpdateRequest represents a certificate settings update request
type UpdateRequest struct {
	SSLSettings json.RawMessage `json:"sslSettings"`
}

// Create handles certificate provisioning
// POST /ssl
func (h *SSLHandler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.engine.Create(c.Request.Context(), req.Hostname)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	RespondSuccess(c, rec)
}

// Read returns the tracked record for a hostname
// GET /ssl/:hostname
func (h *SSLHandler) Read(c *gin.Context) {
	rec, err := h.engine.Read(c.Request.Context(), c.Param("hostname"))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	RespondSuccess(c, rec)
}

// Recheck refreshes a hostname's status from the authority
// GET /ssl/:hostname/recheck
func (h *SSLHandler) Recheck(c *gin.Context) {
	rec, err := h.engine.Recheck(c.Request.Context(), c.Param("hostname"))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	RespondSuccess(c, rec)
}

// UpdateSettings patches certificate settings by id
// PUT /ssl/:id
func (h *SSLHandler) UpdateSettings(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.engine.UpdateSettings(c.Request.Context(), c.Param("id"), req.SSLSettings)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	RespondSuccess(c, rec)
}

// Delete removes a certificate by id
// DELETE /ssl/:id
func (h *SSLHandler) Delete(c *gin.Context) {
	result, err := h.engine.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	RespondSuccess(c, result)
}

// List returns all tracked records, most recently created first
// GET /ssl
func (h *SSLHandler) List(c *gin.Context) {
	records, err := h.engine.List()
	if err != nil {
		respondEngineError(c, err)
		return
	}

	RespondSuccess(c, records)
}

// respondEngineError maps engine failures onto the response envelope.
// Authority payloads are passed through verbatim when they are valid JSON.
func respondEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrHostnameRequired):
		RespondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrNotFound):
		RespondError(c, http.StatusNotFound, err.Error())
	default:
		var authErr *authority.Error
		if errors.As(err, &authErr) && json.Valid([]byte(authErr.Body)) {
			RespondError(c, http.StatusInternalServerError, json.RawMessage(authErr.Body))
			return
		}
		RespondError(c, http.StatusInternalServerError, err.Error())
	}
}
