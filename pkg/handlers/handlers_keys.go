package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dpm2/maintenance-api/pkg/database"
)

// GenerateKey issues a new HMAC integration key
func (h *Handler) GenerateKey(c *gin.Context) {
	var req struct {
		Name string `json:"name" form:"name" binding:"required"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	key := h.Auth.GenerateHMACKey(req.Name)
	apiKey := &database.APIKey{Key: key, Name: req.Name}
	if err := h.Store.CreateAPIKey(c.Request.Context(), apiKey); err != nil {
		h.fail(c, err, "Could not create key record")
		return
	}

	// The full key is only ever shown here.
	c.JSON(http.StatusOK, gin.H{
		"id":   apiKey.ID,
		"name": req.Name,
		"key":  key,
	})
}

// ListKeys returns all API keys
func (h *Handler) ListKeys(c *gin.Context) {
	keys, err := h.Store.ListAPIKeys(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Could not fetch keys")
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

// RevokeKey disables an API key
func (h *Handler) RevokeKey(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Store.RevokeAPIKey(c.Request.Context(), id); err != nil {
		h.fail(c, err, "Could not revoke key")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Key revoked"})
}

// GetDispatchState returns the last-assigned technician
func (h *Handler) GetDispatchState(c *gin.Context) {
	last, err := h.Store.GetLastAssigned(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Could not read dispatch state")
		return
	}
	c.JSON(http.StatusOK, gin.H{"last_assigned_technician_id": last})
}

// SetDispatchState overrides the last-assigned technician. Zero clears it.
func (h *Handler) SetDispatchState(c *gin.Context) {
	var req struct {
		TechnicianID *uint `json:"last_assigned_technician_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "last_assigned_technician_id is required"})
		return
	}
	ctx := c.Request.Context()
	if *req.TechnicianID != 0 {
		if _, err := h.Store.GetTechnician(ctx, *req.TechnicianID); err != nil {
			h.fail(c, err, "Could not read technician")
			return
		}
	}
	if err := h.Store.SetLastAssigned(ctx, *req.TechnicianID); err != nil {
		h.fail(c, err, "Could not write dispatch state")
		return
	}
	c.JSON(http.StatusOK, gin.H{"last_assigned_technician_id": *req.TechnicianID})
}
