package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dpm2/maintenance-api/pkg/database"
)

func apiKeyOf(c *gin.Context) *database.APIKey {
	v, ok := c.Get(ctxAPIKey)
	if !ok {
		return nil
	}
	k, _ := v.(*database.APIKey)
	return k
}

// recordUsage counts an integration call. Failures are logged, never returned.
func (h *Handler) recordUsage(c *gin.Context, dispatched bool) {
	k := apiKeyOf(c)
	if k == nil {
		return
	}
	if err := h.Store.RecordUsage(c.Request.Context(), k.ID, dispatched); err != nil {
		h.Log.Warn().Err(err).Uint("key_id", k.ID).Msg("record usage failed")
	}
}

func usageResponse(k *database.APIKey, usage []database.APIUsage) gin.H {
	var requests, dispatches int64
	for _, u := range usage {
		requests += int64(u.RequestCount)
		dispatches += int64(u.Dispatches)
	}
	return gin.H{
		"key_name":      k.Name,
		"key_preview":   k.KeyPreview,
		"last_used":     k.LastUsed,
		"usage_history": usage,
		"totals": gin.H{
			"requests":   requests,
			"dispatches": dispatches,
		},
	}
}

// GetMyUsage returns usage stats for the authenticated API key
func (h *Handler) GetMyUsage(c *gin.Context) {
	k := apiKeyOf(c)
	if k == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "API Key context missing"})
		return
	}
	usage, err := h.Store.Usage(c.Request.Context(), k.ID)
	if err != nil {
		h.fail(c, err, "Could not fetch usage details")
		return
	}
	c.JSON(http.StatusOK, usageResponse(k, usage))
}

// GetUsage returns usage stats for a key by id
func (h *Handler) GetUsage(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	k, err := h.Store.GetAPIKey(ctx, id)
	if err != nil {
		h.fail(c, err, "Could not fetch key")
		return
	}
	usage, err := h.Store.Usage(ctx, id)
	if err != nil {
		h.fail(c, err, "Could not fetch usage details")
		return
	}
	c.JSON(http.StatusOK, usageResponse(k, usage))
}
