package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dpm2/maintenance-api/pkg/database"
	"github.com/dpm2/maintenance-api/pkg/models"
)

// ListTechnicians returns technicians. ?available=true keeps only available ones.
func (h *Handler) ListTechnicians(c *gin.Context) {
	techs, err := h.Store.ListTechnicians(c.Request.Context(), c.Query("available") == "true")
	if err != nil {
		h.fail(c, err, "Could not fetch technicians")
		return
	}
	c.JSON(http.StatusOK, gin.H{"technicians": techs})
}

// GetTechnician returns a technician by id
func (h *Handler) GetTechnician(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	tech, err := h.Store.GetTechnician(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Could not fetch technician")
		return
	}
	c.JSON(http.StatusOK, gin.H{"technician": tech})
}

// TechnicianJobs lists the requests assigned to a technician
func (h *Handler) TechnicianJobs(c *gin.Context) {
	id, ok := h.ownTechnician(c)
	if !ok {
		return
	}
	jobs, err := h.Store.TechnicianJobs(c.Request.Context(), id, models.RequestStatus(c.Query("status")))
	if err != nil {
		h.fail(c, err, "Could not fetch jobs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// SetAvailability toggles whether a technician takes new work
func (h *Handler) SetAvailability(c *gin.Context) {
	id, ok := h.ownTechnician(c)
	if !ok {
		return
	}
	var req struct {
		Availability *bool `json:"availability" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "availability is required"})
		return
	}
	if err := h.Store.SetAvailability(c.Request.Context(), id, *req.Availability); err != nil {
		h.fail(c, err, "Could not update availability")
		return
	}
	c.JSON(http.StatusOK, gin.H{"technician_id": id, "availability": *req.Availability})
}

// AddSchedule records an availability slot for a technician
func (h *Handler) AddSchedule(c *gin.Context) {
	id, ok := h.ownTechnician(c)
	if !ok {
		return
	}
	var req struct {
		StartTime time.Time `json:"start_time" binding:"required"`
		EndTime   time.Time `json:"end_time" binding:"required"`
		Status    string    `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.EndTime.After(req.StartTime) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end_time must be after start_time"})
		return
	}

	slot := &database.TechnicianSchedule{
		TechnicianID: id,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Status:       req.Status,
	}
	if err := h.Store.AddSchedule(c.Request.Context(), slot); err != nil {
		h.fail(c, err, "Could not add schedule")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"schedule": slot})
}

// ListSchedule returns a technician's slots
func (h *Handler) ListSchedule(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	slots, err := h.Store.ListSchedule(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Could not fetch schedule")
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule": slots})
}

// RateTechnician stores the calling tenant's rating of a technician
func (h *Handler) RateTechnician(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Rating   float64 `json:"rating" binding:"required,gte=1,lte=5"`
		Feedback string  `json:"feedback"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	tenant, err := h.Store.TenantByUser(ctx, claimsOf(c).UserID)
	if err != nil {
		h.fail(c, err, "Could not resolve tenant")
		return
	}
	avg, err := h.Store.RateTechnician(ctx, &database.TechnicianRating{
		TechnicianID: id,
		TenantID:     tenant.ID,
		Rating:       req.Rating,
		Feedback:     req.Feedback,
	})
	if err != nil {
		h.fail(c, err, "Could not record rating")
		return
	}
	c.JSON(http.StatusOK, gin.H{"technician_id": id, "rating_score": avg})
}

// ownTechnician resolves :id and allows only staff or that technician
func (h *Handler) ownTechnician(c *gin.Context) (uint, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return 0, false
	}
	claims := claimsOf(c)
	if isStaff(claims) {
		return id, true
	}
	if claims.Role == models.RoleTechnician {
		tech, err := h.Store.TechnicianByUser(c.Request.Context(), claims.UserID)
		if err == nil && tech.ID == id {
			return id, true
		}
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	return 0, false
}
