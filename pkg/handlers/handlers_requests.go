package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dpm2/maintenance-api/pkg/database"
	"github.com/dpm2/maintenance-api/pkg/models"
)

// CreateRequest files a maintenance request. Tenants file against their own
// tenancy; staff may name any property.
func (h *Handler) CreateRequest(c *gin.Context) {
	var req struct {
		PropertyID  uint   `json:"property_id"`
		Type        string `json:"type" binding:"required"`
		Description string `json:"description"`
		Urgency     int    `json:"urgency" binding:"required,urgency"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	claims := claimsOf(c)
	row := &database.MaintenanceRequest{
		PropertyID:  req.PropertyID,
		Type:        req.Type,
		Description: req.Description,
		Urgency:     req.Urgency,
	}

	switch {
	case claims.Role == models.RoleTenant:
		tenant, err := h.Store.TenantByUser(ctx, claims.UserID)
		if err != nil {
			h.fail(c, err, "Could not resolve tenant")
			return
		}
		if tenant.PropertyID == nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Tenant has no property"})
			return
		}
		if row.PropertyID != 0 && row.PropertyID != *tenant.PropertyID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Tenants may only file requests for their own property"})
			return
		}
		row.TenantID = &tenant.ID
		row.PropertyID = *tenant.PropertyID
	case !isStaff(claims):
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		return
	}
	if row.PropertyID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "property_id is required"})
		return
	}

	if err := h.Store.CreateRequest(ctx, row); err != nil {
		h.fail(c, err, "Could not create request")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"request": row})
}

// ListRequests returns requests, filtered by status and property. Tenants
// only see their own.
func (h *Handler) ListRequests(c *gin.Context) {
	f := database.RequestFilter{Status: models.RequestStatus(c.Query("status"))}
	if v := c.Query("property_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property_id"})
			return
		}
		f.PropertyID = uint(id)
	}

	ctx := c.Request.Context()
	claims := claimsOf(c)
	if claims.Role == models.RoleTenant {
		tenant, err := h.Store.TenantByUser(ctx, claims.UserID)
		if err != nil {
			h.fail(c, err, "Could not resolve tenant")
			return
		}
		f.TenantID = tenant.ID
	}

	reqs, err := h.Store.ListRequests(ctx, f)
	if err != nil {
		h.fail(c, err, "Could not fetch requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

// GetRequest returns a request and its open assignment, if any
func (h *Handler) GetRequest(c *gin.Context) {
	row, ok := h.visibleRequest(c)
	if !ok {
		return
	}
	resp := gin.H{"request": row}
	a, err := h.Store.ActiveAssignment(c.Request.Context(), row.ID)
	switch {
	case err == nil:
		resp["assignment"] = a
	case !errors.Is(err, database.ErrNotFound):
		h.fail(c, err, "Could not fetch assignment")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateRequestStatus moves a request along its lifecycle. Staff may set any
// allowed status, the assigned technician may progress it, the tenant may
// cancel it.
func (h *Handler) UpdateRequestStatus(c *gin.Context) {
	var req struct {
		Status models.RequestStatus `json:"status" binding:"required,status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	row, ok := h.visibleRequest(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	claims := claimsOf(c)
	switch claims.Role {
	case models.RoleTenant:
		if req.Status != models.StatusCancelled {
			c.JSON(http.StatusForbidden, gin.H{"error": "Tenants may only cancel requests"})
			return
		}
	case models.RoleTechnician:
		tech, err := h.Store.TechnicianByUser(ctx, claims.UserID)
		if err != nil {
			h.fail(c, err, "Could not resolve technician")
			return
		}
		a, err := h.Store.ActiveAssignment(ctx, row.ID)
		if errors.Is(err, database.ErrNotFound) || (err == nil && a.TechnicianID != tech.ID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Request is not assigned to you"})
			return
		}
		if err != nil {
			h.fail(c, err, "Could not fetch assignment")
			return
		}
	}

	updated, err := h.Store.UpdateRequestStatus(ctx, row.ID, req.Status)
	if err != nil {
		h.fail(c, err, "Could not update status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": updated})
}

// AssignTechnician runs a dispatch round for the request
func (h *Handler) AssignTechnician(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	rec, err := h.Dispatcher.DispatchTechnician(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Dispatch failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"assignment": rec})
}

// IntegrationAssign runs a dispatch round on behalf of an integration key
func (h *Handler) IntegrationAssign(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	rec, err := h.Dispatcher.DispatchTechnician(c.Request.Context(), id)
	h.recordUsage(c, err == nil)
	if err != nil {
		h.fail(c, err, "Dispatch failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"assignment": rec})
}

// visibleRequest loads the :id request, hiding other tenants' requests
func (h *Handler) visibleRequest(c *gin.Context) (*database.MaintenanceRequest, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return nil, false
	}
	ctx := c.Request.Context()
	row, err := h.Store.FindRequest(ctx, id)
	if err != nil {
		h.fail(c, err, "Could not fetch request")
		return nil, false
	}
	claims := claimsOf(c)
	if claims.Role == models.RoleTenant {
		tenant, err := h.Store.TenantByUser(ctx, claims.UserID)
		if err != nil {
			h.fail(c, err, "Could not resolve tenant")
			return nil, false
		}
		if row.TenantID == nil || *row.TenantID != tenant.ID {
			h.fail(c, database.ErrNotFound, "Request not found")
			return nil, false
		}
	}
	return row, true
}
