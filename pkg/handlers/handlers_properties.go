package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dpm2/maintenance-api/pkg/database"
)

type propertyInput struct {
	Address   *string  `json:"address"`
	Value     *float64 `json:"value" binding:"omitempty,gte=0"`
	Expenses  *float64 `json:"expenses" binding:"omitempty,gte=0"`
	Latitude  *float64 `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
	ManagerID *uint    `json:"manager_id"`
}

func (in propertyInput) changes() map[string]any {
	m := map[string]any{}
	if in.Address != nil {
		m["address"] = *in.Address
	}
	if in.Value != nil {
		m["value"] = *in.Value
	}
	if in.Expenses != nil {
		m["expenses"] = *in.Expenses
	}
	if in.Latitude != nil {
		m["latitude"] = *in.Latitude
	}
	if in.Longitude != nil {
		m["longitude"] = *in.Longitude
	}
	if in.ManagerID != nil {
		m["manager_id"] = *in.ManagerID
	}
	return m
}

// ListProperties returns every property
func (h *Handler) ListProperties(c *gin.Context) {
	props, err := h.Store.ListProperties(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Could not fetch properties")
		return
	}
	c.JSON(http.StatusOK, gin.H{"properties": props})
}

// CreateProperty adds a property
func (h *Handler) CreateProperty(c *gin.Context) {
	var in propertyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.Address == nil || *in.Address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address is required"})
		return
	}

	p := &database.Property{
		Address:   *in.Address,
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		ManagerID: in.ManagerID,
	}
	if in.Value != nil {
		p.Value = *in.Value
	}
	if in.Expenses != nil {
		p.Expenses = *in.Expenses
	}
	if p.ManagerID == nil {
		if claims := claimsOf(c); claims != nil {
			id := claims.UserID
			p.ManagerID = &id
		}
	}
	if err := h.Store.CreateProperty(c.Request.Context(), p); err != nil {
		h.fail(c, err, "Could not create property")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"property": p})
}

// GetProperty returns a property by id
func (h *Handler) GetProperty(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	p, err := h.Store.GetProperty(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Could not fetch property")
		return
	}
	c.JSON(http.StatusOK, gin.H{"property": p})
}

// UpdateProperty edits the provided fields of a property
func (h *Handler) UpdateProperty(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in propertyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	changes := in.changes()
	if len(changes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No update fields provided"})
		return
	}
	p, err := h.Store.UpdateProperty(c.Request.Context(), id, changes)
	if err != nil {
		h.fail(c, err, "Could not update property")
		return
	}
	c.JSON(http.StatusOK, gin.H{"property": p})
}

// DeleteProperty removes a property
func (h *Handler) DeleteProperty(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Store.DeleteProperty(c.Request.Context(), id); err != nil {
		h.fail(c, err, "Could not delete property")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Property deleted"})
}
