package models

import "time"

// Role is the access level of a user account
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleManager    Role = "Manager"
	RoleTechnician Role = "Technician"
	RoleTenant     Role = "Tenant"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleTechnician, RoleTenant:
		return true
	}
	return false
}

// RequestStatus is the lifecycle state of a maintenance request
type RequestStatus string

const (
	StatusPending    RequestStatus = "Pending"
	StatusAssigned   RequestStatus = "Assigned"
	StatusInProgress RequestStatus = "InProgress"
	StatusCompleted  RequestStatus = "Completed"
	StatusCancelled  RequestStatus = "Cancelled"
)

// Active reports whether a request in this state can still hold an assignment
func (s RequestStatus) Active() bool {
	return s == StatusAssigned || s == StatusInProgress
}

// DefaultRating is used for technicians without any rating yet
const DefaultRating = 3.0

// MaxRating is the top of the rating scale
const MaxRating = 5.0

// Coordinates is an optional geographic position
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Technician is a dispatch candidate
type Technician struct {
	ID              uint         `json:"id"`
	Name            string       `json:"name"`
	Available       bool         `json:"availability"`
	CurrentWorkload int          `json:"current_workload"`
	RatingScore     float64      `json:"rating_score"`
	Location        *Coordinates `json:"location,omitempty"`
}

// Rating returns the rating score, falling back to DefaultRating when unset
func (t Technician) Rating() float64 {
	if t.RatingScore <= 0 {
		return DefaultRating
	}
	return t.RatingScore
}

// MaintenanceRequest is a tenant's request for maintenance work
type MaintenanceRequest struct {
	ID         uint          `json:"id"`
	PropertyID uint          `json:"property_id"`
	Urgency    int           `json:"urgency"`
	Status     RequestStatus `json:"status"`
	Location   *Coordinates  `json:"location,omitempty"`
}

// AssignmentDecision is the outcome of one scoring round before it is persisted
type AssignmentDecision struct {
	TechnicianID uint      `json:"technician_id"`
	RequestID    uint      `json:"request_id"`
	Score        float64   `json:"score"`
	Timestamp    time.Time `json:"timestamp"`
}

// AssignmentRecord is a persisted technician-request pairing
type AssignmentRecord struct {
	ID           uint      `json:"id"`
	TechnicianID uint      `json:"technician_id"`
	RequestID    uint      `json:"request_id"`
	AssignedAt   time.Time `json:"assigned_at"`
	Completed    bool      `json:"completed"`
	Score        float64   `json:"score"`
}
