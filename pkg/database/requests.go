package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/dpm2/maintenance-api/pkg/models"
)

// RequestFilter narrows ListRequests. Zero fields are ignored.
type RequestFilter struct {
	Status     models.RequestStatus
	PropertyID uint
	TenantID   uint
}

// CreateRequest inserts a pending request for an existing property
func (s *Store) CreateRequest(ctx context.Context, r *MaintenanceRequest) error {
	if _, err := s.GetProperty(ctx, r.PropertyID); err != nil {
		return fmt.Errorf("property %d: %w", r.PropertyID, err)
	}
	r.Status = models.StatusPending
	return translate(s.DB.WithContext(ctx).Create(r).Error)
}

// FindRequest returns a request row by id
func (s *Store) FindRequest(ctx context.Context, id uint) (*MaintenanceRequest, error) {
	var r MaintenanceRequest
	if err := s.DB.WithContext(ctx).First(&r, id).Error; err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

// ListRequests returns requests matching f, newest first
func (s *Store) ListRequests(ctx context.Context, f RequestFilter) ([]MaintenanceRequest, error) {
	q := s.DB.WithContext(ctx)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PropertyID != 0 {
		q = q.Where("property_id = ?", f.PropertyID)
	}
	if f.TenantID != 0 {
		q = q.Where("tenant_id = ?", f.TenantID)
	}
	var reqs []MaintenanceRequest
	err := q.Order("submitted_at DESC").Order("id DESC").Find(&reqs).Error
	return reqs, err
}

// ActiveAssignment returns the open assignment of a request. Cancelled and
// completed requests have none.
func (s *Store) ActiveAssignment(ctx context.Context, requestID uint) (*Assignment, error) {
	var a Assignment
	err := s.DB.WithContext(ctx).Select("assignments.*").
		Joins("JOIN maintenance_requests ON maintenance_requests.id = assignments.request_id").
		Where("assignments.request_id = ? AND assignments.completed = ?", requestID, false).
		Where("maintenance_requests.status IN ?", []models.RequestStatus{models.StatusAssigned, models.StatusInProgress}).
		Order("assignments.assigned_at DESC").First(&a).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

var transitions = map[models.RequestStatus][]models.RequestStatus{
	models.StatusPending:    {models.StatusCancelled},
	models.StatusAssigned:   {models.StatusInProgress, models.StatusCompleted, models.StatusCancelled},
	models.StatusInProgress: {models.StatusCompleted, models.StatusCancelled},
}

// CanTransition reports whether a request may move from one status to another.
// Pending to Assigned is owned by the dispatcher and is not allowed here.
func CanTransition(from, to models.RequestStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// UpdateRequestStatus moves a request along its lifecycle. Completing a
// request also completes its open assignment.
func (s *Store) UpdateRequestStatus(ctx context.Context, id uint, to models.RequestStatus) (*MaintenanceRequest, error) {
	var out MaintenanceRequest
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&out, id).Error; err != nil {
			return err
		}
		if !CanTransition(out.Status, to) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, out.Status, to)
		}
		res := tx.Model(&MaintenanceRequest{}).Where("id = ? AND status = ?", id, out.Status).Update("status", to)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: request %d changed concurrently", ErrInvalidTransition, id)
		}
		if to == models.StatusCompleted {
			if err := tx.Model(&Assignment{}).Where("request_id = ? AND completed = ?", id, false).
				Update("completed", true).Error; err != nil {
				return err
			}
		}
		out.Status = to
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return &out, nil
}
