package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dpm2/maintenance-api/pkg/dispatch"
	"github.com/dpm2/maintenance-api/pkg/models"
)

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint is violated
	ErrDuplicate = errors.New("record already exists")
	// ErrInvalidTransition is returned for a request status change that is not allowed
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrInUse is returned when deleting a row that open or historical work still references
	ErrInUse = errors.New("record is still referenced")
)

const lastAssignedKey = "last_assigned"

// Store is the gorm-backed data access layer. It satisfies dispatch.Store.
type Store struct {
	DB *gorm.DB
}

var _ dispatch.Store = (*Store)(nil)

// NewStore wraps db
func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

func coordinates(lat, lng *float64) *models.Coordinates {
	if lat == nil || lng == nil {
		return nil
	}
	return &models.Coordinates{Latitude: *lat, Longitude: *lng}
}

// ToModel converts a technician row into a dispatch candidate
func (t Technician) ToModel() models.Technician {
	return models.Technician{
		ID:              t.ID,
		Name:            t.FirstName + " " + t.LastName,
		Available:       t.Availability,
		CurrentWorkload: t.CurrentWorkload,
		RatingScore:     t.RatingScore,
		Location:        coordinates(t.Latitude, t.Longitude),
	}
}

// ListAvailableTechnicians returns every technician marked available
func (s *Store) ListAvailableTechnicians(ctx context.Context) ([]models.Technician, error) {
	var rows []Technician
	if err := s.DB.WithContext(ctx).Where("availability = ?", true).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list available technicians: %w", err)
	}
	out := make([]models.Technician, len(rows))
	for i, r := range rows {
		out[i] = r.ToModel()
	}
	return out, nil
}

// GetRequest resolves a request together with its property position
func (s *Store) GetRequest(ctx context.Context, id uint) (models.MaintenanceRequest, error) {
	var row MaintenanceRequest
	if err := s.DB.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.MaintenanceRequest{}, dispatch.ErrRequestNotFound
		}
		return models.MaintenanceRequest{}, fmt.Errorf("get request %d: %w", id, err)
	}
	req := models.MaintenanceRequest{
		ID:         row.ID,
		PropertyID: row.PropertyID,
		Urgency:    row.Urgency,
		Status:     row.Status,
	}

	// a request whose property is gone cannot be dispatched
	var prop Property
	if err := s.DB.WithContext(ctx).First(&prop, row.PropertyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.MaintenanceRequest{}, dispatch.ErrRequestNotFound
		}
		return models.MaintenanceRequest{}, fmt.Errorf("get property %d: %w", row.PropertyID, err)
	}
	req.Location = coordinates(prop.Latitude, prop.Longitude)
	return req, nil
}

// GetLastAssigned returns the technician chosen by the most recent assignment
func (s *Store) GetLastAssigned(ctx context.Context) (uint, error) {
	var row DispatchState
	err := s.DB.WithContext(ctx).Where(&DispatchState{Key: lastAssignedKey}).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dispatch.NoTechnician, nil
	}
	if err != nil {
		return dispatch.NoTechnician, fmt.Errorf("get dispatch state: %w", err)
	}
	id, err := strconv.ParseUint(row.Value, 10, 64)
	if err != nil {
		return dispatch.NoTechnician, fmt.Errorf("parse dispatch state %q: %w", row.Value, err)
	}
	return uint(id), nil
}

// SetLastAssigned overwrites the last assigned technician
func (s *Store) SetLastAssigned(ctx context.Context, id uint) error {
	if err := upsertState(s.DB.WithContext(ctx), lastAssignedKey, strconv.FormatUint(uint64(id), 10)); err != nil {
		return fmt.Errorf("set dispatch state: %w", err)
	}
	return nil
}

func upsertState(db *gorm.DB, key, value string) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&DispatchState{Key: key, Value: value}).Error
}

// CommitAssignment applies the assignment atomically. The workload increment
// is conditioned on the snapshot the technician was scored from.
func (s *Store) CommitAssignment(ctx context.Context, req models.MaintenanceRequest, tech models.Technician, d models.AssignmentDecision) (models.AssignmentRecord, error) {
	var rec Assignment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur MaintenanceRequest
		if err := tx.Select("id", "status").First(&cur, req.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dispatch.ErrRequestNotFound
			}
			return err
		}
		switch {
		case cur.Status == models.StatusCancelled:
			return dispatch.ErrRequestNotFound
		case cur.Status != models.StatusPending:
			return dispatch.ErrAlreadyAssigned
		}

		res := tx.Model(&MaintenanceRequest{}).
			Where("id = ? AND status = ?", req.ID, models.StatusPending).
			Update("status", models.StatusAssigned)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return dispatch.ErrAlreadyAssigned
		}

		res = tx.Model(&Technician{}).
			Where("id = ? AND availability = ? AND current_workload = ?", tech.ID, true, tech.CurrentWorkload).
			Update("current_workload", gorm.Expr("current_workload + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return dispatch.ErrStaleCandidate
		}

		rec = Assignment{
			RequestID:    req.ID,
			TechnicianID: tech.ID,
			AssignedAt:   d.Timestamp,
			Score:        d.Score,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		return upsertState(tx, lastAssignedKey, strconv.FormatUint(uint64(tech.ID), 10))
	})
	if err != nil {
		return models.AssignmentRecord{}, err
	}
	return rec.ToModel(), nil
}

// ToModel converts an assignment row
func (a Assignment) ToModel() models.AssignmentRecord {
	return models.AssignmentRecord{
		ID:           a.ID,
		TechnicianID: a.TechnicianID,
		RequestID:    a.RequestID,
		AssignedAt:   a.AssignedAt,
		Completed:    a.Completed,
		Score:        a.Score,
	}
}
