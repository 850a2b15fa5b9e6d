package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dpm2/maintenance-api/pkg/models"
)

// Job is a request assigned to a technician, as listed on the technician's board
type Job struct {
	AssignmentID    uint                 `json:"assignment_id"`
	RequestID       uint                 `json:"request_id"`
	Type            string               `json:"type"`
	Description     string               `json:"description"`
	Status          models.RequestStatus `json:"status"`
	Urgency         int                  `json:"urgency"`
	SubmittedAt     time.Time            `json:"submitted_at"`
	AssignedAt      time.Time            `json:"assigned_at"`
	Completed       bool                 `json:"completed"`
	PropertyID      uint                 `json:"property_id"`
	PropertyAddress string               `json:"property_address"`
}

// CreateTechnician inserts a technician not linked to a user account
func (s *Store) CreateTechnician(ctx context.Context, t *Technician) error {
	if t.RatingScore == 0 {
		t.RatingScore = models.DefaultRating
	}
	return translate(s.DB.WithContext(ctx).Create(t).Error)
}

// ListTechnicians returns technicians, optionally only the available ones
func (s *Store) ListTechnicians(ctx context.Context, availableOnly bool) ([]Technician, error) {
	q := s.DB.WithContext(ctx).Order("id")
	if availableOnly {
		q = q.Where("availability = ?", true)
	}
	var techs []Technician
	err := q.Find(&techs).Error
	return techs, err
}

// GetTechnician returns a technician by id
func (s *Store) GetTechnician(ctx context.Context, id uint) (*Technician, error) {
	var t Technician
	if err := s.DB.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// SetAvailability marks a technician available or not
func (s *Store) SetAvailability(ctx context.Context, id uint, available bool) error {
	res := s.DB.WithContext(ctx).Model(&Technician{}).Where("id = ?", id).Update("availability", available)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TechnicianJobs lists the requests assigned to a technician, newest first.
// An empty status returns every job.
func (s *Store) TechnicianJobs(ctx context.Context, techID uint, status models.RequestStatus) ([]Job, error) {
	q := s.DB.WithContext(ctx).
		Table("assignments AS a").
		Select(`a.id AS assignment_id, r.id AS request_id, r.type, r.description, r.status, r.urgency,
			r.submitted_at, a.assigned_at, a.completed, p.id AS property_id, p.address AS property_address`).
		Joins("JOIN maintenance_requests r ON r.id = a.request_id").
		Joins("LEFT JOIN properties p ON p.id = r.property_id").
		Where("a.technician_id = ?", techID)
	if status != "" {
		q = q.Where("r.status = ?", status)
	}
	var jobs []Job
	if err := q.Order("r.submitted_at DESC").Scan(&jobs).Error; err != nil {
		return nil, fmt.Errorf("technician jobs: %w", err)
	}
	return jobs, nil
}

// ErrScheduleOverlap is returned when a slot overlaps an existing one
var ErrScheduleOverlap = errors.New("schedule slot overlaps an existing slot")

// Overlap reports whether [aStart,aEnd) and [bStart,bEnd) intersect
func Overlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// AddSchedule records an availability slot. Slots of one technician never overlap.
func (s *Store) AddSchedule(ctx context.Context, slot *TechnicianSchedule) error {
	if !slot.EndTime.After(slot.StartTime) {
		return fmt.Errorf("end time must be after start time")
	}
	return translate(s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tech Technician
		if err := tx.Select("id").First(&tech, slot.TechnicianID).Error; err != nil {
			return err
		}
		var existing []TechnicianSchedule
		if err := tx.Where("technician_id = ?", slot.TechnicianID).Find(&existing).Error; err != nil {
			return err
		}
		for _, e := range existing {
			if Overlap(e.StartTime, e.EndTime, slot.StartTime, slot.EndTime) {
				return fmt.Errorf("%w: slot %d", ErrScheduleOverlap, e.ID)
			}
		}
		return tx.Create(slot).Error
	}))
}

// ListSchedule returns a technician's slots in start order
func (s *Store) ListSchedule(ctx context.Context, techID uint) ([]TechnicianSchedule, error) {
	var slots []TechnicianSchedule
	err := s.DB.WithContext(ctx).Where("technician_id = ?", techID).Order("start_time ASC").Find(&slots).Error
	return slots, err
}

// RateTechnician records or replaces a tenant's rating and refreshes the
// technician's rating score with the mean of all ratings.
func (s *Store) RateTechnician(ctx context.Context, r *TechnicianRating) (float64, error) {
	if r.Rating < 1 || r.Rating > models.MaxRating {
		return 0, fmt.Errorf("rating must be within [1,%g]", models.MaxRating)
	}
	var avg float64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tech Technician
		if err := tx.Select("id").First(&tech, r.TechnicianID).Error; err != nil {
			return err
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "technician_id"}, {Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "feedback", "updated_at"}),
		}).Create(r).Error
		if err != nil {
			return err
		}
		var mean struct{ Avg float64 }
		if err := tx.Model(&TechnicianRating{}).Select("AVG(rating) AS avg").
			Where("technician_id = ?", r.TechnicianID).Scan(&mean).Error; err != nil {
			return err
		}
		avg = mean.Avg
		return tx.Model(&Technician{}).Where("id = ?", r.TechnicianID).Update("rating_score", avg).Error
	})
	if err != nil {
		return 0, translate(err)
	}
	return avg, nil
}
