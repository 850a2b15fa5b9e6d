package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/dpm2/maintenance-api/pkg/models"
)

// ListProperties returns every property ordered by id
func (s *Store) ListProperties(ctx context.Context) ([]Property, error) {
	var props []Property
	err := s.DB.WithContext(ctx).Order("id").Find(&props).Error
	return props, err
}

// CreateProperty inserts a property
func (s *Store) CreateProperty(ctx context.Context, p *Property) error {
	return translate(s.DB.WithContext(ctx).Create(p).Error)
}

// GetProperty returns a property by id
func (s *Store) GetProperty(ctx context.Context, id uint) (*Property, error) {
	var p Property
	if err := s.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// UpdateProperty applies the given column changes
func (s *Store) UpdateProperty(ctx context.Context, id uint, changes map[string]any) (*Property, error) {
	if len(changes) > 0 {
		res := s.DB.WithContext(ctx).Model(&Property{}).Where("id = ?", id).Updates(changes)
		if res.Error != nil {
			return nil, translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return s.GetProperty(ctx, id)
}

// DeleteProperty removes a property together with its requests. A property
// with work still assigned or in progress returns ErrInUse.
func (s *Store) DeleteProperty(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open int64
		err := tx.Model(&MaintenanceRequest{}).
			Where("property_id = ? AND status IN ?", id, []models.RequestStatus{models.StatusAssigned, models.StatusInProgress}).
			Count(&open).Error
		if err != nil {
			return err
		}
		if open > 0 {
			return ErrInUse
		}

		res := tx.Delete(&Property{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
