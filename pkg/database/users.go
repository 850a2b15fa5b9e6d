package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/dpm2/maintenance-api/pkg/models"
)

// CreateUser inserts a user and the row of its role, as one transaction
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&User{}).Where("email = ?", u.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicate
		}
		if err := tx.Create(u).Error; err != nil {
			return err
		}

		switch u.Role {
		case models.RoleTechnician:
			uid := u.ID
			return tx.Create(&Technician{
				UserID:       &uid,
				FirstName:    u.FirstName,
				LastName:     u.LastName,
				Availability: true,
				RatingScore:  models.DefaultRating,
			}).Error
		case models.RoleTenant:
			return tx.Create(&Tenant{UserID: u.ID, RentStatus: "Unpaid"}).Error
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create user: %w", translate(err))
	}
	return nil
}

// GetUser returns a user by id
func (s *Store) GetUser(ctx context.Context, id uint) (*User, error) {
	var u User
	if err := s.DB.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// GetUserByEmail returns a user by email
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// UpdateUser applies the non-empty fields of changes
func (s *Store) UpdateUser(ctx context.Context, id uint, changes User) (*User, error) {
	if changes.Role != "" && !changes.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q", changes.Role)
	}
	res := s.DB.WithContext(ctx).Model(&User{ID: id}).Updates(User{
		Email:       changes.Email,
		Role:        changes.Role,
		FirstName:   changes.FirstName,
		LastName:    changes.LastName,
		PhoneNumber: changes.PhoneNumber,
	})
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetUser(ctx, id)
}

// SetPasswordHash replaces the stored password hash
func (s *Store) SetPasswordHash(ctx context.Context, id uint, hash string) error {
	res := s.DB.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes a user and its role rows. A technician account with
// assignments returns ErrInUse.
func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var assigned int64
		err := tx.Model(&Assignment{}).
			Joins("JOIN technicians ON technicians.id = assignments.technician_id").
			Where("technicians.user_id = ?", id).
			Count(&assigned).Error
		if err != nil {
			return err
		}
		if assigned > 0 {
			return ErrInUse
		}

		if err := tx.Where("user_id = ?", id).Delete(&Technician{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&Tenant{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// CountUsers returns the number of user accounts
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&User{}).Count(&count).Error
	return count, err
}

// TenantByUser returns the tenant row of a user
func (s *Store) TenantByUser(ctx context.Context, userID uint) (*Tenant, error) {
	var t Tenant
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// TechnicianByUser returns the technician row of a user
func (s *Store) TechnicianByUser(ctx context.Context, userID uint) (*Technician, error) {
	var t Technician
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

// PlaceTenant links a tenant to the property they rent
func (s *Store) PlaceTenant(ctx context.Context, tenantID, propertyID uint, rent float64) error {
	if _, err := s.GetProperty(ctx, propertyID); err != nil {
		return fmt.Errorf("property %d: %w", propertyID, err)
	}
	res := s.DB.WithContext(ctx).Model(&Tenant{}).Where("id = ?", tenantID).
		Updates(map[string]any{"property_id": propertyID, "rent": rent})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
