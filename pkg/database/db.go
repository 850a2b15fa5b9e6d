package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dpm2/maintenance-api/pkg/models"
)

// User represents the users table
type User struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Email        string      `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string      `gorm:"not null" json:"-"`
	Role         models.Role `gorm:"not null;index" json:"role"`
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	PhoneNumber  string      `json:"phone_number"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Property represents the properties table
type Property struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	Address   string   `gorm:"not null" json:"address"`
	Value     float64  `json:"value"`
	Expenses  float64  `json:"expenses"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	ManagerID *uint    `gorm:"index" json:"manager_id"`
	Manager   *User    `gorm:"foreignKey:ManagerID;constraint:OnDelete:SET NULL" json:"-"`
}

// Tenant represents the tenants table
type Tenant struct {
	ID               uint    `gorm:"primaryKey" json:"id"`
	UserID           uint    `gorm:"uniqueIndex;not null" json:"user_id"`
	PropertyID       *uint   `gorm:"index" json:"property_id"`
	Rent             float64 `json:"rent"`
	RentStatus       string  `gorm:"default:Unpaid" json:"rent_status"`
	MoveOutRequested bool    `json:"move_out_requested"`

	User     *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Property *Property `gorm:"constraint:OnDelete:SET NULL" json:"-"`
}

// Technician represents the technicians table
type Technician struct {
	ID              uint     `gorm:"primaryKey" json:"id"`
	UserID          *uint    `gorm:"uniqueIndex" json:"user_id"`
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	Skillset        string   `json:"skillset"`
	Location        string   `json:"location"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	Availability    bool     `gorm:"not null;index" json:"availability"`
	CurrentWorkload int      `gorm:"not null;default:0" json:"current_workload"`
	RatingScore     float64  `gorm:"not null;default:3" json:"rating_score"`
	User            *User    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TechnicianSchedule represents the technician_schedules table
type TechnicianSchedule struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TechnicianID uint      `gorm:"index;not null" json:"technician_id"`
	StartTime    time.Time `gorm:"not null" json:"start_time"`
	EndTime      time.Time `gorm:"not null" json:"end_time"`
	Status       string    `gorm:"default:Available" json:"status"`

	Technician *Technician `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// MaintenanceRequest represents the maintenance_requests table
type MaintenanceRequest struct {
	ID          uint                 `gorm:"primaryKey" json:"id"`
	TenantID    *uint                `gorm:"index" json:"tenant_id"`
	PropertyID  uint                 `gorm:"index;not null" json:"property_id"`
	Type        string               `json:"type"`
	Description string               `json:"description"`
	Urgency     int                  `gorm:"not null" json:"urgency"`
	Status      models.RequestStatus `gorm:"not null;default:Pending;index" json:"status"`
	SubmittedAt time.Time            `gorm:"autoCreateTime" json:"submitted_at"`

	Tenant   *Tenant   `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Property *Property `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Assignment represents the assignments table
type Assignment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	RequestID    uint      `gorm:"index;not null" json:"request_id"`
	TechnicianID uint      `gorm:"index;not null" json:"technician_id"`
	AssignedAt   time.Time `gorm:"not null" json:"assigned_at"`
	Completed    bool      `gorm:"not null;default:false" json:"completed"`
	Score        float64   `json:"score"`

	// a technician with assignments cannot be deleted
	Request    *MaintenanceRequest `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Technician *Technician         `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
}

// TechnicianRating represents the technician_ratings table
type TechnicianRating struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TechnicianID uint      `gorm:"uniqueIndex:idx_rating_tech_tenant;not null" json:"technician_id"`
	TenantID     uint      `gorm:"uniqueIndex:idx_rating_tech_tenant;not null" json:"tenant_id"`
	Rating       float64   `gorm:"not null" json:"rating"`
	Feedback     string    `json:"feedback"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Technician *Technician `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Tenant     *Tenant     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// DispatchState is a key/value row for process-wide dispatch state
type DispatchState struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Key   string `gorm:"uniqueIndex;size:50;not null" json:"key"`
	Value string `gorm:"size:100;not null" json:"value"`
}

// APIKey represents the api_keys table
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"-"`
	Name       string     `gorm:"not null" json:"name"`
	KeyPreview string     `json:"key_preview"`
	Revoked    bool       `gorm:"not null;default:false" json:"revoked"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// APIUsage counts integration calls per key and day
type APIUsage struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	KeyID        uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date         string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount int    `gorm:"default:0" json:"request_count"`
	Dispatches   int    `gorm:"default:0" json:"dispatches"`

	APIKey *APIKey `gorm:"foreignKey:KeyID;constraint:OnDelete:CASCADE" json:"-"`
}

// Options select the backing database
type Options struct {
	// DSN is a postgres connection string. Empty selects SQLite at Path.
	DSN  string
	Path string
	// Verbose enables gorm's SQL logging
	Verbose bool
}

// Open connects to the database and migrates the schema
func Open(opts Options) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true}
	if opts.Verbose {
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var (
		db  *gorm.DB
		err error
	)
	if opts.DSN != "" {
		gcfg.PrepareStmt = false
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  opts.DSN,
			PreferSimpleProtocol: true,
		}), gcfg)
	} else {
		path := opts.Path
		if path == "" {
			path = "maintenance.db"
		}
		db, err = gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_foreign_keys=on"), gcfg)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if opts.DSN == "" {
		// SQLite allows one writer; a single connection keeps transactions serialized.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sql handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&Property{},
		&Tenant{},
		&Technician{},
		&TechnicianSchedule{},
		&MaintenanceRequest{},
		&Assignment{},
		&TechnicianRating{},
		&DispatchState{},
		&APIKey{},
		&APIUsage{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
