// Package seed fills an empty database with demo data.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/dpm2/maintenance-api/pkg/auth"
	"github.com/dpm2/maintenance-api/pkg/database"
	"github.com/dpm2/maintenance-api/pkg/models"
)

// ErrNotEmpty is returned when the database already holds properties
var ErrNotEmpty = errors.New("database already contains data")

// Demo passwords, printed by the console tool
const (
	ManagerPassword = "pass123"
	TenantPassword  = "tenantpass"
)

// Summary counts what Run created
type Summary struct {
	Properties  int
	Technicians int
	Tenants     int
	Requests    int
}

var requestTypes = []string{"Plumbing", "Electrical", "HVAC"}

func ptr[T any](v T) *T { return &v }

// Run creates two properties, a manager, four technicians, three tenants and
// five pending requests. rng drives workloads and random picks.
func Run(ctx context.Context, store *database.Store, rng *rand.Rand) (Summary, error) {
	var sum Summary
	existing, err := store.ListProperties(ctx)
	if err != nil {
		return sum, err
	}
	if len(existing) > 0 {
		return sum, ErrNotEmpty
	}

	props := []*database.Property{
		{Address: "Greenview Apartments", Value: 250000, Expenses: 5000, Latitude: ptr(40.7411), Longitude: ptr(-73.9897)},
		{Address: "Maple Residency", Value: 300000, Expenses: 7000, Latitude: ptr(40.7580), Longitude: ptr(-73.9855)},
	}

	managerHash, err := auth.HashPassword(ManagerPassword)
	if err != nil {
		return sum, err
	}
	manager := &database.User{Email: "manager1@example.com", PasswordHash: managerHash, Role: models.RoleManager, FirstName: "Manager"}
	if err := store.CreateUser(ctx, manager); err != nil {
		return sum, err
	}
	for _, p := range props {
		p.ManagerID = &manager.ID
		if err := store.CreateProperty(ctx, p); err != nil {
			return sum, fmt.Errorf("seed property: %w", err)
		}
		sum.Properties++
	}

	for i := 0; i < 4; i++ {
		tech := &database.Technician{
			FirstName:       fmt.Sprintf("Tech%d", i+1),
			LastName:        "Smith",
			Skillset:        "Plumbing, Electrical",
			Location:        "City Center",
			Latitude:        ptr(40.7484 + float64(i)*0.01),
			Longitude:       ptr(-73.9857),
			Availability:    true,
			CurrentWorkload: rng.Intn(3),
		}
		if err := store.CreateTechnician(ctx, tech); err != nil {
			return sum, fmt.Errorf("seed technician: %w", err)
		}
		sum.Technicians++
	}

	tenantHash, err := auth.HashPassword(TenantPassword)
	if err != nil {
		return sum, err
	}
	type placed struct {
		tenantID   uint
		propertyID uint
	}
	var tenants []placed
	for i := 0; i < 3; i++ {
		u := &database.User{
			Email:        fmt.Sprintf("tenant%d@example.com", i+1),
			PasswordHash: tenantHash,
			Role:         models.RoleTenant,
			FirstName:    fmt.Sprintf("Tenant%d", i+1),
		}
		if err := store.CreateUser(ctx, u); err != nil {
			return sum, err
		}
		tenant, err := store.TenantByUser(ctx, u.ID)
		if err != nil {
			return sum, err
		}
		prop := props[rng.Intn(len(props))]
		if err := store.PlaceTenant(ctx, tenant.ID, prop.ID, float64(1000+i*100)); err != nil {
			return sum, err
		}
		tenants = append(tenants, placed{tenant.ID, prop.ID})
		sum.Tenants++
	}

	for i := 0; i < 5; i++ {
		t := tenants[rng.Intn(len(tenants))]
		req := &database.MaintenanceRequest{
			TenantID:    &t.tenantID,
			PropertyID:  t.propertyID,
			Type:        requestTypes[rng.Intn(len(requestTypes))],
			Description: "Something needs fixing.",
			Urgency:     rng.Intn(3) + 1,
		}
		if err := store.CreateRequest(ctx, req); err != nil {
			return sum, fmt.Errorf("seed request: %w", err)
		}
		sum.Requests++
	}
	return sum, nil
}
