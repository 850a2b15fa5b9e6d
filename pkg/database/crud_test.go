package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpm2/maintenance-api/pkg/dispatch"
	"github.com/dpm2/maintenance-api/pkg/models"
)

func TestCreateUser_CreatesRoleRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tech := &User{Email: "tech@example.com", PasswordHash: "x", Role: models.RoleTechnician, FirstName: "Ann", LastName: "Lee"}
	require.NoError(t, s.CreateUser(ctx, tech))
	row, err := s.TechnicianByUser(ctx, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", row.FirstName)
	assert.True(t, row.Availability)
	assert.Equal(t, models.DefaultRating, row.RatingScore)

	tenant := &User{Email: "tenant@example.com", PasswordHash: "x", Role: models.RoleTenant}
	require.NoError(t, s.CreateUser(ctx, tenant))
	_, err = s.TenantByUser(ctx, tenant.ID)
	require.NoError(t, err)

	dup := &User{Email: "tech@example.com", PasswordHash: "y", Role: models.RoleManager}
	assert.ErrorIs(t, s.CreateUser(ctx, dup), ErrDuplicate)
}

func TestUpdateAndDeleteUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &User{Email: "t@example.com", PasswordHash: "x", Role: models.RoleTechnician}
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.UpdateUser(ctx, u.ID, User{PhoneNumber: "876-555-0100"})
	require.NoError(t, err)
	assert.Equal(t, "876-555-0100", got.PhoneNumber)
	assert.Equal(t, "t@example.com", got.Email)

	_, err = s.UpdateUser(ctx, 999, User{FirstName: "Nobody"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteUser(ctx, u.ID))
	_, err = s.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.TechnicianByUser(ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteUser(ctx, u.ID), ErrNotFound)
}

func seedTenant(t *testing.T, s *Store, email string) *Tenant {
	t.Helper()
	ctx := context.Background()
	u := &User{Email: email, PasswordHash: "x", Role: models.RoleTenant}
	require.NoError(t, s.CreateUser(ctx, u))
	tenant, err := s.TenantByUser(ctx, u.ID)
	require.NoError(t, err)
	return tenant
}

func TestRateTechnician_UpdatesMean(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tech := seedTechnician(t, s, models.DefaultRating, true)
	first := seedTenant(t, s, "first@example.com")
	second := seedTenant(t, s, "second@example.com")

	avg, err := s.RateTechnician(ctx, &TechnicianRating{TechnicianID: tech.ID, TenantID: first.ID, Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, 5.0, avg)

	avg, err = s.RateTechnician(ctx, &TechnicianRating{TechnicianID: tech.ID, TenantID: second.ID, Rating: 3})
	require.NoError(t, err)
	assert.Equal(t, 4.0, avg)

	// same tenant rates again and replaces the earlier rating
	avg, err = s.RateTechnician(ctx, &TechnicianRating{TechnicianID: tech.ID, TenantID: second.ID, Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, 4.5, avg)

	got, err := s.GetTechnician(ctx, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.5, got.RatingScore)

	_, err = s.RateTechnician(ctx, &TechnicianRating{TechnicianID: tech.ID, TenantID: first.ID, Rating: 9})
	assert.Error(t, err)
	_, err = s.RateTechnician(ctx, &TechnicianRating{TechnicianID: 999, TenantID: first.ID, Rating: 4})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUser_TechnicianWithAssignments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := &User{Email: "tech@example.com", PasswordHash: "x", Role: models.RoleTechnician}
	require.NoError(t, s.CreateUser(ctx, u))
	tech, err := s.TechnicianByUser(ctx, u.ID)
	require.NoError(t, err)

	row := seedRequest(t, s, 2)
	req, err := s.GetRequest(ctx, row.ID)
	require.NoError(t, err)
	_, err = s.CommitAssignment(ctx, req, tech.ToModel(), models.AssignmentDecision{Timestamp: time.Now()})
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteUser(ctx, u.ID), ErrInUse)
	_, err = s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	_, err = s.GetTechnician(ctx, tech.ID)
	require.NoError(t, err)
	a, err := s.ActiveAssignment(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, tech.ID, a.TechnicianID)

	// assignments restrict the technician row itself
	assert.Error(t, s.DB.Delete(&Technician{}, tech.ID).Error)
}

func TestDeleteProperty_RemovesItsRequests(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	row := seedRequest(t, s, 2)
	tech := seedTechnician(t, s, 4, true)
	tenant := seedTenant(t, s, "tenant@example.com")
	require.NoError(t, s.PlaceTenant(ctx, tenant.ID, row.PropertyID, 900))

	req, err := s.GetRequest(ctx, row.ID)
	require.NoError(t, err)
	_, err = s.CommitAssignment(ctx, req, tech.ToModel(), models.AssignmentDecision{Timestamp: time.Now()})
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteProperty(ctx, row.PropertyID), ErrInUse)

	_, err = s.UpdateRequestStatus(ctx, row.ID, models.StatusCompleted)
	require.NoError(t, err)
	require.NoError(t, s.DeleteProperty(ctx, row.PropertyID))

	_, err = s.FindRequest(ctx, row.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	var left int64
	require.NoError(t, s.DB.Model(&Assignment{}).Where("request_id = ?", row.ID).Count(&left).Error)
	assert.Zero(t, left)

	got, err := s.TenantByUser(ctx, tenant.UserID)
	require.NoError(t, err)
	assert.Nil(t, got.PropertyID)

	d := dispatch.NewDispatcher(s, dispatch.Options{Scorer: dispatch.NewScorer(3, dispatch.FixedDistance(0))})
	_, err = d.DispatchTechnician(ctx, row.ID)
	assert.ErrorIs(t, err, dispatch.ErrRequestNotFound)
	assert.ErrorIs(t, s.DeleteProperty(ctx, row.PropertyID), ErrNotFound)
}

func TestGetRequest_MissingProperty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	row := seedRequest(t, s, 2)
	seedTechnician(t, s, 4, true)

	// rows written while foreign keys were off
	require.NoError(t, s.DB.Exec("PRAGMA foreign_keys = OFF").Error)
	require.NoError(t, s.DB.Exec("DELETE FROM properties WHERE id = ?", row.PropertyID).Error)
	require.NoError(t, s.DB.Exec("PRAGMA foreign_keys = ON").Error)

	_, err := s.GetRequest(ctx, row.ID)
	assert.ErrorIs(t, err, dispatch.ErrRequestNotFound)
}

func TestActiveAssignment_ClosedRequests(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	row := seedRequest(t, s, 2)
	tech := seedTechnician(t, s, 4, true)

	req, err := s.GetRequest(ctx, row.ID)
	require.NoError(t, err)
	_, err = s.CommitAssignment(ctx, req, tech.ToModel(), models.AssignmentDecision{Timestamp: time.Now()})
	require.NoError(t, err)
	_, err = s.ActiveAssignment(ctx, row.ID)
	require.NoError(t, err)

	_, err = s.UpdateRequestStatus(ctx, row.ID, models.StatusCancelled)
	require.NoError(t, err)
	_, err = s.ActiveAssignment(ctx, row.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	jobs, err := s.TechnicianJobs(ctx, tech.ID, models.StatusAssigned)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestUpdateRequestStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	row := seedRequest(t, s, 2)
	tech := seedTechnician(t, s, 4, true)

	_, err := s.UpdateRequestStatus(ctx, row.ID, models.StatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	req, err := s.GetRequest(ctx, row.ID)
	require.NoError(t, err)
	_, err = s.CommitAssignment(ctx, req, tech.ToModel(), models.AssignmentDecision{Timestamp: time.Now()})
	require.NoError(t, err)

	got, err := s.UpdateRequestStatus(ctx, row.ID, models.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)

	_, err = s.ActiveAssignment(ctx, row.ID)
	require.NoError(t, err)

	_, err = s.UpdateRequestStatus(ctx, row.ID, models.StatusCompleted)
	require.NoError(t, err)
	_, err = s.ActiveAssignment(ctx, row.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	jobs, err := s.TechnicianJobs(ctx, tech.ID, "")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.True(t, jobs[0].Completed)
	assert.Equal(t, "12 Hope Rd", jobs[0].PropertyAddress)

	jobs, err = s.TechnicianJobs(ctx, tech.ID, models.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	_, err = s.UpdateRequestStatus(ctx, 999, models.StatusCancelled)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRequest_UnknownProperty(t *testing.T) {
	s := newTestStore(t)
	err := s.CreateRequest(context.Background(), &MaintenanceRequest{PropertyID: 42, Urgency: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSchedule(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tech := seedTechnician(t, s, 4, true)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.AddSchedule(ctx, &TechnicianSchedule{TechnicianID: tech.ID, StartTime: start.Add(24 * time.Hour), EndTime: start.Add(26 * time.Hour)}))
	require.NoError(t, s.AddSchedule(ctx, &TechnicianSchedule{TechnicianID: tech.ID, StartTime: start, EndTime: start.Add(time.Hour)}))
	assert.Error(t, s.AddSchedule(ctx, &TechnicianSchedule{TechnicianID: tech.ID, StartTime: start, EndTime: start}))
	err := s.AddSchedule(ctx, &TechnicianSchedule{TechnicianID: tech.ID, StartTime: start.Add(30 * time.Minute), EndTime: start.Add(2 * time.Hour)})
	assert.ErrorIs(t, err, ErrScheduleOverlap)
	assert.ErrorIs(t, s.AddSchedule(ctx, &TechnicianSchedule{TechnicianID: 999, StartTime: start, EndTime: start.Add(time.Hour)}), ErrNotFound)

	slots, err := s.ListSchedule(ctx, tech.ID)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.True(t, slots[0].StartTime.Equal(start))
	assert.Equal(t, "Available", slots[0].Status)
}

func TestAPIKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	k, err := s.TouchAPIKey(ctx, "portal.abcdef0123456789", "portal")
	require.NoError(t, err)
	require.NotNil(t, k.LastUsed)
	assert.Equal(t, "por...6789", k.KeyPreview)

	again, err := s.TouchAPIKey(ctx, "portal.abcdef0123456789", "portal")
	require.NoError(t, err)
	assert.Equal(t, k.ID, again.ID)

	keys, err := s.ListAPIKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	require.NoError(t, s.RecordUsage(ctx, k.ID, true))
	require.NoError(t, s.RecordUsage(ctx, k.ID, false))
	usage, err := s.Usage(ctx, k.ID)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, 2, usage[0].RequestCount)
	assert.Equal(t, 1, usage[0].Dispatches)

	require.NoError(t, s.RevokeAPIKey(ctx, k.ID))
	assert.ErrorIs(t, s.RevokeAPIKey(ctx, 999), ErrNotFound)
	_, err = s.TouchAPIKey(ctx, "portal.abcdef0123456789", "portal")
	assert.ErrorIs(t, err, ErrRevoked)
}
