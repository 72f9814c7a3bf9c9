// internal/store/business.go
package store

import (
	"context"
	"fmt"
	"time"

	"gym-notification-engine/internal/common/database"
	"gym-notification-engine/internal/models"

	"github.com/lib/pq"
)

// BusinessStore gives the trigger evaluators read access to the business
// collaborators (memberships, appointments, workout schedules, promotions,
// members). The tables are owned by the wider gym backend; the engine only
// queries the fields its time conditions and templates need.
type BusinessStore struct {
	db *database.PostgresClient
}

func NewBusinessStore(db *database.PostgresClient) *BusinessStore {
	return &BusinessStore{db: db}
}

// ActiveMembershipsEndingBetween returns active memberships whose end date
// falls within [from, to).
func (s *BusinessStore) ActiveMembershipsEndingBetween(ctx context.Context, from, to time.Time) ([]models.Membership, error) {
	query := `SELECT m.id, m.member_id, p.name, m.status, m.end_date
              FROM memberships m
              JOIN packages p ON p.id = m.package_id
              WHERE m.status = 'active' AND m.end_date >= $1 AND m.end_date < $2`
	rows, err := s.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying expiring memberships: %w", err)
	}
	defer rows.Close()

	var out []models.Membership
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.ID, &m.MemberID, &m.PackageName, &m.Status, &m.EndDate); err != nil {
			return nil, fmt.Errorf("scanning membership: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ConfirmedAppointmentsBetween returns confirmed appointments starting
// within [from, to).
func (s *BusinessStore) ConfirmedAppointmentsBetween(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	query := `SELECT id, member_id, trainer_name, location,
                (appointment_date + start_time) AS starts_at, status
              FROM appointments
              WHERE status = 'confirmed'
                AND (appointment_date + start_time) >= $1
                AND (appointment_date + start_time) < $2`
	rows, err := s.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying upcoming appointments: %w", err)
	}
	defer rows.Close()

	var out []models.Appointment
	for rows.Next() {
		var a models.Appointment
		if err := rows.Scan(&a.ID, &a.MemberID, &a.TrainerName, &a.Location, &a.StartsAt, &a.Status); err != nil {
			return nil, fmt.Errorf("scanning appointment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ScheduledWorkoutsBetween returns scheduled workout sessions starting
// within [from, to).
func (s *BusinessStore) ScheduledWorkoutsBetween(ctx context.Context, from, to time.Time) ([]models.WorkoutSession, error) {
	query := `SELECT id, member_id, muscle_groups, location, time_start, status
              FROM workout_schedules
              WHERE status = 'scheduled' AND time_start >= $1 AND time_start < $2`
	rows, err := s.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying upcoming workouts: %w", err)
	}
	defer rows.Close()

	var out []models.WorkoutSession
	for rows.Next() {
		var w models.WorkoutSession
		if err := rows.Scan(&w.ID, &w.MemberID, pq.Array(&w.MuscleGroups), &w.Location, &w.StartsAt, &w.Status); err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ActivePromotionsStartingBetween returns active promotions whose start date
// falls within [from, to).
func (s *BusinessStore) ActivePromotionsStartingBetween(ctx context.Context, from, to time.Time) ([]models.Promotion, error) {
	query := `SELECT id, name, discount_percent, start_date, end_date, status
              FROM promotions
              WHERE status = 'active' AND start_date >= $1 AND start_date < $2`
	rows, err := s.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("querying starting promotions: %w", err)
	}
	defer rows.Close()

	var out []models.Promotion
	for rows.Next() {
		var p models.Promotion
		if err := rows.Scan(&p.ID, &p.Name, &p.DiscountPercent, &p.StartDate, &p.EndDate, &p.Status); err != nil {
			return nil, fmt.Errorf("scanning promotion: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ActiveVerifiedMemberIDs returns the broadcast-eligible recipient set:
// active members with a verified account.
func (s *BusinessStore) ActiveVerifiedMemberIDs(ctx context.Context) ([]string, error) {
	query := `SELECT id FROM members WHERE status = 'active' AND is_verified = TRUE`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying verified members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning member id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
