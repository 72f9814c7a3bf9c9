// internal/models/business.go
package models

import "time"

// Read models for the business collaborators the trigger evaluators query.
// These stores are owned by the wider gym backend; the engine only reads the
// fields its time conditions and templates need.

type Membership struct {
	ID          string
	MemberID    string
	PackageName string
	Status      string
	EndDate     time.Time
}

type Appointment struct {
	ID          string
	MemberID    string
	TrainerName string
	Location    string
	StartsAt    time.Time
	Status      string
}

type WorkoutSession struct {
	ID           string
	MemberID     string
	MuscleGroups []string
	Location     string
	StartsAt     time.Time
	Status       string
}

type Promotion struct {
	ID              string
	Name            string
	DiscountPercent int
	StartDate       time.Time
	EndDate         time.Time
	Status          string
}

type Member struct {
	ID         string
	Status     string
	IsVerified bool
}
