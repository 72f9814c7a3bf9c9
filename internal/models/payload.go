// internal/models/payload.go
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Payload is the category-specific data carried by a notification. Each
// variant knows only the fields its category's template needs, and exposes
// them as template variables. Payloads marshal to the notification's data
// column as plain JSON objects.
type Payload interface {
	PayloadCategory() Category
	Variables() map[string]string
}

// ExpiryPayload backs membership_expiry notifications.
type ExpiryPayload struct {
	MembershipID string `json:"membershipId"`
	PackageName  string `json:"packageName"`
	DaysLeft     int    `json:"daysLeft"`
	ExpiryDate   string `json:"expiryDate"`
}

func (p ExpiryPayload) PayloadCategory() Category { return CategoryMembershipExpiry }

func (p ExpiryPayload) Variables() map[string]string {
	return map[string]string{
		"membershipId": p.MembershipID,
		"packageName":  p.PackageName,
		"daysLeft":     fmt.Sprintf("%d", p.DaysLeft),
		"expiryDate":   p.ExpiryDate,
	}
}

// AppointmentPayload backs appointment_reminder notifications.
type AppointmentPayload struct {
	AppointmentID string `json:"appointmentId"`
	TrainerName   string `json:"trainerName"`
	Location      string `json:"location"`
	StartsAt      string `json:"startsAt"`
}

func (p AppointmentPayload) PayloadCategory() Category { return CategoryAppointmentReminder }

func (p AppointmentPayload) Variables() map[string]string {
	return map[string]string{
		"appointmentId": p.AppointmentID,
		"trainerName":   p.TrainerName,
		"location":      p.Location,
		"startsAt":      p.StartsAt,
	}
}

// WorkoutPayload backs workout_reminder notifications.
type WorkoutPayload struct {
	WorkoutID    string   `json:"workoutId"`
	MuscleGroups []string `json:"muscleGroups"`
	Location     string   `json:"location"`
	StartsAt     string   `json:"startsAt"`
}

func (p WorkoutPayload) PayloadCategory() Category { return CategoryWorkoutReminder }

func (p WorkoutPayload) Variables() map[string]string {
	return map[string]string{
		"workoutId":    p.WorkoutID,
		"muscleGroups": strings.Join(p.MuscleGroups, ", "),
		"location":     p.Location,
		"startsAt":     p.StartsAt,
	}
}

// PromotionPayload backs promotion notifications.
type PromotionPayload struct {
	PromotionID     string `json:"promotionId"`
	Name            string `json:"name"`
	DiscountPercent int    `json:"discountPercent"`
	EndDate         string `json:"endDate"`
}

func (p PromotionPayload) PayloadCategory() Category { return CategoryPromotion }

func (p PromotionPayload) Variables() map[string]string {
	return map[string]string{
		"promotionId":     p.PromotionID,
		"name":            p.Name,
		"discountPercent": fmt.Sprintf("%d", p.DiscountPercent),
		"endDate":         p.EndDate,
	}
}

// GenericPayload carries free-form values for manual, bulk and system sends,
// and is what ledger reads unmarshal into when the original variant is not
// needed. It marshals flat, like the typed variants, so stored data decodes
// the same way regardless of which variant wrote it.
type GenericPayload struct {
	Category Category
	Values   map[string]string
}

func (p GenericPayload) MarshalJSON() ([]byte, error) {
	if p.Values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.Values)
}

func (p *GenericPayload) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &p.Values)
}

func (p GenericPayload) PayloadCategory() Category {
	if p.Category == "" {
		return CategorySystem
	}
	return p.Category
}

func (p GenericPayload) Variables() map[string]string {
	if p.Values == nil {
		return map[string]string{}
	}
	return p.Values
}
