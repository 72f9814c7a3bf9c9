// internal/templates/registry.go
package templates

import (
	"strings"

	apperrors "gym-notification-engine/internal/common/errors"
	"gym-notification-engine/internal/models"
)

// Action is an optional button rendered on the push notification.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// Template is the stored title/body pair for one category. Placeholders use
// the {{key}} form.
type Template struct {
	Title   string
	Body    string
	Actions []Action
}

// Rendered is the substituted output handed to the dispatcher.
type Rendered struct {
	Title   string
	Body    string
	Actions []Action
}

// Registry maps notification categories to their templates. The mapping is
// static, read-only at runtime.
type Registry struct {
	templates map[models.Category]Template
}

// NewRegistry returns a registry with the built-in template set.
func NewRegistry() *Registry {
	return &Registry{templates: defaultTemplates()}
}

// Render substitutes every {{key}} placeholder in the category's template
// with the matching value from vars. Placeholders with no matching variable
// are left verbatim. Pure function, no side effects.
func (r *Registry) Render(category models.Category, vars map[string]string) (Rendered, error) {
	tmpl, ok := r.templates[category]
	if !ok {
		return Rendered{}, apperrors.NewTemplateNotFoundError(string(category))
	}
	return Rendered{
		Title:   substitute(tmpl.Title, vars),
		Body:    substitute(tmpl.Body, vars),
		Actions: tmpl.Actions,
	}, nil
}

// Actions returns the category's action buttons, or nil for unknown
// categories and categories without actions.
func (r *Registry) Actions(category models.Category) []Action {
	return r.templates[category].Actions
}

func substitute(tmpl string, vars map[string]string) string {
	result := tmpl
	for k, v := range vars {
		result = strings.ReplaceAll(result, "{{"+k+"}}", v)
	}
	return result
}

func defaultTemplates() map[models.Category]Template {
	return map[models.Category]Template{
		models.CategoryMembershipExpiry: {
			Title: "Membership expiring soon",
			Body:  "Your {{packageName}} membership expires in {{daysLeft}} day(s), on {{expiryDate}}. Renew now to keep training.",
			Actions: []Action{
				{Action: "renew", Title: "Renew"},
				{Action: "view", Title: "View membership"},
			},
		},
		models.CategoryAppointmentReminder: {
			Title: "Upcoming appointment",
			Body:  "Your session with {{trainerName}} starts at {{startsAt}} ({{location}}).",
			Actions: []Action{
				{Action: "view", Title: "View appointment"},
			},
		},
		models.CategoryWorkoutReminder: {
			Title: "Workout coming up",
			Body:  "Your {{muscleGroups}} workout starts at {{startsAt}} ({{location}}). Warm up and bring water!",
		},
		models.CategoryPromotion: {
			Title: "New promotion: {{name}}",
			Body:  "{{name}} is live — {{discountPercent}}% off until {{endDate}}. Don't miss out!",
			Actions: []Action{
				{Action: "view", Title: "See offer"},
			},
		},
		models.CategorySystem: {
			Title: "{{title}}",
			Body:  "{{message}}",
		},
		models.CategoryPayment: {
			Title: "Payment update",
			Body:  "{{message}}",
		},
	}
}
