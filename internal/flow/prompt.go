package flow

import (
	"github.com/ashureev/teamhub/internal/domain"
)

var fieldLabels = map[string]string{
	"title":       "Titre",
	"name":        "Nom",
	"description": "Description",
	"priority":    "Priorité",
	"dueDate":     "Échéance",
	"deadline":    "Échéance",
	"date":        "Date",
	"time":        "Heure",
	"type":        "Type",
	"startDate":   "Début",
	"endDate":     "Fin",
	"reason":      "Commentaire",
	"department":  "Service",
	"contract":    "Contrat",
	"email":       "E-mail",
	"role":        "Rôle",
}

// Prompt builds the question for the current step, with a form or a
// confirmation summary attached.
func Prompt(f *ActiveFlow) domain.ActionResult {
	step := f.Current()
	res := domain.ActionResult{Success: true, Message: step.Label}

	if step.Kind == KindConfirm {
		res.Attachment = domain.ConfirmAttachment{
			Action:       f.Action,
			Summary:      Summary(f),
			ConfirmLabel: "Confirmer",
			CancelLabel:  "Annuler",
		}
		res.FollowUpSuggestions = []domain.Suggestion{
			{ID: "flow-confirm", Label: "Oui", Icon: "check", Query: "oui", Category: domain.CategoryConversation},
			{ID: "flow-cancel", Label: "Annuler", Icon: "x", Query: "annuler", Category: domain.CategoryConversation},
		}
		return res
	}

	res.Attachment = domain.FormAttachment{
		Action:    f.Action,
		Field:     step.Field,
		Label:     step.Label,
		InputKind: string(step.Kind),
		Options:   step.Options,
		Required:  step.Required,
		Step:      f.CurrentStepIndex + 1,
		Total:     len(f.Steps),
	}
	for i, o := range step.Options {
		res.FollowUpSuggestions = append(res.FollowUpSuggestions, domain.Suggestion{
			ID:       "flow-option-" + o.Value,
			Label:    o.Label,
			Query:    o.Label,
			Category: domain.CategoryConversation,
		})
		if i == 4 {
			break
		}
	}
	if !step.Required {
		res.FollowUpSuggestions = append(res.FollowUpSuggestions, domain.Suggestion{
			ID: "flow-skip", Label: "Passer", Icon: "skip-forward", Query: "passer", Category: domain.CategoryConversation,
		})
	}
	return res
}

// Summary lists the collected values in step order, with select values
// shown by label and dates in French.
func Summary(f *ActiveFlow) []domain.Field {
	var fields []domain.Field
	for _, step := range f.Steps {
		value, ok := f.Collected[step.Field]
		if !ok || step.Kind == KindConfirm {
			continue
		}
		fields = append(fields, domain.Field{Label: FieldLabel(step.Field), Value: Display(step, value)})
	}
	return fields
}

// FieldLabel returns the French label of a payload field.
func FieldLabel(field string) string {
	if l, ok := fieldLabels[field]; ok {
		return l
	}
	return field
}

// Display formats a collected value for humans.
func Display(step Step, value string) string {
	switch step.Kind {
	case KindSelect:
		for _, o := range step.Options {
			if o.Value == value {
				return o.Label
			}
		}
	case KindDate:
		return FrenchDate(value)
	}
	return value
}

// OptionLabel looks up the label of a select value in action's definition.
func OptionLabel(action domain.Action, field, value string) string {
	def, ok := Definitions[action]
	if !ok {
		return value
	}
	for _, step := range def.Steps {
		if step.Field == field {
			return Display(step, value)
		}
	}
	return value
}
