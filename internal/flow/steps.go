package flow

import (
	"github.com/ashureev/teamhub/internal/domain"
)

// InputKind tells the host which widget to show for a step.
type InputKind string

// Input kinds.
const (
	KindText     InputKind = "text"
	KindSelect   InputKind = "select"
	KindDate     InputKind = "date"
	KindTextarea InputKind = "textarea"
	KindConfirm  InputKind = "confirm"
)

// Step is one question of a flow. Steps are immutable once declared.
type Step struct {
	ID        string
	Field     string
	Label     string
	Kind      InputKind
	Options   []domain.Option
	Required  bool
	Validator Validator
	// Prefill names the intent entity that may answer this step up front.
	Prefill string
}

// Definition is the ordered step list of one action. The last step is
// always a confirmation.
type Definition struct {
	Action domain.Action
	Steps  []Step
}

var priorityOptions = []domain.Option{
	{Value: "low", Label: "Basse"},
	{Value: "medium", Label: "Moyenne"},
	{Value: "high", Label: "Haute"},
	{Value: "urgent", Label: "Urgente"},
}

var meetingTypeOptions = []domain.Option{
	{Value: "video", Label: "Visioconférence"},
	{Value: "in_person", Label: "En présentiel"},
	{Value: "phone", Label: "Téléphone"},
}

var absenceTypeOptions = []domain.Option{
	{Value: "vacation", Label: "Congés payés"},
	{Value: "sick", Label: "Maladie"},
	{Value: "remote", Label: "Télétravail"},
	{Value: "training", Label: "Formation"},
	{Value: "rtt", Label: "RTT"},
}

var contractOptions = []domain.Option{
	{Value: "cdi", Label: "CDI"},
	{Value: "cdd", Label: "CDD"},
	{Value: "internship", Label: "Stage"},
	{Value: "apprenticeship", Label: "Alternance"},
	{Value: "freelance", Label: "Freelance"},
}

var memberRoleOptions = []domain.Option{
	{Value: string(domain.RoleCollaborator), Label: "Collaborateur"},
	{Value: string(domain.RoleManager), Label: "Manager"},
	{Value: string(domain.RoleGuest), Label: "Invité"},
}

func confirmStep(label string) Step {
	return Step{ID: "confirm", Field: "confirm", Label: label, Kind: KindConfirm, Required: true}
}

// Definitions is the requires-flow set.
var Definitions = map[domain.Action]Definition{
	domain.ActionCreateTask: {
		Action: domain.ActionCreateTask,
		Steps: []Step{
			{ID: "title", Field: "title", Label: "Quel est le titre de la tâche ?", Kind: KindText, Required: true, Validator: length(2, 120), Prefill: domain.EntityName},
			{ID: "description", Field: "description", Label: "Souhaitez-vous ajouter une description ? (ou « passer »)", Kind: KindTextarea, Validator: length(0, 2000)},
			{ID: "priority", Field: "priority", Label: "Quelle est la priorité ?", Kind: KindSelect, Options: priorityOptions, Required: true, Prefill: domain.EntityPriority},
			{ID: "dueDate", Field: "dueDate", Label: "Pour quand ? (JJ/MM/AAAA, « demain »… ou « passer »)", Kind: KindDate, Validator: notPast, Prefill: domain.EntityDate},
			confirmStep("Je crée cette tâche ?"),
		},
	},
	domain.ActionCreateProject: {
		Action: domain.ActionCreateProject,
		Steps: []Step{
			{ID: "name", Field: "name", Label: "Quel nom voulez-vous donner au projet ?", Kind: KindText, Required: true, Validator: length(2, 80), Prefill: domain.EntityName},
			{ID: "description", Field: "description", Label: "Décrivez le projet en quelques mots. (ou « passer »)", Kind: KindTextarea, Validator: length(0, 2000)},
			{ID: "deadline", Field: "deadline", Label: "Quelle est l'échéance ? (ou « passer »)", Kind: KindDate, Validator: notPast, Prefill: domain.EntityDate},
			confirmStep("Je crée ce projet ?"),
		},
	},
	domain.ActionCreateMeeting: {
		Action: domain.ActionCreateMeeting,
		Steps: []Step{
			{ID: "title", Field: "title", Label: "Quel est l'objet de la réunion ?", Kind: KindText, Required: true, Validator: length(2, 120), Prefill: domain.EntityName},
			{ID: "date", Field: "date", Label: "Quel jour ? (JJ/MM/AAAA ou « demain »)", Kind: KindDate, Required: true, Validator: notPast, Prefill: domain.EntityDate},
			{ID: "time", Field: "time", Label: "À quelle heure ? (ex. 14h30)", Kind: KindText, Required: true, Validator: clockTime, Prefill: domain.EntityTime},
			{ID: "type", Field: "type", Label: "Quel format ?", Kind: KindSelect, Options: meetingTypeOptions, Required: true, Prefill: domain.EntityMeetingType},
			confirmStep("Je planifie cette réunion ?"),
		},
	},
	domain.ActionRequestAbsence: {
		Action: domain.ActionRequestAbsence,
		Steps: []Step{
			{ID: "type", Field: "type", Label: "Quel type d'absence ?", Kind: KindSelect, Options: absenceTypeOptions, Required: true, Prefill: domain.EntityAbsenceType},
			{ID: "startDate", Field: "startDate", Label: "À partir de quand ?", Kind: KindDate, Required: true, Validator: notPast, Prefill: domain.EntityDate},
			{ID: "endDate", Field: "endDate", Label: "Jusqu'à quand (inclus) ?", Kind: KindDate, Required: true, Validator: notBefore("startDate"), Prefill: domain.EntityEndDate},
			{ID: "reason", Field: "reason", Label: "Un commentaire pour votre manager ? (ou « passer »)", Kind: KindTextarea, Validator: length(0, 500)},
			confirmStep("J'envoie cette demande ?"),
		},
	},
	domain.ActionCreateJobOffer: {
		Action: domain.ActionCreateJobOffer,
		Steps: []Step{
			{ID: "title", Field: "title", Label: "Quel est l'intitulé du poste ?", Kind: KindText, Required: true, Validator: length(2, 120), Prefill: domain.EntityName},
			{ID: "department", Field: "department", Label: "Pour quel service ?", Kind: KindText, Required: true, Validator: length(2, 80)},
			{ID: "contract", Field: "contract", Label: "Quel type de contrat ?", Kind: KindSelect, Options: contractOptions, Required: true},
			confirmStep("Je publie cette offre ?"),
		},
	},
	domain.ActionInviteMember: {
		Action: domain.ActionInviteMember,
		Steps: []Step{
			{ID: "email", Field: "email", Label: "Quelle est l'adresse e-mail de la personne à inviter ?", Kind: KindText, Required: true, Validator: email, Prefill: domain.EntityEmail},
			{ID: "role", Field: "role", Label: "Avec quel rôle ?", Kind: KindSelect, Options: memberRoleOptions, Required: true},
			confirmStep("J'envoie l'invitation ?"),
		},
	},
}

// RequiresFlow reports whether action collects its input over several turns.
func RequiresFlow(action domain.Action) bool {
	_, ok := Definitions[action]
	return ok
}
