package intent

import "github.com/ashureev/teamhub/internal/domain"

// Keyword maps a phrase to the intent it signals. A phrase matches when the
// normalized input contains it as a substring.
type Keyword struct {
	Phrase   string
	Category domain.Category
	Action   domain.Action
	Weight   float64
}

func kw(phrase string, category domain.Category, action domain.Action, weight float64) Keyword {
	return Keyword{Phrase: phrase, Category: category, Action: action, Weight: weight}
}

// DefaultKeywords is the phrase table. Extend it here rather than branching in code.
var DefaultKeywords = []Keyword{
	// greeting
	kw("bonjour", domain.CategoryGreeting, domain.ActionGreet, 0.95),
	kw("bonsoir", domain.CategoryGreeting, domain.ActionGreet, 0.95),
	kw("salut", domain.CategoryGreeting, domain.ActionGreet, 0.9),
	kw("coucou", domain.CategoryGreeting, domain.ActionGreet, 0.9),
	kw("hello", domain.CategoryGreeting, domain.ActionGreet, 0.9),
	kw("merci", domain.CategoryGreeting, domain.ActionThanks, 0.9),
	kw("au revoir", domain.CategoryGreeting, domain.ActionGoodbye, 0.95),
	kw("a bientot", domain.CategoryGreeting, domain.ActionGoodbye, 0.85),
	kw("bonne journee", domain.CategoryGreeting, domain.ActionGoodbye, 0.8),

	// help
	kw("aide", domain.CategoryHelp, domain.ActionHelp, 0.85),
	kw("help", domain.CategoryHelp, domain.ActionHelp, 0.85),
	kw("comment ca marche", domain.CategoryHelp, domain.ActionHelp, 0.8),
	kw("que peux tu faire", domain.CategoryHelp, domain.ActionCapabilities, 0.95),
	kw("que sais tu faire", domain.CategoryHelp, domain.ActionCapabilities, 0.95),
	kw("fonctionnalites", domain.CategoryHelp, domain.ActionCapabilities, 0.8),

	// task
	kw("tache", domain.CategoryTask, domain.ActionListTasks, 0.6),
	kw("todo", domain.CategoryTask, domain.ActionListTasks, 0.6),
	kw("mes taches", domain.CategoryTask, domain.ActionListTasks, 0.8),
	kw("taches en retard", domain.CategoryTask, domain.ActionListTasks, 0.85),
	kw("nouvelle tache", domain.CategoryTask, domain.ActionCreateTask, 0.8),
	kw("creer une tache", domain.CategoryTask, domain.ActionCreateTask, 0.85),
	kw("ajouter une tache", domain.CategoryTask, domain.ActionCreateTask, 0.85),
	kw("terminer la tache", domain.CategoryTask, domain.ActionCompleteTask, 0.85),
	kw("supprimer la tache", domain.CategoryTask, domain.ActionDeleteTask, 0.85),
	kw("assigner la tache", domain.CategoryTask, domain.ActionAssignTask, 0.85),

	// project
	kw("projet", domain.CategoryProject, domain.ActionListProjects, 0.6),
	kw("mes projets", domain.CategoryProject, domain.ActionListProjects, 0.8),
	kw("nouveau projet", domain.CategoryProject, domain.ActionCreateProject, 0.8),
	kw("creer un projet", domain.CategoryProject, domain.ActionCreateProject, 0.85),

	// meeting
	kw("reunion", domain.CategoryMeeting, domain.ActionListMeetings, 0.6),
	kw("rendez vous", domain.CategoryMeeting, domain.ActionListMeetings, 0.6),
	kw("agenda", domain.CategoryMeeting, domain.ActionListMeetings, 0.65),
	kw("calendrier", domain.CategoryMeeting, domain.ActionListMeetings, 0.6),
	kw("mes reunions", domain.CategoryMeeting, domain.ActionListMeetings, 0.8),
	kw("nouvelle reunion", domain.CategoryMeeting, domain.ActionCreateMeeting, 0.8),
	kw("organiser une reunion", domain.CategoryMeeting, domain.ActionCreateMeeting, 0.85),
	kw("planifier une reunion", domain.CategoryMeeting, domain.ActionCreateMeeting, 0.9),

	// absence
	kw("absence", domain.CategoryAbsence, domain.ActionListAbsences, 0.6),
	kw("conge", domain.CategoryAbsence, domain.ActionRequestAbsence, 0.65),
	kw("vacances", domain.CategoryAbsence, domain.ActionRequestAbsence, 0.6),
	kw("mes absences", domain.CategoryAbsence, domain.ActionListAbsences, 0.8),
	kw("demande d absence", domain.CategoryAbsence, domain.ActionRequestAbsence, 0.85),
	kw("demander un conge", domain.CategoryAbsence, domain.ActionRequestAbsence, 0.9),
	kw("poser un conge", domain.CategoryAbsence, domain.ActionRequestAbsence, 0.9),

	// recruitment
	kw("recrutement", domain.CategoryRecruitment, domain.ActionListCandidates, 0.65),
	kw("candidat", domain.CategoryRecruitment, domain.ActionListCandidates, 0.7),
	kw("offre d emploi", domain.CategoryRecruitment, domain.ActionCreateJobOffer, 0.8),
	kw("nouvelle offre", domain.CategoryRecruitment, domain.ActionCreateJobOffer, 0.8),

	// team
	kw("equipe", domain.CategoryTeam, domain.ActionListMembers, 0.6),
	kw("collegue", domain.CategoryTeam, domain.ActionListMembers, 0.6),
	kw("membre", domain.CategoryTeam, domain.ActionListMembers, 0.65),
	kw("inviter", domain.CategoryTeam, domain.ActionInviteMember, 0.85),
	kw("ajouter un membre", domain.CategoryTeam, domain.ActionInviteMember, 0.9),

	// notification
	kw("notification", domain.CategoryNotification, domain.ActionListNotifications, 0.75),
	kw("comme lu", domain.CategoryNotification, domain.ActionMarkNotificationsRead, 0.85),

	// navigation
	kw("aller a", domain.CategoryNavigation, domain.ActionNavigate, 0.85),
	kw("aller au", domain.CategoryNavigation, domain.ActionNavigate, 0.85),
	kw("aller sur", domain.CategoryNavigation, domain.ActionNavigate, 0.85),
	kw("aller vers", domain.CategoryNavigation, domain.ActionNavigate, 0.85),
	kw("emmene moi", domain.CategoryNavigation, domain.ActionNavigate, 0.85),
	kw("naviguer", domain.CategoryNavigation, domain.ActionNavigate, 0.85),
	kw("ouvrir", domain.CategoryNavigation, domain.ActionNavigate, 0.7),
	kw("ouvre", domain.CategoryNavigation, domain.ActionNavigate, 0.7),

	// search
	kw("rechercher", domain.CategorySearch, domain.ActionSearch, 0.8),
	kw("recherche", domain.CategorySearch, domain.ActionSearch, 0.75),
	kw("chercher", domain.CategorySearch, domain.ActionSearch, 0.75),
	kw("cherche", domain.CategorySearch, domain.ActionSearch, 0.7),
	kw("trouver", domain.CategorySearch, domain.ActionSearch, 0.7),

	// settings
	kw("theme", domain.CategorySettings, domain.ActionChangeTheme, 0.8),
	kw("mode sombre", domain.CategorySettings, domain.ActionChangeTheme, 0.9),
	kw("mode clair", domain.CategorySettings, domain.ActionChangeTheme, 0.9),
	kw("mode nuit", domain.CategorySettings, domain.ActionChangeTheme, 0.85),
	kw("mode admin", domain.CategorySettings, domain.ActionToggleAdminMode, 0.9),
	kw("mode administrateur", domain.CategorySettings, domain.ActionToggleAdminMode, 0.95),

	// export
	kw("export", domain.CategoryExport, domain.ActionExportData, 0.8),
	kw("exporter", domain.CategoryExport, domain.ActionExportData, 0.85),
	kw("telecharger", domain.CategoryExport, domain.ActionExportData, 0.6),

	// stats
	kw("statistique", domain.CategoryStats, domain.ActionShowStats, 0.8),
	kw("stats", domain.CategoryStats, domain.ActionShowStats, 0.75),
	kw("bilan", domain.CategoryStats, domain.ActionShowStats, 0.7),
	kw("progression", domain.CategoryStats, domain.ActionShowStats, 0.7),
	kw("tableau de bord", domain.CategoryStats, domain.ActionShowStats, 0.6),

	// onboarding
	kw("onboarding", domain.CategoryOnboarding, domain.ActionStartOnboarding, 0.8),
	kw("premiers pas", domain.CategoryOnboarding, domain.ActionStartOnboarding, 0.8),
	kw("prise en main", domain.CategoryOnboarding, domain.ActionStartOnboarding, 0.75),
}

// Verb is an action verb detected independently of the keyword table.
type Verb string

// Action verbs.
const (
	VerbCreate   Verb = "create"
	VerbUpdate   Verb = "update"
	VerbDelete   Verb = "delete"
	VerbList     Verb = "list"
	VerbComplete Verb = "complete"
	VerbNavigate Verb = "navigate"
	VerbSearch   Verb = "search"
	VerbAssign   Verb = "assign"
	VerbApprove  Verb = "approve"
	VerbReject   Verb = "reject"
)

type verbWord struct {
	phrase string
	verb   Verb
}

// verbWords are matched on word boundaries of the normalized input.
var verbWords = []verbWord{
	{"creer", VerbCreate}, {"cree", VerbCreate}, {"ajouter", VerbCreate}, {"ajoute", VerbCreate},
	{"nouveau", VerbCreate}, {"nouvelle", VerbCreate}, {"planifier", VerbCreate}, {"planifie", VerbCreate},
	{"organiser", VerbCreate}, {"poser", VerbCreate}, {"demander", VerbCreate}, {"publier", VerbCreate},
	{"inviter", VerbCreate}, {"invite", VerbCreate},

	{"modifier", VerbUpdate}, {"modifie", VerbUpdate}, {"changer", VerbUpdate}, {"change", VerbUpdate},
	{"mettre a jour", VerbUpdate}, {"editer", VerbUpdate}, {"renommer", VerbUpdate},

	{"supprimer", VerbDelete}, {"supprime", VerbDelete}, {"effacer", VerbDelete}, {"retirer", VerbDelete},
	{"enlever", VerbDelete}, {"annuler", VerbDelete}, {"annule", VerbDelete},

	{"lister", VerbList}, {"liste", VerbList}, {"afficher", VerbList}, {"affiche", VerbList},
	{"voir", VerbList}, {"montrer", VerbList}, {"montre", VerbList}, {"quels", VerbList}, {"quelles", VerbList},

	{"terminer", VerbComplete}, {"termine", VerbComplete}, {"finir", VerbComplete}, {"completer", VerbComplete},
	{"cloturer", VerbComplete}, {"marquer", VerbComplete}, {"valider la tache", VerbComplete},

	{"aller", VerbNavigate}, {"va", VerbNavigate}, {"ouvrir", VerbNavigate}, {"ouvre", VerbNavigate},
	{"naviguer", VerbNavigate}, {"emmene", VerbNavigate},

	{"chercher", VerbSearch}, {"cherche", VerbSearch}, {"rechercher", VerbSearch}, {"recherche", VerbSearch},
	{"trouver", VerbSearch}, {"trouve", VerbSearch},

	{"assigner", VerbAssign}, {"assigne", VerbAssign}, {"attribuer", VerbAssign}, {"confier", VerbAssign},

	{"approuver", VerbApprove}, {"approuve", VerbApprove}, {"valider", VerbApprove}, {"valide", VerbApprove},
	{"accepter", VerbApprove},

	{"refuser", VerbReject}, {"refuse", VerbReject}, {"rejeter", VerbReject}, {"rejette", VerbReject},
}

// verbActions overrides the keyword action within a category when a verb is present.
var verbActions = map[domain.Category]map[Verb]domain.Action{
	domain.CategoryTask: {
		VerbCreate:   domain.ActionCreateTask,
		VerbUpdate:   domain.ActionUpdateTask,
		VerbDelete:   domain.ActionDeleteTask,
		VerbList:     domain.ActionListTasks,
		VerbComplete: domain.ActionCompleteTask,
		VerbSearch:   domain.ActionSearchTasks,
		VerbAssign:   domain.ActionAssignTask,
	},
	domain.CategoryProject: {
		VerbCreate: domain.ActionCreateProject,
		VerbUpdate: domain.ActionUpdateProject,
		VerbDelete: domain.ActionDeleteProject,
		VerbList:   domain.ActionListProjects,
		VerbSearch: domain.ActionSearchProjects,
	},
	domain.CategoryMeeting: {
		VerbCreate: domain.ActionCreateMeeting,
		VerbDelete: domain.ActionCancelMeeting,
		VerbList:   domain.ActionListMeetings,
		VerbSearch: domain.ActionListMeetings,
	},
	domain.CategoryAbsence: {
		VerbCreate:  domain.ActionRequestAbsence,
		VerbList:    domain.ActionListAbsences,
		VerbApprove: domain.ActionApproveAbsence,
		VerbReject:  domain.ActionRejectAbsence,
	},
	domain.CategoryRecruitment: {
		VerbCreate: domain.ActionCreateJobOffer,
		VerbList:   domain.ActionListCandidates,
		VerbSearch: domain.ActionListCandidates,
	},
	domain.CategoryTeam: {
		VerbCreate: domain.ActionInviteMember,
		VerbList:   domain.ActionListMembers,
		VerbSearch: domain.ActionListMembers,
	},
	domain.CategoryNotification: {
		VerbList:     domain.ActionListNotifications,
		VerbComplete: domain.ActionMarkNotificationsRead,
	},
	domain.CategoryStats: {
		VerbList: domain.ActionShowStats,
	},
}
