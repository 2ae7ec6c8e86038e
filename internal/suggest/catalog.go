package suggest

import "github.com/ashureev/teamhub/internal/domain"

func s(id, label, icon, query string, category domain.Category, action domain.Action, description string) domain.Suggestion {
	return domain.Suggestion{ID: id, Label: label, Icon: icon, Query: query, Category: category, Action: action, Description: description}
}

// Catalog holds every quick action. Each Query classifies to its Action.
var Catalog = []domain.Suggestion{
	s("help", "Que sais-tu faire ?", "help-circle", "Que peux-tu faire ?", domain.CategoryHelp, domain.ActionCapabilities, "Découvrir les capacités de l'assistant"),

	s("task-create", "Créer une tâche", "plus", "Créer une nouvelle tâche", domain.CategoryTask, domain.ActionCreateTask, "Ajouter une tâche à votre liste"),
	s("task-list", "Mes tâches", "check-square", "Mes tâches", domain.CategoryTask, domain.ActionListTasks, "Voir les tâches qui vous sont assignées"),
	s("task-overdue", "Tâches en retard", "alert-circle", "Mes tâches en retard", domain.CategoryTask, domain.ActionListTasks, "Voir les tâches dont l'échéance est passée"),

	s("project-create", "Nouveau projet", "folder-plus", "Créer un projet", domain.CategoryProject, domain.ActionCreateProject, "Démarrer un nouveau projet"),
	s("project-list", "Mes projets", "folder", "Mes projets", domain.CategoryProject, domain.ActionListProjects, "Voir les projets auxquels vous participez"),

	s("meeting-create", "Planifier une réunion", "calendar-plus", "Planifier une réunion", domain.CategoryMeeting, domain.ActionCreateMeeting, "Organiser une réunion avec l'équipe"),
	s("meeting-list", "Mes réunions", "calendar", "Mes réunions", domain.CategoryMeeting, domain.ActionListMeetings, "Voir vos prochaines réunions"),

	s("absence-request", "Poser un congé", "sun", "Demander un congé", domain.CategoryAbsence, domain.ActionRequestAbsence, "Faire une demande d'absence"),
	s("absence-list", "Mes absences", "umbrella", "Mes absences", domain.CategoryAbsence, domain.ActionListAbsences, "Voir vos absences et leur statut"),

	s("recruitment-offer", "Nouvelle offre", "briefcase", "Créer une offre d'emploi", domain.CategoryRecruitment, domain.ActionCreateJobOffer, "Publier une offre d'emploi"),
	s("recruitment-candidates", "Candidatures", "user-check", "Voir les candidats", domain.CategoryRecruitment, domain.ActionListCandidates, "Suivre les candidatures en cours"),

	s("team-list", "L'équipe", "users", "Voir les membres de l'équipe", domain.CategoryTeam, domain.ActionListMembers, "Annuaire des membres du groupe"),
	s("team-invite", "Inviter un membre", "user-plus", "Inviter un membre", domain.CategoryTeam, domain.ActionInviteMember, "Envoyer une invitation par e-mail"),

	s("notif-list", "Notifications", "bell", "Mes notifications", domain.CategoryNotification, domain.ActionListNotifications, "Voir vos notifications récentes"),
	s("notif-read", "Tout marquer comme lu", "check-check", "Tout marquer comme lu", domain.CategoryNotification, domain.ActionMarkNotificationsRead, "Vider la liste des notifications"),

	s("stats-show", "Mes statistiques", "bar-chart", "Montre mes statistiques", domain.CategoryStats, domain.ActionShowStats, "Aperçu de votre activité"),
	s("export-csv", "Exporter en CSV", "download", "Exporter en csv", domain.CategoryExport, domain.ActionExportData, "Télécharger vos données"),

	s("theme-dark", "Mode sombre", "moon", "Passer en mode sombre", domain.CategorySettings, domain.ActionChangeTheme, "Activer le thème sombre"),
	s("theme-light", "Mode clair", "sun", "Passer en mode clair", domain.CategorySettings, domain.ActionChangeTheme, "Activer le thème clair"),
	s("admin-toggle", "Mode admin", "shield", "Mode administrateur", domain.CategorySettings, domain.ActionToggleAdminMode, "Basculer le mode administrateur"),

	s("onboarding-start", "Premiers pas", "compass", "Lancer l'onboarding", domain.CategoryOnboarding, domain.ActionStartOnboarding, "Parcours de découverte du hub"),
	s("nav-dashboard", "Tableau de bord", "home", "Aller au tableau de bord", domain.CategoryNavigation, domain.ActionNavigate, "Revenir à l'accueil"),
	s("search", "Rechercher", "search", "Rechercher ", domain.CategorySearch, domain.ActionSearch, "Chercher une tâche, un projet ou une personne"),
}

// pageSuggestions lists catalog ids per sitemap page key; "" is the default.
var pageSuggestions = map[string][]string{
	"":              {"help", "task-create", "task-list", "meeting-list", "nav-dashboard", "onboarding-start"},
	"dashboard":     {"task-list", "meeting-list", "notif-list", "stats-show", "task-create", "help"},
	"tasks":         {"task-create", "task-overdue", "task-list", "project-list", "stats-show"},
	"projects":      {"project-create", "project-list", "task-create", "team-list"},
	"meetings":      {"meeting-create", "meeting-list", "absence-list"},
	"absences":      {"absence-request", "absence-list", "meeting-list"},
	"recruitment":   {"recruitment-offer", "recruitment-candidates", "team-list"},
	"team":          {"team-list", "team-invite", "absence-list"},
	"notifications": {"notif-read", "notif-list", "task-list"},
	"onboarding":    {"onboarding-start", "help", "nav-dashboard"},
	"settings":      {"theme-dark", "theme-light", "export-csv", "admin-toggle"},
	"admin":         {"admin-toggle", "team-invite", "export-csv", "stats-show"},
}

var adminExtras = []string{"admin-toggle", "export-csv"}

// categoryFollowUps lists catalog ids offered after a turn in a category.
var categoryFollowUps = map[domain.Category][]string{
	domain.CategoryTask:         {"task-list", "task-create", "task-overdue"},
	domain.CategoryProject:      {"project-list", "project-create", "task-create"},
	domain.CategoryMeeting:      {"meeting-list", "meeting-create"},
	domain.CategoryAbsence:      {"absence-list", "absence-request"},
	domain.CategoryRecruitment:  {"recruitment-candidates", "recruitment-offer"},
	domain.CategoryTeam:         {"team-list", "team-invite"},
	domain.CategoryNotification: {"notif-list", "notif-read"},
	domain.CategoryNavigation:   {"help", "task-list"},
	domain.CategorySearch:       {"search", "task-list"},
	domain.CategorySettings:     {"theme-dark", "theme-light"},
	domain.CategoryExport:       {"stats-show", "export-csv"},
	domain.CategoryStats:        {"stats-show", "export-csv", "task-list"},
	domain.CategoryOnboarding:   {"onboarding-start", "help"},
}

var defaultFollowUps = []string{"help", "task-create", "task-list", "meeting-list"}

var byID = func() map[string]domain.Suggestion {
	m := make(map[string]domain.Suggestion, len(Catalog))
	for _, sg := range Catalog {
		m[sg.ID] = sg
	}
	return m
}()

// ByID returns the catalog entries for ids in order, skipping unknown ids.
func ByID(ids ...string) []domain.Suggestion {
	out := make([]domain.Suggestion, 0, len(ids))
	for _, id := range ids {
		if sg, ok := byID[id]; ok {
			out = append(out, sg)
		}
	}
	return out
}
