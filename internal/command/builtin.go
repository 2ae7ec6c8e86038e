package command

import (
	"strings"

	"github.com/ashureev/teamhub/internal/domain"
	"github.com/ashureev/teamhub/internal/normalize"
	"github.com/ashureev/teamhub/internal/sitemap"
)

// Default returns the built-in command set.
func Default() *Registry {
	var r *Registry
	commands := []Command{
		{
			Name:        "aide",
			Aliases:     []string{"help", "h", "?"},
			Description: "Afficher les commandes disponibles",
			Usage:       "/aide",
			Category:    domain.CategoryHelp,
			Action:      domain.ActionHelp,
			Handler: func(string, domain.AssistantContext) Result {
				res := intentResult(domain.ActionHelp, nil)
				reply := helpReply(r.Commands())
				res.Reply = &reply
				return res
			},
		},
		{
			Name:        "tache",
			Aliases:     []string{"tâche", "task", "t", "todo"},
			Description: "Créer une tâche",
			Usage:       "/tache <titre>",
			Category:    domain.CategoryTask,
			Action:      domain.ActionCreateTask,
			Handler: func(args string, _ domain.AssistantContext) Result {
				if args == "" {
					return usage("tache", "/tache <titre>")
				}
				return intentResult(domain.ActionCreateTask, map[string]string{domain.EntityName: args})
			},
		},
		{
			Name:        "projet",
			Aliases:     []string{"project", "p"},
			Description: "Créer un projet",
			Usage:       "/projet <nom>",
			Category:    domain.CategoryProject,
			Action:      domain.ActionCreateProject,
			Handler: func(args string, _ domain.AssistantContext) Result {
				if args == "" {
					return usage("projet", "/projet <nom>")
				}
				return intentResult(domain.ActionCreateProject, map[string]string{domain.EntityName: args})
			},
		},
		{
			Name:        "reunion",
			Aliases:     []string{"réunion", "meeting", "r"},
			Description: "Planifier une réunion",
			Usage:       "/reunion [titre]",
			Category:    domain.CategoryMeeting,
			Action:      domain.ActionCreateMeeting,
			Handler: func(args string, _ domain.AssistantContext) Result {
				entities := map[string]string{}
				if args != "" {
					entities[domain.EntityName] = args
				}
				res := intentResult(domain.ActionCreateMeeting, entities)
				res.StartFlow = true
				return res
			},
		},
		{
			Name:        "absence",
			Aliases:     []string{"conge", "congé"},
			Description: "Demander une absence",
			Usage:       "/absence",
			Category:    domain.CategoryAbsence,
			Action:      domain.ActionRequestAbsence,
			Handler: func(string, domain.AssistantContext) Result {
				res := intentResult(domain.ActionRequestAbsence, nil)
				res.StartFlow = true
				return res
			},
		},
		{
			Name:        "chercher",
			Aliases:     []string{"search", "s", "recherche"},
			Description: "Rechercher dans le hub",
			Usage:       "/chercher <termes>",
			Category:    domain.CategorySearch,
			Action:      domain.ActionSearch,
			Handler: func(args string, _ domain.AssistantContext) Result {
				if args == "" {
					return usage("chercher", "/chercher <termes>")
				}
				return intentResult(domain.ActionSearch, map[string]string{domain.EntityQuery: args})
			},
		},
		{
			Name:        "aller",
			Aliases:     []string{"go", "nav", "ouvrir"},
			Description: "Ouvrir une page",
			Usage:       "/aller <page>",
			Category:    domain.CategoryNavigation,
			Action:      domain.ActionNavigate,
			Handler: func(args string, _ domain.AssistantContext) Result {
				if args == "" {
					return usage("aller", "/aller <page>")
				}
				target := normalize.Text(args)
				if page, ok := sitemap.Resolve(target); ok {
					target = page.Key
				}
				return intentResult(domain.ActionNavigate, map[string]string{domain.EntityTarget: target})
			},
		},
		{
			Name:        "theme",
			Aliases:     []string{"thème"},
			Description: "Changer le thème (sombre, clair, systeme)",
			Usage:       "/theme <sombre|clair|systeme>",
			Category:    domain.CategorySettings,
			Action:      domain.ActionChangeTheme,
			Handler: func(args string, _ domain.AssistantContext) Result {
				theme, ok := themes[normalize.Text(args)]
				if !ok {
					return usage("theme", "/theme <sombre|clair|systeme>")
				}
				return intentResult(domain.ActionChangeTheme, map[string]string{domain.EntityTheme: theme})
			},
		},
		{
			Name:        "admin",
			Description: "Activer ou désactiver le mode administrateur",
			Usage:       "/admin",
			Category:    domain.CategorySettings,
			Action:      domain.ActionToggleAdminMode,
			Handler: func(string, domain.AssistantContext) Result {
				return intentResult(domain.ActionToggleAdminMode, nil)
			},
		},
		{
			Name:        "stats",
			Aliases:     []string{"statistiques"},
			Description: "Afficher vos statistiques",
			Usage:       "/stats",
			Category:    domain.CategoryStats,
			Action:      domain.ActionShowStats,
			Handler: func(string, domain.AssistantContext) Result {
				return intentResult(domain.ActionShowStats, nil)
			},
		},
		{
			Name:        "export",
			Aliases:     []string{"exporter"},
			Description: "Exporter vos données (csv, pdf, xlsx, json)",
			Usage:       "/export [csv|pdf|xlsx|json]",
			Category:    domain.CategoryExport,
			Action:      domain.ActionExportData,
			Handler: func(args string, _ domain.AssistantContext) Result {
				format := "csv"
				if args != "" {
					f, ok := formats[normalize.Text(args)]
					if !ok {
						return usage("export", "/export [csv|pdf|xlsx|json]")
					}
					format = f
				}
				return intentResult(domain.ActionExportData, map[string]string{domain.EntityExportFormat: format})
			},
		},
		{
			Name:        "notifications",
			Aliases:     []string{"notifs", "n"},
			Description: "Voir vos notifications",
			Usage:       "/notifications",
			Category:    domain.CategoryNotification,
			Action:      domain.ActionListNotifications,
			Handler: func(string, domain.AssistantContext) Result {
				return intentResult(domain.ActionListNotifications, nil)
			},
		},
		{
			Name:        "onboarding",
			Aliases:     []string{"bienvenue"},
			Description: "Démarrer le parcours d'intégration",
			Usage:       "/onboarding",
			Category:    domain.CategoryOnboarding,
			Action:      domain.ActionStartOnboarding,
			Handler: func(string, domain.AssistantContext) Result {
				return intentResult(domain.ActionStartOnboarding, nil)
			},
		},
		{
			Name:        "effacer",
			Aliases:     []string{"clear", "cls"},
			Description: "Effacer la conversation",
			Usage:       "/effacer",
			Category:    domain.CategoryConversation,
			Action:      domain.ActionClearConversation,
			Handler: func(string, domain.AssistantContext) Result {
				return intentResult(domain.ActionClearConversation, nil)
			},
		},
		{
			Name:        "annuler",
			Aliases:     []string{"cancel", "stop"},
			Description: "Annuler l'action en cours",
			Usage:       "/annuler",
			Category:    domain.CategoryConversation,
			Handler: func(string, domain.AssistantContext) Result {
				reply := domain.ActionResult{Success: true, Message: "Il n'y a aucune action en cours à annuler."}
				return Result{Reply: &reply}
			},
		},
	}
	r = NewRegistry(commands)
	return r
}

var themes = map[string]string{
	"sombre": "dark", "dark": "dark", "nuit": "dark",
	"clair": "light", "light": "light", "jour": "light",
	"systeme": "system", "system": "system", "auto": "system",
}

var formats = map[string]string{
	"csv": "csv", "pdf": "pdf", "xlsx": "xlsx", "excel": "xlsx", "json": "json",
}

func helpReply(commands []Command) domain.ActionResult {
	items := make([]domain.ListItem, 0, len(commands))
	for _, c := range commands {
		subtitle := c.Description
		if len(c.Aliases) > 0 {
			subtitle += " (alias : " + Prefix + strings.Join(c.Aliases, ", "+Prefix) + ")"
		}
		items = append(items, domain.ListItem{ID: c.Name, Title: c.Usage, Subtitle: subtitle})
	}
	return domain.ActionResult{
		Success:    true,
		Message:    "Voici les commandes disponibles :",
		Attachment: domain.ListAttachment{Title: "Commandes", Items: items},
	}
}
