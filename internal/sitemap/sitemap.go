// Package sitemap lists the hub pages the assistant can navigate to.
package sitemap

import "github.com/ashureev/teamhub/internal/normalize"

// Page is a navigable destination of the host application.
type Page struct {
	Key     string
	Path    string
	Label   string
	Aliases []string // normalized
}

// Pages is ordered so that more specific aliases are tried first.
var Pages = []Page{
	{Key: "dashboard", Path: "/dashboard", Label: "Tableau de bord", Aliases: []string{"tableau de bord", "dashboard", "accueil"}},
	{Key: "tasks", Path: "/tasks", Label: "Tâches", Aliases: []string{"taches", "tache", "todo"}},
	{Key: "projects", Path: "/projects", Label: "Projets", Aliases: []string{"projets", "projet"}},
	{Key: "meetings", Path: "/meetings", Label: "Réunions", Aliases: []string{"reunions", "reunion", "calendrier", "agenda"}},
	{Key: "absences", Path: "/absences", Label: "Absences", Aliases: []string{"absences", "absence", "conges", "conge"}},
	{Key: "recruitment", Path: "/recruitment", Label: "Recrutement", Aliases: []string{"recrutement", "candidats", "offres"}},
	{Key: "team", Path: "/team", Label: "Équipe", Aliases: []string{"equipe", "membres", "annuaire"}},
	{Key: "notifications", Path: "/notifications", Label: "Notifications", Aliases: []string{"notifications", "notification"}},
	{Key: "onboarding", Path: "/onboarding", Label: "Onboarding", Aliases: []string{"onboarding", "integration", "premiers pas"}},
	{Key: "settings", Path: "/settings", Label: "Paramètres", Aliases: []string{"parametres", "reglages", "preferences", "profil"}},
	{Key: "admin", Path: "/admin", Label: "Administration", Aliases: []string{"administration", "admin"}},
}

// Lookup returns the page registered under key.
func Lookup(key string) (Page, bool) {
	for _, p := range Pages {
		if p.Key == key {
			return p, true
		}
	}
	return Page{}, false
}

// Resolve finds the page named in normalized text.
func Resolve(text string) (Page, bool) {
	for _, p := range Pages {
		for _, alias := range p.Aliases {
			if normalize.ContainsWord(text, alias) {
				return p, true
			}
		}
	}
	return Page{}, false
}

// ForPath returns the page whose path is a prefix of path.
func ForPath(path string) (Page, bool) {
	best := Page{}
	for _, p := range Pages {
		if len(path) >= len(p.Path) && path[:len(p.Path)] == p.Path && len(p.Path) > len(best.Path) {
			best = p
		}
	}
	return best, best.Key != ""
}
