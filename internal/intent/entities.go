package intent

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/teamhub/internal/domain"
	"github.com/ashureev/teamhub/internal/normalize"
	"github.com/ashureev/teamhub/internal/sitemap"
)

const isoDate = "2006-01-02"

var (
	dateRe    = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})|\b(\d{1,2})/(\d{1,2})/(\d{4})\b|(apr[eè]s[- ]demain)|\b(demain)\b|(aujourd['’ ]?hui)`)
	timeRe    = regexp.MustCompile(`\b([01]?\d|2[0-3])(?::([0-5]\d)|h([0-5]\d)?)`)
	quoteRe   = regexp.MustCompile(`"([^"]+)"|«\s*([^»]+?)\s*»|“([^”]+)”`)
	emailRe   = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	mentionRe = regexp.MustCompile(`(?:^|\s)@([\p{L}\d._-]+)`)
	queryRe   = regexp.MustCompile(`(?i)(?:rechercher|recherche|chercher|cherche|trouver|trouve)\s+(.+)$`)
)

// vocab maps normalized phrases to a canonical entity value.
type vocab struct {
	key     string
	entries map[string]string
}

var (
	priorityVocab = vocab{domain.EntityPriority, map[string]string{
		"urgent": "urgent", "urgente": "urgent", "critique": "urgent",
		"haute": "high", "haut": "high", "importante": "high", "prioritaire": "high",
		"moyenne": "medium", "normale": "medium", "normal": "medium",
		"basse": "low", "bas": "low", "faible": "low",
	}}
	statusVocab = vocab{domain.EntityStatus, map[string]string{
		"a faire": "todo", "en cours": "in_progress", "terminee": "done", "terminees": "done", "termine": "done",
		"bloquee": "blocked", "bloquees": "blocked", "bloque": "blocked",
		"en retard": "overdue", "en attente": "pending",
	}}
	absenceVocab = vocab{domain.EntityAbsenceType, map[string]string{
		"conge": "vacation", "conges": "vacation", "vacances": "vacation", "conge paye": "vacation",
		"maladie": "sick", "arret maladie": "sick",
		"teletravail": "remote", "formation": "training", "rtt": "rtt",
	}}
	meetingVocab = vocab{domain.EntityMeetingType, map[string]string{
		"visio": "video", "visioconference": "video", "video": "video", "en ligne": "video",
		"presentiel": "in_person", "en personne": "in_person",
		"telephone": "phone", "appel": "phone",
	}}
	formatVocab = vocab{domain.EntityExportFormat, map[string]string{
		"csv": "csv", "pdf": "pdf", "excel": "xlsx", "xlsx": "xlsx", "json": "json",
	}}
	themeVocab = vocab{domain.EntityTheme, map[string]string{
		"sombre": "dark", "nuit": "dark", "dark": "dark", "noir": "dark",
		"clair": "light", "jour": "light", "light": "light", "blanc": "light",
		"systeme": "system", "automatique": "system", "auto": "system",
	}}
)

// match returns the value of the earliest vocabulary phrase in text. Longer
// phrases win when two start at the same position.
func (v vocab) match(text string) (string, bool) {
	bestPos, bestLen, value := -1, 0, ""
	for phrase, canonical := range v.entries {
		pos := normalize.IndexWord(text, phrase)
		if pos < 0 {
			continue
		}
		if bestPos < 0 || pos < bestPos || (pos == bestPos && len(phrase) > bestLen) {
			bestPos, bestLen, value = pos, len(phrase), canonical
		}
	}
	return value, bestPos >= 0
}

// navigationTriggers precede a destination. Longest first.
var navigationTriggers = []string{
	"emmene moi vers", "emmene moi sur", "emmene moi a", "emmene moi",
	"naviguer vers", "naviguer sur", "naviguer",
	"aller vers", "aller sur", "aller aux", "aller au", "aller a la", "aller a",
	"va sur", "va aux", "va au", "va a",
	"ouvrir la page", "ouvrir les", "ouvrir le", "ouvrir la", "ouvrir",
	"ouvre la page", "ouvre les", "ouvre le", "ouvre la", "ouvre",
}

var leadingArticles = []string{"les ", "le ", "la ", "l'", "l’", "des ", "un ", "une ", "du ", "de ", "d'", "mes ", "ma ", "mon "}

// extractor pulls entities out of one utterance.
type extractor struct {
	now func() time.Time
}

func (e extractor) extract(raw, norm string, category domain.Category, action domain.Action) map[string]string {
	entities := make(map[string]string)

	e.dates(raw, entities)
	if t, ok := extractTime(raw); ok {
		entities[domain.EntityTime] = t
	}
	if name, ok := extractQuoted(raw); ok {
		entities[domain.EntityName] = name
	}
	if email := emailRe.FindString(raw); email != "" {
		entities[domain.EntityEmail] = strings.ToLower(email)
	} else if m := mentionRe.FindStringSubmatch(raw); m != nil {
		entities[domain.EntityAssignee] = m[1]
	}

	vocabs := []vocab{priorityVocab, statusVocab}
	switch category {
	case domain.CategoryAbsence:
		vocabs = append(vocabs, absenceVocab)
	case domain.CategoryMeeting:
		vocabs = append(vocabs, meetingVocab)
	case domain.CategoryExport:
		vocabs = append(vocabs, formatVocab)
	case domain.CategorySettings:
		vocabs = append(vocabs, themeVocab)
	}
	for _, v := range vocabs {
		if value, ok := v.match(norm); ok {
			entities[v.key] = value
		}
	}

	if category == domain.CategoryNavigation {
		if target, ok := extractTarget(norm); ok {
			entities[domain.EntityTarget] = target
		}
	}
	if category == domain.CategorySearch || action == domain.ActionSearchTasks || action == domain.ActionSearchProjects {
		if q, ok := extractQuery(raw); ok {
			entities[domain.EntityQuery] = q
		}
	}
	return entities
}

type foundDate struct {
	pos   int
	value string
}

// dates stores the first date found as "date" and the second as "endDate".
func (e extractor) dates(raw string, entities map[string]string) {
	lowered := strings.ToLower(raw)
	today := e.now()
	var found []foundDate
	for _, loc := range dateRe.FindAllStringSubmatchIndex(lowered, -1) {
		group := func(i int) string {
			if loc[2*i] < 0 {
				return ""
			}
			return lowered[loc[2*i]:loc[2*i+1]]
		}
		var value string
		switch {
		case group(1) != "":
			if _, err := time.Parse(isoDate, group(1)); err == nil {
				value = group(1)
			}
		case group(4) != "":
			month, _ := strconv.Atoi(group(3))
			day, _ := strconv.Atoi(group(2))
			candidate := fmt.Sprintf("%s-%02d-%02d", group(4), month, day)
			if _, err := time.Parse(isoDate, candidate); err == nil {
				value = candidate
			}
		case group(5) != "":
			value = today.AddDate(0, 0, 2).Format(isoDate)
		case group(6) != "":
			value = today.AddDate(0, 0, 1).Format(isoDate)
		case group(7) != "":
			value = today.Format(isoDate)
		}
		if value != "" {
			found = append(found, foundDate{pos: loc[0], value: value})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })
	if len(found) > 0 {
		entities[domain.EntityDate] = found[0].value
	}
	if len(found) > 1 {
		entities[domain.EntityEndDate] = found[1].value
	}
}

// extractTime accepts 14:30, 14h30 and 14h, returning HH:MM.
func extractTime(raw string) (string, bool) {
	m := timeRe.FindStringSubmatch(strings.ToLower(raw))
	if m == nil {
		return "", false
	}
	minutes := m[2]
	if minutes == "" {
		minutes = m[3]
	}
	if minutes == "" {
		minutes = "00"
	}
	hour, _ := strconv.Atoi(m[1])
	return fmt.Sprintf("%02d:%s", hour, minutes), true
}

func extractQuoted(raw string) (string, bool) {
	m := quoteRe.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	for _, g := range m[1:] {
		if s := strings.TrimSpace(g); s != "" {
			return s, true
		}
	}
	return "", false
}

// extractTarget returns a sitemap key when the clause after a navigation
// trigger names a known page, else the clause itself.
func extractTarget(norm string) (string, bool) {
	for _, trigger := range navigationTriggers {
		idx := normalize.IndexWord(norm, trigger)
		if idx < 0 {
			continue
		}
		clause := strings.TrimSpace(norm[min(len(norm), idx+len(trigger)):])
		if clause == "" {
			continue
		}
		if page, ok := sitemap.Resolve(clause); ok {
			return page.Key, true
		}
		return clause, true
	}
	if page, ok := sitemap.Resolve(norm); ok {
		return page.Key, true
	}
	return "", false
}

// extractQuery keeps the user's original spelling of the search terms.
func extractQuery(raw string) (string, bool) {
	if q, ok := extractQuoted(raw); ok {
		return q, true
	}
	m := queryRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", false
	}
	q := strings.TrimSpace(strings.TrimRight(m[1], "?!. "))
	lower := strings.ToLower(q)
	for _, article := range leadingArticles {
		if strings.HasPrefix(lower, article) {
			q = strings.TrimSpace(q[len(article):])
			break
		}
	}
	return q, q != ""
}
