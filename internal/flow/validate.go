package flow

import (
	"fmt"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ashureev/teamhub/internal/domain"
	"github.com/ashureev/teamhub/internal/normalize"
)

const isoDate = "2006-01-02"

// Env is what a validator may look at besides the value.
type Env struct {
	Now       time.Time
	Collected map[string]string
}

// Validator checks a reply and returns its canonical form.
type Validator func(value string, env Env) (string, error)

// ValidationError explains why a reply was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalid(reason string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(reason, args...)}
}

func length(minLen, maxLen int) Validator {
	return func(value string, _ Env) (string, error) {
		n := utf8.RuneCountInString(value)
		if n < minLen {
			return "", invalid("Il faut au moins %d caractères.", minLen)
		}
		if n > maxLen {
			return "", invalid("C'est un peu long : %d caractères maximum.", maxLen)
		}
		return value, nil
	}
}

func notPast(value string, env Env) (string, error) {
	day, err := time.Parse(isoDate, value)
	if err != nil {
		return "", invalid("Cette date n'est pas valide.")
	}
	today := truncateDay(env.Now)
	if day.Before(today) {
		return "", invalid("Cette date est déjà passée.")
	}
	return value, nil
}

func notBefore(field string) Validator {
	return func(value string, env Env) (string, error) {
		if _, err := notPast(value, env); err != nil {
			return "", err
		}
		start, ok := env.Collected[field]
		if ok && value < start {
			return "", invalid("La date de fin doit être postérieure ou égale au %s.", FrenchDate(start))
		}
		return value, nil
	}
}

var clockRe = regexp.MustCompile(`^([01]?\d|2[0-3])\s*(?:[h:]\s*([0-5]\d)?)?$`)

func clockTime(value string, _ Env) (string, error) {
	m := clockRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(value)))
	if m == nil {
		return "", invalid("Indiquez une heure comme 9h, 14h30 ou 16:45.")
	}
	hour, _ := strconv.Atoi(m[1])
	minutes := m[2]
	if minutes == "" {
		minutes = "00"
	}
	return fmt.Sprintf("%02d:%s", hour, minutes), nil
}

func email(value string, _ Env) (string, error) {
	addr, err := mail.ParseAddress(value)
	if err != nil || !strings.Contains(addr.Address, ".") || addr.Address != strings.TrimSpace(value) {
		return "", invalid("Cette adresse e-mail ne semble pas valide.")
	}
	return strings.ToLower(addr.Address), nil
}

var slashDateRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:/(\d{4}))?$`)

// ParseDate accepts ISO dates, JJ/MM[/AAAA] and the relative words
// aujourd'hui, demain and après-demain. It returns an ISO date.
func ParseDate(value string, now time.Time) (string, bool) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(isoDate, value); err == nil {
		return t.Format(isoDate), true
	}
	if m := slashDateRe.FindStringSubmatch(value); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year := now.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		candidate := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
		if t, err := time.Parse(isoDate, candidate); err == nil {
			return t.Format(isoDate), true
		}
		return "", false
	}
	switch normalize.Text(value) {
	case "aujourd hui", "aujourdhui":
		return now.Format(isoDate), true
	case "demain":
		return now.AddDate(0, 0, 1).Format(isoDate), true
	case "apres demain":
		return now.AddDate(0, 0, 2).Format(isoDate), true
	}
	return "", false
}

// resolveOption matches a reply against option values, labels or 1-based index.
func resolveOption(value string, options []domain.Option) (domain.Option, bool) {
	norm := normalize.Text(value)
	if n, err := strconv.Atoi(norm); err == nil && n >= 1 && n <= len(options) {
		return options[n-1], true
	}
	for _, o := range options {
		if norm == normalize.Text(o.Value) || norm == normalize.Text(o.Label) {
			return o, true
		}
	}
	return domain.Option{}, false
}

func optionLabels(options []domain.Option) string {
	labels := make([]string, len(options))
	for i, o := range options {
		labels[i] = fmt.Sprintf("%d. %s", i+1, o.Label)
	}
	return strings.Join(labels, ", ")
}

var (
	affirmative = wordSet("oui", "o", "yes", "y", "ok", "okay", "d accord", "dac", "confirmer", "confirme", "je confirme", "valider", "valide", "go", "c est bon", "parfait", "oui merci")
	negative    = wordSet("non", "n", "no", "nope", "non merci", "pas maintenant")
	skipWords   = wordSet("passer", "skip", "aucun", "aucune", "rien", "non merci", "suivant")
	cancelWords = wordSet("annuler", "annule", "stop", "cancel", "laisse tomber", "abandonner", "annuler tout")
)

func wordSet(words ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

func inSet(set map[string]struct{}, value string) bool {
	_, ok := set[normalize.Text(value)]
	return ok
}

// IsCancel reports whether text explicitly asks to abandon the active flow.
func IsCancel(text string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	switch trimmed {
	case "/annuler", "/cancel", "/stop":
		return true
	}
	return inSet(cancelWords, trimmed)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var frenchMonths = [...]string{"janvier", "février", "mars", "avril", "mai", "juin", "juillet", "août", "septembre", "octobre", "novembre", "décembre"}

// FrenchDate formats an ISO date as "14 mars 2025"; other input is returned as is.
func FrenchDate(iso string) string {
	t, err := time.Parse(isoDate, iso)
	if err != nil {
		return iso
	}
	return fmt.Sprintf("%d %s %d", t.Day(), frenchMonths[t.Month()-1], t.Year())
}
