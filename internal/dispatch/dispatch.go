// Package dispatch executes a permitted intent and builds the structured
// result shown to the user.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/teamhub/internal/domain"
	"github.com/ashureev/teamhub/internal/flow"
	"github.com/ashureev/teamhub/internal/normalize"
	"github.com/ashureev/teamhub/internal/render"
	"github.com/ashureev/teamhub/internal/sitemap"
)

// DefaultTimeout bounds each call into the host's services.
const DefaultTimeout = 5 * time.Second

const listLimit = 10

// Dispatcher is safe for concurrent use.
type Dispatcher struct {
	directory Directory
	executor  Executor
	renderer  *render.Renderer
	timeout   time.Duration
	logger    *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDirectory sets the read seam.
func WithDirectory(dir Directory) Option {
	return func(d *Dispatcher) { d.directory = dir }
}

// WithExecutor sets the write seam.
func WithExecutor(exec Executor) Option {
	return func(d *Dispatcher) { d.executor = exec }
}

// WithTimeout bounds each Directory and Executor call.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// New returns a dispatcher backed by EmptyDirectory and NopExecutor unless
// options say otherwise.
func New(renderer *render.Renderer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		directory: EmptyDirectory{},
		executor:  NopExecutor{},
		renderer:  renderer,
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch is total over the closed action set. Failures of the injected
// services come back as results with ErrorKind set, never as errors.
func (d *Dispatcher) Dispatch(ctx context.Context, in domain.Intent, actx domain.AssistantContext) domain.ActionResult {
	v := values(in.Entities)
	var res domain.ActionResult

	switch in.Action {
	case domain.ActionGreet:
		res = d.greet(actx)
	case domain.ActionThanks, domain.ActionGoodbye, domain.ActionHelp:
		res = d.ok(in.Action, nil)
	case domain.ActionCapabilities:
		res = d.capabilities()

	case domain.ActionCreateTask:
		res = d.create(ctx, in.Action, actx, v, "/tasks", v.first("title", domain.EntityName), data{"title": v.first("title", domain.EntityName)}, "title")
	case domain.ActionUpdateTask, domain.ActionDeleteTask, domain.ActionCompleteTask:
		res = d.target(ctx, in.Action, actx, v, data{"title": v.get(domain.EntityName)}, "title")
	case domain.ActionAssignTask:
		res = d.target(ctx, in.Action, actx, v, data{"title": v.get(domain.EntityName), "assignee": v.first(domain.EntityAssignee, domain.EntityEmail)}, "title", "assignee")
	case domain.ActionListTasks:
		res = d.list(ctx, in.Action, Query{Collection: CollectionTasks, UserID: actx.UserID, ProjectID: actx.ActiveProjectID, Status: v.get(domain.EntityStatus)}, "Tâches", nil)
	case domain.ActionSearchTasks:
		res = d.search(ctx, in.Action, actx, v, CollectionTasks, "Tâches")

	case domain.ActionCreateProject:
		res = d.create(ctx, in.Action, actx, v, "/projects", v.first("name", domain.EntityName), data{"name": v.first("name", domain.EntityName)}, "name")
	case domain.ActionUpdateProject, domain.ActionDeleteProject:
		res = d.target(ctx, in.Action, actx, v, data{"name": v.get(domain.EntityName)}, "name")
	case domain.ActionListProjects:
		res = d.list(ctx, in.Action, Query{Collection: CollectionProjects, UserID: actx.UserID, GroupID: actx.CurrentGroupID, Status: v.get(domain.EntityStatus)}, "Projets", nil)
	case domain.ActionSearchProjects:
		res = d.search(ctx, in.Action, actx, v, CollectionProjects, "Projets")

	case domain.ActionCreateMeeting:
		res = d.create(ctx, in.Action, actx, v, "/meetings", v.first("title", domain.EntityName), data{
			"title": v.first("title", domain.EntityName),
			"date":  flow.FrenchDate(v.get("date")),
			"time":  v.get("time"),
		}, "title", "date", "time")
	case domain.ActionCancelMeeting:
		res = d.target(ctx, in.Action, actx, v, data{"title": v.get(domain.EntityName)}, "title")
	case domain.ActionListMeetings:
		res = d.list(ctx, in.Action, Query{Collection: CollectionMeetings, UserID: actx.UserID, GroupID: actx.CurrentGroupID, Date: v.get(domain.EntityDate)}, "Réunions", nil)

	case domain.ActionRequestAbsence:
		res = d.create(ctx, in.Action, actx, v, "/absences", flow.OptionLabel(in.Action, "type", v.get("type")), data{
			"type":      strings.ToLower(flow.OptionLabel(in.Action, "type", v.get("type"))),
			"startDate": flow.FrenchDate(v.get("startDate")),
			"endDate":   flow.FrenchDate(v.get("endDate")),
		}, "type", "startDate", "endDate")
	case domain.ActionListAbsences:
		res = d.list(ctx, in.Action, Query{Collection: CollectionAbsences, UserID: actx.UserID, Status: v.get(domain.EntityStatus)}, "Absences", nil)
	case domain.ActionApproveAbsence, domain.ActionRejectAbsence:
		res = d.target(ctx, in.Action, actx, v, data{"name": v.first(domain.EntityName, domain.EntityAssignee)}, "name")

	case domain.ActionCreateJobOffer:
		res = d.create(ctx, in.Action, actx, v, "/recruitment", v.first("title", domain.EntityName), data{
			"title":      v.first("title", domain.EntityName),
			"department": v.get("department"),
			"contract":   flow.OptionLabel(in.Action, "contract", v.get("contract")),
		}, "title", "department", "contract")
	case domain.ActionListCandidates:
		res = d.list(ctx, in.Action, Query{Collection: CollectionCandidates, UserID: actx.UserID, Status: v.get(domain.EntityStatus)}, "Candidatures", nil)

	case domain.ActionInviteMember:
		res = d.create(ctx, in.Action, actx, v, "/team", v.first("email", domain.EntityEmail), data{
			"email": v.first("email", domain.EntityEmail),
			"role":  strings.ToLower(flow.OptionLabel(in.Action, "role", v.get("role"))),
		}, "email", "role")
	case domain.ActionListMembers:
		res = d.list(ctx, in.Action, Query{Collection: CollectionMembers, UserID: actx.UserID, GroupID: actx.CurrentGroupID}, "Équipe", nil)

	case domain.ActionListNotifications:
		res = d.list(ctx, in.Action, Query{Collection: CollectionNotifications, UserID: actx.UserID}, "Notifications", nil)
	case domain.ActionMarkNotificationsRead:
		res = d.write(ctx, in.Action, actx, v, data{})

	case domain.ActionNavigate:
		res = d.navigate(v.get(domain.EntityTarget), actx)
	case domain.ActionSearch:
		res = d.searchAll(ctx, actx, v)
	case domain.ActionChangeTheme:
		res = d.changeTheme(v.get(domain.EntityTheme))
	case domain.ActionToggleAdminMode:
		res = d.toggleAdmin(actx)
	case domain.ActionExportData:
		format := v.get(domain.EntityExportFormat)
		if format == "" {
			format = "csv"
			v[domain.EntityExportFormat] = format
		}
		res = d.write(ctx, in.Action, actx, v, data{"format": strings.ToUpper(format)})
	case domain.ActionShowStats:
		res = d.stats(ctx, actx)
	case domain.ActionStartOnboarding:
		res = d.ok(in.Action, nil)
		res.NavigateTo = "/onboarding"
	case domain.ActionClearConversation:
		res = d.ok(in.Action, nil)
		res.SideEffects = &domain.SideEffects{ClearConversation: true}

	case domain.ActionUnknown:
		res = domain.Failed(domain.ErrorUnknownIntent, d.renderer.Render(domain.ActionUnknown, render.VariantSuccess, nil))
	default:
		d.logger.Warn("dispatch: unhandled action", "action", in.Action)
		res = domain.Failed(domain.ErrorUnknownIntent, d.renderer.Render(domain.ActionUnknown, render.VariantSuccess, nil))
	}

	if res.FollowUpSuggestions == nil {
		res.FollowUpSuggestions = followUps(in.Action)
	}
	return res
}

type data map[string]string

// entityValues is the merged entity and flow payload map of one request.
type entityValues map[string]string

func values(entities map[string]string) entityValues {
	v := make(entityValues, len(entities))
	for k, val := range entities {
		v[k] = strings.TrimSpace(val)
	}
	return v
}

func (v entityValues) get(key string) string { return v[key] }

func (v entityValues) first(keys ...string) string {
	for _, k := range keys {
		if s := v[k]; s != "" {
			return s
		}
	}
	return ""
}

func (d *Dispatcher) ok(action domain.Action, values data) domain.ActionResult {
	return domain.ActionResult{Success: true, Message: d.renderer.Render(action, render.VariantSuccess, values)}
}

func (d *Dispatcher) greet(actx domain.AssistantContext) domain.ActionResult {
	if actx.UserName != "" {
		return domain.ActionResult{Success: true, Message: d.renderer.Render(domain.ActionGreet, render.VariantNamed, data{"userName": actx.UserName})}
	}
	return d.ok(domain.ActionGreet, nil)
}

// create runs a creation command and attaches a summary card.
func (d *Dispatcher) create(ctx context.Context, action domain.Action, actx domain.AssistantContext, v entityValues, link, title string, msg data, required ...string) domain.ActionResult {
	for _, key := range required {
		if msg[key] == "" {
			return domain.Failed(domain.ErrorValidation, d.renderer.Render(domain.ActionUnknown, render.VariantMissingData, nil))
		}
	}
	res := d.write(ctx, action, actx, v, msg)
	if !res.Success {
		return res
	}
	res.Attachment = summaryCard(action, title, link, v)
	return res
}

// target runs a command on an existing record named by the user.
func (d *Dispatcher) target(ctx context.Context, action domain.Action, actx domain.AssistantContext, v entityValues, msg data, required ...string) domain.ActionResult {
	for _, key := range required {
		if msg[key] == "" {
			return domain.Failed(domain.ErrorValidation, d.renderer.Render(action, render.VariantMissingTarget, nil))
		}
	}
	return d.write(ctx, action, actx, v, msg)
}

func (d *Dispatcher) write(ctx context.Context, action domain.Action, actx domain.AssistantContext, v entityValues, msg data) domain.ActionResult {
	payload := make(map[string]string, len(v))
	for k, val := range v {
		if val != "" {
			payload[k] = val
		}
	}
	cmd := Command{Action: action, Payload: payload, UserID: actx.UserID, GroupID: actx.CurrentGroupID}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.executor.Execute(callCtx, cmd); err != nil {
		return d.failure(action, err)
	}
	return d.ok(action, msg)
}

func (d *Dispatcher) list(ctx context.Context, action domain.Action, q Query, title string, msg data) domain.ActionResult {
	if q.Limit == 0 {
		q.Limit = listLimit
	}
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	records, err := d.directory.Query(callCtx, q)
	if err != nil {
		return d.failure(action, err)
	}
	return d.listResult(action, title, records, msg)
}

func (d *Dispatcher) listResult(action domain.Action, title string, records []Record, msg data) domain.ActionResult {
	if msg == nil {
		msg = data{}
	}
	msg["count"] = strconv.Itoa(len(records))
	emptyText := d.renderer.Render(action, render.VariantEmpty, msg)

	attachment := domain.ListAttachment{Title: title, Items: items(records), EmptyText: emptyText}
	if len(records) == 0 {
		return domain.ActionResult{Success: true, Message: emptyText, Attachment: attachment}
	}
	return domain.ActionResult{Success: true, Message: d.renderer.Render(action, render.VariantSuccess, msg), Attachment: attachment}
}

func (d *Dispatcher) search(ctx context.Context, action domain.Action, actx domain.AssistantContext, v entityValues, collection Collection, title string) domain.ActionResult {
	query := v.first(domain.EntityQuery, domain.EntityName)
	if query == "" {
		return domain.Failed(domain.ErrorValidation, d.renderer.Render(domain.ActionSearch, render.VariantMissingTarget, nil))
	}
	q := Query{Collection: collection, UserID: actx.UserID, GroupID: actx.CurrentGroupID, Text: query}
	return d.list(ctx, action, q, title, data{"query": query})
}

var searchCollections = []struct {
	collection Collection
	label      string
}{
	{CollectionTasks, "Tâche"},
	{CollectionProjects, "Projet"},
	{CollectionMeetings, "Réunion"},
	{CollectionMembers, "Membre"},
}

func (d *Dispatcher) searchAll(ctx context.Context, actx domain.AssistantContext, v entityValues) domain.ActionResult {
	query := v.first(domain.EntityQuery, domain.EntityName)
	if query == "" {
		return domain.Failed(domain.ErrorValidation, d.renderer.Render(domain.ActionSearch, render.VariantMissingTarget, nil))
	}
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var all []Record
	for _, sc := range searchCollections {
		records, err := d.directory.Query(callCtx, Query{Collection: sc.collection, UserID: actx.UserID, GroupID: actx.CurrentGroupID, Text: query, Limit: listLimit})
		if err != nil {
			return d.failure(domain.ActionSearch, err)
		}
		for _, r := range records {
			if r.Subtitle == "" {
				r.Subtitle = sc.label
			}
			all = append(all, r)
		}
		if len(all) >= listLimit {
			all = all[:listLimit]
			break
		}
	}
	return d.listResult(domain.ActionSearch, "Résultats", all, data{"query": query})
}

func (d *Dispatcher) navigate(target string, actx domain.AssistantContext) domain.ActionResult {
	page, ok := sitemap.Lookup(target)
	if !ok && target != "" {
		page, ok = sitemap.Resolve(normalize.Text(target))
	}
	if ok {
		res := d.ok(domain.ActionNavigate, data{"page": page.Label})
		res.NavigateTo = page.Path
		return res
	}

	links := make([]domain.NavLink, 0, len(sitemap.Pages))
	for _, p := range sitemap.Pages {
		if p.Key == "admin" && actx.CurrentUserRole != domain.RoleOwner && actx.CurrentUserRole != domain.RoleAdmin {
			continue
		}
		links = append(links, domain.NavLink{Label: p.Label, Path: p.Path})
	}
	return domain.ActionResult{
		Success:    true,
		Message:    d.renderer.Render(domain.ActionNavigate, render.VariantMissingTarget, nil),
		Attachment: domain.NavigationAttachment{Links: links},
	}
}

var themeLabels = map[string]string{"dark": "sombre", "light": "clair", "system": "système"}

func (d *Dispatcher) changeTheme(theme string) domain.ActionResult {
	label, ok := themeLabels[theme]
	if !ok {
		res := domain.ActionResult{Success: true, Message: d.renderer.Render(domain.ActionChangeTheme, render.VariantMissingTarget, nil)}
		res.FollowUpSuggestions = followUps(domain.ActionChangeTheme)
		return res
	}
	res := d.ok(domain.ActionChangeTheme, data{"theme": label})
	res.SideEffects = &domain.SideEffects{Theme: theme}
	return res
}

func (d *Dispatcher) toggleAdmin(actx domain.AssistantContext) domain.ActionResult {
	next := !actx.AdminMode
	state := "désactivé"
	if next {
		state = "activé"
	}
	res := d.ok(domain.ActionToggleAdminMode, data{"state": state})
	res.SideEffects = &domain.SideEffects{AdminMode: &next}
	return res
}

var statQueries = []struct {
	label string
	icon  string
	query Query
}{
	{"Tâches à faire", "check-square", Query{Collection: CollectionTasks, Status: "todo"}},
	{"Tâches terminées", "check-circle", Query{Collection: CollectionTasks, Status: "done"}},
	{"Projets actifs", "folder", Query{Collection: CollectionProjects, Status: "in_progress"}},
	{"Réunions à venir", "calendar", Query{Collection: CollectionMeetings}},
	{"Notifications non lues", "bell", Query{Collection: CollectionNotifications, Status: "unread"}},
}

func (d *Dispatcher) stats(ctx context.Context, actx domain.AssistantContext) domain.ActionResult {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	stats := make([]domain.Stat, 0, len(statQueries))
	for _, sq := range statQueries {
		q := sq.query
		q.UserID = actx.UserID
		q.GroupID = actx.CurrentGroupID
		n, err := d.directory.Count(callCtx, q)
		if err != nil {
			return d.failure(domain.ActionShowStats, err)
		}
		stats = append(stats, domain.Stat{Label: sq.label, Value: n, Icon: sq.icon})
	}
	res := d.ok(domain.ActionShowStats, nil)
	res.Attachment = domain.StatsAttachment{Title: "Votre activité", Stats: stats}
	return res
}

var capabilityItems = []domain.ListItem{
	{ID: "tasks", Title: "Tâches", Subtitle: "créer, lister, terminer, assigner"},
	{ID: "projects", Title: "Projets", Subtitle: "créer, lister, rechercher"},
	{ID: "meetings", Title: "Réunions", Subtitle: "planifier, annuler, consulter l'agenda"},
	{ID: "absences", Title: "Absences", Subtitle: "poser un congé, suivre vos demandes"},
	{ID: "team", Title: "Équipe", Subtitle: "annuaire, invitations"},
	{ID: "navigation", Title: "Navigation", Subtitle: "« aller aux projets », « ouvre les paramètres »"},
	{ID: "commands", Title: "Commandes", Subtitle: "tapez /aide pour les raccourcis"},
}

func (d *Dispatcher) capabilities() domain.ActionResult {
	res := d.ok(domain.ActionCapabilities, nil)
	res.Attachment = domain.ListAttachment{Title: "Ce que je sais faire", Items: capabilityItems}
	return res
}

func (d *Dispatcher) failure(action domain.Action, err error) domain.ActionResult {
	if errors.Is(err, context.DeadlineExceeded) {
		d.logger.Warn("dispatch: host service timed out", "action", action, "timeout", d.timeout)
		return domain.Failed(domain.ErrorTimeout, d.renderer.Render(domain.ActionUnknown, render.VariantTimeout, nil))
	}
	d.logger.Warn("dispatch: host service failed", "action", action, "error", err)
	return domain.Failed(domain.ErrorDomainFailure, d.renderer.Render(domain.ActionUnknown, render.VariantError, nil))
}

func items(records []Record) []domain.ListItem {
	out := make([]domain.ListItem, 0, len(records))
	for _, r := range records {
		subtitle := r.Subtitle
		if !r.Date.IsZero() {
			date := flow.FrenchDate(r.Date.Format("2006-01-02"))
			if subtitle != "" {
				subtitle += " · " + date
			} else {
				subtitle = date
			}
		}
		out = append(out, domain.ListItem{ID: r.ID, Title: r.Title, Subtitle: subtitle, Status: r.Status, Link: r.Link})
	}
	return out
}

func summaryCard(action domain.Action, title, link string, v entityValues) domain.CardAttachment {
	card := domain.CardAttachment{Title: title, Link: link}
	def, ok := flow.Definitions[action]
	if !ok {
		return card
	}
	for _, step := range def.Steps {
		if step.Kind == flow.KindConfirm {
			continue
		}
		val := v.get(step.Field)
		if val == "" || val == title {
			continue
		}
		card.Fields = append(card.Fields, domain.Field{Label: flow.FieldLabel(step.Field), Value: flow.Display(step, val)})
	}
	return card
}
