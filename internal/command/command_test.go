package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/teamhub/internal/domain"
)

func TestIsCommand(t *testing.T) {
	t.Parallel()
	assert.True(t, IsCommand("/aide"))
	assert.True(t, IsCommand("   /tache x"))
	assert.True(t, IsCommand("/"))
	assert.False(t, IsCommand("aide /tache"))
	assert.False(t, IsCommand(""))
}

func TestParse(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, name, args string
	}{
		{"/tache Corriger le bug", "tache", "Corriger le bug"},
		{"  /TACHE   Corriger   le bug  ", "TACHE", "Corriger   le bug"},
		{"/aide", "aide", ""},
		{"/theme\tsombre", "theme", "sombre"},
		{"/", "", ""},
	}
	for _, tt := range tests {
		name, args := Parse(tt.in)
		assert.Equal(t, tt.name, name, tt.in)
		assert.Equal(t, tt.args, args, tt.in)
	}
}

func TestExecute_TaskViaAlias(t *testing.T) {
	t.Parallel()
	r := Default()

	for _, line := range []string{"/tache Corriger le bug", "/T Corriger le bug", "/Task Corriger le bug"} {
		res := r.Run(line, domain.AssistantContext{})
		require.False(t, res.NotFound, line)
		assert.Equal(t, "tache", res.Command)
		assert.Equal(t, domain.ActionCreateTask, res.Intent.Action)
		assert.Equal(t, domain.CategoryTask, res.Intent.Category)
		assert.Equal(t, "Corriger le bug", res.Intent.Entity(domain.EntityName))
		assert.Equal(t, 1.0, res.Intent.Confidence)
		assert.False(t, res.StartFlow)
		assert.Nil(t, res.Reply)
	}
}

func TestExecute_EmptyArgsReturnUsage(t *testing.T) {
	t.Parallel()
	r := Default()

	for _, name := range []string{"tache", "projet", "chercher", "aller", "theme"} {
		res := r.Execute(name, "", domain.AssistantContext{})
		require.NotNil(t, res.Reply, name)
		assert.False(t, res.HasAction(), name)
		assert.Equal(t, domain.ErrorValidation, res.Reply.ErrorKind, name)
		assert.Contains(t, res.Reply.Message, "Utilisation", name)
	}
}

func TestExecute_EveryHandlerIsTotal(t *testing.T) {
	t.Parallel()
	r := Default()
	for _, c := range r.Commands() {
		for _, args := range []string{"", " ", "n'importe quoi", "🙂"} {
			assert.NotPanics(t, func() { r.Execute(c.Name, args, domain.AssistantContext{}) }, c.Name)
		}
	}
}

func TestExecute_NotFound(t *testing.T) {
	t.Parallel()
	res := Default().Run("/inconnue abc", domain.AssistantContext{})

	assert.True(t, res.NotFound)
	require.NotNil(t, res.Reply)
	assert.Equal(t, domain.ErrorCommandNotFound, res.Reply.ErrorKind)
	assert.Contains(t, res.Reply.Message, "/inconnue")
	require.Len(t, res.Reply.FollowUpSuggestions, 1)
	assert.Equal(t, "/aide", res.Reply.FollowUpSuggestions[0].Query)
}

func TestExecute_NavigationResolvesPage(t *testing.T) {
	t.Parallel()
	res := Default().Run("/aller Réunions", domain.AssistantContext{})
	assert.Equal(t, domain.ActionNavigate, res.Intent.Action)
	assert.Equal(t, "meetings", res.Intent.Entity(domain.EntityTarget))
}

func TestExecute_FlowCommands(t *testing.T) {
	t.Parallel()
	r := Default()

	res := r.Run("/reunion Point hebdo", domain.AssistantContext{})
	assert.True(t, res.StartFlow)
	assert.Equal(t, "Point hebdo", res.Intent.Entity(domain.EntityName))

	res = r.Run("/conge", domain.AssistantContext{})
	assert.True(t, res.StartFlow)
	assert.Equal(t, domain.ActionRequestAbsence, res.Intent.Action)
}

func TestExecute_ThemeAndExport(t *testing.T) {
	t.Parallel()
	r := Default()

	assert.Equal(t, "dark", r.Run("/theme Sombre", domain.AssistantContext{}).Intent.Entity(domain.EntityTheme))
	assert.Equal(t, "csv", r.Run("/export", domain.AssistantContext{}).Intent.Entity(domain.EntityExportFormat))
	assert.Equal(t, "xlsx", r.Run("/export excel", domain.AssistantContext{}).Intent.Entity(domain.EntityExportFormat))
	assert.NotNil(t, r.Run("/export docx", domain.AssistantContext{}).Reply)
}

func TestExecute_HelpListsCommands(t *testing.T) {
	t.Parallel()
	r := Default()
	res := r.Run("/?", domain.AssistantContext{})

	assert.Equal(t, domain.ActionHelp, res.Intent.Action)
	require.NotNil(t, res.Reply)
	list, ok := res.Reply.Attachment.(domain.ListAttachment)
	require.True(t, ok)
	assert.Len(t, list.Items, len(r.Commands()))
}

func TestNewRegistry_DuplicateAliasPanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() {
		NewRegistry([]Command{
			{Name: "a", Aliases: []string{"x"}},
			{Name: "b", Aliases: []string{"X"}},
		})
	})
}
