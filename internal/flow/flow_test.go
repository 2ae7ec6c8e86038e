package flow

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/teamhub/internal/domain"
)

func testEngine() *Engine {
	return NewEngine(WithClock(func() time.Time {
		return time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	}))
}

func TestStart_UnknownAction(t *testing.T) {
	t.Parallel()
	_, err := testEngine().Start(domain.ActionGreet, nil)
	assert.ErrorIs(t, err, ErrUnknownFlow)
	assert.False(t, RequiresFlow(domain.ActionGreet))
	assert.True(t, RequiresFlow(domain.ActionCreateTask))
}

func TestStart_CreateTaskAsksForTitle(t *testing.T) {
	t.Parallel()
	f, err := testEngine().Start(domain.ActionCreateTask, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, f.ID)
	assert.Equal(t, 0, f.CurrentStepIndex)
	assert.Equal(t, "title", f.Current().Field)

	prompt := Prompt(f)
	assert.Contains(t, prompt.Message, "titre")
	form, ok := prompt.Attachment.(domain.FormAttachment)
	require.True(t, ok)
	assert.Equal(t, "title", form.Field)
	assert.Equal(t, 1, form.Step)
	assert.Equal(t, 5, form.Total)
}

func TestStart_PrefillSkipsAnsweredSteps(t *testing.T) {
	t.Parallel()
	f, err := testEngine().Start(domain.ActionCreateMeeting, map[string]string{
		domain.EntityName: "Point hebdo",
		domain.EntityDate: "2025-03-15",
		domain.EntityTime: "14h",
	})
	require.NoError(t, err)

	assert.Equal(t, "type", f.Current().Field)
	assert.Equal(t, "Point hebdo", f.Collected["title"])
	assert.Equal(t, "2025-03-15", f.Collected["date"])
	assert.Equal(t, "14:00", f.Collected["time"])
}

func TestStart_InvalidPrefillIgnored(t *testing.T) {
	t.Parallel()
	f, err := testEngine().Start(domain.ActionCreateMeeting, map[string]string{
		domain.EntityName: "Point",
		domain.EntityDate: "2020-01-01",
	})
	require.NoError(t, err)

	assert.Equal(t, "date", f.Current().Field)
	assert.NotContains(t, f.Collected, "date")
}

func TestPrefill_CanonicalisesEntities(t *testing.T) {
	t.Parallel()
	got, err := testEngine().Prefill(domain.ActionCreateTask, map[string]string{
		domain.EntityName:     "  Corriger le bug ",
		domain.EntityPriority: "haute",
		domain.EntityDate:     "demain",
		domain.EntityAssignee: "bob",
	})
	require.NoError(t, err)

	assert.Equal(t, "Corriger le bug", got[domain.EntityName])
	assert.Equal(t, "high", got[domain.EntityPriority])
	assert.Equal(t, "2025-03-15", got[domain.EntityDate])
	assert.Equal(t, "bob", got[domain.EntityAssignee], "entities no step reads are kept")
}

func TestPrefill_RejectsWhatAFlowWouldRefuse(t *testing.T) {
	t.Parallel()
	e := testEngine()

	_, err := e.Prefill(domain.ActionCreateTask, map[string]string{domain.EntityName: "x"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "title", verr.Field)
	assert.Contains(t, verr.Reason, "au moins 2")

	_, err = e.Prefill(domain.ActionCreateProject, map[string]string{domain.EntityName: strings.Repeat("a", 81)})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)

	_, err = e.Prefill(domain.ActionCreateProject, map[string]string{domain.EntityName: "Refonte", domain.EntityDate: "2020-01-01"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "deadline", verr.Field)

	_, err = e.Prefill(domain.ActionGreet, nil)
	assert.ErrorIs(t, err, ErrUnknownFlow)
}

func TestAdvance_CompleteCreateTask(t *testing.T) {
	t.Parallel()
	e := testEngine()
	f, err := e.Start(domain.ActionCreateTask, nil)
	require.NoError(t, err)

	replies := []string{"Corriger le bug", "passer", "2", "demain"}
	for _, r := range replies {
		out, err := e.Advance(f, r)
		require.NoError(t, err)
		require.Nil(t, out.Invalid, r)
		require.Equal(t, StateAwaiting, out.State)
	}
	assert.Equal(t, KindConfirm, f.Current().Kind)

	confirm, ok := Prompt(f).Attachment.(domain.ConfirmAttachment)
	require.True(t, ok)
	assert.Equal(t, []domain.Field{
		{Label: "Titre", Value: "Corriger le bug"},
		{Label: "Priorité", Value: "Moyenne"},
		{Label: "Échéance", Value: "15 mars 2025"},
	}, confirm.Summary)

	out, err := e.Advance(f, "Oui")
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, out.State)
	assert.Equal(t, map[string]string{
		"title":    "Corriger le bug",
		"priority": "medium",
		"dueDate":  "2025-03-15",
	}, out.Payload)
}

func TestAdvance_RequiredStepDoesNotMoveOnBadInput(t *testing.T) {
	t.Parallel()
	e := testEngine()
	f, err := e.Start(domain.ActionCreateMeeting, nil)
	require.NoError(t, err)

	for _, bad := range []string{"", "   ", "passer", "x"} {
		out, err := e.Advance(f, bad)
		require.NoError(t, err)
		require.NotNil(t, out.Invalid, "%q", bad)
		assert.Equal(t, "title", out.Invalid.Field)
		assert.Equal(t, 0, f.CurrentStepIndex)
	}

	_, err = e.Advance(f, "Revue de sprint")
	require.NoError(t, err)
	require.Equal(t, 1, f.CurrentStepIndex)

	for _, bad := range []string{"hier", "31/02/2025", "01/01/2020"} {
		out, err := e.Advance(f, bad)
		require.NoError(t, err)
		require.NotNil(t, out.Invalid, bad)
		assert.Equal(t, 1, f.CurrentStepIndex)
	}

	_, err = e.Advance(f, "20/03/2025")
	require.NoError(t, err)
	out, err := e.Advance(f, "25h")
	require.NoError(t, err)
	assert.NotNil(t, out.Invalid)
	assert.Equal(t, 2, f.CurrentStepIndex)
}

func TestAdvance_SelectAcceptsValueLabelOrIndex(t *testing.T) {
	t.Parallel()
	e := testEngine()
	for _, reply := range []string{"visio", "Visioconférence", "1", "video"} {
		f, err := e.Start(domain.ActionCreateMeeting, map[string]string{
			domain.EntityName: "Sync", domain.EntityDate: "2025-03-20", domain.EntityTime: "10:00",
		})
		require.NoError(t, err)
		out, err := e.Advance(f, reply)
		require.NoError(t, err)
		if reply == "visio" {
			assert.NotNil(t, out.Invalid)
			continue
		}
		require.Nil(t, out.Invalid, reply)
		assert.Equal(t, "video", f.Collected["type"])
	}
}

func TestAdvance_AbsenceEndBeforeStartRejected(t *testing.T) {
	t.Parallel()
	e := testEngine()
	f, err := e.Start(domain.ActionRequestAbsence, map[string]string{domain.EntityAbsenceType: "vacation"})
	require.NoError(t, err)
	require.Equal(t, "startDate", f.Current().Field)

	_, err = e.Advance(f, "2025-04-10")
	require.NoError(t, err)

	out, err := e.Advance(f, "2025-04-09")
	require.NoError(t, err)
	require.NotNil(t, out.Invalid)
	assert.Contains(t, out.Invalid.Reason, "10 avril 2025")

	out, err = e.Advance(f, "2025-04-10")
	require.NoError(t, err)
	assert.Nil(t, out.Invalid)
	assert.Equal(t, "reason", f.Current().Field)
}

func TestAdvance_InviteRequiresValidEmail(t *testing.T) {
	t.Parallel()
	e := testEngine()
	f, err := e.Start(domain.ActionInviteMember, nil)
	require.NoError(t, err)

	out, err := e.Advance(f, "pas-une-adresse")
	require.NoError(t, err)
	assert.NotNil(t, out.Invalid)

	out, err = e.Advance(f, "Lea.Martin@Example.com")
	require.NoError(t, err)
	assert.Nil(t, out.Invalid)
	assert.Equal(t, "lea.martin@example.com", f.Collected["email"])
}

func TestAdvance_ConfirmAcceptsOnlyYesOrNo(t *testing.T) {
	t.Parallel()
	e := testEngine()
	f, err := e.Start(domain.ActionInviteMember, map[string]string{domain.EntityEmail: "a@b.fr"})
	require.NoError(t, err)
	_, err = e.Advance(f, "manager")
	require.NoError(t, err)
	require.Equal(t, KindConfirm, f.Current().Kind)

	out, err := e.Advance(f, "peut-être")
	require.NoError(t, err)
	assert.NotNil(t, out.Invalid)
	assert.Equal(t, StateAwaiting, out.State)

	out, err = e.Advance(f, "non")
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, out.State)
	assert.Nil(t, out.Payload)
}

func TestAdvance_IndexStaysInRange(t *testing.T) {
	t.Parallel()
	e := testEngine()
	for action := range Definitions {
		f, err := e.Start(action, nil)
		require.NoError(t, err)
		for i := 0; i < 20; i++ {
			_, err := e.Advance(f, "n'importe quoi")
			require.NoError(t, err)
			assert.GreaterOrEqual(t, f.CurrentStepIndex, 0)
			assert.Less(t, f.CurrentStepIndex, len(f.Steps))
		}
	}
}

func TestAdvanceAndCancel_NilFlow(t *testing.T) {
	t.Parallel()
	e := testEngine()
	_, err := e.Advance(nil, "oui")
	assert.True(t, errors.Is(err, ErrNoActiveFlow))
	_, err = e.Cancel(nil)
	assert.ErrorIs(t, err, ErrNoActiveFlow)
}

func TestIsCancel(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"annuler", "Annuler !", "stop", "/annuler", "/STOP", "laisse tomber", "cancel"} {
		assert.True(t, IsCancel(s), s)
	}
	for _, s := range []string{"oui", "annuler la réunion de demain", "", "stoppe"} {
		assert.False(t, IsCancel(s), s)
	}
}

func TestDefinitions_EndWithConfirm(t *testing.T) {
	t.Parallel()
	for action, def := range Definitions {
		require.NotEmpty(t, def.Steps, action)
		last := def.Steps[len(def.Steps)-1]
		assert.Equal(t, KindConfirm, last.Kind, action)
		assert.Empty(t, last.Prefill, action)
		assert.Equal(t, action, def.Action)
	}
}

func TestParseDate(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, time.December, 31, 12, 0, 0, 0, time.UTC)
	tests := map[string]string{
		"2026-01-05":   "2026-01-05",
		"05/01/2026":   "2026-01-05",
		"5/1":          "2025-01-05",
		"demain":       "2026-01-01",
		"Après-demain": "2026-01-02",
		"aujourd'hui":  "2025-12-31",
	}
	for in, want := range tests {
		got, ok := ParseDate(in, now)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseDate("30/02/2026", now)
	assert.False(t, ok)
}
