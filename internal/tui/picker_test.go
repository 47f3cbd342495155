package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/dabops/internal/workflow"
)

func send(t *testing.T, m tea.Model, msgs ...tea.Msg) Picker {
	t.Helper()
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	p, ok := m.(Picker)
	require.True(t, ok, "unexpected model %T", m)
	return p
}

var (
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	down  = tea.KeyMsg{Type: tea.KeyDown}
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	size  = tea.WindowSizeMsg{Width: 100, Height: 40}
)

func pickerWorkflows() []workflow.Summary {
	return []workflow.Summary{
		{JobID: 1, Name: "alpha"},
		{JobID: 2, Name: "beta"},
		{JobID: 3, Name: "gamma"},
	}
}

func TestPickerSelectsToggledWorkflows(t *testing.T) {
	p := send(t, NewPicker(pickerWorkflows()), size, space, down, down, space, enter)

	got := p.Selected()
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].JobID)
	assert.Equal(t, int64(3), got[1].JobID)
	assert.Contains(t, p.View(), "Selected 2 workflow(s): alpha, gamma")
}

func TestPickerToggleTwiceDeselects(t *testing.T) {
	p := send(t, NewPicker(pickerWorkflows()), size, space, space, enter)
	assert.Empty(t, p.Selected())
}

func TestPickerCancel(t *testing.T) {
	p := send(t, NewPicker(pickerWorkflows()), size, space, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.Nil(t, p.Selected())
	assert.Contains(t, p.View(), "Cancelled.")
}

func TestWorkflowItem(t *testing.T) {
	it := workflowItem{summary: workflow.Summary{JobID: 7, Name: "etl", CreatorUserName: "me", Description: "nightly"}}
	assert.Equal(t, "[ ] etl", it.Title())
	it.selected = true
	assert.Equal(t, "[x] etl", it.Title())
	assert.Equal(t, "job 7 by me | nightly", it.Description())
	assert.Equal(t, "etl 7", it.FilterValue())
}
