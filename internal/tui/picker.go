package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mattjoyce/dabops/internal/workflow"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().MarginLeft(2)
	paginationStyle  = list.DefaultStyles().PaginationStyle.PaddingLeft(4)
	helpStyle        = list.DefaultStyles().HelpStyle.PaddingLeft(4).PaddingBottom(1)
	quitTextStyle    = lipgloss.NewStyle().Margin(1, 0, 2, 4)
)

type workflowItem struct {
	summary  workflow.Summary
	selected bool
}

func (i workflowItem) Title() string {
	check := "[ ]"
	if i.selected {
		check = "[x]"
	}
	return fmt.Sprintf("%s %s", check, i.summary.DisplayName())
}

func (i workflowItem) Description() string {
	desc := fmt.Sprintf("job %d", i.summary.JobID)
	if i.summary.CreatorUserName != "" {
		desc += " by " + i.summary.CreatorUserName
	}
	if i.summary.Description != "" {
		desc += " | " + i.summary.Description
	}
	return desc
}

func (i workflowItem) FilterValue() string {
	return fmt.Sprintf("%s %d", i.summary.Name, i.summary.JobID)
}

// Picker is a multi-select list of workflows. Space toggles, enter confirms,
// q or ctrl+c cancels; "/" filters.
type Picker struct {
	list     list.Model
	quitting bool
	done     bool
	selected []workflow.Summary
}

func NewPicker(workflows []workflow.Summary) Picker {
	items := make([]list.Item, 0, len(workflows))
	for _, wf := range workflows {
		items = append(items, workflowItem{summary: wf})
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Select workflows (Space to toggle, Enter to confirm)"
	l.Styles.Title = pickerTitleStyle
	l.Styles.PaginationStyle = paginationStyle
	l.Styles.HelpStyle = helpStyle

	return Picker{list: l}
}

func (m Picker) Init() tea.Cmd {
	return nil
}

func (m Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit

		case " ":
			if it, ok := m.list.SelectedItem().(workflowItem); ok {
				it.selected = !it.selected
				m.list.SetItem(m.list.Index(), it)
			}
			return m, nil

		case "enter":
			m.done = true
			m.selected = nil
			for _, li := range m.list.Items() {
				if it, ok := li.(workflowItem); ok && it.selected {
					m.selected = append(m.selected, it.summary)
				}
			}
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Picker) View() string {
	if m.quitting {
		return quitTextStyle.Render("Cancelled.")
	}
	if m.done {
		names := make([]string, 0, len(m.selected))
		for _, wf := range m.selected {
			names = append(names, wf.DisplayName())
		}
		return quitTextStyle.Render(fmt.Sprintf("Selected %d workflow(s): %s", len(names), strings.Join(names, ", ")))
	}
	return "\n" + m.list.View()
}

// Selected returns the confirmed selection in list order, nil when cancelled.
func (m Picker) Selected() []workflow.Summary {
	if m.quitting {
		return nil
	}
	return m.selected
}

// Pick runs the picker on the given terminal streams.
func Pick(workflows []workflow.Summary, in io.Reader, out io.Writer) ([]workflow.Summary, error) {
	p := tea.NewProgram(NewPicker(workflows), tea.WithInput(in), tea.WithOutput(out), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("workflow picker: %w", err)
	}
	picker, ok := final.(Picker)
	if !ok {
		return nil, fmt.Errorf("workflow picker: unexpected model %T", final)
	}
	return picker.Selected(), nil
}
