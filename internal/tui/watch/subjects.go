package watch

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/ahroberts/tickflow/internal/api"
)

func newSubjectTable() table.Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Subject", Width: 24},
			{Title: "Priority", Width: 10},
			{Title: "Next", Width: 20},
			{Title: "State", Width: 10},
		}),
		table.WithFocused(true),
		table.WithHeight(6),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true)
	s.Selected = s.Selected.Foreground(lipgloss.Color("#E5C07B"))
	t.SetStyles(s)
	return t
}

func subjectRows(subjects []api.SubjectInfo) []table.Row {
	rows := make([]table.Row, 0, len(subjects))
	for _, s := range subjects {
		next := "realtime"
		if s.PeekDateTime != nil {
			next = s.PeekDateTime.Format("2006-01-02 15:04:05")
		}
		state := "active"
		if s.Eof {
			state = "done"
		}
		rows = append(rows, table.Row{
			s.Name,
			fmt.Sprintf("%d", s.Priority),
			next,
			state,
		})
	}
	return rows
}

func renderSubjects(t table.Model, theme Theme, width int) string {
	innerWidth := width - 4
	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Render("SUBJECTS"),
		t.View(),
	)
	return theme.Border.Width(innerWidth).Render(content)
}
