// Package tui renders a paginated result table as an interactive
// terminal view built on bubbletea's table component.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/emberbi/ember/internal/transformers"
)

// Layout constants.
const (
	minColumnWidth = 8
	maxColumnWidth = 32
	viewHeight     = 20
)

// headerStyle and selectedStyle define the table chrome.
var (
	headerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			Bold(true)
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))
	helpStyle = lipgloss.NewStyle().Faint(true)
)

// Model is the bubbletea model for the result viewer.
type Model struct {
	table table.Model
	total int
}

// NewModel builds the viewer from rendered table data.
func NewModel(data *transformers.TableData) Model {
	columns := make([]table.Column, len(data.Headers))
	for i, h := range data.Headers {
		width := len(h)
		for _, row := range data.Rows {
			if i < len(row) && len(row[i]) > width {
				width = len(row[i])
			}
		}
		if width < minColumnWidth {
			width = minColumnWidth
		}
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		columns[i] = table.Column{Title: h, Width: width}
	}
	rows := make([]table.Row, len(data.Rows))
	for i, r := range data.Rows {
		rows[i] = table.Row(r)
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(viewHeight),
	)
	styles := table.DefaultStyles()
	styles.Header = headerStyle
	styles.Selected = selectedStyle
	t.SetStyles(styles)

	return Model{table: t, total: len(rows)}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	status := fmt.Sprintf("%d rows · ↑/↓ scroll · q quit", m.total)
	return m.table.View() + "\n" + helpStyle.Render(status) + "\n"
}

// Run shows the viewer until the user quits.
func Run(data *transformers.TableData) error {
	_, err := tea.NewProgram(NewModel(data)).Run()
	return err
}
