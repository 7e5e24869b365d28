package cli

import (
	coreapp "crateprune/internal/core/app"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	unusedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	findings   list.Model
	report     *coreapp.Report
	err        error
	showTrend  bool
	lastUpdate time.Time
}

// updateMsg carries the outcome of a watch rerun into the program.
type updateMsg struct {
	report *coreapp.Report
	err    error
}

func initialModel(report *coreapp.Report) model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Potentially unused dependencies"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)

	m := model{findings: l, showTrend: true}
	if report != nil {
		m = m.apply(updateMsg{report: report})
	}
	return m
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.findings.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "t":
			m.showTrend = !m.showTrend
			return m, nil
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		height := msg.Height - v - 6
		if height < 5 {
			height = 5
		}
		m.findings.SetSize(msg.Width-h, height)
		return m, nil
	case updateMsg:
		return m.apply(msg), nil
	}

	var cmd tea.Cmd
	m.findings, cmd = m.findings.Update(msg)
	return m, cmd
}

// apply records a rerun. A failed run keeps the previous findings on screen.
func (m model) apply(msg updateMsg) model {
	m.lastUpdate = time.Now()
	m.err = msg.err
	if msg.report == nil {
		return m
	}
	m.report = msg.report

	items := make([]list.Item, 0, len(msg.report.Unused))
	for _, e := range msg.report.Unused {
		items = append(items, itemFor(e))
	}
	m.findings.SetItems(items)
	return m
}

func itemFor(e coreapp.Entry) item {
	parts := []string{"[" + string(e.Section) + "]"}
	if e.Version != "" {
		parts = append(parts, e.Version)
	} else if e.Source != "" && e.Source != "registry" {
		parts = append(parts, e.Source)
	}
	if len(e.Features) > 0 {
		parts = append(parts, "features="+strings.Join(e.Features, ","))
	}
	if e.Target != "" {
		parts = append(parts, "target="+e.Target)
	}
	return item{title: e.Name, desc: strings.Join(parts, " ")}
}

func (m model) View() string {
	var b strings.Builder

	name := "crateprune"
	if m.report != nil && m.report.Package != "" {
		name += ": " + m.report.Package
	}
	b.WriteString(titleStyle(name))
	b.WriteString("\n\n")

	switch {
	case m.report == nil:
		b.WriteString(statusStyle.Render("Waiting for the first analysis..."))
		b.WriteString("\n")
	case !m.report.HasFindings():
		b.WriteString(successStyle.Render("No potentially unused dependencies found."))
		b.WriteString("\n")
	default:
		b.WriteString(m.findings.View())
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render("Last run failed: " + m.err.Error()))
		b.WriteString("\n")
	}

	if m.report != nil {
		st := m.report.Stats
		b.WriteString(unusedStyle.Render(fmt.Sprintf("%d unused", st.Unused)))
		b.WriteString(statusStyle.Render(fmt.Sprintf(
			" of %d dependencies | %d ignored | %d files | %d warnings",
			st.Dependencies, st.Ignored, st.FilesScanned, len(m.report.Warnings),
		)))
		b.WriteString("\n")

		if m.showTrend && m.report.Trend != nil && m.report.Trend.Changed() {
			tr := m.report.Trend
			if len(tr.NewlyUnused) > 0 {
				b.WriteString(unusedStyle.Render("newly unused: " + strings.Join(tr.NewlyUnused, ", ")))
				b.WriteString("\n")
			}
			if len(tr.NoLongerUnused) > 0 {
				b.WriteString(successStyle.Render("no longer unused: " + strings.Join(tr.NoLongerUnused, ", ")))
				b.WriteString("\n")
			}
		}
	}

	if !m.lastUpdate.IsZero() {
		b.WriteString(statusStyle.Render("Last update: " + m.lastUpdate.Format("15:04:05")))
		b.WriteString("\n")
	}
	b.WriteString(statusStyle.Render("q: quit  /: filter  t: toggle trend"))
	return docStyle.Render(b.String())
}
