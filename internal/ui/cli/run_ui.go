package cli

import (
	coreapp "crateprune/internal/core/app"

	tea "github.com/charmbracelet/bubbletea"
)

func runUI(app *coreapp.App, initial *coreapp.Report) error {
	p := tea.NewProgram(initialModel(initial), tea.WithAltScreen())

	app.SetUpdateHandler(func(update coreapp.Update) {
		p.Send(updateMsg{report: update.Report, err: update.Err})
	})

	_, err := p.Run()
	return err
}
