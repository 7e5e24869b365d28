package app

import (
	"crateprune/internal/data/history"
	"log/slog"
)

// recordHistory saves a snapshot of report and attaches the trend against
// the previous snapshot. It is a no-op without a history store.
func (a *App) recordHistory(report *Report) error {
	if a.history == nil {
		return nil
	}

	key := a.Config.History.ProjectKey
	prev, hasPrev, err := a.history.Latest(key)
	if err != nil {
		return err
	}

	saved, err := a.history.SaveSnapshot(key, history.Snapshot{
		Timestamp:       report.GeneratedAt,
		CommitHash:      history.ResolveCommit(a.Paths.ProjectRoot),
		DependencyCount: report.Stats.Dependencies,
		UnusedCount:     report.Stats.Unused,
		UnusedNames:     report.UnusedNames(),
		FilesScanned:    report.Stats.FilesScanned,
		WarningCount:    len(report.Warnings),
	})
	if err != nil {
		return err
	}
	report.RunID = saved.RunID

	if hasPrev {
		trend := history.Diff(prev, saved)
		if window := a.Config.History.Window; window > 0 {
			recent, err := a.history.LoadSnapshots(key, report.GeneratedAt.Add(-window))
			if err != nil {
				return err
			}
			trend.ApplyWindow(recent)
		}
		report.Trend = &trend
		slog.Debug("history trend", "previous_run", prev.RunID, "newly_unused", len(trend.NewlyUnused), "no_longer_unused", len(trend.NoLongerUnused))
	}
	return nil
}
