package history

import "slices"

// Diff reports which unused names appeared or disappeared between prev and
// current. Name lists are sorted.
func Diff(prev, current Snapshot) Trend {
	before := make(map[string]bool, len(prev.UnusedNames))
	for _, name := range prev.UnusedNames {
		before[name] = true
	}
	now := make(map[string]bool, len(current.UnusedNames))
	for _, name := range current.UnusedNames {
		now[name] = true
	}

	trend := Trend{
		PreviousRunID:  prev.RunID,
		PreviousAt:     prev.Timestamp,
		NewlyUnused:    []string{},
		NoLongerUnused: []string{},
		DeltaUnused:    current.UnusedCount - prev.UnusedCount,
	}
	for name := range now {
		if !before[name] {
			trend.NewlyUnused = append(trend.NewlyUnused, name)
		}
	}
	for name := range before {
		if !now[name] {
			trend.NoLongerUnused = append(trend.NoLongerUnused, name)
		}
	}
	slices.Sort(trend.NewlyUnused)
	slices.Sort(trend.NoLongerUnused)
	return trend
}

// ApplyWindow summarizes the snapshots saved inside the history window.
func (t *Trend) ApplyWindow(snapshots []Snapshot) {
	t.WindowRuns = len(snapshots)
	t.WindowPeakUnused = 0
	for _, s := range snapshots {
		t.WindowPeakUnused = max(t.WindowPeakUnused, s.UnusedCount)
	}
}

// Changed reports whether the trend carries any name movement.
func (t Trend) Changed() bool {
	return len(t.NewlyUnused) > 0 || len(t.NoLongerUnused) > 0
}
