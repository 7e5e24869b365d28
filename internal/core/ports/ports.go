package ports

import (
	"context"
	"crateprune/internal/data/history"
	"crateprune/internal/engine/corpus"
	"crateprune/internal/engine/manifest"
	"time"
)

// ManifestReader abstracts loading the dependency declarations of a crate.
type ManifestReader interface {
	Read(path string) (*manifest.Manifest, error)
}

// CorpusScanner abstracts building the token corpus of a project tree.
type CorpusScanner interface {
	Scan(ctx context.Context, root string) (*corpus.Result, error)
}

// HistoryStore abstracts snapshot persistence for trend reporting.
type HistoryStore interface {
	SaveSnapshot(projectKey string, snapshot history.Snapshot) (history.Snapshot, error)
	LoadSnapshots(projectKey string, since time.Time) ([]history.Snapshot, error)
	Latest(projectKey string) (history.Snapshot, bool, error)
}
