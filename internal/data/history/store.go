package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSnapshot persists snapshot under projectKey and returns it with the
// generated run id and timestamp filled in.
func (s *Store) SaveSnapshot(projectKey string, snapshot Snapshot) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot.ProjectKey = normalizeKey(projectKey)
	if snapshot.RunID == "" {
		snapshot.RunID = uuid.NewString()
	}
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now().UTC()
	}
	if snapshot.SchemaVersion == 0 {
		snapshot.SchemaVersion = SchemaVersion
	}
	if snapshot.SchemaVersion != SchemaVersion {
		return snapshot, fmt.Errorf("unsupported snapshot schema version %d", snapshot.SchemaVersion)
	}
	if snapshot.UnusedNames == nil {
		snapshot.UnusedNames = []string{}
	}

	names, err := json.Marshal(snapshot.UnusedNames)
	if err != nil {
		return snapshot, fmt.Errorf("encode unused names: %w", err)
	}

	query := `
INSERT INTO snapshots (
  run_id, project_key, schema_version, ts_utc, commit_hash,
  dependency_count, unused_count, unused_names, files_scanned, warning_count
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	err = s.withRetry("save snapshot", func() error {
		_, err := s.db.Exec(
			query,
			snapshot.RunID,
			snapshot.ProjectKey,
			snapshot.SchemaVersion,
			snapshot.Timestamp.UTC().Format(timestampLayout),
			snapshot.CommitHash,
			snapshot.DependencyCount,
			snapshot.UnusedCount,
			string(names),
			snapshot.FilesScanned,
			snapshot.WarningCount,
		)
		return err
	})
	return snapshot, err
}

// timestampLayout is fixed width so ts_utc sorts lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

const selectColumns = `
SELECT
  run_id, project_key, schema_version, ts_utc, commit_hash,
  dependency_count, unused_count, unused_names, files_scanned, warning_count
FROM snapshots
`

// LoadSnapshots returns the snapshots of projectKey taken at or after since,
// oldest first. A zero since loads everything.
func (s *Store) LoadSnapshots(projectKey string, since time.Time) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := selectColumns + " WHERE project_key = ?"
	args := []any{normalizeKey(projectKey)}
	if !since.IsZero() {
		query += " AND ts_utc >= ?"
		args = append(args, since.UTC().Format(timestampLayout))
	}
	query += " ORDER BY ts_utc ASC, run_id ASC"

	return s.query("load snapshots", query, args...)
}

// Latest returns the most recent snapshot of projectKey. ok is false when
// the project has no history yet.
func (s *Store) Latest(projectKey string) (snapshot Snapshot, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.query(
		"load latest snapshot",
		selectColumns+" WHERE project_key = ? ORDER BY ts_utc DESC, run_id DESC LIMIT 1",
		normalizeKey(projectKey),
	)
	if err != nil || len(rows) == 0 {
		return Snapshot{}, false, err
	}
	return rows[0], true, nil
}

func (s *Store) query(op, query string, args ...any) ([]Snapshot, error) {
	var rows *sql.Rows
	err := s.withRetry(op, func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0)
	for rows.Next() {
		var (
			tsRaw    string
			namesRaw string
			snapshot Snapshot
		)
		if err := rows.Scan(
			&snapshot.RunID,
			&snapshot.ProjectKey,
			&snapshot.SchemaVersion,
			&tsRaw,
			&snapshot.CommitHash,
			&snapshot.DependencyCount,
			&snapshot.UnusedCount,
			&namesRaw,
			&snapshot.FilesScanned,
			&snapshot.WarningCount,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse snapshot timestamp %q: %w", tsRaw, err)
		}
		snapshot.Timestamp = ts.UTC()

		if err := json.Unmarshal([]byte(namesRaw), &snapshot.UnusedNames); err != nil {
			return nil, fmt.Errorf("decode unused names of run %s: %w", snapshot.RunID, err)
		}

		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snapshots, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func normalizeKey(projectKey string) string {
	projectKey = strings.TrimSpace(projectKey)
	if projectKey == "" {
		return "default"
	}
	return projectKey
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
