// Package bootstrap manages the bootstrap/ directory: data-initialization
// scripts that run once per target database, tracked in the
// half_orm_meta.bootstrap table so repeated deploys don't repeat them.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/half-orm/half-orm-dev/internal/database"
	"github.com/half-orm/half-orm-dev/internal/fileexec"
	"github.com/half-orm/half-orm-dev/internal/hoperr"
)

// filenameRe matches <number>-<patch_id>-<version>.<ext>, e.g.
// "1-init-users-0.1.0.sql".
var filenameRe = regexp.MustCompile(`^(\d+)-(.+)-(\d+\.\d+\.\d+)\.(sql|py)$`)

// File is one parsed bootstrap script.
type File struct {
	Name    string
	Path    string
	Number  int
	PatchID string
	Version string
	Ext     string // "sql" or "py"
}

// parseFilename parses name per filenameRe, or reports ok=false.
func parseFilename(name string) (File, bool) {
	m := filenameRe.FindStringSubmatch(name)
	if m == nil {
		return File{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return File{}, false
	}
	return File{Name: name, Number: n, PatchID: m[2], Version: m[3], Ext: m[4]}, true
}

// Manager owns bootstrap/ for one project, executing scripts against db.
type Manager struct {
	dir string
	db  *database.Database
}

// New returns a Manager for the bootstrap/ directory under projectRoot.
func New(projectRoot string, db *database.Database) *Manager {
	return &Manager{dir: filepath.Join(projectRoot, "bootstrap"), db: db}
}

// Dir returns the bootstrap directory path.
func (m *Manager) Dir() string { return m.dir }

// EnsureDir creates bootstrap/ if absent. Idempotent.
func (m *Manager) EnsureDir() error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err, "failed to create bootstrap directory "+m.dir)
	}
	return nil
}

// List returns every bootstrap file, sorted by numeric prefix (not
// lexicographically — "2-..." sorts before "10-...").
func (m *Manager) List() ([]File, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, hoperr.Wrap(hoperr.KindFileExecution, err, "failed to read bootstrap directory "+m.dir)
	}

	var files []File
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		f, ok := parseFilename(e.Name())
		if !ok {
			continue
		}
		f.Path = filepath.Join(m.dir, e.Name())
		files = append(files, f)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Number < files[j].Number })
	return files, nil
}

// ExecutedFilenames queries half_orm_meta.bootstrap for filenames already
// run against this database. A missing table (pre-migration database)
// reports an empty set rather than an error.
func (m *Manager) ExecutedFilenames(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.Query(ctx, "SELECT filename FROM half_orm_meta.bootstrap")
	if err != nil {
		return map[string]bool{}, nil
	}
	executed := make(map[string]bool, len(rows))
	for _, row := range rows {
		if name, ok := row["filename"].(string); ok {
			executed[name] = true
		}
	}
	return executed, nil
}

// Pending returns List() minus ExecutedFilenames().
func (m *Manager) Pending(ctx context.Context) ([]File, error) {
	all, err := m.List()
	if err != nil {
		return nil, err
	}
	executed, err := m.ExecutedFilenames(ctx)
	if err != nil {
		return nil, err
	}

	var pending []File
	for _, f := range all {
		if !executed[f.Name] {
			pending = append(pending, f)
		}
	}
	return pending, nil
}

// NextNumber returns 1 + the highest existing numeric prefix, or 1 if no
// bootstrap files exist yet.
func (m *Manager) NextNumber() (int, error) {
	files, err := m.List()
	if err != nil {
		return 0, err
	}
	max := 0
	for _, f := range files {
		if f.Number > max {
			max = f.Number
		}
	}
	return max + 1, nil
}

// recordExecution upserts filename's execution record.
func (m *Manager) recordExecution(ctx context.Context, filename, version string) error {
	return m.db.Execute(ctx, `
		INSERT INTO half_orm_meta.bootstrap (filename, version)
		VALUES ($1, $2)
		ON CONFLICT (filename) DO UPDATE SET
			version = EXCLUDED.version,
			executed_at = NOW()`,
		filename, version)
}

func (m *Manager) executeFile(ctx context.Context, f File) error {
	switch f.Ext {
	case "sql":
		return fileexec.ExecuteSQL(ctx, f.Path, m.db.DB())
	case "py":
		_, err := fileexec.ExecutePython(ctx, f.Path, m.dir, "")
		return err
	default:
		return hoperr.New(hoperr.KindFileExecution, "unsupported bootstrap file type: "+f.Ext, "filename", f.Name)
	}
}

// RunResult reports what Run did, file by file.
type RunResult struct {
	Executed []string
	Skipped  []string
	Excluded []string
	Errors   []FileError
}

// FileError pairs a filename with the error executing it produced.
type FileError struct {
	Filename string
	Err      error
}

// Run executes pending bootstrap files in numeric order. With force, every
// file runs regardless of tracking. Files belonging to excludePatchID are
// skipped — used during integration of that patch so its own freshly
// created bootstrap file isn't immediately re-run by the developer's own
// add-to-release verification pass. Execution stops at the first error;
// dryRun reports what would run without touching the database.
func (m *Manager) Run(ctx context.Context, dryRun, force bool, excludePatchID string) (RunResult, error) {
	var result RunResult

	var toRun []File
	if force {
		all, err := m.List()
		if err != nil {
			return result, err
		}
		toRun = all
	} else {
		pending, err := m.Pending(ctx)
		if err != nil {
			return result, err
		}
		toRun = pending

		all, err := m.List()
		if err != nil {
			return result, err
		}
		executed, err := m.ExecutedFilenames(ctx)
		if err != nil {
			return result, err
		}
		for _, f := range all {
			if executed[f.Name] {
				result.Skipped = append(result.Skipped, f.Name)
			}
		}
	}

	for _, f := range toRun {
		if excludePatchID != "" && f.PatchID == excludePatchID {
			result.Excluded = append(result.Excluded, f.Name)
			continue
		}

		if dryRun {
			result.Executed = append(result.Executed, f.Name)
			continue
		}

		if err := m.executeFile(ctx, f); err != nil {
			result.Errors = append(result.Errors, FileError{Filename: f.Name, Err: err})
			break
		}
		if err := m.recordExecution(ctx, f.Name, f.Version); err != nil {
			result.Errors = append(result.Errors, FileError{Filename: f.Name, Err: err})
			break
		}
		result.Executed = append(result.Executed, f.Name)
	}

	return result, nil
}

// NextFilename renders the canonical bootstrap filename for a new script.
func NextFilename(number int, patchID, version, ext string) string {
	return fmt.Sprintf("%d-%s-%s.%s", number, patchID, version, ext)
}
