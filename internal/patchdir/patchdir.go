// Package patchdir owns the Patches/<id>/ tree: creation, structural
// validation, and ordered file enumeration. It never inspects what a patch
// file does, only its name and position.
package patchdir

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/half-orm/half-orm-dev/internal/fileexec"
	"github.com/half-orm/half-orm-dev/internal/hoperr"
)

// fileNameRe matches the NN_description.ext convention: a numeric sequence
// prefix, underscore, arbitrary description, and a sql/py extension.
var fileNameRe = regexp.MustCompile(`^(\d+)_.+\.(sql|py)$`)

// FileKind distinguishes script files by extension.
type FileKind string

const (
	KindSQL    FileKind = "sql"
	KindPython FileKind = "py"
	KindAny    FileKind = ""
)

// File describes one script file within a patch directory.
type File struct {
	Name     string // base name, e.g. "01_roles.sql"
	Path     string // absolute path
	Sequence int
	Kind     FileKind
	IsData   bool
}

// Manager owns every Patches/<id>/ directory under root.
type Manager struct {
	root string // project root; patches live under root/Patches
}

// New returns a Manager rooted at projectRoot.
func New(projectRoot string) *Manager {
	return &Manager{root: projectRoot}
}

// Dir returns the path to Patches/<id>.
func (m *Manager) Dir(id string) string {
	return filepath.Join(m.root, "Patches", id)
}

// Create makes Patches/<id>/ with a minimal README.md. It refuses if the
// directory already exists, and removes anything it created if a later
// step in this call fails.
func (m *Manager) Create(id string, readmeHint string) error {
	dir := m.Dir(id)
	if _, err := os.Stat(dir); err == nil {
		return hoperr.New(hoperr.KindNameConflict, "patch directory already exists: "+dir, "patch_id", id)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err, "failed to create patch directory "+dir, "patch_id", id)
	}

	readme := "# " + id + "\n"
	if readmeHint != "" {
		readme += "\n" + readmeHint + "\n"
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte(readme), 0o644); err != nil {
		_ = os.RemoveAll(dir)
		return hoperr.Wrap(hoperr.KindFileExecution, err, "failed to write README.md for patch "+id, "patch_id", id)
	}
	return nil
}

// Structure verifies that id's directory exists, is readable, and contains
// at least one file matching NN_description.{sql,py}. It performs no
// content validation and returns every structural complaint found, rather
// than stopping at the first.
func (m *Manager) Structure(id string) (ok bool, errs []string) {
	dir := m.Dir(id)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, []string{fmt.Sprintf("patch directory %s is missing or unreadable: %v", dir, err)}
	}

	hasScript := false
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if fileNameRe.MatchString(e.Name()) {
			hasScript = true
			break
		}
	}
	if !hasScript {
		errs = append(errs, fmt.Sprintf("patch directory %s contains no NN_description.{sql,py} file", dir))
	}
	return len(errs) == 0, errs
}

// Files enumerates id's script files in lexicographic name order — the
// order in which they execute. kind filters by extension; KindAny returns
// both.
func (m *Manager) Files(id string, kind FileKind) ([]File, error) {
	dir := m.Dir(id)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, hoperr.Wrap(hoperr.KindFileExecution, err, "failed to read patch directory "+dir, "patch_id", id)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !fileNameRe.MatchString(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var files []File
	for _, name := range names {
		match := fileNameRe.FindStringSubmatch(name)
		ext := FileKind(match[2])
		if kind != KindAny && ext != kind {
			continue
		}
		seq, _ := strconv.Atoi(match[1])
		path := filepath.Join(dir, name)
		files = append(files, File{
			Name:     name,
			Path:     path,
			Sequence: seq,
			Kind:     ext,
			IsData:   fileexec.IsDataFile(path),
		})
	}
	return files, nil
}

// DataFiles returns the subset of id's files carrying a @HOP:data or
// @HOP:bootstrap marker, in execution order — the set replayed on
// from-scratch installs.
func (m *Manager) DataFiles(id string) ([]File, error) {
	all, err := m.Files(id, KindAny)
	if err != nil {
		return nil, err
	}
	var data []File
	for _, f := range all {
		if f.IsData {
			data = append(data, f)
		}
	}
	return data, nil
}

// AllPatches enumerates every valid patch directory under Patches/, sorted
// by numeric prefix (not lexicographically — "2-x" sorts before "10-y").
func (m *Manager) AllPatches() ([]string, error) {
	patchesDir := filepath.Join(m.root, "Patches")
	entries, err := os.ReadDir(patchesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, hoperr.Wrap(hoperr.KindFileExecution, err, "failed to read Patches directory")
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if numberPrefix(e.Name()) < 0 {
			continue
		}
		ids = append(ids, e.Name())
	}

	sort.Slice(ids, func(i, j int) bool {
		return numberPrefix(ids[i]) < numberPrefix(ids[j])
	})
	return ids, nil
}

// numberPrefix extracts the leading integer from a patch id ("42" or
// "42-slug"), returning -1 if id doesn't start with digits.
func numberPrefix(id string) int {
	i := 0
	for i < len(id) && id[i] >= '0' && id[i] <= '9' {
		i++
	}
	if i == 0 {
		return -1
	}
	n, err := strconv.Atoi(id[:i])
	if err != nil {
		return -1
	}
	if i < len(id) && id[i] != '-' {
		return -1
	}
	return n
}
