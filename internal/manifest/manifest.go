// Package manifest persists and queries a per-release patch list: which
// patches are declared for a release, and which of those have already been
// integrated into the production branch.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/half-orm/half-orm-dev/internal/hoperr"
)

// Status is a patch's integration state within a release manifest.
type Status string

const (
	StatusCandidate Status = "candidate"
	StatusStaged    Status = "staged"
)

// Entry is one patch's recorded state in a manifest.
type Entry struct {
	ID          string
	Status      Status
	MergeCommit string
}

// Manifest is the in-memory, ordered view of a releases/<version>-<stage>
// file. Order matches insertion order, which the legacy format expresses
// implicitly by line order and the TOML format by document order.
type Manifest struct {
	path    string
	order   []string
	entries map[string]Entry
}

// rawPatch is the table shape a single patch serializes to under its own
// [patches.<id>] header.
type rawPatch struct {
	Status      string `toml:"status"`
	MergeCommit string `toml:"merge_commit,omitempty"`
}

type rawDoc struct {
	Patches map[string]rawPatch `toml:"patches"`
}

// Path returns the backing file path.
func (m *Manifest) Path() string { return m.path }

// CreateEmpty writes an empty manifest at path if none exists yet. Calling
// it against an existing manifest is a no-op, regardless of contents.
func CreateEmpty(path string) (*Manifest, error) {
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}
	m := &Manifest{path: path, entries: map[string]Entry{}}
	if err := m.save(); err != nil {
		return nil, err
	}
	return m, nil
}

// Exists reports whether a manifest file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Load reads a manifest from path, auto-detecting the legacy plain-text
// format (one patch id per line, status implied by the filename's stage
// suffix) versus TOML.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is project-controlled
	if err != nil {
		return nil, hoperr.Wrap(hoperr.KindFileExecution, err, "failed to read release manifest "+path)
	}

	if strings.HasSuffix(path, ".txt") {
		return loadLegacy(path, data)
	}
	return loadTOML(path, data)
}

// loadLegacy parses the pre-existing plain-text manifest format: one patch
// id per line. A file name containing "-stage" carries only candidates (no
// patch in a stage file has been integrated yet); any other stage (rc<K>,
// hotfix) implies every listed patch has already been staged, since by the
// time a patch is promoted out of stage it has a merge commit — which the
// plain-text format never recorded. Writing such a manifest back as TOML via
// save therefore loses merge-commit history for legacy rows; this is
// accepted as the cost of reading a format that never had anywhere to put
// that information.
func loadLegacy(path string, data []byte) (*Manifest, error) {
	base := filepath.Base(path)
	impliedStaged := !strings.Contains(base, "-stage.")

	m := &Manifest{path: path, entries: map[string]Entry{}}
	for _, line := range strings.Split(string(data), "\n") {
		id := strings.TrimSpace(line)
		if id == "" {
			continue
		}
		status := StatusCandidate
		if impliedStaged {
			status = StatusStaged
		}
		m.order = append(m.order, id)
		m.entries[id] = Entry{ID: id, Status: status}
	}
	return m, nil
}

// loadTOML parses the current format. Patch order is recovered from
// toml.MetaData.Keys(), which BurntSushi/toml documents as returning keys
// "in the order in which they appear in the original TOML document" — this
// is what lets a map-keyed-by-id table still satisfy the insertion-order
// invariant without a redundant order array.
func loadTOML(path string, data []byte) (*Manifest, error) {
	var doc rawDoc
	meta, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, hoperr.Wrap(hoperr.KindFileExecution, err, "failed to parse release manifest "+path)
	}

	m := &Manifest{path: path, entries: map[string]Entry{}}
	seen := map[string]bool{}
	for _, key := range meta.Keys() {
		if len(key) != 2 || key[0] != "patches" {
			continue
		}
		id := key[1]
		if seen[id] {
			continue
		}
		seen[id] = true
		raw := doc.Patches[id]
		m.order = append(m.order, id)
		m.entries[id] = Entry{ID: id, Status: Status(raw.Status), MergeCommit: raw.MergeCommit}
	}
	return m, nil
}

// save writes the manifest as TOML, atomically: a legacy-loaded manifest is
// always upgraded to TOML on its first write.
func (m *Manifest) save() error {
	var b strings.Builder
	b.WriteString("[patches]\n")
	for _, id := range m.order {
		e := m.entries[id]
		fmt.Fprintf(&b, "\n[patches.%s]\n", id)
		fmt.Fprintf(&b, "status = %q\n", string(e.Status))
		if e.MergeCommit != "" {
			fmt.Fprintf(&b, "merge_commit = %q\n", e.MergeCommit)
		}
	}

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err, "failed to create releases directory "+dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(m.path)+".tmp-*")
	if err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err, "failed to create temp manifest file")
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(b.String()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return hoperr.Wrap(hoperr.KindFileExecution, err, "failed to write manifest contents")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return hoperr.Wrap(hoperr.KindFileExecution, err, "failed to close temp manifest file")
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		_ = os.Remove(tmpPath)
		return hoperr.Wrap(hoperr.KindFileExecution, err, "failed to install manifest "+m.path)
	}
	return nil
}

// AddPatch appends id as a candidate. It fails if id is already present at
// any status.
func (m *Manifest) AddPatch(id string) error {
	if _, ok := m.entries[id]; ok {
		return hoperr.New(hoperr.KindPatchAlreadyInRelease,
			fmt.Sprintf("patch %s is already present in manifest %s", id, m.path), "patch_id", id)
	}
	m.order = append(m.order, id)
	m.entries[id] = Entry{ID: id, Status: StatusCandidate}
	return m.save()
}

// MoveToStaged transitions id from candidate to staged, recording
// mergeCommit. It fails if id is missing or already staged.
func (m *Manifest) MoveToStaged(id string, mergeCommit string) error {
	e, ok := m.entries[id]
	if !ok {
		return hoperr.New(hoperr.KindPatchAlreadyInRelease,
			fmt.Sprintf("patch %s is not present in manifest %s", id, m.path), "patch_id", id)
	}
	if e.Status == StatusStaged {
		return hoperr.New(hoperr.KindPatchAlreadyInRelease,
			fmt.Sprintf("patch %s is already staged in manifest %s", id, m.path), "patch_id", id)
	}
	e.Status = StatusStaged
	e.MergeCommit = mergeCommit
	m.entries[id] = e
	return m.save()
}

// RemovePatch deletes id regardless of status.
func (m *Manifest) RemovePatch(id string) error {
	if _, ok := m.entries[id]; !ok {
		return nil
	}
	delete(m.entries, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return m.save()
}

// GetPatches returns ids in insertion order, optionally filtered by status.
// A nil status returns every patch.
func (m *Manifest) GetPatches(status *Status) []string {
	var ids []string
	for _, id := range m.order {
		if status != nil && m.entries[id].Status != *status {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// GetMergeCommit returns id's recorded merge commit, or "" if it has none
// (not present, or still a candidate).
func (m *Manifest) GetMergeCommit(id string) string {
	return m.entries[id].MergeCommit
}

// HasCandidates reports whether any patch in the manifest is still a
// candidate — the guard promote-to-rc consults before freezing a stage.
func (m *Manifest) HasCandidates() bool {
	for _, e := range m.entries {
		if e.Status == StatusCandidate {
			return true
		}
	}
	return false
}

// Contains reports whether id is present at any status.
func (m *Manifest) Contains(id string) bool {
	_, ok := m.entries[id]
	return ok
}

// StagePath builds the canonical path for a release stage manifest:
// releases/<version>-<stage>.toml.
func StagePath(releasesDir, version, stage string) string {
	return filepath.Join(releasesDir, fmt.Sprintf("%s-%s.toml", version, stage))
}

// FindStageManifest looks in releasesDir for any "<version>-stage.{toml,txt}"
// file, returning its path. At most one should exist per the manifest's
// co-existence invariant; if more than one is found (a corrupt or
// hand-edited tree), the lexicographically-first path is returned.
func FindStageManifest(releasesDir, version string) (string, bool) {
	entries, err := os.ReadDir(releasesDir)
	if err != nil {
		return "", false
	}
	var matches []string
	prefix := version + "-stage."
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), prefix) {
			matches = append(matches, filepath.Join(releasesDir, e.Name()))
		}
	}
	if len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)
	return matches[0], true
}
