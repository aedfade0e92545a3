package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/half-orm/half-orm-dev/internal/applier"
	"github.com/half-orm/half-orm-dev/internal/hoperr"
	"github.com/half-orm/half-orm-dev/internal/manifest"
	"github.com/half-orm/half-orm-dev/internal/version"
)

var stageFileRe = regexp.MustCompile(`^(\d+\.\d+\.\d+)-stage\.(toml|txt)$`)
var rcFileRe = regexp.MustCompile(`^(\d+\.\d+\.\d+)-rc(\d+)\.(toml|txt)$`)

// findOpenStage locates the open stage manifest under releasesDir. Multiple
// release levels may coexist in principle (0.0.1-stage, 0.1.0-stage, ...),
// but add-to-release and promote-to-rc both operate on "the" open stage by
// name with no version argument — this requires exactly one to be open at a
// time and reports not-found rather than guessing among several.
func findOpenStage(releasesDir string) (string, bool) {
	entries, err := os.ReadDir(releasesDir)
	if err != nil {
		return "", false
	}
	var matches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if stageFileRe.MatchString(e.Name()) {
			matches = append(matches, filepath.Join(releasesDir, e.Name()))
		}
	}
	if len(matches) != 1 {
		return "", false
	}
	return matches[0], true
}

// FindOpenStage exposes findOpenStage for callers outside this package
// (cmd/hop's status command) that need to report the open stage without
// driving any orchestrator command.
func FindOpenStage(releasesDir string) (string, bool) {
	return findOpenStage(releasesDir)
}

// stageVersion extracts "X.Y.Z" from a stage or rc manifest path's basename.
func stageVersion(path string) string {
	base := filepath.Base(path)
	if m := stageFileRe.FindStringSubmatch(base); m != nil {
		return m[1]
	}
	if m := rcFileRe.FindStringSubmatch(base); m != nil {
		return m[1]
	}
	return ""
}

// nextRCNumber returns 1 + the highest existing rc<K> manifest recorded for
// targetVersion, or 1 if none exist yet.
func nextRCNumber(releasesDir, targetVersion string) int {
	entries, err := os.ReadDir(releasesDir)
	if err != nil {
		return 1
	}
	max := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := rcFileRe.FindStringSubmatch(e.Name())
		if m == nil || m[1] != targetVersion {
			continue
		}
		if n, err := strconv.Atoi(m[2]); err == nil && n > max {
			max = n
		}
	}
	return max + 1
}

// findPromotedRC returns the highest rc<K> manifest recorded for
// targetVersion — the one deploy-to-prod replays.
func findPromotedRC(releasesDir, targetVersion string) (string, bool) {
	entries, err := os.ReadDir(releasesDir)
	if err != nil {
		return "", false
	}
	best := 0
	var bestPath string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := rcFileRe.FindStringSubmatch(e.Name())
		if m == nil || m[1] != targetVersion {
			continue
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		if n > best {
			best = n
			bestPath = filepath.Join(releasesDir, e.Name())
		}
	}
	if bestPath == "" {
		return "", false
	}
	return bestPath, true
}

// ReleaseHistory returns, in ascending version order, the highest promoted
// rc manifest recorded for every distinct release version under
// releasesDir — the sequence restore uses to rebuild a database from
// scratch: it loads the schema snapshot of the last entry, then replays
// every entry's data files in order.
func ReleaseHistory(releasesDir string) ([]applier.ReleaseStep, error) {
	entries, err := os.ReadDir(releasesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, hoperr.Wrap(hoperr.KindFileExecution, err, "failed to read "+releasesDir)
	}

	versions := map[string]bool{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if m := rcFileRe.FindStringSubmatch(e.Name()); m != nil {
			versions[m[1]] = true
		}
	}

	list := make([]string, 0, len(versions))
	for v := range versions {
		list = append(list, v)
	}
	sort.Slice(list, func(i, j int) bool {
		vi, erri := version.Parse(list[i])
		vj, errj := version.Parse(list[j])
		if erri != nil || errj != nil {
			return list[i] < list[j]
		}
		return version.Compare(vi, vj) < 0
	})

	steps := make([]applier.ReleaseStep, 0, len(list))
	for _, v := range list {
		rcPath, ok := findPromotedRC(releasesDir, v)
		if !ok {
			continue
		}
		m, err := manifest.Load(rcPath)
		if err != nil {
			return nil, err
		}
		steps = append(steps, applier.ReleaseStep{Version: v, Manifest: m})
	}
	return steps, nil
}

func osRename(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err, fmt.Sprintf("failed to rename %s to %s", oldPath, newPath))
	}
	return nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err, "failed to create "+filepath.Dir(path))
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return hoperr.Wrap(hoperr.KindFileExecution, err, "failed to write "+path)
	}
	return nil
}
