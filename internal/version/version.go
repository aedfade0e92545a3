// Package version implements semantic version parsing, progression, and
// Git branch/tag name derivation for the half-orm-dev Git-centric workflow.
//
// Branch & Tag convention:
//   - Development: ho-dev/X.Y.x
//   - Production:  ho/X.Y.x
//   - Release tags: vX.Y.Z or vX.Y.Z-prerelease
//   - Main: main (version ignored)
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/half-orm/half-orm-dev/internal/hoperr"
)

// Kind names the highest-order component that changed between two versions,
// or the branch type requested when deriving a branch name.
type Kind string

const (
	Major Kind = "major"
	Minor Kind = "minor"
	Patch Kind = "patch"
)

// BranchType selects which branch namespace a branch name is derived for.
type BranchType string

const (
	BranchDevelopment BranchType = "development"
	BranchProduction  BranchType = "production"
	BranchMain        BranchType = "main"
)

var validPrereleasePrefixes = []string{"alpha", "beta", "rc", "dev"}

var semverPartRe = regexp.MustCompile(`^\d+$`)

// Info is the canonical parsed representation of a version spec.
type Info struct {
	Major         int
	Minor         int
	Patch         int
	PreRelease    string // "" if release
	PreReleaseNum int    // 0 if no numeric suffix
}

// IsPreRelease reports whether this version carries a pre-release tag.
func (v Info) IsPreRelease() bool { return v.PreRelease != "" }

// BaseString renders "major.minor.patch" without any pre-release suffix.
func (v Info) BaseString() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// String renders the canonical version string, including pre-release suffix
// if present. render(parse(s)) == canonical(s) for every valid s.
func (v Info) String() string {
	if v.PreRelease == "" {
		return v.BaseString()
	}
	if v.PreReleaseNum == 0 {
		return fmt.Sprintf("%s-%s", v.BaseString(), v.PreRelease)
	}
	return fmt.Sprintf("%s-%s%d", v.BaseString(), v.PreRelease, v.PreReleaseNum)
}

// ReleaseTag returns "v" + the canonical version string.
func (v Info) ReleaseTag() string { return "v" + v.String() }

// DevBranch returns the development maintenance branch for this version's
// minor line, e.g. "ho-dev/1.3.x".
func (v Info) DevBranch() string { return fmt.Sprintf("ho-dev/%d.%d.x", v.Major, v.Minor) }

// ProductionBranch returns the production maintenance branch for this
// version's minor line, e.g. "ho/1.3.x".
func (v Info) ProductionBranch() string { return fmt.Sprintf("ho/%d.%d.x", v.Major, v.Minor) }

// BranchName derives the branch name for kind; BranchMain always yields
// "main" regardless of the version.
func (v Info) BranchName(kind BranchType) string {
	switch kind {
	case BranchMain:
		return "main"
	case BranchProduction:
		return v.ProductionBranch()
	default:
		return v.DevBranch()
	}
}

// Parse accepts any of N, N.M, N.M.P, N.M.P-pre and expands it to a
// canonical Info. Leading zeros, non-numeric components, unknown
// pre-release prefixes, and a suffix of 0 are all rejected.
func Parse(spec string) (Info, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Info{}, hoperr.New(hoperr.KindInvalidVersion, "version spec cannot be empty")
	}

	base, pre, err := splitPreRelease(spec)
	if err != nil {
		return Info{}, err
	}

	parts := strings.Split(base, ".")
	if len(parts) > 3 {
		return Info{}, hoperr.New(hoperr.KindInvalidVersion,
			fmt.Sprintf("invalid version spec: %q", spec), "value", spec)
	}

	nums := make([]int, 3)
	for i, part := range parts {
		n, err := parseComponent(part)
		if err != nil {
			return Info{}, hoperr.Wrap(hoperr.KindInvalidVersion, err,
				fmt.Sprintf("invalid version component in %q", spec), "value", spec)
		}
		nums[i] = n
	}

	info := Info{Major: nums[0], Minor: nums[1], Patch: nums[2]}

	if pre != "" {
		prefix, num, err := parsePreRelease(pre)
		if err != nil {
			return Info{}, err
		}
		info.PreRelease = prefix
		info.PreReleaseNum = num
	}

	return info, nil
}

func parseComponent(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty version component")
	}
	if !semverPartRe.MatchString(s) {
		return 0, fmt.Errorf("non-numeric version component %q", s)
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, fmt.Errorf("leading zero in version component %q", s)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func splitPreRelease(spec string) (base, pre string, err error) {
	idx := strings.IndexByte(spec, '-')
	if idx < 0 {
		return spec, "", nil
	}
	return spec[:idx], spec[idx+1:], nil
}

func parsePreRelease(pre string) (prefix string, num int, err error) {
	for _, p := range validPrereleasePrefixes {
		if strings.HasPrefix(pre, p) {
			suffix := pre[len(p):]
			if suffix == "" {
				return p, 0, nil
			}
			if !semverPartRe.MatchString(suffix) {
				break
			}
			n, convErr := strconv.Atoi(suffix)
			if convErr != nil || n == 0 {
				return "", 0, hoperr.New(hoperr.KindInvalidVersion,
					fmt.Sprintf("invalid pre-release suffix %q: must be a positive integer", pre))
			}
			return p, n, nil
		}
	}
	return "", 0, hoperr.New(hoperr.KindInvalidVersion,
		fmt.Sprintf("unknown pre-release identifier %q", pre))
}

// Compare orders two versions: (major, minor, patch) lexicographically,
// with a release version greater than any pre-release of the same triple,
// and pre-releases compared by prefix-name then numeric suffix.
// Returns -1, 0, or 1.
func Compare(a, b Info) int {
	if c := compareInt(a.Major, b.Major); c != 0 {
		return c
	}
	if c := compareInt(a.Minor, b.Minor); c != 0 {
		return c
	}
	if c := compareInt(a.Patch, b.Patch); c != 0 {
		return c
	}
	switch {
	case a.PreRelease == "" && b.PreRelease == "":
		return 0
	case a.PreRelease == "" && b.PreRelease != "":
		return 1
	case a.PreRelease != "" && b.PreRelease == "":
		return -1
	default:
		if c := strings.Compare(a.PreRelease, b.PreRelease); c != 0 {
			return c
		}
		return compareInt(a.PreReleaseNum, b.PreReleaseNum)
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// ValidateProgression reports whether target is strictly greater than
// current by Compare's ordering.
func ValidateProgression(current, target Info) bool {
	return Compare(target, current) > 0
}

// DetermineReleaseType returns the highest-order component that differs
// between current and target (major > minor > patch).
func DetermineReleaseType(target, current Info) Kind {
	switch {
	case target.Major != current.Major:
		return Major
	case target.Minor != current.Minor:
		return Minor
	default:
		return Patch
	}
}

// NextVersion increments the named component of current and zeroes all
// lower-order components; pre-release information is dropped.
func NextVersion(current Info, kind Kind) Info {
	switch kind {
	case Major:
		return Info{Major: current.Major + 1}
	case Minor:
		return Info{Major: current.Major, Minor: current.Minor + 1}
	default:
		return Info{Major: current.Major, Minor: current.Minor, Patch: current.Patch + 1}
	}
}
