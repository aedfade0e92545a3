package version

import "testing"

func TestParseExpansion(t *testing.T) {
	cases := []struct {
		spec string
		want string
	}{
		{"1", "1.0.0"},
		{"1.3", "1.3.0"},
		{"1.2.3", "1.2.3"},
		{"1.2.3-alpha1", "1.2.3-alpha1"},
		{"0.0.1-rc2", "0.0.1-rc2"},
		{"1.2.3-dev", "1.2.3-dev"},
	}
	for _, c := range cases {
		info, err := Parse(c.spec)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", c.spec, err)
		}
		if got := info.String(); got != c.want {
			t.Errorf("Parse(%q).String() = %q, want %q", c.spec, got, c.want)
		}
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	bad := []string{"01.2.3", "1.2.3-nope", "1.2.3-alpha0", "a.b.c", "", "1.2.3.4"}
	for _, spec := range bad {
		if _, err := Parse(spec); err == nil {
			t.Errorf("Parse(%q) expected error, got nil", spec)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	specs := []string{"1.2.3", "1.2.3-alpha1", "2.0.0-rc2", "0.0.0"}
	for _, s := range specs {
		info, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		if info.String() != s {
			t.Errorf("round trip failed: Parse(%q).String() = %q", s, info.String())
		}
	}
}

func TestCompareOrdering(t *testing.T) {
	v := func(s string) Info {
		i, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q): %v", s, err)
		}
		return i
	}
	if Compare(v("1.2.3"), v("1.3.0")) >= 0 {
		t.Error("1.2.3 should be < 1.3.0")
	}
	if Compare(v("1.3.0"), v("1.2.3")) <= 0 {
		t.Error("1.3.0 should be > 1.2.3")
	}
	if Compare(v("1.2.3"), v("1.2.3")) != 0 {
		t.Error("1.2.3 should equal 1.2.3")
	}
	if Compare(v("1.2.3-alpha1"), v("1.2.3")) >= 0 {
		t.Error("pre-release should be < release of same triple")
	}
}

func TestDetermineReleaseType(t *testing.T) {
	current, _ := Parse("1.2.3")
	cases := []struct {
		target string
		want   Kind
	}{
		{"2.0.0", Major},
		{"1.3.0", Minor},
		{"1.2.4", Patch},
	}
	for _, c := range cases {
		target, err := Parse(c.target)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.target, err)
		}
		if got := DetermineReleaseType(target, current); got != c.want {
			t.Errorf("DetermineReleaseType(%q, 1.2.3) = %v, want %v", c.target, got, c.want)
		}
	}
}

func TestNextVersion(t *testing.T) {
	current, _ := Parse("1.2.3")
	cases := []struct {
		kind Kind
		want string
	}{
		{Major, "2.0.0"},
		{Minor, "1.3.0"},
		{Patch, "1.2.4"},
	}
	for _, c := range cases {
		got := NextVersion(current, c.kind)
		if got.String() != c.want {
			t.Errorf("NextVersion(1.2.3, %v) = %q, want %q", c.kind, got.String(), c.want)
		}
	}
}

func TestValidateProgression(t *testing.T) {
	current, _ := Parse("1.2.3")
	ok, _ := Parse("1.3.0")
	bad, _ := Parse("1.2.2")
	if !ValidateProgression(current, ok) {
		t.Error("1.3.0 should be a valid progression from 1.2.3")
	}
	if ValidateProgression(current, bad) {
		t.Error("1.2.2 should not be a valid progression from 1.2.3")
	}
	if ValidateProgression(current, current) {
		t.Error("same version should not be a valid progression")
	}
}

func TestBranchAndTagNames(t *testing.T) {
	v, _ := Parse("1.2.3-alpha1")
	if got := v.DevBranch(); got != "ho-dev/1.2.x" {
		t.Errorf("DevBranch() = %q", got)
	}
	if got := v.ProductionBranch(); got != "ho/1.2.x" {
		t.Errorf("ProductionBranch() = %q", got)
	}
	if got := v.ReleaseTag(); got != "v1.2.3-alpha1" {
		t.Errorf("ReleaseTag() = %q", got)
	}
	if got := v.BranchName(BranchMain); got != "main" {
		t.Errorf("BranchName(main) = %q, want main", got)
	}
}
