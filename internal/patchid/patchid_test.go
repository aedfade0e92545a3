package patchid

import "testing"

func TestValidateNumeric(t *testing.T) {
	info, err := Validate("456")
	if err != nil {
		t.Fatalf("Validate(456): %v", err)
	}
	if info.Number != 456 || info.Slug != "" || info.Canonical != "456" {
		t.Errorf("got %+v", info)
	}
}

func TestValidateFull(t *testing.T) {
	info, err := Validate("456-user-auth")
	if err != nil {
		t.Fatalf("Validate(456-user-auth): %v", err)
	}
	if info.Number != 456 || info.Slug != "user-auth" || info.Canonical != "456-user-auth" {
		t.Errorf("got %+v", info)
	}
}

func TestValidateRejectsUnderscore(t *testing.T) {
	if _, err := Validate("456_bad"); err == nil {
		t.Error("expected error for 456_bad")
	}
}

func TestValidateRejectsUppercase(t *testing.T) {
	if _, err := Validate("456-UserAuth"); err == nil {
		t.Error("expected error for uppercase slug")
	}
}

func TestValidateRejectsLeadingTrailingHyphen(t *testing.T) {
	for _, id := range []string{"456-", "456--auth", "456-auth-"} {
		if _, err := Validate(id); err == nil {
			t.Errorf("expected error for %q", id)
		}
	}
}

func TestValidateRejectsZeroOrNegative(t *testing.T) {
	for _, id := range []string{"0", "0-slug"} {
		if _, err := Validate(id); err == nil {
			t.Errorf("expected error for %q", id)
		}
	}
}

func TestSanitize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"User Authentication", "user-authentication"},
		{"user_auth_system", "user-auth-system"},
		{"Fix Bug #123", "fix-bug-123"},
		{"", "patch"},
		{"   ", "patch"},
		{"Café Crème", "cafe-creme"},
	}
	for _, c := range cases {
		if got := Sanitize(c.in); got != c.want {
			t.Errorf("Sanitize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSanitizeTruncates(t *testing.T) {
	long := ""
	for i := 0; i < 20; i++ {
		long += "abcdef-"
	}
	got := Sanitize(long)
	if len(got) > 50 {
		t.Errorf("Sanitize result too long: %d chars", len(got))
	}
}
