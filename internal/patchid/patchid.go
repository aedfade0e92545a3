// Package patchid validates and normalizes patch identifiers of the form
// "N" or "N-slug", and sanitizes free text into a slug suitable for the
// latter form.
package patchid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/half-orm/half-orm-dev/internal/hoperr"
)

var (
	numericRe = regexp.MustCompile(`^[0-9]+$`)
	fullRe    = regexp.MustCompile(`^[0-9]+-[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugRe    = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Info describes a validated patch identifier.
type Info struct {
	Number    int
	Slug      string // "" if the id was numeric-only
	Canonical string
}

// Validate parses id as either a bare positive integer or "N-slug", where
// slug matches ^[a-z0-9]+(-[a-z0-9]+)*$. Uppercase, underscores, dots, and
// leading/trailing/empty slug segments are all rejected.
func Validate(id string) (Info, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Info{}, hoperr.New(hoperr.KindInvalidPatchID, "patch id cannot be empty")
	}

	if numericRe.MatchString(id) {
		n, err := strconv.Atoi(id)
		if err != nil || n <= 0 {
			return Info{}, hoperr.New(hoperr.KindInvalidPatchID,
				fmt.Sprintf("invalid patch id %q: must be a positive integer", id), "value", id)
		}
		return Info{Number: n, Canonical: id}, nil
	}

	if !fullRe.MatchString(id) {
		return Info{}, hoperr.New(hoperr.KindInvalidPatchID,
			fmt.Sprintf("invalid patch id %q: expected N or N-slug", id), "value", id)
	}

	idx := strings.IndexByte(id, '-')
	numPart, slug := id[:idx], id[idx+1:]
	n, err := strconv.Atoi(numPart)
	if err != nil || n <= 0 {
		return Info{}, hoperr.New(hoperr.KindInvalidPatchID,
			fmt.Sprintf("invalid patch id %q: reservation number must be positive", id), "value", id)
	}
	if !slugRe.MatchString(slug) {
		return Info{}, hoperr.New(hoperr.KindInvalidPatchID,
			fmt.Sprintf("invalid patch id %q: slug must be lowercase kebab-case", id), "value", id)
	}

	return Info{Number: n, Slug: slug, Canonical: id}, nil
}

const (
	defaultSlug  = "patch"
	maxSlugChars = 50
)

// Sanitize converts free text into a slug suitable for use in "N-slug": it
// lower-cases, folds accented characters to ASCII, replaces runs of
// non-alphanumeric characters with a single hyphen, strips leading/trailing
// hyphens, and truncates to 50 characters. Empty input yields "patch".
func Sanitize(freeText string) string {
	folded := foldToASCII(freeText)
	lower := strings.ToLower(folded)

	var b strings.Builder
	lastWasHyphen := false
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastWasHyphen = false
			continue
		}
		if !lastWasHyphen && b.Len() > 0 {
			b.WriteByte('-')
			lastWasHyphen = true
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugChars {
		slug = strings.TrimRight(slug[:maxSlugChars], "-")
	}
	if slug == "" {
		return defaultSlug
	}
	return slug
}

// foldToASCII approximates an accent fold without a full Unicode
// normalization dependency: precomposed accented letters listed in
// asciiFold become their ASCII base letter, and every other non-ASCII rune
// (combining diacritical marks included) is dropped entirely, which is the
// conservative, never-crashing option for arbitrary free text.
func foldToASCII(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII {
			b.WriteRune(r)
			continue
		}
		if folded, ok := asciiFold[r]; ok {
			b.WriteString(folded)
		}
		// else: drop the rune (combining marks, emoji, CJK, ...)
	}
	return b.String()
}

// asciiFold maps a handful of common accented Latin letters to their ASCII
// base letter. It is intentionally small: Sanitize's job is slug safety,
// not full transliteration.
var asciiFold = map[rune]string{
	'à': "a", 'á': "a", 'â': "a", 'ã': "a", 'ä': "a", 'å': "a",
	'è': "e", 'é': "e", 'ê': "e", 'ë': "e",
	'ì': "i", 'í': "i", 'î': "i", 'ï': "i",
	'ò': "o", 'ó': "o", 'ô': "o", 'õ': "o", 'ö': "o",
	'ù': "u", 'ú': "u", 'û': "u", 'ü': "u",
	'ñ': "n", 'ç': "c", 'ý': "y",
	'À': "A", 'É': "E", 'È': "E",
}
