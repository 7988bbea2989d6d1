package slug

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Make lower-cases input, drops diacritics and joins the remaining
// alphanumeric runs with dashes.
func Make(input string) string {
	folded, _, err := transform.String(stripMarks, input)
	if err != nil {
		folded = input
	}
	s := strings.ToLower(strings.TrimSpace(folded))
	s = nonAlphaNum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "untitled"
	}
	return s
}

// FromPath derives a document id from a file name without its extension.
func FromPath(path string) string {
	base := filepath.Base(path)
	return Make(strings.TrimSuffix(base, filepath.Ext(base)))
}
