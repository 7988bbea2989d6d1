package htmldoc

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	apperrors "docgrind/internal/platform/errors"
)

// compileSelectors parses every non-blank entry of raw as a CSS selector
// group. Any entry that fails to parse fails the whole set.
func compileSelectors(raw []string) ([]cascadia.Matcher, error) {
	var out []cascadia.Matcher
	for _, group := range raw {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}
		sel, err := cascadia.ParseGroup(group)
		if err != nil {
			return nil, fmt.Errorf("selector %q: %v: %w", group, err, apperrors.ErrInvalidInput)
		}
		out = append(out, sel)
	}
	return out, nil
}

func matchesAny(sels []cascadia.Matcher, n *html.Node) bool {
	for _, sel := range sels {
		if sel.Match(n) {
			return true
		}
	}
	return false
}
