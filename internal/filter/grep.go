package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// Grep searches lines for an ordered list of patterns.
type Grep struct {
	patterns []*regexp.Regexp
}

func NewGrep(patterns []string) (*Grep, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("grep needs at least one pattern")
	}
	g := &Grep{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		g.patterns = append(g.patterns, re)
	}
	return g, nil
}

// MatchLine returns the first pattern found in line.
func (g *Grep) MatchLine(line string) (string, bool) {
	for _, re := range g.patterns {
		if re.MatchString(line) {
			return re.String(), true
		}
	}
	return "", false
}

// Match keeps the lines matching any pattern, in input order and trimmed of
// surrounding whitespace. A line is reported once however many patterns it
// matches.
func (g *Grep) Match(lines []string) []string {
	var matched []string
	for _, line := range lines {
		if _, ok := g.MatchLine(line); ok {
			matched = append(matched, strings.TrimSpace(line))
		}
	}
	return matched
}
