package pipeline

import (
	"strings"
	"unicode/utf8"
)

// Gate is the content sufficiency check applied before and after rewriting.
type Gate struct {
	MinTitle       int
	MinDescription int
}

// DefaultGate requires 50 title and 100 description characters.
var DefaultGate = Gate{MinTitle: 50, MinDescription: 100}

// Pass reports whether url is set and title and description are long enough.
// Lengths are counted in runes.
func (g Gate) Pass(title, description, url string) bool {
	if strings.TrimSpace(url) == "" {
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(title)) >= g.MinTitle &&
		utf8.RuneCountInString(strings.TrimSpace(description)) >= g.MinDescription
}
