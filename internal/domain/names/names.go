// Package names normalizes channel and nick keys.
package names

import (
	"strings"

	"golang.org/x/text/cases"
)

// PrivateBucket collects state for messages that did not come from a channel.
const PrivateBucket = "__pm__"

// Channel folds a channel name. Names not starting with '#' or '&' map to
// PrivateBucket.
func Channel(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '#' && s[0] != '&') {
		return PrivateBucket
	}
	return cases.Fold().String(s)
}

// Nick folds a nick. It returns "" for a blank nick.
func Nick(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// IsChannel reports whether s names a real channel rather than a private query.
func IsChannel(s string) bool {
	return Channel(s) != PrivateBucket
}
