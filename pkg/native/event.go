package native

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// eventPrefix is the on-style prefix the script layer puts on event names.
const eventPrefix = "on"

// NormalizeEventName folds an event name to its canonical form: lower case
// with a leading "on" removed. "onClick", "click" and "Click" all
// normalize to "click".
func NormalizeEventName(name string) string {
	// Casers carry state and are not shared across goroutines.
	n := cases.Lower(language.Und).String(strings.TrimSpace(name))
	if len(n) > len(eventPrefix) && strings.HasPrefix(n, eventPrefix) {
		n = n[len(eventPrefix):]
	}
	return n
}
