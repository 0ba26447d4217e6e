package engine

import (
	"net/url"
	"strings"
)

// The locator is the externally visible current-dialogue indicator, a
// query-string fragment the presentation layer can put in a shareable
// URL and hand back later to restore the same dialogue.
const locatorParam = "dialogue"

// FormatLocator renders the locator for a dialogue id.
func FormatLocator(dialogueID string) string {
	if dialogueID == "" {
		return ""
	}
	return locatorParam + "=" + url.QueryEscape(dialogueID)
}

// ParseLocator extracts the dialogue id from a locator string. A
// leading "?" is tolerated. Returns "" when no dialogue is encoded.
func ParseLocator(locator string) string {
	values, err := url.ParseQuery(strings.TrimPrefix(locator, "?"))
	if err != nil {
		return ""
	}
	return values.Get(locatorParam)
}
