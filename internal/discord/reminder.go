package discord

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// reminderKeywords are the phrases that ask for the current question.
var reminderKeywords = []string{"question", "remind", "remind me", "remind question", "reminder"}

// reminderThreshold is the minimum Jaro-Winkler similarity for a match.
const reminderThreshold = 0.9

// IsReminderRequest reports whether free text asks to see the current
// question again. Matching is case-insensitive and tolerates small typos.
func IsReminderRequest(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.TrimRight(t, "?!. ")
	if t == "" {
		return false
	}
	for _, kw := range reminderKeywords {
		if t == kw || matchr.JaroWinkler(t, kw, false) >= reminderThreshold {
			return true
		}
	}
	return false
}
