package memory

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxEntriesPerSection = 32
	maxRenderedValueLen  = 280
)

var sectionTags = map[Section]string{
	SectionProfile:      "user_profile",
	SectionPreferences:  "user_preferences",
	SectionInstructions: "system_instructions",
}

// Render serializes the profile into the bounded context block injected into
// model and agent requests. Output is deterministic for an unmodified profile:
// fixed section order, key insertion order within a section, capped size.
func Render(p *Profile) string {
	if p == nil || p.Empty() {
		return ""
	}

	var b strings.Builder
	for _, sec := range Sections {
		entries := p.Entries(sec)
		if len(entries) == 0 {
			continue
		}
		if len(entries) > maxEntriesPerSection {
			// keep the most recent writes
			entries = entries[len(entries)-maxEntriesPerSection:]
		}

		tag := sectionTags[sec]
		fmt.Fprintf(&b, "<%s>\n", tag)
		for _, e := range entries {
			fmt.Fprintf(&b, "- %s: %s\n", e.Key, truncate(e.Value, maxRenderedValueLen))
		}
		fmt.Fprintf(&b, "</%s>\n", tag)
	}
	return strings.TrimRight(b.String(), "\n")
}

// truncate cuts on a rune boundary so a multi-byte value never renders as
// invalid UTF-8.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
