package tracker

import (
	"fmt"
	"html"
	"sort"
	"strings"
)

// Glyphs shared with the reaction map at the chat boundary.
const (
	GlyphReviewing = "❤️"
	GlyphApproved  = "👍"
	GlyphChanges   = "❌"
	GlyphCommented = "👌"
	GlyphAssigned  = "👀"
	GlyphMerged    = "💯"
	GlyphDraft     = "🍳"
)

// Render maps a record to the Telegram HTML body of its chat message.
// The output is deterministic: rendering the same record twice yields
// byte-identical text, which lets the orchestrator skip edits that
// would not change anything.
func Render(rec Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>PR:</b> <a href=%q>%s</a>\n", rec.URL, html.EscapeString(rec.Title))
	fmt.Fprintf(&b, "<b>Author:</b> %s\n", html.EscapeString(rec.Author))
	fmt.Fprintf(&b, "<b>Repo:</b> %s#%d\n", html.EscapeString(rec.Repo), rec.Number)

	switch {
	case rec.Lifecycle == LifecycleMerged:
		b.WriteString("\n<b>Status:</b> " + GlyphMerged + " MERGED\n")
	case rec.Lifecycle == LifecycleClosed:
		b.WriteString("\n<b>Status:</b> CLOSED\n")
	case rec.IsDraft:
		b.WriteString("\n<b>Status:</b> " + GlyphDraft + " Draft/WIP\n")
	}

	lines := []struct {
		glyph  string
		label  string
		status ReviewerStatus
		count  bool
	}{
		{GlyphReviewing, "Reviewing", StatusReviewing, false},
		{GlyphApproved, "Approved", StatusApproved, true},
		{GlyphChanges, "Changes requested", StatusChangesRequested, true},
		{GlyphCommented, "Commented", StatusCommented, true},
		{GlyphAssigned, "Assigned", StatusAssigned, false},
	}

	first := true
	for _, ln := range lines {
		users := usersWithStatus(rec, ln.status)
		if len(users) == 0 {
			continue
		}
		if first {
			b.WriteString("\n")
			first = false
		}
		if ln.count {
			fmt.Fprintf(&b, "%s <b>%s (%d):</b> %s\n", ln.glyph, ln.label, len(users), strings.Join(users, ", "))
		} else {
			fmt.Fprintf(&b, "%s <b>%s:</b> %s\n", ln.glyph, ln.label, strings.Join(users, ", "))
		}
	}

	return b.String()
}

func usersWithStatus(rec Record, st ReviewerStatus) []string {
	var users []string
	for u, s := range rec.Reviewers {
		if s == st {
			users = append(users, html.EscapeString(u))
		}
	}
	sort.Strings(users)
	return users
}
