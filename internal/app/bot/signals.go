package bot

import (
	"regexp"
	"strconv"
	"strings"

	"prmonitor/internal/domain/tracker"
)

// Reaction emojis, matched by prefix so variant selectors (❤ vs ❤️)
// still hit the same signal.
const (
	emojiHeart    = "❤" // reviewing
	emojiThumbsUp = "👍" // approve
	emojiOkHand   = "👌" // commented
	emojiCry      = "😭" // give up
	emojiHundred  = "💯" // merged
	emojiPan      = "🍳" // draft
	emojiPray     = "🙏" // addressed / re-review
)

var pullURLRe = regexp.MustCompile(`github\.com/([\w.-]+)/([\w.-]+)/pull/(\d+)`)

// SignalForAddedReaction maps a newly added reaction emoji to a signal.
// Any emoji without a dedicated meaning counts as a comment, matching
// how the chat crowd actually uses reactions.
func SignalForAddedReaction(emoji string) (tracker.SignalKind, bool) {
	switch {
	case strings.HasPrefix(emoji, emojiHeart):
		return tracker.SignalReview, true
	case strings.HasPrefix(emoji, emojiThumbsUp):
		return tracker.SignalApprove, true
	case strings.HasPrefix(emoji, emojiCry):
		return tracker.SignalGiveUp, true
	case strings.HasPrefix(emoji, emojiHundred):
		return tracker.SignalMerge, true
	case strings.HasPrefix(emoji, emojiPan):
		return tracker.SignalDraft, true
	case strings.HasPrefix(emoji, emojiPray):
		return tracker.SignalAddressed, true
	}
	return tracker.SignalComment, true
}

// SignalForRemovedReaction maps a withdrawn reaction to a signal. The
// single-status ledger cannot restore whatever status preceded the
// reaction, so withdrawing a status emoji reads as giving up; the next
// reconciliation restores any formal decision GitHub still holds.
func SignalForRemovedReaction(emoji string) (tracker.SignalKind, bool) {
	switch {
	case strings.HasPrefix(emoji, emojiCry),
		strings.HasPrefix(emoji, emojiHundred),
		strings.HasPrefix(emoji, emojiPray):
		return "", false
	case strings.HasPrefix(emoji, emojiPan):
		return tracker.SignalDraft, true
	}
	return tracker.SignalGiveUp, true
}

// SignalForCommand maps a reply command ("/approve", "/rereview@bot")
// to a signal.
func SignalForCommand(text string) (tracker.SignalKind, bool) {
	cmd, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	switch strings.ToLower(cmd) {
	case "/review":
		return tracker.SignalReview, true
	case "/approve":
		return tracker.SignalApprove, true
	case "/comment":
		return tracker.SignalComment, true
	case "/giveup":
		return tracker.SignalGiveUp, true
	case "/merge":
		return tracker.SignalMerge, true
	case "/draft":
		return tracker.SignalDraft, true
	case "/addressed", "/rereview":
		return tracker.SignalAddressed, true
	}
	return "", false
}

// ParsePullURL extracts (owner, name, number) from the first GitHub
// pull request link in the text.
func ParsePullURL(text string) (tracker.RepoRef, int, bool) {
	m := pullURLRe.FindStringSubmatch(text)
	if m == nil {
		return tracker.RepoRef{}, 0, false
	}
	number, err := strconv.Atoi(m[3])
	if err != nil {
		return tracker.RepoRef{}, 0, false
	}
	return tracker.RepoRef{Owner: m[1], Name: m[2]}, number, true
}
