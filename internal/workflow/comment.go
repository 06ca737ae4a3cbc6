package workflow

import "strings"

// CommentPolicy decides which target statuses demand a justification
// comment. Kept as its own lookup so gating another status is a one-line
// change here, not a scattered edit across validators.
type CommentPolicy struct{}

var commentRequired = map[Status]bool{
	StatusNeedsRevision: true,
}

// RequiresComment reports whether moving a dossier into target demands a
// non-empty comment.
func (CommentPolicy) RequiresComment(target Status) bool {
	return commentRequired[target]
}

// hasComment reports whether the comment carries actual content.
func hasComment(comment string) bool {
	return strings.TrimSpace(comment) != ""
}
