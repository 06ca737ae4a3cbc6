package workflow

import (
	"time"

	"github.com/google/uuid"
)

// HistoryEntry is one immutable record in a dossier's audit trail. Entries
// are created exactly once per accepted transition and appended to an
// ordered, append-only sequence; they are never mutated or deleted.
type HistoryEntry struct {
	ID              string
	FolderID        string
	FromStatus      Status
	ToStatus        Status
	ChangedByUserID string
	ChangedAt       time.Time
	Comment         string
}

// Recorder builds history entries for accepted transitions. It performs no
// validation: by the time it runs, the validator already guaranteed
// legality.
type Recorder struct {
	clock func() time.Time
}

// NewRecorder builds a recorder. A nil clock means time.Now.
func NewRecorder(clock func() time.Time) *Recorder {
	if clock == nil {
		clock = time.Now
	}
	return &Recorder{clock: clock}
}

// Record constructs the history entry for an accepted request. after is the
// timestamp of the dossier's previous entry (zero for the first one); the
// new entry's timestamp is clamped to it so a folder's trail is always
// non-decreasing even if the wall clock steps backwards between calls.
func (r *Recorder) Record(req Request, after time.Time) HistoryEntry {
	at := r.clock().UTC()
	if at.Before(after) {
		at = after
	}
	return HistoryEntry{
		ID:              uuid.NewString(),
		FolderID:        req.Folder.ID,
		FromStatus:      req.Folder.CurrentStatus,
		ToStatus:        req.TargetStatus,
		ChangedByUserID: req.Principal.UserID,
		ChangedAt:       at,
		Comment:         req.Comment,
	}
}
