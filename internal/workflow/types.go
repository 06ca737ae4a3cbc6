package workflow

// Principal is the already-authenticated caller: the auth layer verified the
// token, this engine only reasons about who it says they are.
type Principal struct {
	UserID string
	Role   Role
}

// Folder is the workflow view of a dossier: the only fields the engine
// consumes. The storage layer normalizes its records into this shape; the
// engine never sees legacy field-name variants.
type Folder struct {
	ID                string
	CurrentStatus     Status
	MachineFamily     MachineFamily
	CreatedByUserID   string
	PreparerValidated bool
}

// Request is one transition attempt. Ephemeral, never persisted.
type Request struct {
	Principal    Principal
	Folder       Folder
	TargetStatus Status
	Comment      string
}

// RejectionReason is the closed set of reasons a transition is refused.
type RejectionReason string

const (
	ReasonNotReachable       RejectionReason = "NOT_REACHABLE"
	ReasonNotOwner           RejectionReason = "NOT_OWNER"
	ReasonWrongMachineFamily RejectionReason = "WRONG_MACHINE_FAMILY"
	ReasonCommentRequired    RejectionReason = "COMMENT_REQUIRED"
	ReasonFolderLocked       RejectionReason = "FOLDER_LOCKED"
)

// rejectionMessages map each reason to one distinct user-facing message,
// replacing the historic generic "dossier introuvable" answer.
var rejectionMessages = map[RejectionReason]string{
	ReasonNotReachable:       "this status change is not available from the dossier's current status",
	ReasonNotOwner:           "you did not create this dossier",
	ReasonWrongMachineFamily: "this dossier belongs to the other machine family",
	ReasonCommentRequired:    "a justification comment is required for this status change",
	ReasonFolderLocked:       "this dossier is not ready for delivery yet",
}

// Message returns the user-facing explanation for the reason.
func (r RejectionReason) Message() string {
	if msg, ok := rejectionMessages[r]; ok {
		return msg
	}
	return string(r)
}

// Decision is the outcome of validating a transition request. Rejections are
// ordinary values, never errors: callers branch on Allowed.
type Decision struct {
	Allowed bool
	Reason  RejectionReason // set only when !Allowed
}

// Accept builds an allowed decision.
func Accept() Decision {
	return Decision{Allowed: true}
}

// Reject builds a refused decision with its reason.
func Reject(reason RejectionReason) Decision {
	return Decision{Allowed: false, Reason: reason}
}
