package workflow

import "fmt"

// Validator is the transition decision core. It is pure and stateless:
// legality is always evaluated fresh against the folder snapshot in the
// request, never against cached prior decisions, so concurrent callers can
// share one Validator without locking.
type Validator struct {
	table    *TransitionTable
	owners   OwnershipPolicy
	comments CommentPolicy
}

// NewValidator builds a validator around the given transition table.
func NewValidator(table *TransitionTable) *Validator {
	return &Validator{table: table}
}

// Validate decides one transition request. Expected rejections come back as
// a Decision value, never as an error; the error return fires only for
// Status/Role values outside the catalogs, which signal a table/catalog
// desynchronization bug, not a user action.
//
// Checks run in strict order and short-circuit on the first failure:
// reachability, ownership, machine-family resolution, comment requirement.
func (v *Validator) Validate(req Request) (Decision, error) {
	if !req.Principal.Role.Valid() {
		return Decision{}, fmt.Errorf("workflow: unknown role %q", req.Principal.Role)
	}
	if !req.Folder.CurrentStatus.Valid() {
		return Decision{}, fmt.Errorf("workflow: unknown current status %q", req.Folder.CurrentStatus)
	}
	if !req.TargetStatus.Valid() {
		return Decision{}, fmt.Errorf("workflow: unknown target status %q", req.TargetStatus)
	}

	if !v.table.CanReach(req.Principal.Role, req.Folder.CurrentStatus, req.TargetStatus) {
		return Reject(ReasonNotReachable), nil
	}

	if reason, ok := v.owners.FailureReason(req.Principal, req.Folder); !ok {
		return Reject(reason), nil
	}

	// Depends on the target status, not current access, so it runs after
	// the ownership check rather than inside it.
	if req.TargetStatus.RequiresMachine() && req.Folder.MachineFamily == FamilyUnassigned {
		return Reject(ReasonWrongMachineFamily), nil
	}

	if v.comments.RequiresComment(req.TargetStatus) && !hasComment(req.Comment) {
		return Reject(ReasonCommentRequired), nil
	}

	return Accept(), nil
}

// ReachableFor returns the target statuses the principal could actually move
// the dossier to right now: the table's reachable set filtered through the
// full validation pipeline (minus the comment gate, since the comment is
// supplied at action time).
func (v *Validator) ReachableFor(p Principal, f Folder) []Status {
	var out []Status
	for _, target := range v.table.ReachableStatuses(p.Role, f.CurrentStatus) {
		decision, err := v.Validate(Request{
			Principal:    p,
			Folder:       f,
			TargetStatus: target,
			Comment:      "-", // placeholder so the comment gate never filters here
		})
		if err != nil {
			continue
		}
		if decision.Allowed {
			out = append(out, target)
		}
	}
	return out
}
