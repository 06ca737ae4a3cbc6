package workflow

// OwnershipPolicy decides whether a principal may act on a dossier at all,
// independent of the requested status change.
type OwnershipPolicy struct{}

// FailureReason returns the precise reason the principal may not act on the
// dossier, or ok=true when access is granted. Rules are evaluated in a fixed
// order, first match wins, so every call yields exactly one reason:
//
//  1. admin — always allowed
//  2. preparer — must be the dossier's creator
//  3. printer — dossier must be assigned to the printer's machine family
//  4. courier — dossier must be in a delivery-eligible status
//
// Unknown roles are not decided here; the validator treats them as
// programmer errors before consulting this policy.
func (OwnershipPolicy) FailureReason(p Principal, f Folder) (RejectionReason, bool) {
	switch {
	case p.Role == RoleAdmin:
		return "", true

	case p.Role == RolePreparer:
		if f.CreatedByUserID == p.UserID {
			return "", true
		}
		return ReasonNotOwner, false

	case p.Role.IsPrinter():
		if f.MachineFamily == MachineAffinityOf(p.Role) {
			return "", true
		}
		return ReasonWrongMachineFamily, false

	case p.Role == RoleCourier:
		if f.CurrentStatus.DeliveryEligible() {
			return "", true
		}
		return ReasonFolderLocked, false
	}

	return ReasonNotOwner, false
}

// MayActOn reports whether the principal may act on the dossier.
func (o OwnershipPolicy) MayActOn(p Principal, f Folder) bool {
	_, ok := o.FailureReason(p, f)
	return ok
}
