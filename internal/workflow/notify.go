package workflow

// NotificationIntent asks the external dispatcher to inform a set of roles
// about an accepted transition. Ephemeral: produced per transition, consumed
// by the dispatcher, never stored by this engine.
type NotificationIntent struct {
	TargetRoles []Role
	MessageKey  string
	FolderID    string
	FromStatus  Status
	ToStatus    Status
}

// Planner maps accepted transitions to notification intents.
type Planner struct{}

// Plan returns the notifications an accepted from → to transition produces.
// An empty plan is normal — most administrative moves interest nobody.
// Printer notifications target only the dossier's machine family; while the
// family is still unassigned, both families are informed.
func (Planner) Plan(from, to Status, f Folder) []NotificationIntent {
	intent := func(key string, roles ...Role) []NotificationIntent {
		return []NotificationIntent{{
			TargetRoles: roles,
			MessageKey:  key,
			FolderID:    f.ID,
			FromStatus:  from,
			ToStatus:    to,
		}}
	}

	switch to {
	case StatusReadyToPrint:
		if printer := PrinterRoleFor(f.MachineFamily); printer != "" {
			return intent("dossier.ready_to_print", printer)
		}
		return intent("dossier.ready_to_print", RolePrinterFamilyA, RolePrinterFamilyB)

	case StatusNeedsRevision:
		return intent("dossier.needs_revision", RolePreparer)

	case StatusPrinted:
		return intent("dossier.printed", RoleCourier, RolePreparer)

	case StatusReadyForDelivery:
		return intent("dossier.ready_for_delivery", RoleCourier)

	case StatusInDelivery:
		return intent("dossier.out_for_delivery", RolePreparer)

	case StatusDelivered:
		return intent("dossier.delivered", RolePreparer, RoleAdmin)
	}

	return nil
}
