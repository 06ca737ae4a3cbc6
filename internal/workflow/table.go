package workflow

// TransitionTable is the static (role, from) → reachable targets matrix.
// It is an injected value rather than package state so tests can swap in a
// reduced table without touching globals.
type TransitionTable struct {
	edges map[Role]map[Status][]Status
}

// defaultEdges encodes the production pipeline graph per role. The graph is
// cyclic: needs_revision flows back into preparation. Printer roles share
// one set of edges; family affinity is enforced by the ownership policy,
// not duplicated here.
//
//	new → in_preparation → ready_to_print → printing → printed
//	                 ▲            │             │
//	                 └── needs_revision ◄───────┘
//	printed → ready_for_delivery → in_delivery → delivered → closed
func defaultEdges() map[Role]map[Status][]Status {
	printerEdges := map[Status][]Status{
		StatusReadyToPrint: {StatusPrinting},
		StatusPrinting:     {StatusPrinted, StatusNeedsRevision},
		StatusPrinted:      {StatusReadyForDelivery},
	}

	return map[Role]map[Status][]Status{
		RolePreparer: {
			StatusNew:           {StatusInPreparation},
			StatusInPreparation: {StatusReadyToPrint},
			StatusReadyToPrint:  {StatusNeedsRevision},
			StatusNeedsRevision: {StatusInPreparation},
			StatusDelivered:     {StatusClosed},
		},
		RolePrinterFamilyA: printerEdges,
		RolePrinterFamilyB: printerEdges,
		RoleCourier: {
			StatusPrinted:          {StatusInDelivery},
			StatusReadyForDelivery: {StatusInDelivery},
			StatusInDelivery:       {StatusDelivered},
		},
		// RoleAdmin is a wildcard, handled in ReachableStatuses so new
		// statuses never have to be enumerated for it.
	}
}

// DefaultTransitionTable returns the production transition matrix.
func DefaultTransitionTable() *TransitionTable {
	return &TransitionTable{edges: defaultEdges()}
}

// NewTransitionTable builds a table from explicit edges, for tests and
// alternate deployments.
func NewTransitionTable(edges map[Role]map[Status][]Status) *TransitionTable {
	return &TransitionTable{edges: edges}
}

// ReachableStatuses returns the statuses role may move a dossier to from the
// given status. An empty result is normal: it means no further action is
// available to this role (terminal status, or a phase owned by another role).
// Admin reaches every status except the current one.
func (t *TransitionTable) ReachableStatuses(role Role, from Status) []Status {
	if role == RoleAdmin {
		out := make([]Status, 0, len(allStatuses)-1)
		for _, s := range allStatuses {
			if s != from {
				out = append(out, s)
			}
		}
		return out
	}

	targets := t.edges[role][from]
	out := make([]Status, len(targets))
	copy(out, targets)
	return out
}

// CanReach reports whether role may move a dossier from → to.
func (t *TransitionTable) CanReach(role Role, from, to Status) bool {
	if role == RoleAdmin {
		return from != to
	}
	for _, s := range t.edges[role][from] {
		if s == to {
			return true
		}
	}
	return false
}
