// Package workflow implements the dossier workflow engine: the status and
// role catalogs, the role/status transition table, ownership and comment
// policies, the transition validator, the audit recorder and the
// notification planner.
//
// Every type in this package is a pure value computation. Nothing here
// touches the database or the network; persistence and dispatch happen in
// the service layer on top of the decisions produced here.
package workflow

import "fmt"

// Status is one of the fixed lifecycle states of a dossier.
// Values mirror the dossier_status enum in PostgreSQL.
type Status string

const (
	StatusNew              Status = "new"
	StatusInPreparation    Status = "in_preparation"
	StatusReadyToPrint     Status = "ready_to_print"
	StatusNeedsRevision    Status = "needs_revision"
	StatusPrinting         Status = "printing"
	StatusPrinted          Status = "printed"
	StatusReadyForDelivery Status = "ready_for_delivery"
	StatusInDelivery       Status = "in_delivery"
	StatusDelivered        Status = "delivered"
	StatusClosed           Status = "closed"
)

// allStatuses is the closed catalog, in nominal pipeline order. The graph is
// not linear (needs_revision cycles back to preparation); the order here is
// only for stable display and iteration.
var allStatuses = []Status{
	StatusNew,
	StatusInPreparation,
	StatusReadyToPrint,
	StatusNeedsRevision,
	StatusPrinting,
	StatusPrinted,
	StatusReadyForDelivery,
	StatusInDelivery,
	StatusDelivered,
	StatusClosed,
}

// statusLabels are the display labels shown in the atelier UI.
var statusLabels = map[Status]string{
	StatusNew:              "nouveau",
	StatusInPreparation:    "en préparation",
	StatusReadyToPrint:     "prêt à imprimer",
	StatusNeedsRevision:    "à corriger",
	StatusPrinting:         "en impression",
	StatusPrinted:          "imprimé",
	StatusReadyForDelivery: "prêt à livrer",
	StatusInDelivery:       "en livraison",
	StatusDelivered:        "livré",
	StatusClosed:           "clôturé",
}

// AllStatuses returns the full status catalog in display order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a raw string to a Status, returning an error for
// values outside the catalog.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown dossier status %q", s)
	}
	return st, nil
}

// Valid reports whether s is in the catalog.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the display label, or the raw value for unknown statuses.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// RequiresMachine reports whether a dossier must have a resolved machine
// family before it may enter this status.
func (s Status) RequiresMachine() bool {
	return s == StatusPrinting
}

// DeliveryEligible reports whether couriers may act on a dossier in this
// status. printed counts as pending dispatch: a finished job a courier may
// pick up before the printer explicitly stages it.
func (s Status) DeliveryEligible() bool {
	switch s {
	case StatusPrinted, StatusReadyForDelivery, StatusInDelivery:
		return true
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions for any
// non-admin role.
func (s Status) Terminal() bool {
	return s == StatusClosed
}
