package workflow

import "fmt"

// Role is one of the fixed actor roles of the production pipeline.
type Role string

const (
	RoleAdmin          Role = "admin"
	RolePreparer       Role = "preparer"
	RolePrinterFamilyA Role = "printer_family_a"
	RolePrinterFamilyB Role = "printer_family_b"
	RoleCourier        Role = "courier"
)

// MachineFamily identifies which machine family a dossier is produced on.
// A dossier starts unassigned and the family becomes immutable once
// printing begins.
type MachineFamily string

const (
	FamilyUnassigned MachineFamily = ""
	FamilyA          MachineFamily = "family_a"
	FamilyB          MachineFamily = "family_b"
)

var allRoles = []Role{
	RoleAdmin,
	RolePreparer,
	RolePrinterFamilyA,
	RolePrinterFamilyB,
	RoleCourier,
}

// printerAffinity is fixed at compile time; printer roles never change
// family at runtime.
var printerAffinity = map[Role]MachineFamily{
	RolePrinterFamilyA: FamilyA,
	RolePrinterFamilyB: FamilyB,
}

// AllRoles returns the full role catalog.
func AllRoles() []Role {
	out := make([]Role, len(allRoles))
	copy(out, allRoles)
	return out
}

// ParseRole converts a raw string to a Role, returning an error for values
// outside the catalog.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is in the catalog.
func (r Role) Valid() bool {
	for _, known := range allRoles {
		if r == known {
			return true
		}
	}
	return false
}

// IsPrinter reports whether r is one of the printer roles.
func (r Role) IsPrinter() bool {
	_, ok := printerAffinity[r]
	return ok
}

// MachineAffinityOf returns the machine family a printer role operates, or
// FamilyUnassigned for non-printer roles.
func MachineAffinityOf(r Role) MachineFamily {
	return printerAffinity[r]
}

// PrinterRoleFor returns the printer role bound to a machine family, or ""
// when the family is unassigned.
func PrinterRoleFor(f MachineFamily) Role {
	switch f {
	case FamilyA:
		return RolePrinterFamilyA
	case FamilyB:
		return RolePrinterFamilyB
	}
	return ""
}

// ParseMachineFamily converts a raw string to a MachineFamily. The empty
// string parses to FamilyUnassigned.
func ParseMachineFamily(s string) (MachineFamily, error) {
	switch MachineFamily(s) {
	case FamilyUnassigned, FamilyA, FamilyB:
		return MachineFamily(s), nil
	}
	return "", fmt.Errorf("unknown machine family %q", s)
}
