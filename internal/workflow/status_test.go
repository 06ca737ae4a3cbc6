package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, s := range AllStatuses() {
		parsed, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := ParseStatus("en_preparation") // legacy French value, not canonical
	assert.Error(t, err)
	_, err = ParseStatus("")
	assert.Error(t, err)
}

func TestStatusLabelsAreComplete(t *testing.T) {
	for _, s := range AllStatuses() {
		assert.NotEqual(t, string(s), s.Label(), "status %s has no display label", s)
	}
}

func TestDeliveryEligibility(t *testing.T) {
	assert.True(t, StatusPrinted.DeliveryEligible())
	assert.True(t, StatusReadyForDelivery.DeliveryEligible())
	assert.True(t, StatusInDelivery.DeliveryEligible())
	assert.False(t, StatusInPreparation.DeliveryEligible())
	assert.False(t, StatusPrinting.DeliveryEligible())
	assert.False(t, StatusClosed.DeliveryEligible())
}

func TestMachineAffinity(t *testing.T) {
	assert.Equal(t, FamilyA, MachineAffinityOf(RolePrinterFamilyA))
	assert.Equal(t, FamilyB, MachineAffinityOf(RolePrinterFamilyB))
	assert.Equal(t, FamilyUnassigned, MachineAffinityOf(RolePreparer))
	assert.Equal(t, FamilyUnassigned, MachineAffinityOf(RoleAdmin))
	assert.Equal(t, FamilyUnassigned, MachineAffinityOf(RoleCourier))

	assert.Equal(t, RolePrinterFamilyA, PrinterRoleFor(FamilyA))
	assert.Equal(t, Role(""), PrinterRoleFor(FamilyUnassigned))
}
