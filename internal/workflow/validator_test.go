package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	preparer7 = Principal{UserID: "user-7", Role: RolePreparer}
	printerA  = Principal{UserID: "user-21", Role: RolePrinterFamilyA}
	printerB  = Principal{UserID: "user-22", Role: RolePrinterFamilyB}
	courier   = Principal{UserID: "user-30", Role: RoleCourier}
	admin     = Principal{UserID: "user-1", Role: RoleAdmin}
)

func folderF1(status Status) Folder {
	return Folder{
		ID:                "dossier-f1",
		CurrentStatus:     status,
		MachineFamily:     FamilyA,
		CreatedByUserID:   "user-7",
		PreparerValidated: true,
	}
}

func newValidator() *Validator {
	return NewValidator(DefaultTransitionTable())
}

func TestPreparerStartsPreparation(t *testing.T) {
	decision, err := newValidator().Validate(Request{
		Principal:    preparer7,
		Folder:       folderF1(StatusNew),
		TargetStatus: StatusInPreparation,
	})

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Empty(t, decision.Reason)
}

func TestOtherPreparerIsNotOwner(t *testing.T) {
	otherPreparer := Principal{UserID: "user-8", Role: RolePreparer}

	decision, err := newValidator().Validate(Request{
		Principal:    otherPreparer,
		Folder:       folderF1(StatusNew),
		TargetStatus: StatusInPreparation,
	})

	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonNotOwner, decision.Reason)
}

func TestWrongFamilyPrinterIsRejected(t *testing.T) {
	decision, err := newValidator().Validate(Request{
		Principal:    printerB,
		Folder:       folderF1(StatusReadyToPrint),
		TargetStatus: StatusPrinting,
	})

	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonWrongMachineFamily, decision.Reason)
}

func TestWrongFamilyFolderIsNeverAccepted(t *testing.T) {
	// Family-B printer against a family-A folder: no (from, to) pair may
	// ever be accepted, whatever the rejection reason ends up being.
	v := newValidator()
	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			if from == to {
				continue
			}
			decision, err := v.Validate(Request{
				Principal:    printerB,
				Folder:       folderF1(from),
				TargetStatus: to,
				Comment:      "some justification",
			})
			require.NoError(t, err)
			assert.False(t, decision.Allowed,
				"family-B printer accepted %s → %s on a family-A folder", from, to)
		}
	}
}

func TestUnassignedFamilyBlocksPrinting(t *testing.T) {
	folder := folderF1(StatusReadyToPrint)
	folder.MachineFamily = FamilyUnassigned

	decision, err := newValidator().Validate(Request{
		Principal:    admin,
		Folder:       folder,
		TargetStatus: StatusPrinting,
	})

	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonWrongMachineFamily, decision.Reason)
}

func TestRevisionRequiresComment(t *testing.T) {
	v := newValidator()
	req := Request{
		Principal:    printerA,
		Folder:       folderF1(StatusPrinting),
		TargetStatus: StatusNeedsRevision,
		Comment:      "",
	}

	decision, err := v.Validate(req)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonCommentRequired, decision.Reason)

	// Whitespace is not a justification.
	req.Comment = "   \t"
	decision, err = v.Validate(req)
	require.NoError(t, err)
	assert.Equal(t, ReasonCommentRequired, decision.Reason)

	req.Comment = "ink smudge"
	decision, err = v.Validate(req)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCourierBlockedBeforeDeliveryEligibility(t *testing.T) {
	decision, err := newValidator().Validate(Request{
		Principal:    courier,
		Folder:       folderF1(StatusInPreparation),
		TargetStatus: StatusInDelivery,
	})

	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	// in_delivery is not reachable from in_preparation for a courier, so the
	// reachability check fires first; FOLDER_LOCKED would be equally final.
	assert.Equal(t, ReasonNotReachable, decision.Reason)
}

func TestCourierPicksUpPrintedJob(t *testing.T) {
	decision, err := newValidator().Validate(Request{
		Principal:    courier,
		Folder:       folderF1(StatusPrinted),
		TargetStatus: StatusInDelivery,
	})

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestAdminOverridesEverything(t *testing.T) {
	decision, err := newValidator().Validate(Request{
		Principal:    admin,
		Folder:       folderF1(StatusClosed),
		TargetStatus: StatusInPreparation,
	})

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestValidateIsIdempotent(t *testing.T) {
	v := newValidator()
	req := Request{
		Principal:    printerA,
		Folder:       folderF1(StatusReadyToPrint),
		TargetStatus: StatusPrinting,
	}

	first, err1 := v.Validate(req)
	second, err2 := v.Validate(req)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
}

func TestUnknownCatalogValuesAreErrors(t *testing.T) {
	v := newValidator()

	_, err := v.Validate(Request{
		Principal:    Principal{UserID: "u", Role: Role("operator")},
		Folder:       folderF1(StatusNew),
		TargetStatus: StatusInPreparation,
	})
	assert.Error(t, err)

	folder := folderF1(StatusNew)
	folder.CurrentStatus = Status("archived")
	_, err = v.Validate(Request{
		Principal:    admin,
		Folder:       folder,
		TargetStatus: StatusInPreparation,
	})
	assert.Error(t, err)

	_, err = v.Validate(Request{
		Principal:    admin,
		Folder:       folderF1(StatusNew),
		TargetStatus: Status("archived"),
	})
	assert.Error(t, err)
}

func TestReachableForFiltersByOwnership(t *testing.T) {
	v := newValidator()
	folder := folderF1(StatusReadyToPrint)

	// The matching printer sees the printing edge.
	assert.Equal(t, []Status{StatusPrinting}, v.ReachableFor(printerA, folder))

	// The other family sees nothing at all.
	assert.Empty(t, v.ReachableFor(printerB, folder))

	// The owning preparer can still pull the job back for revision, and the
	// comment gate must not hide that option from the menu.
	assert.Equal(t, []Status{StatusNeedsRevision}, v.ReachableFor(preparer7, folder))
}
