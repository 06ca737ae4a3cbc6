package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/atelierpress/be-print-dossiers/internal/platform/errors"
	"github.com/atelierpress/be-print-dossiers/internal/platform/logger"
	"github.com/atelierpress/be-print-dossiers/internal/repository"
	"github.com/atelierpress/be-print-dossiers/internal/workflow"
)

// MockDossierStore is a mock implementation of the DossierStore interface.
type MockDossierStore struct {
	mock.Mock
}

func (m *MockDossierStore) Create(ctx context.Context, d *repository.Dossier) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDossierStore) GetByID(ctx context.Context, id string) (*repository.Dossier, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Dossier), args.Error(1)
}

func (m *MockDossierStore) List(ctx context.Context, filter repository.DossierFilter, limit, offset int) ([]*repository.Dossier, int64, error) {
	args := m.Called(ctx, filter, limit, offset)
	return args.Get(0).([]*repository.Dossier), args.Get(1).(int64), args.Error(2)
}

func (m *MockDossierStore) UpdateStatus(ctx context.Context, id string, from, to workflow.Status, updatedBy string) error {
	args := m.Called(ctx, id, from, to, updatedBy)
	return args.Error(0)
}

func (m *MockDossierStore) AssignMachineFamily(ctx context.Context, id string, family workflow.MachineFamily, updatedBy string) error {
	args := m.Called(ctx, id, family, updatedBy)
	return args.Error(0)
}

func (m *MockDossierStore) SetPreparerValidated(ctx context.Context, id, validatedBy string) error {
	args := m.Called(ctx, id, validatedBy)
	return args.Error(0)
}

func (m *MockDossierStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockHistoryStore is a mock implementation of the HistoryStore interface.
type MockHistoryStore struct {
	mock.Mock
}

func (m *MockHistoryStore) Append(ctx context.Context, entry workflow.HistoryEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockHistoryStore) GetByDossierID(ctx context.Context, dossierID string) ([]workflow.HistoryEntry, error) {
	args := m.Called(ctx, dossierID)
	return args.Get(0).([]workflow.HistoryEntry), args.Error(1)
}

func (m *MockHistoryStore) LastChangedAt(ctx context.Context, dossierID string) (time.Time, error) {
	args := m.Called(ctx, dossierID)
	return args.Get(0).(time.Time), args.Error(1)
}

// MockNotificationSink records published intents.
type MockNotificationSink struct {
	mock.Mock
}

func (m *MockNotificationSink) PublishIntents(ctx context.Context, actorID, comment string, intents []workflow.NotificationIntent) {
	m.Called(ctx, actorID, comment, intents)
}

func newTestService(dossiers *MockDossierStore, history *MockHistoryStore, notifier *MockNotificationSink) *DossierService {
	log := logger.New(logger.Config{Level: "error", ServiceName: "test"})
	validator := workflow.NewValidator(workflow.DefaultTransitionTable())
	recorder := workflow.NewRecorder(nil)
	return NewDossierService(dossiers, history, validator, recorder, notifier, log)
}

func storedDossier(status workflow.Status) *repository.Dossier {
	return &repository.Dossier{
		ID:                "dossier-f1",
		Reference:         "DOS-2026-0042",
		ClientName:        "Imprimerie Morel",
		Status:            status,
		MachineFamily:     workflow.FamilyA,
		PreparerValidated: true,
		CreatedBy:         "user-7",
	}
}

var (
	printerA = workflow.Principal{UserID: "user-21", Role: workflow.RolePrinterFamilyA}
	printerB = workflow.Principal{UserID: "user-22", Role: workflow.RolePrinterFamilyB}
	preparer = workflow.Principal{UserID: "user-7", Role: workflow.RolePreparer}
	courier  = workflow.Principal{UserID: "user-30", Role: workflow.RoleCourier}
)

func TestTransitionPersistsAuditsAndNotifies(t *testing.T) {
	dossiers := new(MockDossierStore)
	history := new(MockHistoryStore)
	notifier := new(MockNotificationSink)
	svc := newTestService(dossiers, history, notifier)

	dossiers.On("GetByID", mock.Anything, "dossier-f1").Return(storedDossier(workflow.StatusPrinting), nil)
	history.On("LastChangedAt", mock.Anything, "dossier-f1").Return(time.Time{}, nil)
	dossiers.On("UpdateStatus", mock.Anything, "dossier-f1",
		workflow.StatusPrinting, workflow.StatusPrinted, "user-21").Return(nil)
	history.On("Append", mock.Anything, mock.MatchedBy(func(e workflow.HistoryEntry) bool {
		return e.FolderID == "dossier-f1" &&
			e.FromStatus == workflow.StatusPrinting &&
			e.ToStatus == workflow.StatusPrinted &&
			e.ChangedByUserID == "user-21"
	})).Return(nil)
	notifier.On("PublishIntents", mock.Anything, "user-21", "",
		mock.MatchedBy(func(intents []workflow.NotificationIntent) bool {
			return len(intents) == 1 && intents[0].MessageKey == "dossier.printed"
		})).Return()

	updated, err := svc.Transition(context.Background(), printerA, "dossier-f1", workflow.StatusPrinted, "")

	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPrinted, updated.Status)
	dossiers.AssertExpectations(t)
	history.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestRejectedTransitionNeverWrites(t *testing.T) {
	dossiers := new(MockDossierStore)
	history := new(MockHistoryStore)
	notifier := new(MockNotificationSink)
	svc := newTestService(dossiers, history, notifier)

	dossiers.On("GetByID", mock.Anything, "dossier-f1").Return(storedDossier(workflow.StatusReadyToPrint), nil)

	_, err := svc.Transition(context.Background(), printerB, "dossier-f1", workflow.StatusPrinting, "")

	var rejected *TransitionRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, workflow.ReasonWrongMachineFamily, rejected.Reason)
	dossiers.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	history.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "PublishIntents", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransitionRetriesAfterLostRace(t *testing.T) {
	dossiers := new(MockDossierStore)
	history := new(MockHistoryStore)
	notifier := new(MockNotificationSink)
	svc := newTestService(dossiers, history, notifier)

	dossiers.On("GetByID", mock.Anything, "dossier-f1").Return(storedDossier(workflow.StatusReadyForDelivery), nil)
	history.On("LastChangedAt", mock.Anything, "dossier-f1").Return(time.Time{}, nil)

	// First write loses the optimistic race, the retry wins.
	dossiers.On("UpdateStatus", mock.Anything, "dossier-f1",
		workflow.StatusReadyForDelivery, workflow.StatusInDelivery, "user-30").
		Return(repository.ErrStatusConflict).Once()
	dossiers.On("UpdateStatus", mock.Anything, "dossier-f1",
		workflow.StatusReadyForDelivery, workflow.StatusInDelivery, "user-30").
		Return(nil).Once()

	history.On("Append", mock.Anything, mock.Anything).Return(nil)
	notifier.On("PublishIntents", mock.Anything, "user-30", "", mock.Anything).Return()

	updated, err := svc.Transition(context.Background(), courier, "dossier-f1", workflow.StatusInDelivery, "")

	require.NoError(t, err)
	assert.Equal(t, workflow.StatusInDelivery, updated.Status)
	dossiers.AssertNumberOfCalls(t, "UpdateStatus", 2)
}

func TestTransitionGivesUpAfterRepeatedConflicts(t *testing.T) {
	dossiers := new(MockDossierStore)
	history := new(MockHistoryStore)
	notifier := new(MockNotificationSink)
	svc := newTestService(dossiers, history, notifier)

	dossiers.On("GetByID", mock.Anything, "dossier-f1").Return(storedDossier(workflow.StatusReadyForDelivery), nil)
	history.On("LastChangedAt", mock.Anything, "dossier-f1").Return(time.Time{}, nil)
	dossiers.On("UpdateStatus", mock.Anything, "dossier-f1",
		workflow.StatusReadyForDelivery, workflow.StatusInDelivery, "user-30").
		Return(repository.ErrStatusConflict)

	_, err := svc.Transition(context.Background(), courier, "dossier-f1", workflow.StatusInDelivery, "")

	assert.ErrorIs(t, err, repository.ErrStatusConflict)
	dossiers.AssertNumberOfCalls(t, "UpdateStatus", maxTransitionAttempts)
	history.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestReadyToPrintRequiresSignOff(t *testing.T) {
	dossiers := new(MockDossierStore)
	history := new(MockHistoryStore)
	notifier := new(MockNotificationSink)
	svc := newTestService(dossiers, history, notifier)

	unsigned := storedDossier(workflow.StatusInPreparation)
	unsigned.PreparerValidated = false
	dossiers.On("GetByID", mock.Anything, "dossier-f1").Return(unsigned, nil)

	_, err := svc.Transition(context.Background(), preparer, "dossier-f1", workflow.StatusReadyToPrint, "")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConflict, errors.CodeOf(err))
	dossiers.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOnlyPreparersCreateDossiers(t *testing.T) {
	dossiers := new(MockDossierStore)
	history := new(MockHistoryStore)
	notifier := new(MockNotificationSink)
	svc := newTestService(dossiers, history, notifier)

	_, err := svc.CreateDossier(context.Background(), courier, &CreateDossierRequest{
		ClientName: "Imprimerie Morel",
	})

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeForbidden, errors.CodeOf(err))
	dossiers.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateDossierGeneratesReference(t *testing.T) {
	dossiers := new(MockDossierStore)
	history := new(MockHistoryStore)
	notifier := new(MockNotificationSink)
	svc := newTestService(dossiers, history, notifier)

	dossiers.On("Create", mock.Anything, mock.MatchedBy(func(d *repository.Dossier) bool {
		return d.Status == workflow.StatusNew &&
			d.CreatedBy == "user-7" &&
			d.Reference != ""
	})).Return(nil)

	created, err := svc.CreateDossier(context.Background(), preparer, &CreateDossierRequest{
		ClientName: "Imprimerie Morel",
	})

	require.NoError(t, err)
	assert.Equal(t, workflow.StatusNew, created.Status)
	assert.NotEmpty(t, created.Reference)
	dossiers.AssertExpectations(t)
}

func TestSignOffRequiresOwnership(t *testing.T) {
	dossiers := new(MockDossierStore)
	history := new(MockHistoryStore)
	notifier := new(MockNotificationSink)
	svc := newTestService(dossiers, history, notifier)

	dossiers.On("GetByID", mock.Anything, "dossier-f1").Return(storedDossier(workflow.StatusInPreparation), nil)

	other := workflow.Principal{UserID: "user-8", Role: workflow.RolePreparer}
	err := svc.SignOff(context.Background(), other, "dossier-f1")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeForbidden, errors.CodeOf(err))
	dossiers.AssertNotCalled(t, "SetPreparerValidated", mock.Anything, mock.Anything, mock.Anything)
}
