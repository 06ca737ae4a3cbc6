package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/atelierpress/be-print-dossiers/internal/platform/errors"
	"github.com/atelierpress/be-print-dossiers/internal/platform/logger"
	"github.com/atelierpress/be-print-dossiers/internal/repository"
	"github.com/atelierpress/be-print-dossiers/internal/workflow"
)

// maxTransitionAttempts bounds the optimistic-lock retry loop. Each retry
// re-fetches the dossier and re-validates against the fresh snapshot.
const maxTransitionAttempts = 3

// DossierStore is the persistence surface the service needs for dossiers.
type DossierStore interface {
	Create(ctx context.Context, d *repository.Dossier) error
	GetByID(ctx context.Context, id string) (*repository.Dossier, error)
	List(ctx context.Context, filter repository.DossierFilter, limit, offset int) ([]*repository.Dossier, int64, error)
	UpdateStatus(ctx context.Context, id string, from, to workflow.Status, updatedBy string) error
	AssignMachineFamily(ctx context.Context, id string, family workflow.MachineFamily, updatedBy string) error
	SetPreparerValidated(ctx context.Context, id, validatedBy string) error
	Delete(ctx context.Context, id string) error
}

// HistoryStore is the persistence surface for the append-only audit trail.
type HistoryStore interface {
	Append(ctx context.Context, entry workflow.HistoryEntry) error
	GetByDossierID(ctx context.Context, dossierID string) ([]workflow.HistoryEntry, error)
	LastChangedAt(ctx context.Context, dossierID string) (time.Time, error)
}

// NotificationSink receives the intents planned for accepted transitions.
type NotificationSink interface {
	PublishIntents(ctx context.Context, actorID, comment string, intents []workflow.NotificationIntent)
}

// TransitionRejectedError carries the engine's typed rejection to the
// transport layer, which maps each reason to a distinct HTTP answer.
type TransitionRejectedError struct {
	Reason workflow.RejectionReason
}

func (e *TransitionRejectedError) Error() string {
	return e.Reason.Message()
}

// DossierService orchestrates the workflow engine with persistence and
// notifications: validate → compare-and-swap persist → audit → notify.
type DossierService struct {
	dossiers  DossierStore
	history   HistoryStore
	validator *workflow.Validator
	recorder  *workflow.Recorder
	planner   workflow.Planner
	notifier  NotificationSink
	log       *logger.Logger
}

// NewDossierService creates a new DossierService.
func NewDossierService(
	dossiers DossierStore,
	history HistoryStore,
	validator *workflow.Validator,
	recorder *workflow.Recorder,
	notifier NotificationSink,
	log *logger.Logger,
) *DossierService {
	return &DossierService{
		dossiers:  dossiers,
		history:   history,
		validator: validator,
		recorder:  recorder,
		notifier:  notifier,
		log:       log,
	}
}

// ── Creation and queries ──────────────────────────────────────────────────────

// CreateDossierRequest carries the fields a preparer supplies at creation.
type CreateDossierRequest struct {
	Reference     string  `json:"reference"`
	ClientName    string  `json:"client_name"`
	MachineFamily string  `json:"machine_family"`
	Description   *string `json:"description"`
	Notes         *string `json:"notes"`
}

// CreateDossier opens a new dossier in status "new", owned by the calling
// preparer. Admins may create on behalf of the atelier.
func (s *DossierService) CreateDossier(ctx context.Context, p workflow.Principal, req *CreateDossierRequest) (*repository.Dossier, error) {
	if p.Role != workflow.RolePreparer && p.Role != workflow.RoleAdmin {
		return nil, errors.New(errors.ErrCodeForbidden, "only preparers can create dossiers")
	}
	if req.ClientName == "" {
		return nil, errors.InvalidInput("client_name", "client name is required")
	}

	family, err := workflow.ParseMachineFamily(req.MachineFamily)
	if err != nil {
		return nil, errors.InvalidInput("machine_family", err.Error())
	}

	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = generateReference()
	}

	d := &repository.Dossier{
		Reference:     reference,
		ClientName:    req.ClientName,
		Status:        workflow.StatusNew,
		MachineFamily: family,
		Description:   req.Description,
		Notes:         req.Notes,
		CreatedBy:     p.UserID,
	}

	if err := s.dossiers.Create(ctx, d); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("dossier_id", d.ID).
		Str("reference", d.Reference).
		Str("created_by", p.UserID).
		Msg("Dossier created")

	return d, nil
}

// GetDossier returns a dossier with its full status history.
func (s *DossierService) GetDossier(ctx context.Context, id string) (*repository.Dossier, []workflow.HistoryEntry, error) {
	d, err := s.dossiers.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	history, err := s.history.GetByDossierID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return d, history, nil
}

// ListDossiers returns dossiers matching the filter, with pagination.
func (s *DossierService) ListDossiers(ctx context.Context, filter repository.DossierFilter, page, pageSize int) ([]*repository.Dossier, int64, error) {
	offset := (page - 1) * pageSize
	return s.dossiers.List(ctx, filter, pageSize, offset)
}

// AvailableTransitions returns the statuses the caller may move the dossier
// to right now, for the UI's action menu.
func (s *DossierService) AvailableTransitions(ctx context.Context, p workflow.Principal, id string) ([]workflow.Status, error) {
	d, err := s.dossiers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.validator.ReachableFor(p, d.WorkflowFolder()), nil
}

// ── Preparation ───────────────────────────────────────────────────────────────

// SignOff records the preparer's explicit validation of the dossier. This is
// a distinct gate from status: the dossier cannot move to ready_to_print
// until its creator has signed it off.
func (s *DossierService) SignOff(ctx context.Context, p workflow.Principal, id string) error {
	d, err := s.dossiers.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.Role != workflow.RoleAdmin && (p.Role != workflow.RolePreparer || d.CreatedBy != p.UserID) {
		return errors.New(errors.ErrCodeForbidden, "only the dossier's preparer can sign it off")
	}
	return s.dossiers.SetPreparerValidated(ctx, id, p.UserID)
}

// AssignMachineFamily binds the dossier to a machine family while it is
// still in preparation.
func (s *DossierService) AssignMachineFamily(ctx context.Context, p workflow.Principal, id, family string) error {
	parsed, err := workflow.ParseMachineFamily(family)
	if err != nil || parsed == workflow.FamilyUnassigned {
		return errors.InvalidInput("machine_family", "must be family_a or family_b")
	}

	d, err := s.dossiers.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.Role != workflow.RoleAdmin && (p.Role != workflow.RolePreparer || d.CreatedBy != p.UserID) {
		return errors.New(errors.ErrCodeForbidden, "only the dossier's preparer can assign a machine family")
	}

	return s.dossiers.AssignMachineFamily(ctx, id, parsed, p.UserID)
}

// DeleteDossier removes a dossier that never entered the pipeline.
func (s *DossierService) DeleteDossier(ctx context.Context, p workflow.Principal, id string) error {
	d, err := s.dossiers.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.Role != workflow.RoleAdmin && (p.Role != workflow.RolePreparer || d.CreatedBy != p.UserID) {
		return errors.New(errors.ErrCodeForbidden, "only the dossier's preparer can delete it")
	}
	return s.dossiers.Delete(ctx, id)
}

// ── Transition ────────────────────────────────────────────────────────────────

// Transition runs the full accepted-transition pipeline: validate against a
// fresh snapshot, persist with an optimistic status check, append the audit
// entry and publish notification intents. On a lost persistence race it
// re-fetches and re-validates, up to maxTransitionAttempts.
func (s *DossierService) Transition(ctx context.Context, p workflow.Principal, id string, target workflow.Status, comment string) (*repository.Dossier, error) {
	for attempt := 1; attempt <= maxTransitionAttempts; attempt++ {
		d, err := s.dossiers.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		req := workflow.Request{
			Principal:    p,
			Folder:       d.WorkflowFolder(),
			TargetStatus: target,
			Comment:      comment,
		}

		decision, err := s.validator.Validate(req)
		if err != nil {
			// Catalog desync — a bug, not a user condition.
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "transition validation failed")
		}
		if !decision.Allowed {
			return nil, &TransitionRejectedError{Reason: decision.Reason}
		}

		if target == workflow.StatusReadyToPrint && !d.PreparerValidated {
			return nil, errors.New(errors.ErrCodeConflict,
				"dossier has not been signed off by the preparer")
		}

		lastAt, err := s.history.LastChangedAt(ctx, id)
		if err != nil {
			s.log.Warn().Err(err).Str("dossier_id", id).Msg("Could not read last history timestamp")
			lastAt = time.Time{}
		}
		entry := s.recorder.Record(req, lastAt)

		err = s.dossiers.UpdateStatus(ctx, id, d.Status, target, p.UserID)
		if err == repository.ErrStatusConflict {
			s.log.Info().
				Str("dossier_id", id).
				Int("attempt", attempt).
				Msg("Lost optimistic status race, re-validating")
			continue
		}
		if err != nil {
			return nil, err
		}

		s.appendHistory(ctx, entry)

		intents := s.planner.Plan(d.Status, target, req.Folder)
		s.notifier.PublishIntents(ctx, p.UserID, comment, intents)

		s.log.Info().
			Str("dossier_id", id).
			Str("from", string(d.Status)).
			Str("to", string(target)).
			Str("changed_by", p.UserID).
			Msg("Dossier status changed")

		d.Status = target
		return d, nil
	}

	return nil, repository.ErrStatusConflict
}

// appendHistory writes the audit entry and logs a warning on failure; the
// status change already landed and is never rolled back for audit I/O.
func (s *DossierService) appendHistory(ctx context.Context, entry workflow.HistoryEntry) {
	if err := s.history.Append(ctx, entry); err != nil {
		s.log.Warn().Err(err).
			Str("dossier_id", entry.FolderID).
			Str("to", string(entry.ToStatus)).
			Msg("Failed to append history entry")
	}
}

// generateReference builds a human-facing dossier number.
func generateReference() string {
	return fmt.Sprintf("DOS-%d-%s", time.Now().Year(), strings.ToUpper(uuid.NewString()[:8]))
}
