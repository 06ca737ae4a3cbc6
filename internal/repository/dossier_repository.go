package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/atelierpress/be-print-dossiers/internal/platform/database"
	"github.com/atelierpress/be-print-dossiers/internal/platform/errors"
	"github.com/atelierpress/be-print-dossiers/internal/workflow"
)

// ErrStatusConflict reports that a compare-and-swap status update lost the
// race: the stored status no longer matches the snapshot the caller
// validated against. Callers re-fetch, re-validate and retry.
var ErrStatusConflict = errors.New(errors.ErrCodeConflict,
	"dossier status changed concurrently, please retry")

// DossierRepository handles dossier persistence.
type DossierRepository struct {
	db *database.DB
}

// NewDossierRepository creates a new dossier repository.
func NewDossierRepository(db *database.DB) *DossierRepository {
	return &DossierRepository{db: db}
}

// Create inserts a new dossier in status "new".
func (r *DossierRepository) Create(ctx context.Context, d *Dossier) error {
	query := `
		INSERT INTO dossiers (reference, client_name, status, machine_family,
		                      description, notes, created_by)
		VALUES ($1, $2, $3::dossier_status, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		d.Reference,
		d.ClientName,
		string(d.Status),
		string(d.MachineFamily),
		d.Description,
		d.Notes,
		d.CreatedBy,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)

	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create dossier")
	}
	return nil
}

// GetByID retrieves one dossier.
func (r *DossierRepository) GetByID(ctx context.Context, id string) (*Dossier, error) {
	query := `
		SELECT id, reference, client_name, status, machine_family,
		       preparer_validated, description, notes,
		       created_by, created_at, updated_by, updated_at
		FROM dossiers
		WHERE id = $1
	`

	d, err := scanDossier(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("dossier", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get dossier")
	}
	return d, nil
}

// List retrieves dossiers with filtering and pagination, newest first.
func (r *DossierRepository) List(ctx context.Context, filter DossierFilter, limit, offset int) ([]*Dossier, int64, error) {
	query := `
		SELECT id, reference, client_name, status, machine_family,
		       preparer_validated, description, notes,
		       created_by, created_at, updated_by, updated_at
		FROM dossiers
		WHERE TRUE
	`
	countQuery := `SELECT COUNT(*) FROM dossiers WHERE TRUE`

	args := []any{}
	argCount := 1

	if filter.Status != nil {
		clause := fmt.Sprintf(" AND status = $%d::dossier_status", argCount)
		query += clause
		countQuery += clause
		args = append(args, string(*filter.Status))
		argCount++
	}
	if filter.MachineFamily != nil {
		clause := fmt.Sprintf(" AND machine_family = $%d", argCount)
		query += clause
		countQuery += clause
		args = append(args, string(*filter.MachineFamily))
		argCount++
	}
	if filter.CreatedBy != nil {
		clause := fmt.Sprintf(" AND created_by = $%d", argCount)
		query += clause
		countQuery += clause
		args = append(args, *filter.CreatedBy)
		argCount++
	}

	query += " ORDER BY created_at DESC, reference DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)
	queryArgs := append(args, limit, offset)

	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to count dossiers")
	}

	rows, err := r.db.Query(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to list dossiers")
	}
	defer rows.Close()

	dossiers := make([]*Dossier, 0)
	for rows.Next() {
		d, err := scanDossier(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan dossier")
		}
		dossiers = append(dossiers, d)
	}

	return dossiers, total, nil
}

// UpdateStatus moves a dossier from → to with an optimistic check: the write
// only lands when the stored status still equals the snapshot the caller
// validated against. A lost race returns ErrStatusConflict; this is the
// at-most-one-write-per-dossier guarantee the engine itself does not provide.
func (r *DossierRepository) UpdateStatus(ctx context.Context, id string, from, to workflow.Status, updatedBy string) error {
	query := `
		UPDATE dossiers
		SET status = $3::dossier_status,
		    updated_by = $4,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2::dossier_status
	`

	tag, err := r.db.Exec(ctx, query, id, string(from), string(to), updatedBy)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update dossier status")
	}

	if tag.RowsAffected() == 0 {
		// Distinguish a lost race from a missing dossier.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrStatusConflict
	}
	return nil
}

// AssignMachineFamily sets the machine family while the dossier is still in
// preparation. Once printing begins the family is immutable, enforced by the
// status guard in the WHERE clause.
func (r *DossierRepository) AssignMachineFamily(ctx context.Context, id string, family workflow.MachineFamily, updatedBy string) error {
	query := `
		UPDATE dossiers
		SET machine_family = $2,
		    updated_by = $3,
		    updated_at = NOW()
		WHERE id = $1
		  AND status IN ('new', 'in_preparation', 'ready_to_print', 'needs_revision')
	`

	tag, err := r.db.Exec(ctx, query, id, string(family), updatedBy)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to assign machine family")
	}

	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return errors.New(errors.ErrCodeConflict,
			"machine family cannot change once printing has started")
	}
	return nil
}

// SetPreparerValidated records the preparer's explicit sign-off.
func (r *DossierRepository) SetPreparerValidated(ctx context.Context, id, validatedBy string) error {
	query := `
		UPDATE dossiers
		SET preparer_validated = TRUE,
		    updated_by = $2,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id, validatedBy).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.NotFound("dossier", id)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to set preparer validation")
	}
	return nil
}

// Delete removes a dossier that never entered the pipeline.
func (r *DossierRepository) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM dossiers
		WHERE id = $1 AND status = 'new'
	`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to delete dossier")
	}

	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return errors.New(errors.ErrCodeConflict, "only new dossiers can be deleted")
	}
	return nil
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDossier(sc rowScanner) (*Dossier, error) {
	d := &Dossier{}
	var status, family string

	err := sc.Scan(
		&d.ID,
		&d.Reference,
		&d.ClientName,
		&status,
		&family,
		&d.PreparerValidated,
		&d.Description,
		&d.Notes,
		&d.CreatedBy,
		&d.CreatedAt,
		&d.UpdatedBy,
		&d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Normalize stored strings into the closed catalogs at the storage
	// boundary. A value outside the catalog means schema drift and is
	// surfaced as an error, never passed through to the engine.
	d.Status, err = workflow.ParseStatus(status)
	if err != nil {
		return nil, err
	}
	d.MachineFamily, err = workflow.ParseMachineFamily(family)
	if err != nil {
		return nil, err
	}

	return d, nil
}
