package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/atelierpress/be-print-dossiers/internal/platform/database"
	"github.com/atelierpress/be-print-dossiers/internal/platform/errors"
	"github.com/atelierpress/be-print-dossiers/internal/workflow"
)

// HistoryRepository appends and reads the immutable status history of a
// dossier. The table carries a delete-prevention trigger, so Append is the
// only mutation exposed.
type HistoryRepository struct {
	db *database.DB
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(db *database.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append inserts one history entry as produced by the workflow recorder.
func (r *HistoryRepository) Append(ctx context.Context, entry workflow.HistoryEntry) error {
	query := `
		INSERT INTO dossier_history
		    (id, dossier_id, from_status, to_status, changed_by, changed_at, comment)
		VALUES ($1, $2, $3::dossier_status, $4::dossier_status, $5, $6, NULLIF($7, ''))
	`

	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.FolderID,
		string(entry.FromStatus),
		string(entry.ToStatus),
		entry.ChangedByUserID,
		entry.ChangedAt,
		entry.Comment,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to append history entry")
	}
	return nil
}

// GetByDossierID returns the full trail for a dossier, oldest first.
func (r *HistoryRepository) GetByDossierID(ctx context.Context, dossierID string) ([]workflow.HistoryEntry, error) {
	query := `
		SELECT id, dossier_id, from_status, to_status, changed_by, changed_at,
		       COALESCE(comment, '')
		FROM dossier_history
		WHERE dossier_id = $1
		ORDER BY changed_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, dossierID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get dossier history")
	}
	defer rows.Close()

	entries := make([]workflow.HistoryEntry, 0)
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan history entry")
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// LastChangedAt returns the timestamp of the most recent entry for a
// dossier, or the zero time when no history exists yet. The recorder clamps
// new timestamps against it to keep each trail non-decreasing.
func (r *HistoryRepository) LastChangedAt(ctx context.Context, dossierID string) (time.Time, error) {
	query := `
		SELECT changed_at
		FROM dossier_history
		WHERE dossier_id = $1
		ORDER BY changed_at DESC
		LIMIT 1
	`

	var at time.Time
	err := r.db.QueryRow(ctx, query, dossierID).Scan(&at)
	if err == pgx.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, errors.Wrap(err, errors.ErrCodeInternal, "failed to get last history timestamp")
	}
	return at, nil
}

func scanHistoryEntry(sc rowScanner) (workflow.HistoryEntry, error) {
	var entry workflow.HistoryEntry
	var from, to string

	err := sc.Scan(
		&entry.ID,
		&entry.FolderID,
		&from,
		&to,
		&entry.ChangedByUserID,
		&entry.ChangedAt,
		&entry.Comment,
	)
	if err != nil {
		return workflow.HistoryEntry{}, err
	}

	if entry.FromStatus, err = workflow.ParseStatus(from); err != nil {
		return workflow.HistoryEntry{}, err
	}
	if entry.ToStatus, err = workflow.ParseStatus(to); err != nil {
		return workflow.HistoryEntry{}, err
	}
	return entry, nil
}
