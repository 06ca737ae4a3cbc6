package repository

import (
	"time"

	"github.com/atelierpress/be-print-dossiers/internal/workflow"
)

// Dossier is the stored print-job record. Business metadata (client, job
// description) lives alongside the workflow fields; the engine only ever
// sees the normalized workflow.Folder projection.
type Dossier struct {
	ID                string
	Reference         string // human-facing dossier number, e.g. DOS-2026-0042
	ClientName        string
	Status            workflow.Status
	MachineFamily     workflow.MachineFamily
	PreparerValidated bool
	Description       *string
	Notes             *string
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedBy         *string
	UpdatedAt         time.Time
}

// WorkflowFolder projects the stored record into the single folder shape the
// engine consumes. Legacy field-name variants from older schemas are
// normalized here, at the storage boundary, never inside the engine.
func (d *Dossier) WorkflowFolder() workflow.Folder {
	return workflow.Folder{
		ID:                d.ID,
		CurrentStatus:     d.Status,
		MachineFamily:     d.MachineFamily,
		CreatedByUserID:   d.CreatedBy,
		PreparerValidated: d.PreparerValidated,
	}
}

// DossierFilter narrows List results.
type DossierFilter struct {
	Status        *workflow.Status
	MachineFamily *workflow.MachineFamily
	CreatedBy     *string
}
