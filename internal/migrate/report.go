package migrate

import (
	"time"

	"github.com/starford/kenaz-migrate/internal/assets"
	"github.com/starford/kenaz-migrate/internal/linkgraph"
)

// Phase is a step of a migration run.
type Phase string

// Run phases, in order. Failed is absorbing.
const (
	PhaseStart              Phase = "start"
	PhaseBackup             Phase = "backup"
	PhaseIndexBuilt         Phase = "index_built"
	PhaseScaffolded         Phase = "directories_scaffolded"
	PhaseDocumentsProcessed Phase = "documents_processed"
	PhaseAssetsCopied       Phase = "assets_copied"
	PhaseDone               Phase = "done"
	PhaseFailed             Phase = "failed"
)

// Timing is the wall time spent in one phase.
type Timing struct {
	Phase    Phase
	Duration time.Duration
}

// Report describes a finished (or failed) run.
type Report struct {
	Phase    Phase // last phase reached
	DryRun   bool
	Snapshot string // backup directory, "" when nothing was backed up
	Timings  []Timing

	Documents  int
	Written    int
	Skipped    int
	Collisions int // basenames shared by more than one document

	Resolved  int
	Ambiguous int
	Missing   int
	Dangling  []linkgraph.Dangling

	Assets        assets.Report
	MissingAssets []string // embedded names with no matching source image
}

// Duration is the total time across all recorded phases.
func (r *Report) Duration() time.Duration {
	var d time.Duration
	for _, t := range r.Timings {
		d += t.Duration
	}
	return d
}
