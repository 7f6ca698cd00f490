package release

import (
	"fmt"

	"github.com/opencubicchunks/modrel/internal/bundle"
	oerrors "github.com/opencubicchunks/modrel/internal/errors"
	"github.com/opencubicchunks/modrel/internal/modversion"
	"github.com/opencubicchunks/modrel/internal/output"
	"github.com/opencubicchunks/modrel/internal/taskgraph"
)

// BundleOutcome is the final status of one bundle.
type BundleOutcome struct {
	Name   string
	Kind   string
	Status string
	Path   string
	Digest string
	// Entries counts every archive entry including the manifest.
	Entries  int
	Embedded []string
	// SkippedBy names the failed task that caused a skip.
	SkippedBy string
	Err       error
}

// Report is the outcome of Run.
type Report struct {
	Version     modversion.ResolvedVersion
	VersionFile string
	Tasks       *taskgraph.Result
	Bundles     []BundleOutcome
}

// Failed returns the bundles that were not written.
func (r *Report) Failed() []BundleOutcome {
	var out []BundleOutcome
	for _, b := range r.Bundles {
		if b.Status != output.StatusWritten {
			out = append(out, b)
		}
	}
	return out
}

// Err is nil when every bundle was written and every task completed.
func (r *Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 && (r.Tasks == nil || r.Tasks.OK()) {
		return nil
	}
	return fmt.Errorf("%d of %d bundles not written: %w", len(failed), len(r.Bundles), oerrors.ErrBundle)
}

// ExitCode maps the report to a process exit code.
func (r *Report) ExitCode() int {
	if r.Err() != nil {
		return oerrors.ExitBundleFailed
	}
	return oerrors.ExitSuccess
}

// Rows renders the outcomes for output.RenderBundleTable.
func (r *Report) Rows() []output.BundleRow {
	rows := make([]output.BundleRow, 0, len(r.Bundles))
	for _, b := range r.Bundles {
		row := output.BundleRow{Name: b.Name, Kind: b.Kind, Status: b.Status, Path: b.Path, Digest: b.Digest}
		switch {
		case b.SkippedBy != "":
			row.Message = "after failed " + b.SkippedBy
		case b.Err != nil:
			row.Message = b.Err.Error()
		}
		rows = append(rows, row)
	}
	return rows
}

func (b *builder) outcomes(tasks *taskgraph.Result) []BundleOutcome {
	out := make([]BundleOutcome, 0, len(b.cfg.Bundles))
	for _, bc := range b.cfg.Bundles {
		o := BundleOutcome{Name: bc.Name, Kind: bc.Kind, Status: output.StatusPending}

		if res := b.result(bc.Name); res != nil {
			o.Err = res.Err
			o.Status = output.StatusFailed
			if res.State == bundle.Written {
				o.Status = output.StatusWritten
				o.Path = res.Path
				o.Digest = res.Digest
				o.Entries = len(res.Entries)
				o.Embedded = res.Embedded
			}
		} else if tr, ok := tasks.Tasks[BundleTaskName(bc.Name)]; ok {
			switch tr.State {
			case taskgraph.Skipped:
				o.Status = output.StatusSkipped
				o.SkippedBy = tr.SkippedBy
				o.Err = tr.Err
			case taskgraph.Failed:
				o.Status = output.StatusFailed
				o.Err = tr.Err
			}
		}
		out = append(out, o)
	}
	return out
}
