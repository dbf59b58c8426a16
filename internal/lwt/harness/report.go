package harness

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"lwt/internal/lwt"
)

// Report summarises a run.
type Report struct {
	RunID      string           `json:"run_id"`
	Namespace  string           `json:"namespace"`
	Table      string           `json:"table"`
	Records    int              `json:"records"`
	Strict     bool             `json:"strict"`
	Fresh      PathSummary      `json:"fresh"`
	Stale      PathSummary      `json:"stale"`
	Violations []ViolationEntry `json:"violations"`
}

// PathSummary counts outcomes on one exerciser path.
type PathSummary struct {
	Exercised int `json:"exercised"`
	Applied   int `json:"applied"`
	Rejected  int `json:"rejected"`
}

type ViolationEntry struct {
	Key      string   `json:"key"`
	Path     lwt.Path `json:"path"`
	Reason   string   `json:"reason"`
	Expected string   `json:"expected"`
	Got      string   `json:"got"`
}

func newReport(config Config) *Report {
	return &Report{
		RunID:      config.RunID,
		Namespace:  config.Schema.Namespace,
		Table:      config.Schema.Table,
		Strict:     config.Strict,
		Violations: []ViolationEntry{},
	}
}

// Add folds one exercise into the report.
func (r *Report) Add(ex lwt.Exercise) {
	summary := &r.Stale
	if ex.Path == lwt.PathFresh {
		summary = &r.Fresh
	}

	summary.Exercised++
	if ex.Evaluated {
		if ex.Result.Applied() {
			summary.Applied++
		} else {
			summary.Rejected++
		}
	}

	if v := ex.Violation; v != nil {
		r.Violations = append(r.Violations, ViolationEntry{
			Key:      v.Key,
			Path:     v.Path,
			Reason:   v.Reason(),
			Expected: v.Expected,
			Got:      v.Got,
		})
	}
}

// Passed reports whether the run saw no violations.
func (r *Report) Passed() bool {
	return len(r.Violations) == 0
}

// Render writes the report as indented JSON with violations in a stable order.
func (r *Report) Render(w io.Writer) error {
	sort.Slice(r.Violations, func(i, j int) bool {
		a, b := r.Violations[i], r.Violations[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Key < b.Key
	})

	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	_, err = fmt.Fprintf(w, "%s\n", out)
	return err
}
