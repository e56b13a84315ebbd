// Package pipeline sequences the full-scope recomputation passes: per
// season, clear and rewrite percentile thresholds and player/team machine
// stats, plus the chronological rating pass. Passes over distinct seasons
// write to disjoint partitions and may run in parallel; the rating pass is
// strictly sequential because rating state carries across periods.
package pipeline

import "fmt"

// RunResult tracks counts and errors from a pipeline run.
type RunResult struct {
	SeasonsProcessed  int
	ThresholdsWritten int
	PlayerRowsWritten int
	TeamRowsWritten   int
	RatingsWritten    int
	Errors            []string
}

// Add merges another RunResult into this one.
func (r *RunResult) Add(other RunResult) {
	r.SeasonsProcessed += other.SeasonsProcessed
	r.ThresholdsWritten += other.ThresholdsWritten
	r.PlayerRowsWritten += other.PlayerRowsWritten
	r.TeamRowsWritten += other.TeamRowsWritten
	r.RatingsWritten += other.RatingsWritten
	r.Errors = append(r.Errors, other.Errors...)
}

// AddErrorf records a formatted error message.
func (r *RunResult) AddErrorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Summary returns a human-readable summary of the run.
func (r *RunResult) Summary() string {
	return fmt.Sprintf(
		"seasons=%d thresholds=%d player_rows=%d team_rows=%d ratings=%d errors=%d",
		r.SeasonsProcessed, r.ThresholdsWritten,
		r.PlayerRowsWritten, r.TeamRowsWritten,
		r.RatingsWritten, len(r.Errors),
	)
}
