package hitl

import (
	"context"
	"log/slog"
)

// pickReviewer selects, among available reviewers at exactly the given
// level, the one with the lowest current workload, breaking ties by
// reviewer ID. Returns "" when no reviewer at that level is available;
// the request then stays unassigned and visible in the queue.
func pickReviewer(ctx context.Context, directory Directory, level Level, logger *slog.Logger) string {
	if directory == nil {
		return ""
	}

	reviewers, err := directory.Reviewers(ctx)
	if err != nil {
		logger.Warn("reviewer directory unavailable, leaving request unassigned",
			"level", level.String(),
			"error", err,
		)
		return ""
	}

	var best *Reviewer
	for i := range reviewers {
		r := &reviewers[i]
		if !r.Available || r.Level != level {
			continue
		}
		if best == nil ||
			r.CurrentWorkload < best.CurrentWorkload ||
			(r.CurrentWorkload == best.CurrentWorkload && r.ID < best.ID) {
			best = r
		}
	}

	if best == nil {
		logger.Warn("no available reviewer at level, leaving request unassigned",
			"level", level.String(),
		)
		return ""
	}
	return best.ID
}
