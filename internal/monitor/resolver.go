// Package monitor reduces a Datadog monitor state to the single status shown
// on a badge and the time that status began.
package monitor

import (
	"sort"
	"time"

	"github.com/platformbuilds/datadog-badges/internal/models"
)

// Result is the resolved status of a monitor. Since is nil when no
// timestamp is known for the status.
type Result struct {
	Status models.Status
	Since  *time.Time
}

// Resolve computes the worst status of the monitor groups accepted by filter
// and the time that status began.
//
// Without group detail the overall status is returned as-is and the filter is
// ignored. When groups exist but none match, the result is (NoData, nil).
// Among groups sharing the worst status, the one with the lexicographically
// smallest key wins.
func Resolve(state models.MonitorState, filter *TagFilter) Result {
	if state.Groups == nil {
		return Result{Status: state.OverallStatus, Since: state.OverallModifiedAt}
	}

	keys := make([]string, 0, len(state.Groups))
	for key := range state.Groups {
		if filter.MatchGroup(key) {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return Result{Status: models.StatusNoData}
	}
	sort.Strings(keys)

	var worst Result
	for i, key := range keys {
		r := groupResult(state.Groups[key], state.OverallModifiedAt)
		if i == 0 || r.Status.Compare(worst.Status) > 0 {
			worst = r
		}
	}
	return worst
}

// ResolveQuery compiles filter and resolves state against it.
func ResolveQuery(state models.MonitorState, filter string) Result {
	return Resolve(state, CompileFilter(filter))
}

// groupResult picks the transition that marks the start of the group's
// current condition.
func groupResult(g models.GroupState, overallModified *time.Time) Result {
	var since *time.Time
	switch g.Status {
	case models.StatusOk:
		since = latest(g.LastResolvedAt, overallModified)
	case models.StatusNoData:
		since = latest(g.LastNoDataAt, g.LastTriggeredAt, overallModified)
	default:
		since = latest(g.LastTriggeredAt, overallModified)
	}
	return Result{Status: g.Status, Since: since}
}

func latest(ts ...*time.Time) *time.Time {
	var out *time.Time
	for _, t := range ts {
		if t == nil {
			continue
		}
		if out == nil || t.After(*out) {
			out = t
		}
	}
	return out
}
