package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MonitorState is the part of a Datadog monitor that badge resolution needs.
// Values are rebuilt for every upstream response and never mutated.
type MonitorState struct {
	Name              string
	OverallStatus     Status
	OverallModifiedAt *time.Time
	Muted             bool
	// Groups is nil when group detail was not requested.
	Groups map[string]GroupState
}

// GroupState is the state of one monitor group, keyed by a comma separated
// list of tag:value tokens such as "host:web-1,env:prod".
type GroupState struct {
	Status          Status
	LastTriggeredAt *time.Time
	LastNoDataAt    *time.Time
	LastNotifiedAt  *time.Time
	LastResolvedAt  *time.Time
}

var ErrMissingGroupStatus = errors.New("monitor group has no status")

type monitorPayload struct {
	Name                 string      `json:"name"`
	OverallState         *Status     `json:"overall_state"`
	OverallStateModified rfc3339Time `json:"overall_state_modified"`
	Options              struct {
		Silenced map[string]json.RawMessage `json:"silenced"`
	} `json:"options"`
	State *struct {
		Groups map[string]groupPayload `json:"groups"`
	} `json:"state"`
}

type groupPayload struct {
	Status          *Status     `json:"status"`
	LastTriggeredTS unixSeconds `json:"last_triggered_ts"`
	LastNoDataTS    unixSeconds `json:"last_nodata_ts"`
	LastNotifiedTS  unixSeconds `json:"last_notified_ts"`
	LastResolvedTS  unixSeconds `json:"last_resolved_ts"`
}

// DecodeMonitorState parses a Datadog "get monitor" response body.
func DecodeMonitorState(data []byte) (MonitorState, error) {
	var p monitorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return MonitorState{}, fmt.Errorf("decode monitor: %w", err)
	}

	state := MonitorState{
		Name:              p.Name,
		OverallStatus:     StatusOk,
		OverallModifiedAt: p.OverallStateModified.t,
		Muted:             len(p.Options.Silenced) > 0,
	}
	if p.OverallState != nil {
		state.OverallStatus = *p.OverallState
	}

	if p.State != nil && p.State.Groups != nil {
		state.Groups = make(map[string]GroupState, len(p.State.Groups))
		for key, g := range p.State.Groups {
			if g.Status == nil {
				return MonitorState{}, fmt.Errorf("decode monitor group %q: %w", key, ErrMissingGroupStatus)
			}
			state.Groups[key] = GroupState{
				Status:          *g.Status,
				LastTriggeredAt: g.LastTriggeredTS.t,
				LastNoDataAt:    g.LastNoDataTS.t,
				LastNotifiedAt:  g.LastNotifiedTS.t,
				LastResolvedAt:  g.LastResolvedTS.t,
			}
		}
	}

	return state, nil
}

// WithoutGroups returns a copy of the state with group detail dropped.
func (m MonitorState) WithoutGroups() MonitorState {
	m.Groups = nil
	return m
}
