package models

import (
	"encoding/json"
	"fmt"
)

// Status is the state of a Datadog monitor or monitor group. Values are
// ordered by severity, so the integer order is the comparison order:
// Ignored < Skipped < Ok < NoData < Warn < Alert < Unknown.
type Status int

const (
	StatusIgnored Status = iota
	StatusSkipped
	StatusOk
	StatusNoData
	StatusWarn
	StatusAlert
	StatusUnknown
)

// AllStatuses lists every status in ascending severity.
var AllStatuses = []Status{
	StatusIgnored,
	StatusSkipped,
	StatusOk,
	StatusNoData,
	StatusWarn,
	StatusAlert,
	StatusUnknown,
}

// wire names used by the Datadog API
var statusByWireName = map[string]Status{
	"Ignored": StatusIgnored,
	"Skipped": StatusSkipped,
	"OK":      StatusOk,
	"Ok":      StatusOk,
	"No Data": StatusNoData,
	"Warn":    StatusWarn,
	"Alert":   StatusAlert,
	"Unknown": StatusUnknown,
}

// String returns the text shown on a badge.
func (s Status) String() string {
	switch s {
	case StatusIgnored:
		return "Ignored"
	case StatusSkipped:
		return "Skipped"
	case StatusOk:
		return "Ok"
	case StatusNoData:
		return "No Data"
	case StatusWarn:
		return "Warn"
	case StatusAlert:
		return "Alert"
	case StatusUnknown:
		return "Unknown"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Compare returns -1, 0 or 1 when s is less severe, equally severe or more
// severe than other.
func (s Status) Compare(other Status) int {
	switch {
	case s < other:
		return -1
	case s > other:
		return 1
	}
	return 0
}

// ParseStatus maps a Datadog wire name to a Status.
func ParseStatus(name string) (Status, error) {
	s, ok := statusByWireName[name]
	if !ok {
		return StatusUnknown, fmt.Errorf("unknown monitor status %q", name)
	}
	return s, nil
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return fmt.Errorf("monitor status must be a string: %w", err)
	}
	parsed, err := ParseStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Status) MarshalJSON() ([]byte, error) {
	switch s {
	case StatusOk:
		return json.Marshal("OK")
	default:
		return json.Marshal(s.String())
	}
}
