package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// unixSeconds decodes a POSIX timestamp in seconds. Datadog reports group
// transitions this way; null or anything that is not an integer decodes to
// "no timestamp" instead of failing the whole payload.
type unixSeconds struct{ t *time.Time }

func (u *unixSeconds) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	u.t = nil
	if s == "null" || s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	t := time.Unix(n, 0).UTC()
	u.t = &t
	return nil
}

// rfc3339Time decodes an RFC 3339 string such as overall_state_modified.
// Non-string input decodes to "no timestamp"; a string that is not RFC 3339
// fails the payload.
type rfc3339Time struct{ t *time.Time }

func (r *rfc3339Time) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	r.t = nil
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return nil
	}
	val := strings.Trim(s, "\"")
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return fmt.Errorf("invalid RFC 3339 timestamp %q: %w", val, err)
	}
	t = t.UTC()
	r.t = &t
	return nil
}
