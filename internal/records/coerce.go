// Package records converts between raw store documents and domain entities.
// Decoding is lenient: a bad field is replaced by its default and reported
// as an Issue, so one malformed document never fails a whole snapshot.
package records

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Issue describes a field that could not be decoded as stored.
type Issue struct {
	Field  string
	Reason string
}

func (i Issue) String() string { return i.Field + ": " + i.Reason }

type decoder struct {
	data   map[string]any
	now    time.Time
	issues []Issue
}

func (d *decoder) report(field, format string, args ...any) {
	d.issues = append(d.issues, Issue{Field: field, Reason: fmt.Sprintf(format, args...)})
}

func (d *decoder) str(field string) string {
	v, ok := d.data[field]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	case float64, int, int64, json.Number:
		return fmt.Sprint(s)
	}
	d.report(field, "expected string, got %T", v)
	return ""
}

func (d *decoder) boolean(field string) bool {
	v, ok := d.data[field]
	if !ok || v == nil {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	}
	d.report(field, "expected bool, got %T", v)
	return false
}

func (d *decoder) integer(field string) int {
	v, ok := d.data[field]
	if !ok || v == nil {
		return 0
	}
	if n, ok := toFloat(v); ok && !math.IsNaN(n) && !math.IsInf(n, 0) {
		return int(n)
	}
	d.report(field, "expected number, got %T", v)
	return 0
}

func (d *decoder) strings(field string) ([]string, bool) {
	v, ok := d.data[field]
	if !ok || v == nil {
		return []string{}, false
	}
	switch list := v.(type) {
	case []string:
		out := make([]string, len(list))
		copy(out, list)
		return out, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				d.report(field, "dropped non-string element %T", item)
				continue
			}
			out = append(out, s)
		}
		return out, true
	}
	d.report(field, "expected list, got %T", v)
	return []string{}, false
}

// requiredTime decodes a timestamp that must exist. Absent or malformed
// values become now.
func (d *decoder) requiredTime(field string) time.Time {
	v, ok := d.data[field]
	if !ok || v == nil {
		return d.now
	}
	t, ok := ParseTime(v)
	if !ok {
		d.report(field, "malformed timestamp %v, using now", v)
		return d.now
	}
	return t
}

// optionalTime decodes a timestamp that may be absent. Malformed values
// become nil.
func (d *decoder) optionalTime(field string) *time.Time {
	v, ok := d.data[field]
	if !ok || v == nil || v == "" {
		return nil
	}
	t, ok := ParseTime(v)
	if !ok {
		d.report(field, "malformed timestamp %v, dropped", v)
		return nil
	}
	return &t
}

// ParseTime accepts the timestamp shapes found in stored documents: native
// times, RFC 3339 strings, unix milliseconds and {seconds, nanoseconds}
// objects.
func ParseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return *t, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	case map[string]any:
		secVal, ok := t["seconds"]
		if !ok {
			secVal, ok = t["_seconds"]
		}
		if !ok {
			return time.Time{}, false
		}
		sec, ok := toFloat(secVal)
		if !ok {
			return time.Time{}, false
		}
		var nanos float64
		if n, ok := t["nanoseconds"]; ok {
			nanos, _ = toFloat(n)
		} else if n, ok := t["_nanoseconds"]; ok {
			nanos, _ = toFloat(n)
		}
		return time.Unix(int64(sec), int64(nanos)).UTC(), true
	}
	if ms, ok := toFloat(v); ok && ms > 0 && !math.IsInf(ms, 0) {
		return time.UnixMilli(int64(ms)).UTC(), true
	}
	return time.Time{}, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
