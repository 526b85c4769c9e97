// Package record defines the typed row model shared by the whole pipeline.
//
// A Record is an open field map whose values are restricted to the JSON
// shapes a dataset loader can produce: string, float64, bool, nil, []any,
// and nested map[string]any. Dates travel as strings and are parsed on
// demand with Time.
package record

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SourceField is the reserved field carrying the originating dataset name
// when records from multiple datasets are merged.
const SourceField = "_dataset_source"

// Record is a single dataset row.
type Record map[string]any

// timeLayouts are tried in order when coercing a value to a time.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// Float coerces a value to float64. Numeric strings are parsed; booleans
// and everything else fail.
func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// String renders a value for display and comparison. Nil renders empty.
func String(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Time coerces a value to a time.Time, trying the supported layouts.
func Time(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// Source returns the dataset tag of a record, if any.
func Source(r Record) string {
	return String(r[SourceField])
}

// Tag returns a copy of each record carrying the dataset source tag.
func Tag(records []Record, dataset string) []Record {
	tagged := make([]Record, len(records))
	for i, r := range records {
		c := make(Record, len(r)+1)
		for k, v := range r {
			c[k] = v
		}
		c[SourceField] = dataset
		tagged[i] = c
	}
	return tagged
}

// Merge combines records from multiple datasets. When more than one group is
// given, every record must carry a source tag; merging untagged groups with
// tagged ones is an error so callers cannot silently mix them.
func Merge(groups ...[]Record) ([]Record, error) {
	if len(groups) == 1 {
		return groups[0], nil
	}
	var merged []Record
	for _, group := range groups {
		for _, r := range group {
			if Source(r) == "" {
				return nil, fmt.Errorf("record missing %s tag in multi-dataset merge", SourceField)
			}
			merged = append(merged, r)
		}
	}
	return merged, nil
}

// Fields returns the sorted-insertion union of field names across records,
// excluding the reserved source tag.
func Fields(records []Record) []string {
	seen := make(map[string]bool)
	var fields []string
	for _, r := range records {
		for k := range r {
			if k == SourceField || seen[k] {
				continue
			}
			seen[k] = true
			fields = append(fields, k)
		}
	}
	return fields
}

// Datasets returns the distinct source tags present, in first-seen order.
func Datasets(records []Record) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range records {
		s := Source(r)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		names = append(names, s)
	}
	return names
}

// Sample returns up to n records unmodified, for grounding context.
func Sample(records []Record, n int) []Record {
	if len(records) <= n {
		return records
	}
	return records[:n]
}
