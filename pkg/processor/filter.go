package processor

import (
	"strings"

	"github.com/jsperson/chathero/pkg/planner"
	"github.com/jsperson/chathero/pkg/record"
)

func matchesAll(r record.Record, filters []planner.Filter) bool {
	for _, f := range filters {
		if !matches(r, f) {
			return false
		}
	}
	return true
}

func matches(r record.Record, f planner.Filter) bool {
	v, ok := r[f.Field]
	if !ok {
		return false
	}

	switch f.Operator {
	case planner.OpEquals:
		return equals(v, f.Value)
	case planner.OpContains:
		return strings.Contains(
			strings.ToLower(record.String(v)),
			strings.ToLower(record.String(f.Value)),
		)
	case planner.OpGreaterThan:
		return compare(v, f.Value) > 0
	case planner.OpLessThan:
		return compare(v, f.Value) < 0
	case planner.OpBetween:
		return between(v, f.Value)
	default:
		return false
	}
}

// equals compares numerically when both sides coerce to numbers, otherwise
// by exact string form.
func equals(a, b any) bool {
	if fa, ok := record.Float(a); ok {
		if fb, ok := record.Float(b); ok {
			return fa == fb
		}
	}
	return record.String(a) == record.String(b)
}

// compare orders numerically when both sides coerce to numbers, otherwise
// lexically.
func compare(a, b any) int {
	if fa, ok := record.Float(a); ok {
		if fb, ok := record.Float(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(record.String(a), record.String(b))
}

// between expects bound as a two-element array and is inclusive on both
// ends.
func between(v, bound any) bool {
	bounds, ok := bound.([]any)
	if !ok || len(bounds) != 2 {
		return false
	}
	return compare(v, bounds[0]) >= 0 && compare(v, bounds[1]) <= 0
}
