package processor

import (
	"sort"

	"github.com/jsperson/chathero/pkg/record"
)

// Calculation operations over a named field.
const (
	CalcCount   = "count"
	CalcSum     = "sum"
	CalcAverage = "average"
	CalcMin     = "min"
	CalcMax     = "max"
)

// GroupBy produces a value → count histogram over a field, applying an
// optional date transform to the grouping key first. Records whose key is
// empty after transformation are dropped.
func (p *Processor) GroupBy(records []record.Record, field, transform string) map[string]int {
	hist := make(map[string]int)
	for _, r := range records {
		v, ok := r[field]
		if !ok {
			continue
		}
		key := TransformValue(transform, v)
		if key == "" {
			continue
		}
		hist[key]++
	}
	return hist
}

// HistogramRecords renders a histogram as records sorted by descending
// count, for downstream budgeting and synthesis.
func HistogramRecords(hist map[string]int, field string) []record.Record {
	out := make([]record.Record, 0, len(hist))
	for k, c := range hist {
		out = append(out, record.Record{field: k, "count": float64(c)})
	}
	sort.Slice(out, func(i, j int) bool {
		ci, _ := record.Float(out[i]["count"])
		cj, _ := record.Float(out[j]["count"])
		if ci != cj {
			return ci > cj
		}
		return record.String(out[i][field]) < record.String(out[j][field])
	})
	return out
}

// Calculate computes an aggregate over a named field. Non-numeric and
// missing values contribute 0 to sum and average (and still count toward the
// average's denominator); min and max consider only numeric values.
func (p *Processor) Calculate(op string, records []record.Record, field string) float64 {
	switch op {
	case CalcCount:
		return float64(len(records))
	case CalcSum:
		var sum float64
		for _, r := range records {
			if f, ok := record.Float(r[field]); ok {
				sum += f
			}
		}
		return sum
	case CalcAverage:
		if len(records) == 0 {
			return 0
		}
		return p.Calculate(CalcSum, records, field) / float64(len(records))
	case CalcMin:
		min, found := 0.0, false
		for _, r := range records {
			if f, ok := record.Float(r[field]); ok && (!found || f < min) {
				min, found = f, true
			}
		}
		return min
	case CalcMax:
		max, found := 0.0, false
		for _, r := range records {
			if f, ok := record.Float(r[field]); ok && (!found || f > max) {
				max, found = f, true
			}
		}
		return max
	default:
		return 0
	}
}
