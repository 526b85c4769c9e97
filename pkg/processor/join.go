package processor

import (
	"strings"
	"time"

	"github.com/jsperson/chathero/pkg/joins"
	"github.com/jsperson/chathero/pkg/record"
)

// Join executes a resolved strategy against dataset-tagged records.
// Returns the input unchanged when no join is needed.
func (p *Processor) Join(strategy joins.Strategy, records []record.Record) []record.Record {
	if !strategy.NeedsJoin {
		return records
	}

	left := bySource(records, strategy.LeftDataset)
	right := bySource(records, strategy.RightDataset)

	switch strategy.JoinType {
	case joins.TypeTemporal:
		return p.temporalJoin(strategy, left, right)
	case joins.TypeKeyMatch:
		return p.keyMatchJoin(strategy, left, right)
	case joins.TypeNestedAggregation:
		return p.nestedAggregation(records)
	default:
		return records
	}
}

func bySource(records []record.Record, dataset string) []record.Record {
	var out []record.Record
	for _, r := range records {
		if record.Source(r) == dataset {
			out = append(out, r)
		}
	}
	return out
}

// temporalJoin counts right-dataset records falling inside each left
// record's effective window [start, end). A missing end date leaves the
// window open: it is evaluated against the clock's now. In date_range mode
// every left record is kept even with zero matches; date_overlap keeps only
// records that matched.
func (p *Processor) temporalJoin(strategy joins.Strategy, left, right []record.Record) []record.Record {
	cond := strategy.Condition
	now := p.clock.Now()

	var out []record.Record
	for _, l := range left {
		start, ok := record.Time(l[cond.LeftDateField])
		if !ok {
			continue
		}
		end := now
		open := true
		if cond.LeftEndDateField != "" {
			if t, ok := record.Time(l[cond.LeftEndDateField]); ok {
				end, open = t, false
			}
		}

		count := 0
		for _, r := range right {
			t, ok := record.Time(r[cond.RightDateField])
			if !ok {
				continue
			}
			// Inclusive lower bound, exclusive upper.
			if !t.Before(start) && t.Before(end) {
				count++
			}
		}

		if count == 0 && cond.Mode == joins.ModeDateOverlap {
			continue
		}

		row := make(record.Record, len(l)+3)
		for k, v := range l {
			row[k] = v
		}
		row["match_count"] = float64(count)
		row["window_start"] = start.Format(time.RFC3339)
		if open {
			row["window_end"] = "open"
		} else {
			row["window_end"] = end.Format(time.RFC3339)
		}
		out = append(out, row)
	}
	return out
}

// keyMatchJoin pairs records whose match-field values are equal or where one
// case-insensitively contains the other. Right-side fields that collide with
// left-side ones are prefixed with the right dataset name.
func (p *Processor) keyMatchJoin(strategy joins.Strategy, left, right []record.Record) []record.Record {
	field := strategy.Condition.MatchField

	var out []record.Record
	for _, l := range left {
		lv := strings.ToLower(record.String(l[field]))
		if lv == "" {
			continue
		}
		for _, r := range right {
			rv := strings.ToLower(record.String(r[field]))
			if rv == "" {
				continue
			}
			if lv != rv && !strings.Contains(lv, rv) && !strings.Contains(rv, lv) {
				continue
			}
			row := make(record.Record, len(l)+len(r))
			for k, v := range l {
				row[k] = v
			}
			for k, v := range r {
				if k == record.SourceField {
					continue
				}
				if _, exists := row[k]; exists {
					k = strategy.RightDataset + "_" + k
				}
				row[k] = v
			}
			out = append(out, row)
		}
	}
	return out
}

// nestedAggregation summarizes each dataset independently: a count and a
// small sample, no cross-record pairing.
func (p *Processor) nestedAggregation(records []record.Record) []record.Record {
	var out []record.Record
	for _, name := range record.Datasets(records) {
		group := bySource(records, name)
		out = append(out, record.Record{
			"dataset": name,
			"count":   float64(len(group)),
			"sample":  toAnySlice(record.Sample(group, SampleSize)),
		})
	}
	return out
}

func toAnySlice(records []record.Record) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = map[string]any(r)
	}
	return out
}
