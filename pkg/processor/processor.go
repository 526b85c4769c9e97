// Package processor deterministically executes an execution plan's non-code
// instructions (filters, projection, limit) and any resolved join strategy
// against the full, non-sampled dataset.
package processor

import (
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/jsperson/chathero/pkg/planner"
	"github.com/jsperson/chathero/pkg/record"
)

// SampleSize is the number of unmodified records attached to every output
// for grounding context.
const SampleSize = 3

// Output is a processed result set plus its grounding sample.
type Output struct {
	Records []record.Record
	// Sample holds unmodified input records so synthesis can ground its
	// answer even when Records are aggregates.
	Sample []record.Record
}

// Processor executes plans and joins. The clock supplies "now" for
// open-ended temporal windows.
type Processor struct {
	clock clockwork.Clock
	log   *slog.Logger
}

// New creates a Processor using the real clock.
func New(log *slog.Logger) *Processor {
	return NewWithClock(log, clockwork.NewRealClock())
}

// NewWithClock creates a Processor with an injected clock, used by tests and
// by callers that need a frozen evaluation time.
func NewWithClock(log *slog.Logger, clock clockwork.Clock) *Processor {
	return &Processor{clock: clock, log: log}
}

// Filter applies the plan's filters in order. Records failing any filter are
// dropped.
func (p *Processor) Filter(records []record.Record, filters []planner.Filter) []record.Record {
	if len(filters) == 0 {
		return records
	}
	out := make([]record.Record, 0, len(records))
	for _, r := range records {
		if matchesAll(r, filters) {
			out = append(out, r)
		}
	}
	return out
}

// Project restricts records to the plan's included fields. The dataset
// source tag is always preserved.
func (p *Processor) Project(records []record.Record, fields []string) []record.Record {
	if len(fields) == 0 {
		return records
	}
	keep := make(map[string]bool, len(fields)+1)
	for _, f := range fields {
		keep[f] = true
	}
	keep[record.SourceField] = true

	out := make([]record.Record, len(records))
	for i, r := range records {
		c := make(record.Record, len(fields))
		for k, v := range r {
			if keep[k] {
				c[k] = v
			}
		}
		out[i] = c
	}
	return out
}

// Limit caps the record count when the plan requests it.
func (p *Processor) Limit(records []record.Record, limit int) []record.Record {
	if limit <= 0 || len(records) <= limit {
		return records
	}
	return records[:limit]
}
