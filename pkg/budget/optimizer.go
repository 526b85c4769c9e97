// Package budget caps the amount of processed data forwarded to answer
// synthesis. Truncation is proactive and disclosed, never an error.
package budget

import (
	"fmt"

	"github.com/jsperson/chathero/pkg/record"
)

// Defaults tuned for a synthesis prompt of a few thousand tokens.
const (
	DefaultTokenBudget  = 20000
	DefaultPerFieldCost = 8
	DefaultOverhead     = 20
	DefaultFloor        = 50
)

// Optimizer computes how many records fit the synthesis budget.
type Optimizer struct {
	TokenBudget  int // total token budget for the data payload
	PerFieldCost int // estimated tokens per field per record
	Overhead     int // fixed per-record overhead in tokens
	Floor        int // never truncate below this many records
}

// NewOptimizer creates an Optimizer with the default budget.
func NewOptimizer() *Optimizer {
	return &Optimizer{
		TokenBudget:  DefaultTokenBudget,
		PerFieldCost: DefaultPerFieldCost,
		Overhead:     DefaultOverhead,
		Floor:        DefaultFloor,
	}
}

// Result is a truncated payload plus the true pre-truncation count.
type Result struct {
	Records    []record.Record
	TotalCount int    // always the pre-truncation count
	Note       string // human-readable sampling notice, set when truncated
}

// Optimize truncates records to the budget, never below the floor. The
// reported total count always reflects the input size.
func (o *Optimizer) Optimize(records []record.Record, fieldCount int) Result {
	if fieldCount < 1 {
		fieldCount = 1
	}
	perRecord := fieldCount*o.PerFieldCost + o.Overhead
	allowed := o.TokenBudget / perRecord
	if allowed < o.Floor {
		allowed = o.Floor
	}

	total := len(records)
	if total <= allowed {
		return Result{Records: records, TotalCount: total}
	}

	return Result{
		Records:    records[:allowed],
		TotalCount: total,
		Note: fmt.Sprintf("Showing %d of %d records; the answer is based on this sample plus exact totals.",
			allowed, total),
	}
}
