package budget

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsperson/chathero/pkg/record"
)

func makeRecords(n int) []record.Record {
	out := make([]record.Record, n)
	for i := range out {
		out[i] = record.Record{"id": fmt.Sprintf("r%d", i)}
	}
	return out
}

func TestOptimizeUnderBudgetPassesThrough(t *testing.T) {
	o := NewOptimizer()
	records := makeRecords(10)

	res := o.Optimize(records, 4)
	assert.Equal(t, records, res.Records)
	assert.Equal(t, 10, res.TotalCount)
	assert.Empty(t, res.Note)
}

func TestOptimizeTruncatesWideRecords(t *testing.T) {
	o := NewOptimizer()
	records := makeRecords(500)

	// 20 fields: 20*8+20 = 180 tokens/record, 20000/180 = 111 allowed.
	res := o.Optimize(records, 20)
	assert.Len(t, res.Records, 111)
	assert.Equal(t, 500, res.TotalCount)
	assert.Equal(t, records[:111], res.Records)
	assert.Contains(t, res.Note, "Showing 111 of 500 records")
}

func TestOptimizeNeverBelowFloor(t *testing.T) {
	o := NewOptimizer()
	records := makeRecords(500)

	// 200 fields would allow only 12 records; the floor wins.
	res := o.Optimize(records, 200)
	assert.Len(t, res.Records, DefaultFloor)
	assert.Equal(t, 500, res.TotalCount)
}

func TestOptimizeTotalCountSurvivesTruncation(t *testing.T) {
	o := &Optimizer{TokenBudget: 100, PerFieldCost: 8, Overhead: 20, Floor: 2}
	records := makeRecords(9)

	res := o.Optimize(records, 1)
	require.Len(t, res.Records, 3)
	assert.Equal(t, 9, res.TotalCount)
	assert.Contains(t, res.Note, "9 records")
}

func TestOptimizeZeroFieldCount(t *testing.T) {
	o := NewOptimizer()
	res := o.Optimize(makeRecords(5), 0)
	assert.Len(t, res.Records, 5)
	assert.Equal(t, 5, res.TotalCount)
}
