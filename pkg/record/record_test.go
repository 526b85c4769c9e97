package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat(t *testing.T) {
	f, ok := Float(3.5)
	require.True(t, ok)
	assert.Equal(t, 3.5, f)

	f, ok = Float("42")
	require.True(t, ok)
	assert.Equal(t, 42.0, f)

	_, ok = Float("not a number")
	assert.False(t, ok)

	_, ok = Float(nil)
	assert.False(t, ok)
}

func TestTime(t *testing.T) {
	tm, ok := Time("2024-03-15")
	require.True(t, ok)
	assert.Equal(t, 2024, tm.Year())
	assert.Equal(t, time.March, tm.Month())

	tm, ok = Time("2024-03-15T10:30:00Z")
	require.True(t, ok)
	assert.Equal(t, 10, tm.Hour())

	_, ok = Time("yesterday")
	assert.False(t, ok)

	_, ok = Time("")
	assert.False(t, ok)
}

func TestTagAndSource(t *testing.T) {
	records := []Record{{"name": "a"}, {"name": "b"}}
	tagged := Tag(records, "launches")

	require.Len(t, tagged, 2)
	assert.Equal(t, "launches", Source(tagged[0]))
	// Originals are untouched.
	assert.Empty(t, Source(records[0]))
}

func TestMergeSingleGroupPassesThrough(t *testing.T) {
	records := []Record{{"name": "a"}}
	merged, err := Merge(records)
	require.NoError(t, err)
	assert.Equal(t, records, merged)
}

func TestMergeRejectsUntaggedRecords(t *testing.T) {
	tagged := Tag([]Record{{"name": "a"}}, "launches")
	untagged := []Record{{"name": "b"}}

	_, err := Merge(tagged, untagged)
	require.Error(t, err)
	assert.Contains(t, err.Error(), SourceField)
}

func TestMergeTagged(t *testing.T) {
	a := Tag([]Record{{"name": "a"}}, "launches")
	b := Tag([]Record{{"name": "b"}, {"name": "c"}}, "sites")

	merged, err := Merge(a, b)
	require.NoError(t, err)
	require.Len(t, merged, 3)
	assert.Equal(t, []string{"launches", "sites"}, Datasets(merged))
}

func TestFieldsExcludesSourceTag(t *testing.T) {
	records := Tag([]Record{{"name": "a", "date": "2024-01-01"}}, "launches")
	fields := Fields(records)
	assert.ElementsMatch(t, []string{"name", "date"}, fields)
}

func TestSample(t *testing.T) {
	records := []Record{{"i": 1.0}, {"i": 2.0}, {"i": 3.0}, {"i": 4.0}}
	assert.Len(t, Sample(records, 3), 3)
	assert.Len(t, Sample(records, 10), 4)
}
