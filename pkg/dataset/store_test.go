package dataset

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsperson/chathero/pkg/config"
	"github.com/jsperson/chathero/pkg/record"
)

func writeDataset(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name+".json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	launches := writeDataset(t, dir, "launches",
		`[{"mission": "Apollo 11", "launch_date": "1969-07-16"}, {"mission": "STS-1", "launch_date": "1981-04-12"}]`)
	astronauts := writeDataset(t, dir, "astronauts",
		`[{"name": "Alan Shepard"}]`)

	cfg := &config.Config{Datasets: []config.Dataset{
		{Name: "launches", Path: launches, Description: "Rocket launches."},
		{Name: "astronauts", Path: astronauts, Description: "Astronaut roster."},
	}}
	store := NewStore(slog.Default(), cfg, time.Minute)
	t.Cleanup(store.Close)
	return store, dir
}

func TestJSONFileSource(t *testing.T) {
	dir := t.TempDir()
	path := writeDataset(t, dir, "launches", `[{"mission": "Apollo 11"}]`)

	src := NewJSONFileSource("launches", path)
	assert.Equal(t, "launches", src.Name())

	records, err := src.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Apollo 11", records[0]["mission"])
}

func TestJSONFileSourceErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewJSONFileSource("missing", filepath.Join(dir, "missing.json")).Records(context.Background())
	assert.Error(t, err)

	bad := writeDataset(t, dir, "bad", `{"not": "an array"}`)
	_, err = NewJSONFileSource("bad", bad).Records(context.Background())
	assert.Error(t, err)
}

func TestLoadSingleDatasetUntagged(t *testing.T) {
	store, _ := newTestStore(t)

	records, docs, err := store.Load(context.Background(), []string{"launches"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Empty(t, record.Source(records[0]))
	assert.Equal(t, "Rocket launches.", docs["launches"])
}

func TestLoadMultipleDatasetsTagged(t *testing.T) {
	store, _ := newTestStore(t)

	records, docs, err := store.Load(context.Background(), []string{"launches", "astronauts"})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.ElementsMatch(t, []string{"launches", "astronauts"}, record.Datasets(records))
	assert.Len(t, docs, 2)
}

func TestLoadUnknownDataset(t *testing.T) {
	store, _ := newTestStore(t)

	_, _, err := store.Load(context.Background(), []string{"nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dataset")

	_, _, err = store.Load(context.Background(), nil)
	assert.Error(t, err)
}

func TestLoadCachesUntilInvalidated(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	records, _, err := store.Load(ctx, []string{"astronauts"})
	require.NoError(t, err)
	require.Len(t, records, 1)

	// Rewrite the file; the cached copy still serves.
	writeDataset(t, dir, "astronauts", `[{"name": "Alan Shepard"}, {"name": "Sally Ride"}]`)
	records, _, err = store.Load(ctx, []string{"astronauts"})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	// Invalidation forces a reload from the source.
	store.Invalidate("astronauts")
	records, _, err = store.Load(ctx, []string{"astronauts"})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestInvalidateAll(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.Load(ctx, []string{"launches", "astronauts"})
	require.NoError(t, err)

	writeDataset(t, dir, "launches", `[]`)
	writeDataset(t, dir, "astronauts", `[]`)
	store.Invalidate("")

	records, _, err := store.Load(ctx, []string{"launches"})
	require.NoError(t, err)
	assert.Empty(t, records)
}
