// Package dataset loads dataset records from the catalog and caches them.
// Storage formats other than JSON files live behind the Source interface;
// the pipeline only sees records.
package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/jsperson/chathero/pkg/config"
	"github.com/jsperson/chathero/pkg/record"
)

// Source provides the records of a single dataset.
type Source interface {
	Name() string
	Records(ctx context.Context) ([]record.Record, error)
}

// JSONFileSource reads a dataset from a JSON file holding an array of
// objects.
type JSONFileSource struct {
	name string
	path string
}

// NewJSONFileSource creates a file-backed source.
func NewJSONFileSource(name, path string) *JSONFileSource {
	return &JSONFileSource{name: name, path: path}
}

func (s *JSONFileSource) Name() string { return s.name }

// Records loads and decodes the file.
func (s *JSONFileSource) Records(ctx context.Context) ([]record.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", s.name, err)
	}
	var records []record.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode dataset %s: %w", s.name, err)
	}
	return records, nil
}

// Store resolves dataset names to records with a TTL cache in front of the
// sources. A cache miss reloads from the source; the admin layer can force
// that with Invalidate.
type Store struct {
	cfg     *config.Config
	sources map[string]Source
	cache   *ttlcache.Cache[string, []record.Record]
	log     *slog.Logger
}

// NewStore builds a Store from the catalog config.
func NewStore(log *slog.Logger, cfg *config.Config, ttl time.Duration) *Store {
	sources := make(map[string]Source, len(cfg.Datasets))
	for _, d := range cfg.Datasets {
		sources[d.Name] = NewJSONFileSource(d.Name, d.Path)
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, []record.Record](ttl),
	)
	go cache.Start()
	return &Store{cfg: cfg, sources: sources, cache: cache, log: log}
}

// Load returns the merged records for the selected datasets plus their
// documentation text. With more than one dataset every record is tagged with
// its source; with exactly one, records are untagged.
func (s *Store) Load(ctx context.Context, names []string) ([]record.Record, map[string]string, error) {
	if len(names) == 0 {
		return nil, nil, fmt.Errorf("no datasets selected")
	}

	docs := make(map[string]string, len(names))
	groups := make([][]record.Record, 0, len(names))
	for _, name := range names {
		entry, ok := s.cfg.Dataset(name)
		if !ok {
			return nil, nil, fmt.Errorf("unknown dataset: %s", name)
		}
		docs[name] = entry.Description

		records, err := s.records(ctx, name)
		if err != nil {
			return nil, nil, err
		}
		if len(names) > 1 {
			records = record.Tag(records, name)
		}
		groups = append(groups, records)
	}

	merged, err := record.Merge(groups...)
	if err != nil {
		return nil, nil, err
	}
	return merged, docs, nil
}

func (s *Store) records(ctx context.Context, name string) ([]record.Record, error) {
	if item := s.cache.Get(name); item != nil {
		return item.Value(), nil
	}
	src, ok := s.sources[name]
	if !ok {
		return nil, fmt.Errorf("unknown dataset: %s", name)
	}
	records, err := src.Records(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(name, records, ttlcache.DefaultTTL)
	s.log.Debug("dataset loaded", "dataset", name, "records", len(records))
	return records, nil
}

// Invalidate evicts one dataset from the cache, or all of them when name is
// empty. Called by the owning admin layer after edits.
func (s *Store) Invalidate(name string) {
	if name == "" {
		s.cache.DeleteAll()
		return
	}
	s.cache.Delete(name)
}

// Close stops the cache janitor.
func (s *Store) Close() {
	s.cache.Stop()
}
