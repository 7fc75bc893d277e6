package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"time"

	"officeflow/core/domain"
	"officeflow/core/port/out"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"
)

//go:embed request_types.yaml
var defaultSeed []byte

const (
	cacheKey = "catalog:request_types"
	cacheTTL = 10 * time.Minute
)

// Service loads the catalog from the store, optionally through a cache.
type Service struct {
	repo  out.RequestTypeRepository
	cache out.CatalogCache
	group singleflight.Group
	log   zerolog.Logger
}

// NewService creates a catalog Service. cache may be nil.
func NewService(repo out.RequestTypeRepository, cache out.CatalogCache, log zerolog.Logger) *Service {
	return &Service{repo: repo, cache: cache, log: log}
}

// Load returns the active catalog. Concurrent loads share one store read.
func (s *Service) Load(ctx context.Context) (*Catalog, error) {
	v, err, _ := s.group.Do(cacheKey, func() (interface{}, error) {
		if s.cache != nil {
			var cached []domain.RequestType
			hit, err := s.cache.GetJSON(ctx, cacheKey, &cached)
			if err != nil {
				s.log.Warn().Err(err).Msg("catalog cache read failed")
			}
			if hit && len(cached) > 0 {
				return New(cached), nil
			}
		}

		types, err := s.repo.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("list request types: %w", err)
		}

		if s.cache != nil && len(types) > 0 {
			if err := s.cache.SetJSON(ctx, cacheKey, types, cacheTTL); err != nil {
				s.log.Warn().Err(err).Msg("catalog cache write failed")
			}
		}
		return New(types), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Catalog), nil
}

type seedFile struct {
	RequestTypes []domain.RequestType `yaml:"request_types"`
}

// ParseSeed decodes a YAML catalog document.
func ParseSeed(data []byte) ([]domain.RequestType, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse request types: %w", err)
	}
	for i, rt := range f.RequestTypes {
		if rt.Name == "" {
			return nil, fmt.Errorf("request type %d: missing name", i)
		}
		if rt.SLAHours <= 0 {
			return nil, fmt.Errorf("request type %q: sla_hours must be positive", rt.Name)
		}
		if rt.Keywords == nil {
			f.RequestTypes[i].Keywords = []string{}
		}
	}
	return f.RequestTypes, nil
}

// DefaultSeed returns the built-in catalog document.
func DefaultSeed() []byte {
	return defaultSeed
}

// Seed upserts the catalog document into the store. An empty path seeds the
// built-in catalog.
func Seed(ctx context.Context, repo out.RequestTypeRepository, path string) (int, error) {
	data := defaultSeed
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", path, err)
		}
		data = b
	}

	types, err := ParseSeed(data)
	if err != nil {
		return 0, err
	}
	for i := range types {
		if err := repo.Upsert(ctx, &types[i]); err != nil {
			return i, fmt.Errorf("upsert %q: %w", types[i].Name, err)
		}
	}
	return len(types), nil
}
