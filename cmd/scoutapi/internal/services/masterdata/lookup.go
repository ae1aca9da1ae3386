// Package masterdata resolves farms, greenhouses and field blocks for the scouting core.
package masterdata

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/db/models"
	"github.com/katlaang/pestscan-sub000/cmd/scoutapi/internal/repository"
)

// Lookup resolves master data records. Missing records are NotFound errors.
type Lookup interface {
	ResolveFarm(ctx context.Context, id string) (*models.Farm, error)
	ResolveGreenhouse(ctx context.Context, id string) (*models.Greenhouse, error)
	ResolveFieldBlock(ctx context.Context, id string) (*models.FieldBlock, error)
}

// CachedLookup serves master data from bounded LRU caches with a TTL in front of the farm repository.
type CachedLookup struct {
	repo        repository.FarmRepository
	farms       *expirable.LRU[string, models.Farm]
	greenhouses *expirable.LRU[string, models.Greenhouse]
	fieldBlocks *expirable.LRU[string, models.FieldBlock]
}

// NewCachedLookup creates a lookup holding up to size records of each kind for ttl.
func NewCachedLookup(repo repository.FarmRepository, size int, ttl time.Duration) (*CachedLookup, error) {
	if size < 1 {
		return nil, fmt.Errorf("master data cache size must be positive, got %d", size)
	}
	return &CachedLookup{
		repo:        repo,
		farms:       expirable.NewLRU[string, models.Farm](size, nil, ttl),
		greenhouses: expirable.NewLRU[string, models.Greenhouse](size, nil, ttl),
		fieldBlocks: expirable.NewLRU[string, models.FieldBlock](size, nil, ttl),
	}, nil
}

// ResolveFarm returns a copy of the farm record.
func (l *CachedLookup) ResolveFarm(ctx context.Context, id string) (*models.Farm, error) {
	if farm, ok := l.farms.Get(id); ok {
		return &farm, nil
	}
	farm, err := l.repo.GetFarm(ctx, id)
	if err != nil {
		return nil, err
	}
	l.farms.Add(id, *farm)
	return farm, nil
}

// ResolveGreenhouse returns a copy of the greenhouse record.
func (l *CachedLookup) ResolveGreenhouse(ctx context.Context, id string) (*models.Greenhouse, error) {
	if greenhouse, ok := l.greenhouses.Get(id); ok {
		return &greenhouse, nil
	}
	greenhouse, err := l.repo.GetGreenhouse(ctx, id)
	if err != nil {
		return nil, err
	}
	l.greenhouses.Add(id, *greenhouse)
	return greenhouse, nil
}

// ResolveFieldBlock returns a copy of the field block record.
func (l *CachedLookup) ResolveFieldBlock(ctx context.Context, id string) (*models.FieldBlock, error) {
	if block, ok := l.fieldBlocks.Get(id); ok {
		return &block, nil
	}
	block, err := l.repo.GetFieldBlock(ctx, id)
	if err != nil {
		return nil, err
	}
	l.fieldBlocks.Add(id, *block)
	return block, nil
}

// Invalidate drops id from every cache. Call after seeding or editing master data.
func (l *CachedLookup) Invalidate(id string) {
	l.farms.Remove(id)
	l.greenhouses.Remove(id)
	l.fieldBlocks.Remove(id)
}

// Len returns the number of cached records across all kinds, for monitoring.
func (l *CachedLookup) Len() int {
	return l.farms.Len() + l.greenhouses.Len() + l.fieldBlocks.Len()
}
