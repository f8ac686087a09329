package directory

import (
	"context"
	"sync"

	"github.com/chainsentry/poa-monitor/domain"
	"github.com/pkg/errors"
)

// Lookup reads the authoritative validator set, typically from the chain's
// validator registry contract.
type Lookup interface {
	GetValidators(ctx context.Context) ([]string, error)
}

// Cache holds the last successfully fetched validator set together with the
// statically configured cohort. The set is replaced wholesale on refresh and
// never mutated in place.
type Cache struct {
	lookup Lookup
	cohort map[string]bool

	mu         sync.RWMutex
	validators []string
}

func NewCache(lookup Lookup, cohort []string) (*Cache, error) {
	cohortSet := make(map[string]bool, len(cohort))
	for _, member := range cohort {
		normalized, err := domain.NormalizeAddress(member)
		if err != nil {
			return nil, errors.Wrapf(err, "normalizing cohort member [%s]", member)
		}
		cohortSet[normalized] = true
	}
	return &Cache{
		lookup: lookup,
		cohort: cohortSet,
	}, nil
}

// Refresh replaces the cached validator set with the directory's current
// one. On failure the previous set stays in place and keeps serving lookups.
func (c *Cache) Refresh(ctx context.Context) error {
	validators, err := c.lookup.GetValidators(ctx)
	if err != nil {
		return errors.Wrap(err, "fetching validator set")
	}

	normalized := make([]string, 0, len(validators))
	seen := make(map[string]bool, len(validators))
	for _, validator := range validators {
		address, err := domain.NormalizeAddress(validator)
		if err != nil {
			return errors.Wrapf(err, "normalizing validator [%s]", validator)
		}
		if seen[address] {
			continue
		}
		seen[address] = true
		normalized = append(normalized, address)
	}

	c.mu.Lock()
	c.validators = normalized
	c.mu.Unlock()
	return nil
}

// Current returns a copy of the cached validator set. It is empty before the
// first successful refresh.
func (c *Cache) Current() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	current := make([]string, len(c.validators))
	copy(current, c.validators)
	return current
}

// IsCohortMember tests membership against the fixed cohort configuration.
// The cohort is independent of the directory contents.
func (c *Cache) IsCohortMember(address string) bool {
	normalized, err := domain.NormalizeAddress(address)
	if err != nil {
		return false
	}
	return c.cohort[normalized]
}
