package directory

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	validatorA = "0xa1b2c3d4e5f6a7b8c9d0a1b2c3d4e5f6a7b8c9d0"
	validatorB = "0x1111222233334444555566667777888899990000"
)

type FakeLookup struct {
	validators []string
	err        error
	calls      int
}

func (f *FakeLookup) GetValidators(_ context.Context) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.validators, nil
}

func TestCache_Refresh(t *testing.T) {
	lookup := &FakeLookup{validators: []string{validatorA, validatorB}}
	cache, err := NewCache(lookup, nil)
	require.NoError(t, err)

	assert.Empty(t, cache.Current())

	err = cache.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{validatorA, validatorB}, cache.Current())
	assert.Equal(t, 1, lookup.calls)
}

func TestCache_Refresh_normalizesAndDeduplicates(t *testing.T) {
	lookup := &FakeLookup{validators: []string{
		"0xA1B2C3D4E5F6A7B8C9D0A1B2C3D4E5F6A7B8C9D0",
		validatorA,
		validatorB,
	}}
	cache, err := NewCache(lookup, nil)
	require.NoError(t, err)

	err = cache.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{validatorA, validatorB}, cache.Current())
}

func TestCache_Refresh_failureKeepsPreviousSet(t *testing.T) {
	lookup := &FakeLookup{validators: []string{validatorA}}
	cache, err := NewCache(lookup, nil)
	require.NoError(t, err)

	err = cache.Refresh(context.Background())
	require.NoError(t, err)

	lookup.err = errors.New("registry unreachable")
	err = cache.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{validatorA}, cache.Current())
}

func TestCache_IsCohortMember(t *testing.T) {
	cache, err := NewCache(&FakeLookup{}, []string{"0xA1B2C3D4E5F6A7B8C9D0A1B2C3D4E5F6A7B8C9D0"})
	require.NoError(t, err)

	// cohort membership is static and independent of the directory
	assert.True(t, cache.IsCohortMember(validatorA))
	assert.True(t, cache.IsCohortMember("A1B2C3D4E5F6A7B8C9D0A1B2C3D4E5F6A7B8C9D0"))
	assert.False(t, cache.IsCohortMember(validatorB))
	assert.False(t, cache.IsCohortMember("not-an-address"))
}

func TestNewCache_invalidCohortMember(t *testing.T) {
	_, err := NewCache(&FakeLookup{}, []string{"0x1234"})
	require.Error(t, err)
}
