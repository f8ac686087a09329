package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	validatorA = "0xa1b2c3d4e5f6a7b8c9d0a1b2c3d4e5f6a7b8c9d0"
	validatorB = "0x1111222233334444555566667777888899990000"
)

func TestDecodeOrdering(t *testing.T) {
	marker := []byte(strings.Repeat(".", 10) + strings.TrimPrefix(validatorB, "0x") +
		"//" + strings.TrimPrefix(validatorA, "0x"))

	ordering := DecodeOrdering(marker, []string{validatorA, validatorB})
	require.Len(t, ordering, 2)
	assert.Equal(t, OrderedValidator{Address: validatorB, Offset: 10}, ordering[0])
	assert.Equal(t, OrderedValidator{Address: validatorA, Offset: 52}, ordering[1])
}

func TestDecodeOrdering_caseInsensitive(t *testing.T) {
	marker := []byte("??" + strings.ToUpper(strings.TrimPrefix(validatorA, "0x")))

	ordering := DecodeOrdering(marker, []string{validatorA})
	require.Len(t, ordering, 1)
	assert.Equal(t, OrderedValidator{Address: validatorA, Offset: 2}, ordering[0])
}

func TestDecodeOrdering_omitsAbsentValidators(t *testing.T) {
	marker := []byte("nothing to see here")

	ordering := DecodeOrdering(marker, []string{validatorA, validatorB})
	assert.Empty(t, ordering)
}

func TestDecodeOrdering_deterministic(t *testing.T) {
	marker := []byte("--" + strings.TrimPrefix(validatorB, "0x") + strings.TrimPrefix(validatorA, "0x"))

	first := DecodeOrdering(marker, []string{validatorA, validatorB})
	second := DecodeOrdering(marker, []string{validatorA, validatorB})
	assert.Equal(t, first, second)
	require.Len(t, first, 2)
	assert.Equal(t, validatorB, first[0].Address)
	assert.Equal(t, validatorA, first[1].Address)
}

func TestDecodeOrdering_emptyInputs(t *testing.T) {
	assert.Empty(t, DecodeOrdering(nil, []string{validatorA}))
	assert.Empty(t, DecodeOrdering([]byte("data"), nil))
}
