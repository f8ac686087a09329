package domain

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	normalized, err := NormalizeAddress("0xAB12cd34EF56ab12CD34ef56Ab12Cd34eF56Ab12")
	require.NoError(t, err)
	assert.Equal(t, "0xab12cd34ef56ab12cd34ef56ab12cd34ef56ab12", normalized)
}

func TestNormalizeAddress_withoutPrefix(t *testing.T) {
	normalized, err := NormalizeAddress("AB12CD34EF56AB12CD34EF56AB12CD34EF56AB12")
	require.NoError(t, err)
	assert.Equal(t, "0xab12cd34ef56ab12cd34ef56ab12cd34ef56ab12", normalized)
}

func TestNormalizeAddress_invalidLength(t *testing.T) {
	_, err := NormalizeAddress("0xab12cd")
	require.Error(t, err)
}

func TestNormalizeAddress_invalidCharacters(t *testing.T) {
	_, err := NormalizeAddress("0xzz12cd34ef56ab12cd34ef56ab12cd34ef56ab12")
	require.Error(t, err)
}

func TestNormalizeAddressBytes(t *testing.T) {
	normalized, err := NormalizeAddressBytes(bytes.Repeat([]byte{0xab}, 20))
	require.NoError(t, err)
	assert.Equal(t, "0xabababababababababababababababababababab", normalized)

	_, err = NormalizeAddressBytes([]byte{0xab})
	require.Error(t, err)
}
