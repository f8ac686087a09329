package domain

import (
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// AddressLength is the byte width of a validator identity.
const AddressLength = 20

// NormalizeAddress canonicalizes a validator identity to "0x" followed by
// 40 lowercase hex characters. The input may carry a 0x prefix and mixed
// casing. Identities are only ever compared in this canonical form.
func NormalizeAddress(address string) (string, error) {
	bare := strings.TrimPrefix(strings.TrimPrefix(address, "0x"), "0X")
	if len(bare) != AddressLength*2 {
		return "", errors.Errorf("invalid address length [%d] for [%s]", len(bare), address)
	}
	if _, err := hex.DecodeString(bare); err != nil {
		return "", errors.Wrapf(err, "invalid address [%s]", address)
	}
	return "0x" + strings.ToLower(bare), nil
}

// NormalizeAddressBytes canonicalizes a raw 20 byte identity.
func NormalizeAddressBytes(address []byte) (string, error) {
	if len(address) != AddressLength {
		return "", errors.Errorf("invalid address length [%d]", len(address))
	}
	return "0x" + hex.EncodeToString(address), nil
}
