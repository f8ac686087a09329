package domain

import (
	"bytes"
	"sort"
	"strings"
)

// DecodeOrdering recovers the validator ordering embedded in an epoch marker
// blob. Every validator identity is searched for by its bare hex form (no 0x
// prefix) as a case-insensitive substring of the marker; the first match per
// validator wins. Validators absent from the marker are omitted, markers may
// legitimately only contain the active signer set. The result is sorted
// ascending by offset; equal offsets keep validator set order.
//
// The scan is O(validators * markerLen) which is fine for the small
// validator counts and bounded marker sizes seen in practice.
func DecodeOrdering(marker []byte, validators []string) []OrderedValidator {
	if len(marker) == 0 || len(validators) == 0 {
		return nil
	}
	haystack := bytes.ToLower(marker)
	ordering := make([]OrderedValidator, 0, len(validators))
	for _, validator := range validators {
		bare := strings.ToLower(strings.TrimPrefix(validator, "0x"))
		if bare == "" {
			continue
		}
		offset := bytes.Index(haystack, []byte(bare))
		if offset < 0 {
			continue
		}
		ordering = append(ordering, OrderedValidator{Address: validator, Offset: offset})
	}
	sort.SliceStable(ordering, func(i, j int) bool {
		return ordering[i].Offset < ordering[j].Offset
	})
	return ordering
}
