package domain

import "fmt"

// BlockHeader is a single event from the block header feed. It is handed to
// the aggregator once and not retained afterwards.
type BlockHeader struct {
	Number uint64
	Miner  string
	Marker []byte
}

// EpochWindow holds the production counters for the epoch currently being
// observed. StartBlock is always a multiple of the epoch length.
type EpochWindow struct {
	StartBlock   uint64
	TotalBlocks  uint64
	CohortBlocks uint64
}

// OrderedValidator is one entry of the ordering recovered from an epoch
// marker: a validator identity and the byte offset it was found at.
type OrderedValidator struct {
	Address string `json:"address"`
	Offset  int    `json:"offset"`
}

// EpochRecord is the persisted summary of one completed epoch.
type EpochRecord struct {
	EpochStart   uint64             `json:"epochStart"`
	EpochEnd     uint64             `json:"epochEnd"`
	TotalBlocks  uint64             `json:"totalBlocks"`
	CohortBlocks uint64             `json:"cohortBlocks"`
	CohortRate   float64            `json:"cohortRate"`
	Ordering     []OrderedValidator `json:"ordering"`
}

// Range returns the epoch range key in "{start}-{end}" form.
func (r *EpochRecord) Range() string {
	return EpochRangeKey(r.EpochStart, r.EpochEnd)
}

// EpochRangeKey builds the range key used to group persisted records.
func EpochRangeKey(start, end uint64) string {
	return fmt.Sprintf("%d-%d", start, end)
}

// BlockRecord is the persisted fact for a single block whose producer was
// present in the active decoded ordering.
type BlockRecord struct {
	BlockNumber  uint64 `json:"blockNumber"`
	Miner        string `json:"miner"`
	Position     int    `json:"position"`
	CohortMember bool   `json:"cohortMember"`
}
