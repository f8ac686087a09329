package sync

import (
	"context"
	"math"

	"github.com/chainsentry/poa-monitor/domain"
	"github.com/chainsentry/poa-monitor/metrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultEpochLength is the fixed epoch size in blocks.
const DefaultEpochLength = 200

// Directory serves validator set and cohort membership queries.
type Directory interface {
	Refresh(ctx context.Context) error
	Current() []string
	IsCohortMember(address string) bool
}

// SnapshotStore persists epoch and block records. Each call either durably
// persists the record or reports a failure.
type SnapshotStore interface {
	AppendEpochRecord(record *domain.EpochRecord) error
	AppendBlockRecord(record *domain.BlockRecord, epochRange string) error
	SetLastProcessedBlock(block uint64) error
}

// Publisher forwards emitted records to the downstream broker.
type Publisher interface {
	SendEpochRecord(ctx context.Context, record *domain.EpochRecord) error
	SendBlockRecord(ctx context.Context, record *domain.BlockRecord, epochRange string) error
}

// Aggregator is the epoch bounded streaming aggregator. It consumes block
// header events one at a time, maintains the live epoch window, detects
// epoch boundaries and emits epoch and block records.
//
// All state is owned by the single event processing path: ProcessHeader must
// not be called concurrently. Transport reconnects never touch this state.
type Aggregator struct {
	directory Directory
	store     SnapshotStore
	publisher Publisher
	metrics   *metrics.ProcessingMetrics
	logger    *zap.SugaredLogger

	epochLength uint64
	started     bool
	window      domain.EpochWindow
	ordering    []domain.OrderedValidator
}

func NewAggregator(directory Directory, store SnapshotStore, publisher Publisher,
	epochLength uint64, m *metrics.ProcessingMetrics, logger *zap.SugaredLogger) *Aggregator {

	if epochLength == 0 {
		epochLength = DefaultEpochLength
	}
	return &Aggregator{
		directory:   directory,
		store:       store,
		publisher:   publisher,
		metrics:     m,
		logger:      logger,
		epochLength: epochLength,
	}
}

// ProcessHeader runs one state transition of the aggregator. A returned
// error means the event was malformed and has been dropped; aggregation
// continues with the next event.
func (a *Aggregator) ProcessHeader(ctx context.Context, header *domain.BlockHeader) error {
	miner, err := domain.NormalizeAddress(header.Miner)
	if err != nil {
		return errors.Wrapf(err, "malformed miner identity in block [%d]", header.Number)
	}

	if !a.started {
		a.window = domain.EpochWindow{StartBlock: header.Number - header.Number%a.epochLength}
		a.started = true
		// the first window is left-truncated: blocks produced before we
		// attached are not counted
		a.logger.Infow("Attached to block stream",
			"block", header.Number, "epochStart", a.window.StartBlock)
	}

	a.window.TotalBlocks++
	cohortMember := a.directory.IsCohortMember(miner)
	if cohortMember {
		a.window.CohortBlocks++
	}
	a.metrics.SetProcessedBlock(a.window.StartBlock, header.Number)
	a.metrics.IncProcessedBlocks(cohortMember)

	if header.Number%a.epochLength == 0 {
		a.rollover(ctx, header)
	} else if position, found := a.lookupPosition(miner); found {
		record := &domain.BlockRecord{
			BlockNumber:  header.Number,
			Miner:        miner,
			Position:     position,
			CohortMember: cohortMember,
		}
		a.emitBlockRecord(ctx, record)
	}

	if err := a.store.SetLastProcessedBlock(header.Number); err != nil {
		a.logger.Warnw("Storing last processed block failed", "block", header.Number, "error", err)
	}
	return nil
}

// rollover runs the epoch boundary side effects: refresh the directory,
// decode the marker against the current validator set, emit the epoch
// record and reset the window.
func (a *Aggregator) rollover(ctx context.Context, header *domain.BlockHeader) {
	rate := cohortRate(a.window.CohortBlocks, a.window.TotalBlocks)
	record := &domain.EpochRecord{
		EpochStart:   header.Number - a.epochLength,
		EpochEnd:     header.Number,
		TotalBlocks:  a.window.TotalBlocks,
		CohortBlocks: a.window.CohortBlocks,
		CohortRate:   rate,
	}
	a.logger.Infow("Epoch completed",
		"epoch", record.Range(),
		"totalBlocks", record.TotalBlocks,
		"cohortBlocks", record.CohortBlocks,
		"cohortRate", rate)

	if err := a.directory.Refresh(ctx); err != nil {
		// keep decoding against the stale set until the next refresh succeeds
		a.logger.Warnw("Validator directory refresh failed", "error", err)
	}
	a.ordering = domain.DecodeOrdering(header.Marker, a.directory.Current())
	record.Ordering = a.ordering

	if err := a.store.AppendEpochRecord(record); err != nil {
		a.logger.Errorw("Persisting epoch record failed", "epoch", record.Range(), "error", err)
		a.metrics.IncPersistFailures()
	}
	if err := a.publisher.SendEpochRecord(ctx, record); err != nil {
		a.logger.Errorw("Publishing epoch record failed", "epoch", record.Range(), "error", err)
		a.metrics.IncPublishFailures()
	}
	a.metrics.SetCohortRate(rate)
	a.metrics.IncEpochRecords()

	a.window = domain.EpochWindow{StartBlock: header.Number}
}

func (a *Aggregator) emitBlockRecord(ctx context.Context, record *domain.BlockRecord) {
	epochRange := domain.EpochRangeKey(a.window.StartBlock, a.window.StartBlock+a.epochLength)
	a.logger.Infow("Matched block producer",
		"block", record.BlockNumber,
		"miner", record.Miner,
		"position", record.Position,
		"cohortMember", record.CohortMember)

	if err := a.store.AppendBlockRecord(record, epochRange); err != nil {
		a.logger.Errorw("Persisting block record failed", "block", record.BlockNumber, "error", err)
		a.metrics.IncPersistFailures()
	}
	if err := a.publisher.SendBlockRecord(ctx, record, epochRange); err != nil {
		a.logger.Errorw("Publishing block record failed", "block", record.BlockNumber, "error", err)
		a.metrics.IncPublishFailures()
	}
	a.metrics.IncMatchedBlocks()
}

// lookupPosition looks up the miner in the ordering decoded at the previous
// epoch boundary. Absence is common and not an error.
func (a *Aggregator) lookupPosition(miner string) (int, bool) {
	for _, entry := range a.ordering {
		if entry.Address == miner {
			return entry.Offset, true
		}
	}
	return 0, false
}

// cohortRate is the cohort share in percent, rounded to two decimals. It is
// reported only and never feeds back into aggregation.
func cohortRate(cohortBlocks, totalBlocks uint64) float64 {
	if totalBlocks == 0 {
		return 0
	}
	return math.Round(float64(cohortBlocks)/float64(totalBlocks)*10000) / 100
}
