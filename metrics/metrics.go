package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ProcessingMetrics struct {
	latestBlockGauge     prometheus.Gauge
	epochStartGauge      prometheus.Gauge
	cohortRateGauge      prometheus.Gauge
	processedBlocksCount prometheus.Counter
	cohortBlocksCount    prometheus.Counter
	matchedBlocksCount   prometheus.Counter
	epochRecordsCount    prometheus.Counter
	persistFailuresCount prometheus.Counter
	publishFailuresCount prometheus.Counter
	feedReconnectsCount  prometheus.Counter
}

func NewProcessingMetrics(namespace string) *ProcessingMetrics {
	m := ProcessingMetrics{
		// block and epoch progress
		latestBlockGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_latest_block", namespace),
			Help: "The latest processed block number",
		}),
		epochStartGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_epoch_start", namespace),
			Help: "The start block of the live epoch window",
		}),
		cohortRateGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_cohort_rate", namespace),
			Help: "The cohort production rate of the last completed epoch in percent",
		}),
		processedBlocksCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_processed_block_count", namespace),
			Help: "The total number of processed block headers",
		}),
		cohortBlocksCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_cohort_block_count", namespace),
			Help: "The total number of blocks produced by cohort members",
		}),
		matchedBlocksCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_matched_block_count", namespace),
			Help: "The total number of blocks matched against the decoded ordering",
		}),
		epochRecordsCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_epoch_record_count", namespace),
			Help: "The total number of emitted epoch records",
		}),
		// failure tracking
		persistFailuresCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_persist_failure_count", namespace),
			Help: "The total number of failed snapshot store writes",
		}),
		publishFailuresCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_publish_failure_count", namespace),
			Help: "The total number of failed record publishes",
		}),
		feedReconnectsCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_feed_reconnect_count", namespace),
			Help: "The total number of block header feed reconnects",
		}),
	}
	return &m
}

func (metrics *ProcessingMetrics) SetProcessedBlock(epochStart uint64, block uint64) {
	metrics.epochStartGauge.Set(float64(epochStart))
	metrics.latestBlockGauge.Set(float64(block))
}

func (metrics *ProcessingMetrics) IncProcessedBlocks(cohortMember bool) {
	metrics.processedBlocksCount.Inc()
	if cohortMember {
		metrics.cohortBlocksCount.Inc()
	}
}

func (metrics *ProcessingMetrics) IncMatchedBlocks() {
	metrics.matchedBlocksCount.Inc()
}

func (metrics *ProcessingMetrics) SetCohortRate(rate float64) {
	metrics.cohortRateGauge.Set(rate)
}

func (metrics *ProcessingMetrics) IncEpochRecords() {
	metrics.epochRecordsCount.Inc()
}

func (metrics *ProcessingMetrics) IncPersistFailures() {
	metrics.persistFailuresCount.Inc()
}

func (metrics *ProcessingMetrics) IncPublishFailures() {
	metrics.publishFailuresCount.Inc()
}

func (metrics *ProcessingMetrics) IncFeedReconnects() {
	metrics.feedReconnectsCount.Inc()
}
