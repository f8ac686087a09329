package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type IndexingMetrics struct {
	indexedEpochRecordsCount prometheus.Counter
	indexedBlockRecordsCount prometheus.Counter
	indexedBatchesCount      prometheus.Counter
}

func NewIndexingMetrics(namespace string) *IndexingMetrics {
	m := IndexingMetrics{
		indexedEpochRecordsCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_indexed_epoch_record_count", namespace),
			Help: "The total number of indexed epoch records",
		}),
		indexedBlockRecordsCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_indexed_block_record_count", namespace),
			Help: "The total number of indexed block records",
		}),
		indexedBatchesCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_indexed_batch_count", namespace),
			Help: "The total number of indexed batches",
		}),
	}
	return &m
}

func (metrics *IndexingMetrics) AddIndexedEpochRecords(count int) {
	metrics.indexedEpochRecordsCount.Add(float64(count))
}

func (metrics *IndexingMetrics) AddIndexedBlockRecords(count int) {
	metrics.indexedBlockRecordsCount.Add(float64(count))
}

func (metrics *IndexingMetrics) IncIndexedBatches() {
	metrics.indexedBatchesCount.Inc()
}
