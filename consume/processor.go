package consume

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/chainsentry/poa-monitor/domain"
	"github.com/chainsentry/poa-monitor/elastic"
	"github.com/chainsentry/poa-monitor/kafka"
	"github.com/chainsentry/poa-monitor/metrics"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type KafkaClient interface {
	PollMessages(ctx context.Context) ([]*kafka.Message, error)
	Commit(ctx context.Context) error
	AllowRebalance()
}

type ElasticClient interface {
	BulkIndex(ctx context.Context, index string, data []*elastic.EsDocument) error
}

// RecordProcessor consumes published epoch and block records and indexes
// them into their search indices. Offsets are committed only after a batch
// was indexed completely.
type RecordProcessor struct {
	kafkaClient   KafkaClient
	elasticClient ElasticClient
	epochTopic    string
	blockTopic    string
	epochIndex    string
	blockIndex    string
	metrics       *metrics.IndexingMetrics
}

func NewRecordProcessor(kafkaClient KafkaClient, elasticClient ElasticClient,
	epochTopic, blockTopic, epochIndex, blockIndex string, m *metrics.IndexingMetrics) *RecordProcessor {

	return &RecordProcessor{
		kafkaClient:   kafkaClient,
		elasticClient: elasticClient,
		epochTopic:    epochTopic,
		blockTopic:    blockTopic,
		epochIndex:    epochIndex,
		blockIndex:    blockIndex,
		metrics:       m,
	}
}

func (p *RecordProcessor) Consume() error {
	// do one initial consume so that we do not wait for the first interval
	if err := p.consume(); err != nil {
		return errors.Wrap(err, "consuming batch")
	}

	ticker := time.Tick(time.Minute)
	for range ticker {
		if err := p.consume(); err != nil {
			return errors.Wrap(err, "consuming batch")
		}
	}
	return nil
}

func (p *RecordProcessor) consume() error {
	count, err := p.consumeBatch(context.Background())
	if err != nil {
		log.Printf("Error consuming batch: %v", err)
		return err
	}
	log.Printf("Consumed [%d] records.", count)
	return nil
}

func (p *RecordProcessor) consumeBatch(ctx context.Context) (int, error) {
	defer p.kafkaClient.AllowRebalance()
	messages, err := p.kafkaClient.PollMessages(ctx)
	if err != nil {
		return -1, errors.Wrap(err, "polling kafka messages")
	}

	epochDocuments, blockDocuments, err := p.convertMessages(messages)
	if err != nil {
		return -1, errors.Wrap(err, "converting messages")
	}

	// the two indices are independent, index them in parallel
	var errorGroup errgroup.Group
	errorGroup.Go(func() error {
		return p.elasticClient.BulkIndex(ctx, p.epochIndex, epochDocuments)
	})
	errorGroup.Go(func() error {
		return p.elasticClient.BulkIndex(ctx, p.blockIndex, blockDocuments)
	})
	if err := errorGroup.Wait(); err != nil {
		return -1, errors.Wrap(err, "bulk indexing records")
	}

	if err := p.kafkaClient.Commit(ctx); err != nil {
		return -1, errors.Wrap(err, "committing kafka batch")
	}
	p.metrics.AddIndexedEpochRecords(len(epochDocuments))
	p.metrics.AddIndexedBlockRecords(len(blockDocuments))
	p.metrics.IncIndexedBatches()
	return len(messages), nil
}

func (p *RecordProcessor) convertMessages(messages []*kafka.Message) ([]*elastic.EsDocument, []*elastic.EsDocument, error) {
	var epochDocuments, blockDocuments []*elastic.EsDocument
	for _, message := range messages {
		switch message.Topic {
		case p.epochTopic:
			document, err := convertEpochRecord(message)
			if err != nil {
				return nil, nil, err
			}
			epochDocuments = append(epochDocuments, document)
		case p.blockTopic:
			document, err := convertBlockRecord(message)
			if err != nil {
				return nil, nil, err
			}
			blockDocuments = append(blockDocuments, document)
		default:
			return nil, nil, errors.Errorf("unexpected topic [%s]", message.Topic)
		}
	}
	return epochDocuments, blockDocuments, nil
}

func convertEpochRecord(message *kafka.Message) (*elastic.EsDocument, error) {
	var record domain.EpochRecord
	if err := json.Unmarshal(message.Payload, &record); err != nil {
		return nil, errors.Wrapf(err, "unmarshalling epoch record [%s]", message.Payload)
	}
	return &elastic.EsDocument{
		Id:      record.Range(),
		Payload: message.Payload,
	}, nil
}

func convertBlockRecord(message *kafka.Message) (*elastic.EsDocument, error) {
	var record domain.BlockRecord
	if err := json.Unmarshal(message.Payload, &record); err != nil {
		return nil, errors.Wrapf(err, "unmarshalling block record [%s]", message.Payload)
	}
	return &elastic.EsDocument{
		Id:      strconv.FormatUint(record.BlockNumber, 10),
		Payload: message.Payload,
	}, nil
}
