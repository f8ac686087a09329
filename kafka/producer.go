package kafka

import (
	"context"
	"encoding/binary"
	"encoding/json"

	"github.com/chainsentry/poa-monitor/domain"
	"github.com/pkg/errors"
	"github.com/twmb/franz-go/pkg/kgo"
)

// RecordPublisher publishes emitted epoch and block records to their topics.
type RecordPublisher struct {
	kcl        *kgo.Client
	epochTopic string
	blockTopic string
}

func NewRecordPublisher(client *kgo.Client, epochTopic, blockTopic string) *RecordPublisher {
	return &RecordPublisher{
		kcl:        client,
		epochTopic: epochTopic,
		blockTopic: blockTopic,
	}
}

func (p *RecordPublisher) SendEpochRecord(ctx context.Context, record *domain.EpochRecord) error {
	kafkaRecord, err := p.createEpochRecord(record)
	if err != nil {
		return err
	}
	// produce synchronously, the aggregator processes one event at a time
	if err = p.kcl.ProduceSync(ctx, kafkaRecord).FirstErr(); err != nil {
		return errors.Wrap(err, "failed to produce epoch record")
	}
	return nil
}

func (p *RecordPublisher) SendBlockRecord(ctx context.Context, record *domain.BlockRecord, epochRange string) error {
	kafkaRecord, err := p.createBlockRecord(record, epochRange)
	if err != nil {
		return err
	}
	if err = p.kcl.ProduceSync(ctx, kafkaRecord).FirstErr(); err != nil {
		return errors.Wrap(err, "failed to produce block record")
	}
	return nil
}

func (p *RecordPublisher) createEpochRecord(record *domain.EpochRecord) (*kgo.Record, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling to json")
	}
	return &kgo.Record{
		Topic: p.epochTopic,
		Key:   []byte(record.Range()),
		Value: payload,
	}, nil
}

func (p *RecordPublisher) createBlockRecord(record *domain.BlockRecord, epochRange string) (*kgo.Record, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling to json")
	}
	key := make([]byte, 8)
	binary.LittleEndian.PutUint64(key, record.BlockNumber)

	return &kgo.Record{
		Topic:   p.blockTopic,
		Key:     key,
		Value:   payload,
		Headers: []kgo.RecordHeader{{Key: "epochRange", Value: []byte(epochRange)}},
	}, nil
}
