package consume

import (
	"context"
	"testing"

	"github.com/chainsentry/poa-monitor/elastic"
	"github.com/chainsentry/poa-monitor/kafka"
	"github.com/chainsentry/poa-monitor/metrics"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type FakeKafkaClient struct {
	messages  []*kafka.Message
	pollErr   error
	committed bool
	rebalance bool
}

func (f *FakeKafkaClient) PollMessages(_ context.Context) ([]*kafka.Message, error) {
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	return f.messages, nil
}

func (f *FakeKafkaClient) Commit(_ context.Context) error {
	f.committed = true
	return nil
}

func (f *FakeKafkaClient) AllowRebalance() {
	f.rebalance = true
}

type FakeElasticClient struct {
	indexed  map[string][]*elastic.EsDocument
	indexErr error
}

func (f *FakeElasticClient) BulkIndex(_ context.Context, index string, data []*elastic.EsDocument) error {
	if f.indexErr != nil {
		return f.indexErr
	}
	if f.indexed == nil {
		f.indexed = make(map[string][]*elastic.EsDocument)
	}
	f.indexed[index] = append(f.indexed[index], data...)
	return nil
}

var m = metrics.NewIndexingMetrics("test")

func createProcessor(kafkaClient *FakeKafkaClient, elasticClient *FakeElasticClient) *RecordProcessor {
	return NewRecordProcessor(kafkaClient, elasticClient,
		"epoch-topic", "block-topic", "epoch-index", "block-index", m)
}

func TestRecordProcessor_consumeBatch(t *testing.T) {
	kafkaClient := &FakeKafkaClient{messages: []*kafka.Message{
		{
			Topic:   "epoch-topic",
			Payload: []byte(`{"epochStart": 200, "epochEnd": 400, "totalBlocks": 200, "cohortBlocks": 1}`),
		},
		{
			Topic:   "block-topic",
			Payload: []byte(`{"blockNumber": 201, "miner": "0xabc", "position": 10, "cohortMember": true}`),
		},
	}}
	elasticClient := &FakeElasticClient{}
	processor := createProcessor(kafkaClient, elasticClient)

	count, err := processor.consumeBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.True(t, kafkaClient.committed)
	assert.True(t, kafkaClient.rebalance)

	require.Len(t, elasticClient.indexed["epoch-index"], 1)
	assert.Equal(t, "200-400", elasticClient.indexed["epoch-index"][0].Id)
	require.Len(t, elasticClient.indexed["block-index"], 1)
	assert.Equal(t, "201", elasticClient.indexed["block-index"][0].Id)
}

func TestRecordProcessor_consumeBatch_unexpectedTopic(t *testing.T) {
	kafkaClient := &FakeKafkaClient{messages: []*kafka.Message{
		{Topic: "other-topic", Payload: []byte(`{}`)},
	}}
	processor := createProcessor(kafkaClient, &FakeElasticClient{})

	_, err := processor.consumeBatch(context.Background())
	require.Error(t, err)
	assert.False(t, kafkaClient.committed)
}

func TestRecordProcessor_consumeBatch_doesNotCommitOnIndexFailure(t *testing.T) {
	kafkaClient := &FakeKafkaClient{messages: []*kafka.Message{
		{
			Topic:   "epoch-topic",
			Payload: []byte(`{"epochStart": 0, "epochEnd": 200}`),
		},
	}}
	elasticClient := &FakeElasticClient{indexErr: errors.New("cluster unavailable")}
	processor := createProcessor(kafkaClient, elasticClient)

	_, err := processor.consumeBatch(context.Background())
	require.Error(t, err)
	assert.False(t, kafkaClient.committed)
	assert.True(t, kafkaClient.rebalance)
}
