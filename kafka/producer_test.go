package kafka

import (
	"encoding/binary"
	"testing"

	"github.com/chainsentry/poa-monitor/domain"
	"github.com/stretchr/testify/require"
)

func TestRecordPublisher_createEpochRecord(t *testing.T) {
	publisher := NewRecordPublisher(nil, "epoch-topic", "block-topic")

	record, err := publisher.createEpochRecord(&domain.EpochRecord{
		EpochStart:   200,
		EpochEnd:     400,
		TotalBlocks:  200,
		CohortBlocks: 1,
		CohortRate:   0.5,
	})
	require.NoError(t, err)
	require.NotNil(t, record)

	require.Equal(t, "epoch-topic", record.Topic)
	require.Equal(t, "200-400", string(record.Key))
	require.JSONEq(t, `{"epochStart": 200, "epochEnd": 400, "totalBlocks": 200,
		"cohortBlocks": 1, "cohortRate": 0.5, "ordering": null}`, string(record.Value))
}

func TestRecordPublisher_createBlockRecord(t *testing.T) {
	publisher := NewRecordPublisher(nil, "epoch-topic", "block-topic")

	record, err := publisher.createBlockRecord(&domain.BlockRecord{
		BlockNumber:  201,
		Miner:        "0x1111222233334444555566667777888899990000",
		Position:     10,
		CohortMember: true,
	}, "200-400")
	require.NoError(t, err)
	require.NotNil(t, record)

	require.Equal(t, "block-topic", record.Topic)
	require.Equal(t, 201, int(binary.LittleEndian.Uint64(record.Key)))
	require.Len(t, record.Headers, 1)
	require.Equal(t, "200-400", string(record.Headers[0].Value))
	require.JSONEq(t, `{"blockNumber": 201, "miner": "0x1111222233334444555566667777888899990000",
		"position": 10, "cohortMember": true}`, string(record.Value))
}
