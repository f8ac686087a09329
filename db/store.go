package db

import (
	"encoding/binary"
	"encoding/json"
	"io"
	"log"
	"path/filepath"

	"github.com/chainsentry/poa-monitor/domain"
	"github.com/cockroachdb/pebble/v2"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("store resource not found")

const (
	lastProcessedBlockKey = "lpb"
	epochRecordPrefix     = "ep:"
	blockRecordPrefix     = "bl:"
)

// PebbleStore is the snapshot store backing. Epoch records are keyed by
// their epoch range, block records are grouped under the epoch range they
// occurred in. Every write is synced, records are append-only.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(storeDir string) (*PebbleStore, error) {
	db, err := pebble.Open(filepath.Join(storeDir, "poa-monitor-store"), &pebble.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "opening pebble db")
	}
	return &PebbleStore{db: db}, nil
}

func (ps *PebbleStore) AppendEpochRecord(record *domain.EpochRecord) error {
	value, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "marshalling epoch record")
	}
	key := []byte(epochRecordPrefix + record.Range())
	if err := ps.db.Set(key, value, pebble.Sync); err != nil {
		return errors.Wrapf(err, "setting key [%s]", key)
	}
	return nil
}

func (ps *PebbleStore) GetEpochRecord(epochRange string) (*domain.EpochRecord, error) {
	key := []byte(epochRecordPrefix + epochRange)
	value, closer, err := ps.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "getting value for key [%s]", key)
	}
	defer closeQuietly(closer)

	var record domain.EpochRecord
	if err := json.Unmarshal(value, &record); err != nil {
		return nil, errors.Wrapf(err, "unmarshalling epoch record [%s]", epochRange)
	}
	return &record, nil
}

func (ps *PebbleStore) AppendBlockRecord(record *domain.BlockRecord, epochRange string) error {
	value, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "marshalling block record")
	}
	key := blockRecordKey(epochRange, record.BlockNumber)
	if err := ps.db.Set(key, value, pebble.Sync); err != nil {
		return errors.Wrapf(err, "setting key [%s]", key)
	}
	return nil
}

// GetBlockRecords returns the block records of one epoch range in block
// number order.
func (ps *PebbleStore) GetBlockRecords(epochRange string) ([]*domain.BlockRecord, error) {
	prefix := []byte(blockRecordPrefix + epochRange + ":")
	iter, err := ps.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating iterator")
	}
	defer closeQuietly(iter)

	var records []*domain.BlockRecord
	for iter.First(); iter.Valid(); iter.Next() {
		var record domain.BlockRecord
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			return nil, errors.Wrapf(err, "unmarshalling block record [%s]", iter.Key())
		}
		records = append(records, &record)
	}
	return records, nil
}

func (ps *PebbleStore) SetLastProcessedBlock(block uint64) error {
	var value []byte
	value = binary.BigEndian.AppendUint64(value, block)
	if err := ps.db.Set([]byte(lastProcessedBlockKey), value, pebble.Sync); err != nil {
		return errors.Wrapf(err, "setting key [%s] to [%d]", lastProcessedBlockKey, block)
	}
	return nil
}

func (ps *PebbleStore) GetLastProcessedBlock() (uint64, error) {
	value, closer, err := ps.db.Get([]byte(lastProcessedBlockKey))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, errors.Wrapf(err, "getting value for key [%s]", lastProcessedBlockKey)
	}
	defer closeQuietly(closer)
	return binary.BigEndian.Uint64(value), nil
}

func (ps *PebbleStore) Close() error {
	return ps.db.Close()
}

// block record keys carry the block number big endian so that iteration
// yields block number order.
func blockRecordKey(epochRange string, blockNumber uint64) []byte {
	key := []byte(blockRecordPrefix + epochRange + ":")
	return binary.BigEndian.AppendUint64(key, blockNumber)
}

func prefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func closeQuietly(closer io.Closer) {
	if err := closer.Close(); err != nil {
		log.Printf("[ERROR] closing db resource: %v", err)
	}
}
