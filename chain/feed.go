package chain

import (
	"context"
	"time"

	"github.com/chainsentry/poa-monitor/domain"
	"github.com/chainsentry/poa-monitor/metrics"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const reconnectDelay = 5 * time.Second

// HeaderHandler consumes one block header at a time. The feed calls it
// synchronously so that event processing stays strictly sequential.
type HeaderHandler interface {
	ProcessHeader(ctx context.Context, header *domain.BlockHeader) error
}

// Feed subscribes to new block headers over the node's websocket endpoint
// and forwards them to the handler. Lost subscriptions are re-established
// with a fixed delay; only the transport is reconnected, the handler keeps
// its state.
type Feed struct {
	url     string
	metrics *metrics.ProcessingMetrics
	logger  *zap.SugaredLogger
}

func NewFeed(url string, m *metrics.ProcessingMetrics, logger *zap.SugaredLogger) *Feed {
	return &Feed{
		url:     url,
		metrics: m,
		logger:  logger,
	}
}

// Run connects and consumes headers until the context is cancelled. A
// failure of the initial dial is returned to the caller and is fatal; every
// later transport failure is retried.
func (f *Feed) Run(ctx context.Context, handler HeaderHandler) error {
	client, err := ethclient.DialContext(ctx, f.url)
	if err != nil {
		return errors.Wrapf(err, "dialing block header feed [%s]", f.url)
	}

	for {
		err = f.consume(ctx, client, handler)
		client.Close()
		if ctx.Err() != nil {
			return nil
		}
		f.logger.Warnw("Block header subscription lost", "error", err)
		f.metrics.IncFeedReconnects()
		time.Sleep(reconnectDelay)

		for {
			client, err = ethclient.DialContext(ctx, f.url)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return nil
			}
			f.logger.Warnw("Reconnecting to block header feed failed", "error", err)
			time.Sleep(reconnectDelay)
		}
	}
}

func (f *Feed) consume(ctx context.Context, client *ethclient.Client, handler HeaderHandler) error {
	headers := make(chan *types.Header, 64)
	sub, err := client.SubscribeNewHead(ctx, headers)
	if err != nil {
		return errors.Wrap(err, "subscribing to new heads")
	}
	defer sub.Unsubscribe()
	f.logger.Infow("Subscribed to block header feed", "url", f.url)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return errors.Wrap(err, "subscription failed")
		case head := <-headers:
			event, err := convertHeader(head)
			if err != nil {
				f.logger.Warnw("Dropping malformed header", "error", err)
				continue
			}
			if err := handler.ProcessHeader(ctx, event); err != nil {
				f.logger.Warnw("Dropping block event", "block", event.Number, "error", err)
			}
		}
	}
}

func convertHeader(header *types.Header) (*domain.BlockHeader, error) {
	if header == nil || header.Number == nil {
		return nil, errors.New("header without block number")
	}
	miner, err := domain.NormalizeAddressBytes(header.Coinbase.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "normalizing miner identity")
	}
	marker := make([]byte, len(header.Extra))
	copy(marker, header.Extra)

	return &domain.BlockHeader{
		Number: header.Number.Uint64(),
		Miner:  miner,
		Marker: marker,
	}, nil
}
