package elastic

import (
	"bytes"
	"context"
	"log"
	"runtime"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/pkg/errors"
)

type EsDocument struct {
	Id      string
	Payload []byte
}

type Client struct {
	esClient *elasticsearch.Client
}

func NewClient(esClient *elasticsearch.Client) *Client {
	return &Client{
		esClient: esClient,
	}
}

func (c *Client) BulkIndex(ctx context.Context, index string, data []*EsDocument) error {
	if len(data) == 0 {
		return nil
	}
	start := time.Now().UnixMilli()
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:      index,
		Client:     c.esClient,
		NumWorkers: min(runtime.NumCPU(), 8), // 8 parallel connections are enough
	})
	if err != nil {
		return errors.Wrap(err, "creating bulk indexer")
	}

	for _, d := range data {
		item := esutil.BulkIndexerItem{
			Action:       "index",
			DocumentID:   d.Id,
			RequireAlias: true,
			Body:         bytes.NewReader(d.Payload),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					log.Printf("Error indexing document [%s]: %s", d.Id, err)
				} else {
					log.Printf("Error indexing document [%s]: [%s: %s]", d.Id, res.Error.Type, res.Error.Reason)
				}
			},
		}
		if err = bi.Add(ctx, item); err != nil {
			return errors.Wrapf(err, "adding document [%s]", d.Id)
		}
	}

	if err = bi.Close(ctx); err != nil {
		return errors.Wrap(err, "closing bulk indexer")
	}

	biStats := bi.Stats()
	end := time.Now().UnixMilli()
	if biStats.NumFailed > 0 {
		return errors.Errorf("%d errors indexing [%d] documents into [%s]",
			biStats.NumFailed, biStats.NumFlushed, index)
	}
	log.Printf("Indexed %d documents (%d bytes, %d requests) into [%s] in %dms.",
		biStats.NumFlushed, biStats.FlushedBytes, biStats.NumRequests, index, end-start)
	return nil
}
