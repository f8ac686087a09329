package kafka

import (
	"context"
	"log"

	"github.com/pkg/errors"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is one consumed record, decoupled from the broker client types.
type Message struct {
	Topic   string
	Key     []byte
	Payload []byte
}

type Consumer struct {
	kcl *kgo.Client
}

func NewConsumer(kafkaClient *kgo.Client) *Consumer {
	return &Consumer{
		kcl: kafkaClient,
	}
}

func (c *Consumer) PollMessages(ctx context.Context) ([]*Message, error) {
	fetches := c.kcl.PollRecords(ctx, 100)
	if errs := fetches.Errors(); len(errs) > 0 {
		for _, err := range errs {
			log.Printf("Error: %v", err)
		}
		return nil, errors.New("fetching records")
	}

	var messages []*Message
	iter := fetches.RecordIter()
	for !iter.Done() {
		record := iter.Next()
		messages = append(messages, &Message{
			Topic:   record.Topic,
			Key:     record.Key,
			Payload: record.Value,
		})
	}
	return messages, nil
}

func (c *Consumer) AllowRebalance() {
	c.kcl.AllowRebalance()
}

func (c *Consumer) Commit(ctx context.Context) error {
	err := c.kcl.CommitUncommittedOffsets(ctx)
	if err != nil {
		return errors.Wrap(err, "committing offsets")
	}
	return nil
}
