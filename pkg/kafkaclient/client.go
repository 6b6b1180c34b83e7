// Package kafkaclient wraps a kafka-go reader in a channel-based consumer
// with manual offset commits. The resolver uses it to receive bucket
// notification events for newly dropped gym snapshots.
package kafkaclient

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Reader is the subset of kafka.Reader the consumer needs. It exists so unit
// tests can inject a mock.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer runs a Kafka read loop and exposes messages on a channel. Offsets
// are committed manually by the caller once a message has been fully
// processed, so a crash mid-snapshot replays the event.
type Consumer struct {
	reader      Reader
	doneChan    chan struct{}
	wg          sync.WaitGroup
	messageChan chan kafka.Message
}

// NewConsumer creates a Consumer reading topic from broker as groupID.
func NewConsumer(topic, groupID, broker string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{broker},
		Topic:   topic,
		GroupID: groupID,
		// Manual commits only.
		CommitInterval: 0,
		MinBytes:       10e3,
		MaxBytes:       10e6,
	})
	return &Consumer{
		reader:      reader,
		doneChan:    make(chan struct{}),
		messageChan: make(chan kafka.Message),
	}
}

// Messages returns the channel messages arrive on. It is closed when the
// consumer stops.
func (c *Consumer) Messages() <-chan kafka.Message {
	return c.messageChan
}

// CommitOffset acknowledges a fully processed message.
func (c *Consumer) CommitOffset(ctx context.Context, msg kafka.Message) error {
	return c.reader.CommitMessages(ctx, msg)
}

// Start begins the read loop in its own goroutine. The loop ends when ctx is
// cancelled, Stop is called, or the underlying reader is closed.
func (c *Consumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(c.messageChan)

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.doneChan:
				return
			default:
				msg, err := c.reader.ReadMessage(ctx)
				if err != nil {
					if err.Error() == "kafka: reader closed" || ctx.Err() != nil {
						return
					}
					log.Printf("kafka read error: %v", err)
					// Back off rather than spin on a persistent error.
					time.Sleep(time.Second)
					continue
				}

				select {
				case c.messageChan <- msg:
				case <-ctx.Done():
					return
				case <-c.doneChan:
					return
				}
			}
		}
	}()
}

// Stop shuts the consumer down and waits for the read loop to exit.
func (c *Consumer) Stop() {
	close(c.doneChan)
	c.wg.Wait()
	if err := c.reader.Close(); err != nil {
		log.Printf("failed to close kafka reader: %v", err)
	}
}
