// Package service glues the resolver's intake together: it consumes bucket
// notification events from a message source (Kafka via pkg/kafkaclient),
// loads the referenced gym snapshot from object storage, and yields snapshots
// on a channel for enrichment.
package service

import (
	"context"
	"encoding/json"
	"log"
	"net/url"

	"github.com/minio/minio-go/v7/pkg/notification"
	"github.com/segmentio/kafka-go"

	"gymatlas/internal/models"
)

// MessageIterator is the contract for the underlying event consumer.
// Implementations own the consumer lifecycle; callers start and stop it
// around the iterator.
type MessageIterator interface {
	// Messages returns a receive-only channel of messages, closed when the
	// consumer stops or the source is exhausted.
	Messages() <-chan kafka.Message

	// CommitOffset acknowledges that a message has been fully processed.
	CommitOffset(ctx context.Context, msg kafka.Message) error
}

// LoaderFunc loads and decodes a gym snapshot from the object store for a
// notification event's bucket and key. Implementations are read-only and must
// honor ctx.
type LoaderFunc func(ctx context.Context, bucket, key string) (*models.Snapshot, error)

// FetchedSnapshot pairs a loaded snapshot with the storage event that
// announced it.
type FetchedSnapshot struct {
	Snapshot *models.Snapshot
	Bucket   string
	Key      string
}

// SnapshotIterator turns raw storage events into loaded snapshots. Errors
// during event decoding or snapshot loading are logged and the event is
// skipped; processing continues with later events.
type SnapshotIterator struct {
	msgIterator MessageIterator
	loader      LoaderFunc
}

// NewSnapshotIterator constructs an iterator over the provided message source
// and snapshot loader.
func NewSnapshotIterator(iterator MessageIterator, loader LoaderFunc) *SnapshotIterator {
	return &SnapshotIterator{
		msgIterator: iterator,
		loader:      loader,
	}
}

// Snapshots starts a goroutine that decodes each message as a MinIO bucket
// notification, loads the referenced snapshot, and emits it. The offset is
// committed only after a successful load, so failed snapshots replay. The
// returned channel closes when the underlying Messages() channel closes.
func (it *SnapshotIterator) Snapshots(ctx context.Context) <-chan *FetchedSnapshot {
	out := make(chan *FetchedSnapshot)
	go func() {
		defer close(out)

		for msg := range it.msgIterator.Messages() {
			var event notification.Info
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Printf("error unmarshalling bucket notification: %v", err)
				continue
			}
			if len(event.Records) == 0 {
				log.Printf("bucket notification carried no records, skipping")
				continue
			}

			s3 := event.Records[0].S3
			objectKey, err := url.QueryUnescape(s3.Object.Key)
			if err != nil {
				log.Printf("error decoding object key %q: %v", s3.Object.Key, err)
				continue
			}

			snapshot, err := it.loader(ctx, s3.Bucket.Name, objectKey)
			if err != nil {
				log.Printf("error loading snapshot %s/%s: %v", s3.Bucket.Name, objectKey, err)
				continue
			}

			select {
			case out <- &FetchedSnapshot{Snapshot: snapshot, Bucket: s3.Bucket.Name, Key: objectKey}:
			case <-ctx.Done():
				return
			}

			if err := it.msgIterator.CommitOffset(ctx, msg); err != nil {
				log.Printf("failed to commit offset: %v", err)
			}
		}
	}()
	return out
}
