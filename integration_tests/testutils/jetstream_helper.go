package testutils

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Black-And-White-Club/tourney-bot/app/modules/tournament/infrastructure/kvstore"
	"github.com/nats-io/nats.go/jetstream"
)

// PurgeJetStreamStreams purges all messages from the given streams.
func (env *TestEnvironment) PurgeJetStreamStreams(ctx context.Context, streamNames ...string) error {
	for _, name := range streamNames {
		stream, err := env.JetStream.Stream(ctx, name)
		if errors.Is(err, jetstream.ErrStreamNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("access stream %s: %w", name, err)
		}
		if err := stream.Purge(ctx); err != nil {
			return fmt.Errorf("purge stream %s: %w", name, err)
		}
	}
	return nil
}

// DeleteJetStreamConsumers removes every consumer of the given streams so a
// new router starts from fresh durables.
func (env *TestEnvironment) DeleteJetStreamConsumers(ctx context.Context, streamNames ...string) error {
	for _, name := range streamNames {
		stream, err := env.JetStream.Stream(ctx, name)
		if errors.Is(err, jetstream.ErrStreamNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("access stream %s: %w", name, err)
		}
		consumers := stream.ListConsumers(ctx)
		for ci := range consumers.Info() {
			if err := env.JetStream.DeleteConsumer(ctx, name, ci.Name); err != nil {
				log.Printf("Failed to delete consumer %q from stream %q: %v", ci.Name, name, err)
			}
		}
		if err := consumers.Err(); err != nil {
			return fmt.Errorf("list consumers of %s: %w", name, err)
		}
	}
	return nil
}

// ResetKeyValue deletes the claim and intent buckets.
func (env *TestEnvironment) ResetKeyValue(ctx context.Context) error {
	for _, bucket := range []string{kvstore.ClaimsBucket, kvstore.IntentsBucket} {
		err := env.JetStream.DeleteKeyValue(ctx, bucket)
		if err != nil && !errors.Is(err, jetstream.ErrBucketNotFound) {
			return fmt.Errorf("delete bucket %s: %w", bucket, err)
		}
	}
	return nil
}
