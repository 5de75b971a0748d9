// Package kvstore keeps score claims and saga intents in NATS JetStream
// key-value buckets so they survive a restart.
package kvstore

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

const (
	ClaimsBucket  = "score_claims"
	IntentsBucket = "tournament_intents"
)

// Buckets creates or updates both buckets.
func Buckets(ctx context.Context, js jetstream.JetStream) (claims, intents jetstream.KeyValue, err error) {
	claims, err = js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      ClaimsBucket,
		Description: "Unconfirmed match score reports",
		History:     1,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s bucket: %w", ClaimsBucket, err)
	}
	intents, err = js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      IntentsBucket,
		Description: "In-flight multi-step tournament operations",
		History:     1,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s bucket: %w", IntentsBucket, err)
	}
	return claims, intents, nil
}
