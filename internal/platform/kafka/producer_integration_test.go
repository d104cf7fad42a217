//go:build integration

package kafka

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "kudose/pkg/platform/audit"
	"kudose/pkg/testutil/containers"
)

func TestProducer_DeliversKeyedRecords(t *testing.T) {
	broker := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "kudose.audit.test"
	p, err := NewProducer([]string{broker}, topic, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.EnsureTopic(ctx, 1, 1))
	require.NoError(t, p.EnsureTopic(ctx, 1, 1), "existing topic is not an error")

	require.NoError(t, p.Deliver(ctx, []audit.OutboxEntry{
		{ID: "o-1", AggregateID: "principal-1", EventType: "handle_confirmed", Payload: []byte(`{"action":"handle_confirmed"}`)},
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "principal-1", string(records[0].Key))
	assert.Equal(t, "handle_confirmed", string(records[0].Headers[0].Value))
}
