package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wickeddevsupport/bcgpt-sub008/internal/dto"
	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

type testLogger struct{}

func (testLogger) Debug(module, message string, details map[string]interface{}) {}
func (testLogger) Info(module, message string, details map[string]interface{})  {}
func (testLogger) Warn(module, message string, details map[string]interface{})  {}
func (testLogger) Error(module, message string, details map[string]interface{}) {}
func (testLogger) Zap() *zap.Logger { return zap.NewNop() }
func (testLogger) Sync() error      { return nil }

const testTopic = "query.executed.test"

func publishEvent(t *testing.T, pubSub *gochannel.GoChannel, event dto.QueryExecutedMessage) {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	require.NoError(t, pubSub.Publish(testTopic, message.NewMessage(watermill.NewUUID(), payload)))
}

func waitForQueries(t *testing.T, us IUsageService, want int64) dto.UsageStatsDTO {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stats := us.GetStats()
		if stats.TotalQueries >= want {
			return stats
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("consumer never reached %d queries", want)
	return dto.UsageStatsDTO{}
}

func TestUsageServiceAggregates(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	us := NewUsageService(pubSub, testTopic, testLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, us.Consume(ctx))

	publishEvent(t, pubSub, dto.QueryExecutedMessage{
		InvocationID: "a", Pattern: "person_finder", CacheHitRate: 0.5, ExecutionTimeMs: 10,
	})
	publishEvent(t, pubSub, dto.QueryExecutedMessage{
		InvocationID: "b", Pattern: "person_finder", CacheHitRate: 0.7, ExecutionTimeMs: 30,
	})
	publishEvent(t, pubSub, dto.QueryExecutedMessage{
		InvocationID: "c", Pattern: "generic", CacheHitRate: 0.0, ExecutionTimeMs: 20,
	})

	stats := waitForQueries(t, us, 3)
	assert.Equal(t, int64(3), stats.TotalQueries)
	assert.Equal(t, int64(2), stats.PatternCounts["person_finder"])
	assert.Equal(t, int64(1), stats.PatternCounts["generic"])
	assert.InDelta(t, 0.4, stats.AvgCacheHitRate, 0.0001)
	assert.InDelta(t, 20.0, stats.AvgExecutionMs, 0.0001)
}

func TestUsageServiceSkipsBadPayloads(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	us := NewUsageService(pubSub, testTopic, testLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, us.Consume(ctx))

	require.NoError(t, pubSub.Publish(testTopic, message.NewMessage(watermill.NewUUID(), []byte("not json"))))
	publishEvent(t, pubSub, dto.QueryExecutedMessage{InvocationID: "a", Pattern: "generic"})

	stats := waitForQueries(t, us, 1)
	assert.Equal(t, int64(1), stats.TotalQueries)
}

func TestEnginePublisherEmitsEvent(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})

	messages, err := pubSub.Subscribe(context.Background(), testTopic)
	require.NoError(t, err)

	pub := NewEnginePublisher(NewPublisherService(testTopic, pubSub))
	pub.QueryExecuted(&engine.QueryResult{
		InvocationID: "inv-1",
		Pattern:      "timeline",
		Chain:        []string{"list_todos_for_project", "filter_by_date"},
		Results:      []map[string]interface{}{{"id": 1}},
		Metrics:      engine.MetricsReport{CallsMade: 2, CacheHitRate: 0.5, ExecutionTimeMs: 12},
	})

	select {
	case msg := <-messages:
		var event dto.QueryExecutedMessage
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, "inv-1", event.InvocationID)
		assert.Equal(t, "timeline", event.Pattern)
		assert.Equal(t, 2, event.ChainLength)
		assert.Equal(t, 1, event.ResultCount)
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("no event published")
	}
}
