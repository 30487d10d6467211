package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/wickeddevsupport/bcgpt-sub008/internal/dto"
	"github.com/wickeddevsupport/bcgpt-sub008/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	gocache "github.com/patrickmn/go-cache"
)

// IUsageService consumes query-executed events and keeps rolling usage
// statistics per pattern.
type IUsageService interface {
	Consume(ctx context.Context) error
	GetStats() dto.UsageStatsDTO
}

type usageTotals struct {
	Queries      int64
	SumHitRate   float64
	SumExecution float64
}

type usageService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	logger    logger.ILogger

	mu     sync.Mutex
	counts *gocache.Cache
	totals usageTotals
}

func NewUsageService(pubSub *gochannel.GoChannel, topicName string, log logger.ILogger) IUsageService {
	return &usageService{
		pubSub:    pubSub,
		topicName: topicName,
		logger:    log,
		counts:    gocache.New(24*time.Hour, 1*time.Hour),
	}
}

func (us *usageService) Consume(ctx context.Context) error {
	messages, err := us.pubSub.Subscribe(ctx, us.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			us.processMessage(msg)
		}
	}()

	return nil
}

func (us *usageService) processMessage(msg *message.Message) {
	var payload dto.QueryExecutedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		us.logger.Error("usage_service", "failed to unmarshal query event", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // invalid payload, retrying will not help
		return
	}

	us.mu.Lock()
	us.totals.Queries++
	us.totals.SumHitRate += payload.CacheHitRate
	us.totals.SumExecution += float64(payload.ExecutionTimeMs)
	if _, err := us.counts.IncrementInt64(payload.Pattern, 1); err != nil {
		us.counts.Set(payload.Pattern, int64(1), gocache.NoExpiration)
	}
	us.mu.Unlock()

	us.logger.Debug("usage_service", "recorded query execution", map[string]interface{}{
		"invocation_id": payload.InvocationID,
		"pattern":       payload.Pattern,
		"calls_made":    payload.CallsMade,
	})
	msg.Ack()
}

func (us *usageService) GetStats() dto.UsageStatsDTO {
	us.mu.Lock()
	defer us.mu.Unlock()

	stats := dto.UsageStatsDTO{
		TotalQueries:  us.totals.Queries,
		PatternCounts: make(map[string]int64),
	}
	for key, item := range us.counts.Items() {
		if n, ok := item.Object.(int64); ok {
			stats.PatternCounts[key] = n
		}
	}
	if us.totals.Queries > 0 {
		stats.AvgCacheHitRate = us.totals.SumHitRate / float64(us.totals.Queries)
		stats.AvgExecutionMs = us.totals.SumExecution / float64(us.totals.Queries)
	}
	return stats
}
