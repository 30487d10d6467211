package dto

import "github.com/wickeddevsupport/bcgpt-sub008/pkg/engine/reqctx"

// QueryRequest is the tool-invocation payload: raw text plus optional
// project scoping.
type QueryRequest struct {
	Query       string `json:"query" validate:"required"`
	ProjectID   string `json:"project_id,omitempty"`
	ProjectName string `json:"project_name,omitempty"`
}

// QueryResponse mirrors the engine result for the wire.
type QueryResponse struct {
	InvocationID string                   `json:"invocation_id"`
	Pattern      string                   `json:"pattern"`
	Chain        []string                 `json:"chain"`
	Results      []map[string]interface{} `json:"results"`
	Summary      map[string]interface{}   `json:"summary,omitempty"`
	Metrics      QueryMetricsDTO          `json:"metrics"`
	CallLog      []reqctx.CallRecord      `json:"call_log,omitempty"`
}

type QueryMetricsDTO struct {
	CallsMade       int     `json:"calls_made"`
	CacheHitRate    float64 `json:"cache_hit_rate"`
	ExecutionTimeMs int64   `json:"execution_time_ms"`
}

// QueryExecutedMessage is the event published after each invocation.
type QueryExecutedMessage struct {
	InvocationID    string  `json:"invocation_id"`
	Pattern         string  `json:"pattern"`
	ChainLength     int     `json:"chain_length"`
	ResultCount     int     `json:"result_count"`
	CallsMade       int     `json:"calls_made"`
	CacheHitRate    float64 `json:"cache_hit_rate"`
	ExecutionTimeMs int64   `json:"execution_time_ms"`
}

// UsageStatsDTO is the aggregated view served by the stats endpoint.
type UsageStatsDTO struct {
	TotalQueries    int64            `json:"total_queries"`
	PatternCounts   map[string]int64 `json:"pattern_counts"`
	AvgCacheHitRate float64          `json:"avg_cache_hit_rate"`
	AvgExecutionMs  float64          `json:"avg_execution_ms"`
}
