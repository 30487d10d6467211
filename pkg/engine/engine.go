// Package engine is the query-interpretation and call-orchestration core:
// it classifies a natural-language request against the pattern catalog,
// executes the selected chain with caching, bounded parallelism and
// per-step fallback, enriches identifier references in the output and
// shapes the final payload.
package engine

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/wickeddevsupport/bcgpt-sub008/pkg/basecamp"
	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine/aggregate"
	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine/analyzer"
	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine/enrich"
	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine/executor"
	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine/pattern"
	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine/reqctx"
)

// Scope optionally narrows an invocation to one project, by id or name.
type Scope struct {
	ProjectID   string
	ProjectName string
}

// MetricsReport is the caller-facing execution summary.
type MetricsReport struct {
	CallsMade       int     `json:"calls_made"`
	CacheHitRate    float64 `json:"cache_hit_rate"`
	ExecutionTimeMs int64   `json:"execution_time_ms"`
}

// QueryResult is the structured answer for one invocation.
type QueryResult struct {
	InvocationID string                   `json:"invocation_id"`
	Pattern      string                   `json:"pattern"`
	Chain        []string                 `json:"chain"`
	Results      []map[string]interface{} `json:"results"`
	Summary      map[string]interface{}   `json:"summary,omitempty"`
	Metrics      MetricsReport            `json:"metrics"`
	CallLog      []reqctx.CallRecord      `json:"call_log,omitempty"`
}

// Publisher receives a notification after each completed invocation.
// Publishing is fire-and-forget; failures never affect the query result.
type Publisher interface {
	QueryExecuted(result *QueryResult)
}

// Engine wires the analyzer, catalog, executor, enricher and aggregator
// over one remote API client. Engines are stateless across invocations:
// all mutable state lives in the per-request context.
type Engine struct {
	client    basecamp.Client
	enricher  *enrich.Enricher
	exec      *executor.Executor
	logger    *zap.Logger
	publisher Publisher
}

// Option configures an Engine.
type Option func(*Engine)

// WithPublisher attaches an invocation publisher.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// New builds an engine over the given client.
func New(client basecamp.Client, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	enricher := enrich.New(client, logger)
	e := &Engine{
		client:   client,
		enricher: enricher,
		exec:     executor.New(buildRegistry(client, enricher), logger),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AnalyzeAndExecute is the single entry point: text in, structured answer
// out. The only failure mode that reaches the caller is a step exhausting
// its primary and every fallback strategy; everything else degrades into
// partial, explicitly annotated results.
func (e *Engine) AnalyzeAndExecute(ctx context.Context, query string, scope *Scope) (*QueryResult, error) {
	start := time.Now()

	analysis := analyzer.Extract(query)
	patternName, chain := pattern.Match(analysis)

	rc := reqctx.New(e.client, query)
	log := e.logger.With(
		zap.String("invocation_id", rc.InvocationID),
		zap.String("pattern", patternName))

	log.Info("query analyzed",
		zap.Strings("chain", chain),
		zap.Strings("person_names", analysis.Entities.PersonNames),
		zap.Strings("resource_types", analysis.Entities.ResourceTypes))

	if err := rc.PreloadEssentials(ctx); err != nil {
		// Steps fall back to live fetches; keep going.
		log.Warn("preload incomplete", zap.Error(err))
	}

	projectID := e.resolveProjectID(rc, analysis, scope)
	if projectID == 0 {
		log.Warn("no project scope resolved; project-bound steps will rely on fallbacks")
	}

	input := &executor.StepInput{
		Analysis:  analysis,
		ProjectID: projectID,
		State:     make(map[string]interface{}),
	}
	stepResults, err := e.exec.Execute(ctx, rc, chain, input)
	if err != nil {
		log.Error("chain execution failed", zap.Error(err))
		return nil, err
	}

	rows := finalRows(stepResults)
	result := &QueryResult{
		InvocationID: rc.InvocationID,
		Pattern:      patternName,
		Chain:        chain,
		Results:      rows,
		Metrics:      buildMetrics(rc, start),
		CallLog:      rc.CallLog(),
	}
	if summary, ok := input.State[StateKeySummary].(map[string]interface{}); ok {
		result.Summary = summary
	} else if patternName == pattern.NameAssignment {
		result.Summary = aggregate.Stats(rows)
	}

	log.Info("query executed",
		zap.Int("results", len(result.Results)),
		zap.Int("calls_made", result.Metrics.CallsMade),
		zap.Float64("cache_hit_rate", result.Metrics.CacheHitRate),
		zap.Int64("elapsed_ms", result.Metrics.ExecutionTimeMs))

	if e.publisher != nil {
		e.publisher.QueryExecuted(result)
	}
	return result, nil
}

// resolveProjectID picks the invocation's project: explicit scope first,
// then a project reference from the query, then the account's first
// preloaded project.
func (e *Engine) resolveProjectID(rc *reqctx.Context, analysis *analyzer.QueryAnalysis, scope *Scope) int64 {
	if scope != nil {
		if scope.ProjectID != "" {
			if id, err := strconv.ParseInt(scope.ProjectID, 10, 64); err == nil && id > 0 {
				return id
			}
		}
		if scope.ProjectName != "" {
			if project := rc.LookupProjectByName(scope.ProjectName); project != nil {
				return project.ID
			}
		}
	}
	for _, ref := range analysis.Entities.ProjectRefs {
		if project := rc.LookupProjectByName(ref); project != nil {
			return project.ID
		}
	}
	if projects := rc.Projects(); len(projects) > 0 {
		return projects[0].ID
	}
	return 0
}

// finalRows takes the last successful step's output as the caller-facing
// result set.
func finalRows(results []executor.StepResult) []map[string]interface{} {
	for i := len(results) - 1; i >= 0; i-- {
		if results[i].Err != nil {
			continue
		}
		// A rows-typed output counts even when empty: an empty filter
		// result must not fall through to the unfiltered rows before it.
		switch results[i].Output.(type) {
		case []map[string]interface{}, []interface{}:
			rows := rowsFrom(results[i].Output)
			if rows == nil {
				rows = []map[string]interface{}{}
			}
			return rows
		}
	}
	return []map[string]interface{}{}
}

func buildMetrics(rc *reqctx.Context, start time.Time) MetricsReport {
	m := rc.Metrics()
	return MetricsReport{
		CallsMade:       m.CallsMade,
		CacheHitRate:    m.CacheHitRate,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}
}
