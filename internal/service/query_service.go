package service

import (
	"context"

	"github.com/wickeddevsupport/bcgpt-sub008/internal/dto"
	"github.com/wickeddevsupport/bcgpt-sub008/pkg/engine"
)

type IQueryService interface {
	Execute(ctx context.Context, req *dto.QueryRequest) (*dto.QueryResponse, error)
}

type queryService struct {
	engine *engine.Engine

	// defaultProjectID scopes requests that name no project themselves.
	defaultProjectID string
}

func NewQueryService(eng *engine.Engine, defaultProjectID string) IQueryService {
	return &queryService{engine: eng, defaultProjectID: defaultProjectID}
}

func (s *queryService) Execute(ctx context.Context, req *dto.QueryRequest) (*dto.QueryResponse, error) {
	scope := &engine.Scope{
		ProjectID:   req.ProjectID,
		ProjectName: req.ProjectName,
	}
	if scope.ProjectID == "" && scope.ProjectName == "" {
		scope.ProjectID = s.defaultProjectID
	}

	result, err := s.engine.AnalyzeAndExecute(ctx, req.Query, scope)
	if err != nil {
		return nil, err
	}

	return &dto.QueryResponse{
		InvocationID: result.InvocationID,
		Pattern:      result.Pattern,
		Chain:        result.Chain,
		Results:      result.Results,
		Summary:      result.Summary,
		Metrics: dto.QueryMetricsDTO{
			CallsMade:       result.Metrics.CallsMade,
			CacheHitRate:    result.Metrics.CacheHitRate,
			ExecutionTimeMs: result.Metrics.ExecutionTimeMs,
		},
		CallLog: result.CallLog,
	}, nil
}
