package service

import (
	"context"
	"fmt"

	"github.com/stemsi/leave-assessment/internal/model"
	"github.com/stemsi/leave-assessment/internal/repository"
)

// recentResultsLimit is how many finished attempts the dashboard lists.
const recentResultsLimit = 10

// DashboardStore is the read model behind the admin dashboard.
type DashboardStore interface {
	GetSummaryCounts(ctx context.Context) (repository.DashboardSummary, error)
	GetAttemptStatusCounts(ctx context.Context) (map[model.AttemptStatus]int, error)
	GetResultCounts(ctx context.Context) (map[model.TestResult]int, error)
	GetRecentResults(ctx context.Context, limit int) ([]repository.DashboardRecentResult, error)
}

// DashboardData consolidates all metrics for the admin dashboard.
type DashboardData struct {
	repository.DashboardSummary
	AttemptStatusCounts map[model.AttemptStatus]int        `json:"attempt_status_counts"`
	ResultCounts        map[model.TestResult]int           `json:"result_counts"`
	PassRate            float64                            `json:"pass_rate"`
	RecentResults       []repository.DashboardRecentResult `json:"recent_results"`
}

// DashboardService handles admin dashboard business logic.
type DashboardService struct {
	repo DashboardStore
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(repo DashboardStore) *DashboardService {
	return &DashboardService{repo: repo}
}

// GetDashboardData gathers the dashboard metrics. PassRate is the share of
// decided leaves that passed, in percent.
func (s *DashboardService) GetDashboardData(ctx context.Context) (*DashboardData, error) {
	summary, err := s.repo.GetSummaryCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("summary counts: %w", err)
	}

	statusCounts, err := s.repo.GetAttemptStatusCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}

	resultCounts, err := s.repo.GetResultCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("result counts: %w", err)
	}

	recent, err := s.repo.GetRecentResults(ctx, recentResultsLimit)
	if err != nil {
		return nil, fmt.Errorf("recent results: %w", err)
	}

	passed := resultCounts[model.TestResultPass]
	decided := passed + resultCounts[model.TestResultFail]

	return &DashboardData{
		DashboardSummary:    summary,
		AttemptStatusCounts: statusCounts,
		ResultCounts:        resultCounts,
		PassRate:            Percentage(passed, decided),
		RecentResults:       recent,
	}, nil
}
