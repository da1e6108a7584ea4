package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stemsi/leave-assessment/internal/model"
	"github.com/stemsi/leave-assessment/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDashboard struct {
	summary  repository.DashboardSummary
	statuses map[model.AttemptStatus]int
	results  map[model.TestResult]int
	recent   []repository.DashboardRecentResult
	limit    int
	err      error
}

func (f *fakeDashboard) GetSummaryCounts(context.Context) (repository.DashboardSummary, error) {
	return f.summary, f.err
}

func (f *fakeDashboard) GetAttemptStatusCounts(context.Context) (map[model.AttemptStatus]int, error) {
	return f.statuses, nil
}

func (f *fakeDashboard) GetResultCounts(context.Context) (map[model.TestResult]int, error) {
	return f.results, nil
}

func (f *fakeDashboard) GetRecentResults(_ context.Context, limit int) ([]repository.DashboardRecentResult, error) {
	f.limit = limit
	return f.recent, nil
}

func TestDashboard_PassRate(t *testing.T) {
	store := &fakeDashboard{
		summary:  repository.DashboardSummary{TotalLeaves: 10, TotalAttempts: 10, OpenAttempts: 2},
		statuses: map[model.AttemptStatus]int{model.AttemptCompleted: 6, model.AttemptAutoSubmitted: 2},
		results: map[model.TestResult]int{
			model.TestResultPass:    6,
			model.TestResultFail:    2,
			model.TestResultPending: 2,
		},
		recent: []repository.DashboardRecentResult{{StudentID: 42}},
	}

	data, err := NewDashboardService(store).GetDashboardData(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, data.TotalLeaves)
	assert.Equal(t, 2, data.OpenAttempts)
	assert.InDelta(t, 75.0, data.PassRate, 1e-9)
	assert.Equal(t, 6, data.AttemptStatusCounts[model.AttemptCompleted])
	assert.Len(t, data.RecentResults, 1)
	assert.Equal(t, recentResultsLimit, store.limit)
}

func TestDashboard_NoDecidedLeaves(t *testing.T) {
	store := &fakeDashboard{results: map[model.TestResult]int{model.TestResultPending: 3}}

	data, err := NewDashboardService(store).GetDashboardData(context.Background())
	require.NoError(t, err)
	assert.Zero(t, data.PassRate)
}

func TestDashboard_StoreError(t *testing.T) {
	_, err := NewDashboardService(&fakeDashboard{err: errors.New("db down")}).GetDashboardData(context.Background())
	assert.ErrorContains(t, err, "summary counts")
}
