package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/leave-assessment/internal/model"
)

// DashboardRepository handles admin dashboard data access.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// DashboardSummary holds the high-level counters of the dashboard.
type DashboardSummary struct {
	TotalLeaves     int `json:"total_leaves"`
	TotalAttempts   int `json:"total_attempts"`
	OpenAttempts    int `json:"open_attempts"`
	ActiveQuestions int `json:"active_questions"`
}

// GetSummaryCounts retrieves the high-level metrics for the dashboard.
func (r *DashboardRepository) GetSummaryCounts(ctx context.Context) (DashboardSummary, error) {
	var s DashboardSummary
	err := r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM leaves),
			(SELECT COUNT(*) FROM test_attempts),
			(SELECT COUNT(*) FROM test_attempts WHERE status IN ($1, $2)),
			(SELECT COUNT(*) FROM questions WHERE is_active)`,
		model.AttemptInProgress, model.AttemptRound1Completed,
	).Scan(&s.TotalLeaves, &s.TotalAttempts, &s.OpenAttempts, &s.ActiveQuestions)
	return s, mapErr("dashboard summary", err)
}

// GetAttemptStatusCounts retrieves the distribution of attempts by status.
func (r *DashboardRepository) GetAttemptStatusCounts(ctx context.Context) (map[model.AttemptStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM test_attempts GROUP BY status`)
	if err != nil {
		return nil, mapErr("attempt status counts", err)
	}
	defer rows.Close()

	counts := make(map[model.AttemptStatus]int)
	for rows.Next() {
		var status model.AttemptStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, mapErr("scan status count", err)
		}
		counts[status] = count
	}
	return counts, mapErr("iterate status counts", rows.Err())
}

// GetResultCounts retrieves how many leaves passed, failed or still wait
// for their test.
func (r *DashboardRepository) GetResultCounts(ctx context.Context) (map[model.TestResult]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT test_result, COUNT(*) FROM leaves GROUP BY test_result`)
	if err != nil {
		return nil, mapErr("result counts", err)
	}
	defer rows.Close()

	counts := make(map[model.TestResult]int)
	for rows.Next() {
		var result model.TestResult
		var count int
		if err := rows.Scan(&result, &count); err != nil {
			return nil, mapErr("scan result count", err)
		}
		counts[result] = count
	}
	return counts, mapErr("iterate result counts", rows.Err())
}

// DashboardRecentResult is a finished attempt shown on the dashboard.
type DashboardRecentResult struct {
	AttemptID      uuid.UUID           `json:"test_id"`
	LeaveID        uuid.UUID           `json:"leave_id"`
	StudentID      int                 `json:"student_id"`
	Status         model.AttemptStatus `json:"status"`
	Percentage     float64             `json:"percentage"`
	Result         model.TestResult    `json:"result"`
	ViolationCount int                 `json:"violation_count"`
	EndTime        *time.Time          `json:"end_time"`
}

// GetRecentResults retrieves the last N finished attempts.
func (r *DashboardRepository) GetRecentResults(ctx context.Context, limit int) ([]DashboardRecentResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.leave_id, a.student_id, a.status, a.percentage, l.test_result, a.violation_count, a.end_time
		 FROM test_attempts a
		 JOIN leaves l ON l.id = a.leave_id
		 WHERE a.status IN ($1, $2, $3)
		 ORDER BY a.end_time DESC NULLS LAST
		 LIMIT $4`,
		model.AttemptCompleted, model.AttemptSubmitted, model.AttemptAutoSubmitted, limit,
	)
	if err != nil {
		return nil, mapErr("recent results", err)
	}
	defer rows.Close()

	results := []DashboardRecentResult{}
	for rows.Next() {
		var res DashboardRecentResult
		if err := rows.Scan(&res.AttemptID, &res.LeaveID, &res.StudentID, &res.Status,
			&res.Percentage, &res.Result, &res.ViolationCount, &res.EndTime); err != nil {
			return nil, mapErr("scan recent result", err)
		}
		results = append(results, res)
	}
	return results, mapErr("iterate recent results", rows.Err())
}
