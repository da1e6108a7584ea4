package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/leave-assessment/internal/database"
	"github.com/stemsi/leave-assessment/internal/model"
)

const leaveColumns = `id, student_id, reason, start_date, end_date, subjects, status, test_required,
	test_attempt_id, test_score, test_result, created_at, updated_at`

// LeaveRepository handles leave request data access.
type LeaveRepository struct {
	pool *pgxpool.Pool
}

// NewLeaveRepository creates a new LeaveRepository.
func NewLeaveRepository(pool *pgxpool.Pool) *LeaveRepository {
	return &LeaveRepository{pool: pool}
}

// Create inserts a new leave request.
func (r *LeaveRepository) Create(ctx context.Context, l *model.Leave) error {
	err := database.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO leaves (student_id, reason, start_date, end_date, subjects, status, test_required, test_result)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		l.StudentID, l.Reason, l.StartDate, l.EndDate, l.Subjects, l.Status, l.TestRequired, l.TestResult,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	return mapErr("create leave", err)
}

// AttachAttempt links the composed attempt and marks the leave as test-assigned.
func (r *LeaveRepository) AttachAttempt(ctx context.Context, leaveID, attemptID uuid.UUID) error {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE leaves SET test_attempt_id = $2, status = $3, updated_at = NOW() WHERE id = $1`,
		leaveID, attemptID, model.LeaveTestAssigned)
	if err != nil {
		return mapErr("attach attempt", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordResult stores the qualification outcome of the leave's attempt.
func (r *LeaveRepository) RecordResult(ctx context.Context, leaveID uuid.UUID, percentage float64, result model.TestResult) error {
	tag, err := database.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE leaves SET status = $2, test_score = $3, test_result = $4, updated_at = NOW() WHERE id = $1`,
		leaveID, model.LeaveTestCompleted, percentage, result)
	if err != nil {
		return mapErr("record result", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByID retrieves a leave request.
func (r *LeaveRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Leave, error) {
	l, err := scanLeave(database.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+leaveColumns+` FROM leaves WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr("find leave", err)
	}
	return l, nil
}

// ListByStudent returns a student's leave requests, newest first.
func (r *LeaveRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Leave, error) {
	rows, err := database.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+leaveColumns+` FROM leaves WHERE student_id = $1 ORDER BY created_at DESC`, studentID)
	if err != nil {
		return nil, mapErr("list leaves", err)
	}
	return collectLeaves(rows)
}

// ListAll returns leave requests matching filter, newest first.
func (r *LeaveRepository) ListAll(ctx context.Context, filter model.LeaveFilter) ([]model.Leave, error) {
	rows, err := database.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+leaveColumns+`
		 FROM leaves
		 WHERE ($1::text = '' OR status = $1)
		   AND ($2::text = '' OR test_result = $2)
		   AND ($3::int = 0 OR student_id = $3)
		 ORDER BY created_at DESC
		 LIMIT $4 OFFSET $5`,
		string(filter.Status), string(filter.TestResult), filter.StudentID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, mapErr("list all leaves", err)
	}
	return collectLeaves(rows)
}

func collectLeaves(rows pgx.Rows) ([]model.Leave, error) {
	defer rows.Close()

	leaves := []model.Leave{}
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, mapErr("scan leave", err)
		}
		leaves = append(leaves, *l)
	}
	return leaves, mapErr("iterate leaves", rows.Err())
}

func scanLeave(row pgx.Row) (*model.Leave, error) {
	var l model.Leave
	if err := row.Scan(&l.ID, &l.StudentID, &l.Reason, &l.StartDate, &l.EndDate, &l.Subjects,
		&l.Status, &l.TestRequired, &l.TestAttemptID, &l.TestScore, &l.TestResult,
		&l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}
