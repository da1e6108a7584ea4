package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/leave-assessment/internal/database"
	"github.com/stemsi/leave-assessment/internal/model"
)

const attemptColumns = `id, student_id, leave_id, questions, current_round, round1_score, round2_score,
	total_score, max_score, percentage, status, start_time, end_time, time_limit,
	violation_count, violation_penalty, ip_address, user_agent, version, created_at, updated_at`

// AttemptRepository handles test attempt data access. Every state change
// goes through Update, which is guarded by the attempt's version column.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Create inserts a new attempt with its question set.
func (r *AttemptRepository) Create(ctx context.Context, a *model.TestAttempt) error {
	if a.Questions == nil {
		a.Questions = []model.AttemptQuestion{}
	}
	err := database.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO test_attempts (student_id, leave_id, questions, current_round, max_score, status, start_time, time_limit)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, version, created_at, updated_at`,
		a.StudentID, a.LeaveID, a.Questions, a.CurrentRound, a.MaxScore, a.Status, a.StartTime, a.TimeLimit,
	).Scan(&a.ID, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	return mapErr("create attempt", err)
}

// FindByID loads an attempt with its responses and violations.
func (r *AttemptRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.TestAttempt, error) {
	return r.findOne(ctx, `SELECT `+attemptColumns+` FROM test_attempts WHERE id = $1`, id)
}

// FindByLeaveID loads the attempt created for a leave request.
func (r *AttemptRepository) FindByLeaveID(ctx context.Context, leaveID uuid.UUID) (*model.TestAttempt, error) {
	return r.findOne(ctx, `SELECT `+attemptColumns+` FROM test_attempts WHERE leave_id = $1`, leaveID)
}

func (r *AttemptRepository) findOne(ctx context.Context, query string, arg any) (*model.TestAttempt, error) {
	q := database.Conn(ctx, r.pool)

	a, err := scanAttempt(q.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapErr("find attempt", err)
	}

	if a.Responses, err = r.listResponses(ctx, q, a.ID); err != nil {
		return nil, err
	}
	if a.Violations, err = r.listViolations(ctx, q, a.ID); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AttemptRepository) listResponses(ctx context.Context, q database.Querier, attemptID uuid.UUID) ([]model.Response, error) {
	rows, err := q.Query(ctx,
		`SELECT question_id, selected_option, code, language, is_correct, score, answered_at
		 FROM attempt_responses WHERE attempt_id = $1
		 ORDER BY answered_at, question_id`, attemptID)
	if err != nil {
		return nil, mapErr("list responses", err)
	}
	defer rows.Close()

	responses := []model.Response{}
	for rows.Next() {
		var resp model.Response
		if err := rows.Scan(&resp.QuestionID, &resp.SelectedOption, &resp.Code, &resp.Language,
			&resp.IsCorrect, &resp.Score, &resp.AnsweredAt); err != nil {
			return nil, mapErr("scan response", err)
		}
		responses = append(responses, resp)
	}
	return responses, mapErr("iterate responses", rows.Err())
}

func (r *AttemptRepository) listViolations(ctx context.Context, q database.Querier, attemptID uuid.UUID) ([]model.Violation, error) {
	rows, err := q.Query(ctx,
		`SELECT type, detail, recorded_at FROM attempt_violations
		 WHERE attempt_id = $1 ORDER BY id`, attemptID)
	if err != nil {
		return nil, mapErr("list violations", err)
	}
	defer rows.Close()

	violations := []model.Violation{}
	for rows.Next() {
		var v model.Violation
		if err := rows.Scan(&v.Type, &v.Detail, &v.Timestamp); err != nil {
			return nil, mapErr("scan violation", err)
		}
		violations = append(violations, v)
	}
	return violations, mapErr("iterate violations", rows.Err())
}

// InsertResponse stores an answer. The (attempt_id, question_id) primary key
// turns a concurrent second answer into ErrDuplicate.
func (r *AttemptRepository) InsertResponse(ctx context.Context, attemptID uuid.UUID, resp *model.Response) error {
	_, err := database.Conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO attempt_responses (attempt_id, question_id, selected_option, code, language, is_correct, score, answered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		attemptID, resp.QuestionID, resp.SelectedOption, resp.Code, resp.Language, resp.IsCorrect, resp.Score, resp.AnsweredAt,
	)
	return mapErr("insert response", err)
}

// InsertViolation appends a violation to the attempt's log.
func (r *AttemptRepository) InsertViolation(ctx context.Context, attemptID uuid.UUID, v *model.Violation) error {
	_, err := database.Conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO attempt_violations (attempt_id, type, detail, recorded_at) VALUES ($1, $2, $3, $4)`,
		attemptID, v.Type, v.Detail, v.Timestamp,
	)
	return mapErr("insert violation", err)
}

// Update persists the mutable attempt fields if the stored version still
// equals a.Version, then bumps a.Version. A stale version yields
// ErrVersionConflict.
func (r *AttemptRepository) Update(ctx context.Context, a *model.TestAttempt) error {
	var updatedAt time.Time
	err := database.Conn(ctx, r.pool).QueryRow(ctx,
		`UPDATE test_attempts SET
			current_round = $3, round1_score = $4, round2_score = $5, total_score = $6,
			percentage = $7, status = $8, end_time = $9, violation_count = $10,
			violation_penalty = $11, ip_address = $12, user_agent = $13,
			version = version + 1, updated_at = NOW()
		 WHERE id = $1 AND version = $2
		 RETURNING updated_at`,
		a.ID, a.Version, a.CurrentRound, a.RoundScores.Round1, a.RoundScores.Round2, a.TotalScore,
		a.Percentage, a.Status, a.EndTime, a.ViolationCount, a.ViolationPenalty, a.IPAddress, a.UserAgent,
	).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrVersionConflict
		}
		return mapErr("update attempt", err)
	}
	a.Version++
	a.UpdatedAt = updatedAt
	return nil
}

// ListOverdue returns open attempts whose time limit ran out before now.
func (r *AttemptRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := database.Conn(ctx, r.pool).Query(ctx,
		`SELECT id FROM test_attempts
		 WHERE status IN ('in-progress', 'round1-completed')
		   AND start_time + make_interval(mins => time_limit) < $1
		 ORDER BY start_time
		 LIMIT $2`, now, limit)
	if err != nil {
		return nil, mapErr("list overdue attempts", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, mapErr("scan attempt id", err)
		}
		ids = append(ids, id)
	}
	return ids, mapErr("iterate overdue attempts", rows.Err())
}

func scanAttempt(row pgx.Row) (*model.TestAttempt, error) {
	var a model.TestAttempt
	if err := row.Scan(&a.ID, &a.StudentID, &a.LeaveID, &a.Questions, &a.CurrentRound,
		&a.RoundScores.Round1, &a.RoundScores.Round2, &a.TotalScore, &a.MaxScore, &a.Percentage,
		&a.Status, &a.StartTime, &a.EndTime, &a.TimeLimit, &a.ViolationCount, &a.ViolationPenalty,
		&a.IPAddress, &a.UserAgent, &a.Version, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
