package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/leave-assessment/internal/database"
	"github.com/stemsi/leave-assessment/internal/model"
)

const questionColumns = `id, question_type, subject, difficulty, title, description, points, options, test_cases, is_active`

// QuestionRepository is the PostgreSQL-backed question bank.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// Sample returns up to count random active questions matching filter.
// Fewer rows are returned when the bank cannot fill the request.
func (r *QuestionRepository) Sample(ctx context.Context, filter model.QuestionFilter, count int) ([]model.Question, error) {
	if count <= 0 {
		return nil, nil
	}

	subjects := filter.Subjects
	if subjects == nil {
		subjects = []string{}
	}
	exclude := filter.ExcludeIDs
	if exclude == nil {
		exclude = []uuid.UUID{}
	}

	rows, err := database.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+questionColumns+`
		 FROM questions
		 WHERE is_active
		   AND question_type = $1
		   AND subject = ANY($2)
		   AND ($3::text = '' OR difficulty = $3)
		   AND NOT (id = ANY($4))
		 ORDER BY random()
		 LIMIT $5`,
		filter.Type, subjects, string(filter.Difficulty), exclude, count,
	)
	if err != nil {
		return nil, mapErr("sample questions", err)
	}
	return collectQuestions(rows)
}

// FindByID retrieves a question regardless of its active flag.
func (r *QuestionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	row := database.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if err != nil {
		return nil, mapErr("find question", err)
	}
	return q, nil
}

// FindByIDs retrieves the given questions. Unknown ids are skipped.
func (r *QuestionRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := database.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, mapErr("find questions", err)
	}
	return collectQuestions(rows)
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	if q.Options == nil {
		q.Options = []model.Option{}
	}
	if q.TestCases == nil {
		q.TestCases = []model.TestCase{}
	}
	err := database.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO questions (question_type, subject, difficulty, title, description, points, options, test_cases, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		q.Type, q.Subject, q.Difficulty, q.Title, q.Description, q.Points, q.Options, q.TestCases, q.IsActive,
	).Scan(&q.ID)
	return mapErr("create question", err)
}

// ListSubjects counts the active questions of every subject in the bank.
func (r *QuestionRepository) ListSubjects(ctx context.Context) ([]model.SubjectSummary, error) {
	rows, err := database.Conn(ctx, r.pool).Query(ctx,
		`SELECT subject,
		        COUNT(*) FILTER (WHERE question_type = $1),
		        COUNT(*) FILTER (WHERE question_type = $2)
		 FROM questions
		 WHERE is_active
		 GROUP BY subject
		 ORDER BY subject`,
		model.QuestionTypeMCQ, model.QuestionTypeCoding)
	if err != nil {
		return nil, mapErr("list subjects", err)
	}
	defer rows.Close()

	subjects := []model.SubjectSummary{}
	for rows.Next() {
		var s model.SubjectSummary
		if err := rows.Scan(&s.Subject, &s.MCQCount, &s.CodingCount); err != nil {
			return nil, mapErr("scan subject", err)
		}
		subjects = append(subjects, s)
	}
	return subjects, mapErr("iterate subjects", rows.Err())
}

func scanQuestion(row pgx.Row) (*model.Question, error) {
	var q model.Question
	if err := row.Scan(&q.ID, &q.Type, &q.Subject, &q.Difficulty, &q.Title, &q.Description,
		&q.Points, &q.Options, &q.TestCases, &q.IsActive); err != nil {
		return nil, err
	}
	return &q, nil
}

func collectQuestions(rows pgx.Rows) ([]model.Question, error) {
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, mapErr("scan question", err)
		}
		questions = append(questions, *q)
	}
	return questions, mapErr("iterate questions", rows.Err())
}
