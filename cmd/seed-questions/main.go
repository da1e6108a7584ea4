package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/stemsi/leave-assessment/internal/config"
	"github.com/stemsi/leave-assessment/internal/database"
	"github.com/stemsi/leave-assessment/internal/logger"
	"github.com/stemsi/leave-assessment/internal/model"
	"github.com/stemsi/leave-assessment/internal/repository"
)

func main() {
	var path string
	flag.StringVar(&path, "file", "seed/questions.json", "JSON file with an array of questions")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Failed to open seed file")
	}
	defer f.Close()

	questions, err := loadQuestions(f)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Invalid seed file")
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	questionRepo := repository.NewQuestionRepository(pool)
	txManager := database.NewTxManager(pool)

	fmt.Printf("=== Seeding %d questions ===\n", len(questions))

	// All or nothing: a bad row leaves the bank untouched.
	err = txManager.WithinTx(ctx, func(ctx context.Context) error {
		for i := range questions {
			if err := questionRepo.Create(ctx, &questions[i]); err != nil {
				return fmt.Errorf("question %d (%s): %w", i, questions[i].Title, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Seeding failed")
	}

	fmt.Printf("Seeded %d questions\n", len(questions))
}

// loadQuestions decodes and checks a seed file. Questions default to active.
func loadQuestions(r io.Reader) ([]model.Question, error) {
	var raw []struct {
		model.Question
		IsActive *bool `json:"is_active"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	questions := make([]model.Question, 0, len(raw))
	for i, item := range raw {
		q := item.Question
		q.IsActive = item.IsActive == nil || *item.IsActive
		if err := checkQuestion(q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func checkQuestion(q model.Question) error {
	switch {
	case q.Title == "":
		return fmt.Errorf("title is required")
	case q.Subject == "":
		return fmt.Errorf("subject is required")
	case q.Points <= 0:
		return fmt.Errorf("points must be positive")
	}

	switch q.Difficulty {
	case model.DifficultyEasy, model.DifficultyMedium, model.DifficultyHard:
	default:
		return fmt.Errorf("unknown difficulty %q", q.Difficulty)
	}

	switch q.Type {
	case model.QuestionTypeMCQ:
		if len(q.Options) < 2 {
			return fmt.Errorf("mcq needs at least two options")
		}
		correct := 0
		for _, opt := range q.Options {
			if opt.IsCorrect {
				correct++
			}
		}
		if correct != 1 {
			return fmt.Errorf("mcq needs exactly one correct option, got %d", correct)
		}
	case model.QuestionTypeCoding:
		if len(q.TestCases) == 0 {
			return fmt.Errorf("coding question needs test cases")
		}
	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}
	return nil
}
