// Package judge runs coding submissions against test cases on a
// Judge0-compatible execution API.
package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/leave-assessment/internal/model"
)

// MaxScore is the scale of Evaluation.Score.
const MaxScore = 10

// Judge errors.
var (
	ErrUnsupportedLanguage = errors.New("language not supported")
	ErrNoTestCases         = errors.New("question has no test cases")
	ErrUnavailable         = errors.New("code judge unavailable")
)

// languageIDs maps submission languages to Judge0 language ids.
// Only languages with an id are executed.
var languageIDs = map[string]int{
	"javascript": 63, // Node.js
	"python":     0,
	"java":       0,
	"cpp":        0,
}

// Judge0 status ids.
const (
	statusAccepted    = 3
	statusWrongAnswer = 4
)

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client evaluates code through the Judge0 submissions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a Client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "judge_client").Logger(),
	}
}

// Supported reports whether language can be executed.
func Supported(language string) bool {
	return languageIDs[language] > 0
}

type submissionRequest struct {
	SourceCode string `json:"source_code"`
	LanguageID int    `json:"language_id"`
	Stdin      string `json:"stdin"`
}

type submissionResult struct {
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message"`
	Status        struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
}

// Evaluate runs code once per test case and aggregates the verdicts.
// Hidden cases only expose pass/fail. A case that fails to run counts as
// failed; a transport failure aborts the whole evaluation with ErrUnavailable.
func (c *Client) Evaluate(ctx context.Context, code, language string, cases []model.TestCase) (*model.Evaluation, error) {
	langID := languageIDs[language]
	if langID == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}
	if len(cases) == 0 {
		return nil, ErrNoTestCases
	}

	eval := &model.Evaluation{TotalCount: len(cases)}
	for _, tc := range cases {
		res, err := c.submit(ctx, submissionRequest{SourceCode: code, LanguageID: langID, Stdin: tc.Input})
		if err != nil {
			return nil, err
		}

		cr := model.CaseResult{Hidden: tc.IsHidden}
		actual := NormalizeOutput(deref(res.Stdout))
		switch res.Status.ID {
		case statusAccepted, statusWrongAnswer:
			cr.Passed = actual == NormalizeOutput(tc.ExpectedOutput)
		default:
			cr.Error = firstNonEmpty(deref(res.CompileOutput), deref(res.Stderr), deref(res.Message), res.Status.Description)
		}
		if cr.Passed {
			eval.PassedCount++
		}
		if !tc.IsHidden {
			cr.Input = tc.Input
			cr.Expected = tc.ExpectedOutput
			cr.Actual = actual
		} else {
			cr.Error = ""
		}
		eval.Cases = append(eval.Cases, cr)
	}

	eval.AllPassed = eval.PassedCount == eval.TotalCount
	eval.Score = Score(eval.PassedCount, eval.TotalCount)
	return eval, nil
}

func (c *Client) submit(ctx context.Context, body submissionRequest) (*submissionResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/submissions?base64_encoded=false&wait=true", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Auth-Token", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Msg("judge request failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn().Int("status", resp.StatusCode).Str("body", string(msg)).Msg("judge returned error status")
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out submissionResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return &out, nil
}

// Score maps passed/total onto the 0..MaxScore scale, rounded to the
// nearest integer.
func Score(passed, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(passed) / float64(total) * MaxScore)
}

// NormalizeOutput trims surrounding whitespace and unifies line endings.
func NormalizeOutput(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
