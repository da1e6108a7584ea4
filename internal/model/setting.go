package model

import (
	"strconv"
	"time"
)

// AppSetting represents a key-value pair for global application configuration.
type AppSetting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Keys of the app_settings rows that make up the assessment Settings.
const (
	SettingMCQCount                = "mcq_count"
	SettingCodingCount             = "coding_count"
	SettingMCQTimeLimit            = "mcq_time_limit"
	SettingCodingTimeLimit         = "coding_time_limit"
	SettingPassingPercentage       = "passing_percentage"
	SettingRound1PassingPercentage = "round1_passing_percentage"
	SettingMaxViolations           = "max_violations"
	SettingAutoSubmitOnViolation   = "auto_submit_on_violation"
	SettingViolationPenaltyPercent = "violation_penalty_percent"
)

// Settings is the process-wide assessment configuration snapshot.
type Settings struct {
	MCQCount                int     `json:"mcq_count"`
	CodingCount             int     `json:"coding_count"`
	MCQTimeLimit            int     `json:"mcq_time_limit"`    // minutes
	CodingTimeLimit         int     `json:"coding_time_limit"` // minutes
	PassingPercentage       float64 `json:"passing_percentage"`
	Round1PassingPercentage float64 `json:"round1_passing_percentage"`
	MaxViolations           int     `json:"max_violations"`
	AutoSubmitOnViolation   bool    `json:"auto_submit_on_violation"`
	ViolationPenaltyPercent float64 `json:"violation_penalty_percent"`
}

// DefaultSettings is used when no configuration has been stored.
func DefaultSettings() Settings {
	return Settings{
		MCQCount:                10,
		CodingCount:             2,
		MCQTimeLimit:            30,
		CodingTimeLimit:         45,
		PassingPercentage:       70,
		Round1PassingPercentage: 60,
		MaxViolations:           5,
		AutoSubmitOnViolation:   true,
		ViolationPenaltyPercent: 5,
	}
}

// ApplyKeyValues overlays stored key/value rows onto s. Unknown keys and
// values that fail to parse are ignored so the current value is kept.
func (s *Settings) ApplyKeyValues(kv map[string]string) {
	for key, raw := range kv {
		switch key {
		case SettingMCQCount:
			setInt(&s.MCQCount, raw)
		case SettingCodingCount:
			setInt(&s.CodingCount, raw)
		case SettingMCQTimeLimit:
			setInt(&s.MCQTimeLimit, raw)
		case SettingCodingTimeLimit:
			setInt(&s.CodingTimeLimit, raw)
		case SettingPassingPercentage:
			setFloat(&s.PassingPercentage, raw)
		case SettingRound1PassingPercentage:
			setFloat(&s.Round1PassingPercentage, raw)
		case SettingMaxViolations:
			setInt(&s.MaxViolations, raw)
		case SettingAutoSubmitOnViolation:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.AutoSubmitOnViolation = b
			}
		case SettingViolationPenaltyPercent:
			setFloat(&s.ViolationPenaltyPercent, raw)
		}
	}
}

// KeyValues renders s as app_settings rows.
func (s Settings) KeyValues() map[string]string {
	return map[string]string{
		SettingMCQCount:                strconv.Itoa(s.MCQCount),
		SettingCodingCount:             strconv.Itoa(s.CodingCount),
		SettingMCQTimeLimit:            strconv.Itoa(s.MCQTimeLimit),
		SettingCodingTimeLimit:         strconv.Itoa(s.CodingTimeLimit),
		SettingPassingPercentage:       strconv.FormatFloat(s.PassingPercentage, 'f', -1, 64),
		SettingRound1PassingPercentage: strconv.FormatFloat(s.Round1PassingPercentage, 'f', -1, 64),
		SettingMaxViolations:           strconv.Itoa(s.MaxViolations),
		SettingAutoSubmitOnViolation:   strconv.FormatBool(s.AutoSubmitOnViolation),
		SettingViolationPenaltyPercent: strconv.FormatFloat(s.ViolationPenaltyPercent, 'f', -1, 64),
	}
}

func setInt(dst *int, raw string) {
	if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
		*dst = n
	}
}

func setFloat(dst *float64, raw string) {
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f >= 0 {
		*dst = f
	}
}

// UpdateSettingsRequest is the payload for updating the assessment settings.
// Nil fields keep their current value.
type UpdateSettingsRequest struct {
	MCQCount                *int     `json:"mcq_count" binding:"omitempty,min=0,max=50"`
	CodingCount             *int     `json:"coding_count" binding:"omitempty,min=0,max=10"`
	MCQTimeLimit            *int     `json:"mcq_time_limit" binding:"omitempty,min=1,max=480"`
	CodingTimeLimit         *int     `json:"coding_time_limit" binding:"omitempty,min=1,max=480"`
	PassingPercentage       *float64 `json:"passing_percentage" binding:"omitempty,min=0,max=100"`
	Round1PassingPercentage *float64 `json:"round1_passing_percentage" binding:"omitempty,min=0,max=100"`
	MaxViolations           *int     `json:"max_violations" binding:"omitempty,min=1,max=100"`
	AutoSubmitOnViolation   *bool    `json:"auto_submit_on_violation"`
	ViolationPenaltyPercent *float64 `json:"violation_penalty_percent" binding:"omitempty,min=0,max=25"`
}

// Apply overlays the non-nil request fields onto s.
func (r *UpdateSettingsRequest) Apply(s *Settings) {
	if r.MCQCount != nil {
		s.MCQCount = *r.MCQCount
	}
	if r.CodingCount != nil {
		s.CodingCount = *r.CodingCount
	}
	if r.MCQTimeLimit != nil {
		s.MCQTimeLimit = *r.MCQTimeLimit
	}
	if r.CodingTimeLimit != nil {
		s.CodingTimeLimit = *r.CodingTimeLimit
	}
	if r.PassingPercentage != nil {
		s.PassingPercentage = *r.PassingPercentage
	}
	if r.Round1PassingPercentage != nil {
		s.Round1PassingPercentage = *r.Round1PassingPercentage
	}
	if r.MaxViolations != nil {
		s.MaxViolations = *r.MaxViolations
	}
	if r.AutoSubmitOnViolation != nil {
		s.AutoSubmitOnViolation = *r.AutoSubmitOnViolation
	}
	if r.ViolationPenaltyPercent != nil {
		s.ViolationPenaltyPercent = *r.ViolationPenaltyPercent
	}
}
