// Package rulefile loads recurrence rules from YAML documents, the
// format the recurcal CLI consumes.
//
// Example:
//
//	frequency: weekly
//	interval: 2
//	days_of_week: [2, 4, 6]   # 1=Sunday .. 7=Saturday
//	anchor: 2026-01-04T09:00:00Z
//	preferred_time: "09:30"
//	timezone: America/New_York
//	end_date: 2026-12-31T23:59:59Z
package rulefile

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evielle/librecur/recurrence"
)

// document is the YAML shape; string-typed enums and clock times get
// converted into the Rule's richer types.
type document struct {
	Frequency            string     `yaml:"frequency"`
	Interval             int        `yaml:"interval"`
	DaysOfWeek           []int      `yaml:"days_of_week"`
	DayOfMonth           int        `yaml:"day_of_month"`
	Anchor               *time.Time `yaml:"anchor"`
	EndDate              *time.Time `yaml:"end_date"`
	MaxOccurrences       int        `yaml:"max_occurrences"`
	RepeatMode           string     `yaml:"repeat_mode"`
	PreferredTime        string     `yaml:"preferred_time"`
	TimeZone             string     `yaml:"timezone"`
	RecreateIfIncomplete bool       `yaml:"recreate_if_incomplete"`
}

var frequencies = map[string]recurrence.Frequency{
	"minutely": recurrence.FreqMinutely,
	"hourly":   recurrence.FreqHourly,
	"daily":    recurrence.FreqDaily,
	"weekly":   recurrence.FreqWeekly,
	"monthly":  recurrence.FreqMonthly,
	"yearly":   recurrence.FreqYearly,
	"custom":   recurrence.FreqCustom,
}

// Parse decodes a YAML rule document and validates the resulting rule.
func Parse(data []byte) (recurrence.Rule, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return recurrence.Rule{}, fmt.Errorf("parsing rule document: %w", err)
	}
	return doc.toRule()
}

// Load reads and parses a YAML rule file.
func Load(path string) (recurrence.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return recurrence.Rule{}, err
	}
	return Parse(data)
}

func (d document) toRule() (recurrence.Rule, error) {
	var rule recurrence.Rule

	freq, ok := frequencies[strings.ToLower(d.Frequency)]
	if !ok {
		return rule, fmt.Errorf("%w: unknown frequency %q", recurrence.ErrInvalidRule, d.Frequency)
	}
	rule.Frequency = freq

	rule.Interval = d.Interval
	if rule.Interval == 0 {
		rule.Interval = 1
	}
	rule.DaysOfWeek = d.DaysOfWeek
	rule.DayOfMonth = d.DayOfMonth
	rule.MaxOccurrences = d.MaxOccurrences
	rule.TimeZone = d.TimeZone
	rule.RecreateIfIncomplete = d.RecreateIfIncomplete

	if d.Anchor != nil {
		rule.Anchor = *d.Anchor
	}
	rule.EndDate = d.EndDate

	switch strings.ToLower(d.RepeatMode) {
	case "", "from_original_date":
		rule.RepeatMode = recurrence.FromOriginalDate
	case "from_completion_date":
		rule.RepeatMode = recurrence.FromCompletionDate
	default:
		return rule, fmt.Errorf("%w: unknown repeat mode %q", recurrence.ErrInvalidRule, d.RepeatMode)
	}

	if d.PreferredTime != "" {
		pt, err := parseClock(d.PreferredTime)
		if err != nil {
			return rule, err
		}
		rule.PreferredTime = &pt
	}

	return rule, rule.Validate()
}

func parseClock(s string) (recurrence.ClockTime, error) {
	var pt recurrence.ClockTime
	if _, err := fmt.Sscanf(s, "%d:%d", &pt.Hour, &pt.Minute); err != nil {
		return pt, fmt.Errorf("%w: preferred time %q, want HH:MM", recurrence.ErrInvalidRule, s)
	}
	return pt, nil
}
