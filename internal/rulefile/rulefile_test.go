package rulefile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evielle/librecur/recurrence"
)

func TestParseFull(t *testing.T) {
	doc := `
frequency: weekly
interval: 2
days_of_week: [2, 4, 6]
anchor: 2026-01-04T09:00:00Z
end_date: 2026-12-31T23:59:59Z
max_occurrences: 20
repeat_mode: from_completion_date
preferred_time: "09:30"
timezone: America/New_York
recreate_if_incomplete: true
`
	rule, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, recurrence.FreqWeekly, rule.Frequency)
	assert.Equal(t, 2, rule.Interval)
	assert.Equal(t, []int{2, 4, 6}, rule.DaysOfWeek)
	assert.Equal(t, time.Date(2026, time.January, 4, 9, 0, 0, 0, time.UTC), rule.Anchor.UTC())
	require.NotNil(t, rule.EndDate)
	assert.Equal(t, 2026, rule.EndDate.Year())
	assert.Equal(t, 20, rule.MaxOccurrences)
	assert.Equal(t, recurrence.FromCompletionDate, rule.RepeatMode)
	require.NotNil(t, rule.PreferredTime)
	assert.Equal(t, recurrence.ClockTime{Hour: 9, Minute: 30}, *rule.PreferredTime)
	assert.Equal(t, "America/New_York", rule.TimeZone)
	assert.True(t, rule.RecreateIfIncomplete)
}

func TestParseDefaults(t *testing.T) {
	rule, err := Parse([]byte("frequency: daily"))
	require.NoError(t, err)

	assert.Equal(t, recurrence.FreqDaily, rule.Frequency)
	assert.Equal(t, 1, rule.Interval)
	assert.Equal(t, recurrence.FromOriginalDate, rule.RepeatMode)
	assert.Nil(t, rule.PreferredTime)
	assert.Nil(t, rule.EndDate)
	assert.True(t, rule.Anchor.IsZero())
}

func TestParseFrequencyCaseInsensitive(t *testing.T) {
	rule, err := Parse([]byte("frequency: MONTHLY\nday_of_month: 15"))
	require.NoError(t, err)
	assert.Equal(t, recurrence.FreqMonthly, rule.Frequency)
	assert.Equal(t, 15, rule.DayOfMonth)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"unknown frequency", "frequency: fortnightly"},
		{"missing frequency", "interval: 2"},
		{"unknown repeat mode", "frequency: daily\nrepeat_mode: never"},
		{"bad preferred time", "frequency: daily\npreferred_time: \"half past nine\""},
		{"weekday out of range", "frequency: weekly\ndays_of_week: [0, 3]"},
		{"bad timezone", "frequency: daily\ntimezone: Mars/Olympus_Mons"},
		{"unresolvable custom", "frequency: custom"},
		{"not yaml", "frequency: [unterminated"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			assert.Error(t, err)
		})
	}
}

func TestParseValidatesClockRange(t *testing.T) {
	_, err := Parse([]byte("frequency: daily\npreferred_time: \"25:00\""))
	assert.ErrorIs(t, err, recurrence.ErrInvalidRule)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rule.yaml")
	require.NoError(t, os.WriteFile(path, []byte("frequency: daily\ninterval: 3"), 0o600))

	rule, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, recurrence.FreqDaily, rule.Frequency)
	assert.Equal(t, 3, rule.Interval)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
