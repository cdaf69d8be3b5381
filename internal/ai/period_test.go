package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPeriod(t *testing.T) {
	tests := []struct {
		text   string
		period Period
		found  bool
	}{
		{"сколько сообщений сегодня?", PeriodToday, true},
		{"what happened today", PeriodToday, true},
		{"кто писал вчера", PeriodYesterday, true},
		{"activity this week", PeriodWeek, true},
		{"что было на прошлой неделе", PeriodLastWeek, true},
		{"stats for last week", PeriodLastWeek, true},
		{"итоги за месяц", PeriodMonth, true},
		{"numbers for last month", PeriodLastMonth, true},
		{"сколько задач за год", PeriodYear, true},
		{"who is the most active person", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		period, found := DetectPeriod(tt.text)
		assert.Equal(t, tt.found, found, "text: %q", tt.text)
		assert.Equal(t, tt.period, period, "text: %q", tt.text)
	}
}

func TestDetectPeriodSpecificBeatsSubstring(t *testing.T) {
	// "last week" contains "week"; the specific phrase must win
	period, found := DetectPeriod("summary for LAST WEEK please")
	assert.True(t, found)
	assert.Equal(t, PeriodLastWeek, period)
}
