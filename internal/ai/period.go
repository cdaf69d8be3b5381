package ai

import "strings"

// Period is a normalized relative-time tag detected in a question. The
// tag is appended to the routing prompt as a hint; the model still
// writes the final SQL.
type Period string

const (
	PeriodToday     Period = "today"
	PeriodYesterday Period = "yesterday"
	PeriodWeek      Period = "week"
	PeriodMonth     Period = "month"
	PeriodLastWeek  Period = "last_week"
	PeriodLastMonth Period = "last_month"
	PeriodYear      Period = "year"
)

// periodKeywords maps relative-time phrases (Russian and English) to
// period tags. Order matters: more specific phrases come before their
// substrings ("last week" before "week").
var periodKeywords = []struct {
	keyword string
	period  Period
}{
	{"прошлой неделе", PeriodLastWeek},
	{"на прошлой неделе", PeriodLastWeek},
	{"за прошлую неделю", PeriodLastWeek},
	{"last week", PeriodLastWeek},
	{"прошлый месяц", PeriodLastMonth},
	{"last month", PeriodLastMonth},
	{"сегодня", PeriodToday},
	{"today", PeriodToday},
	{"вчера", PeriodYesterday},
	{"yesterday", PeriodYesterday},
	{"этой неделе", PeriodWeek},
	{"на этой неделе", PeriodWeek},
	{"за неделю", PeriodWeek},
	{"неделю", PeriodWeek},
	{"неделя", PeriodWeek},
	{"this week", PeriodWeek},
	{"week", PeriodWeek},
	{"в этом месяце", PeriodMonth},
	{"текущий месяц", PeriodMonth},
	{"за месяц", PeriodMonth},
	{"месяц", PeriodMonth},
	{"this month", PeriodMonth},
	{"month", PeriodMonth},
	{"в этом году", PeriodYear},
	{"за год", PeriodYear},
	{"год", PeriodYear},
	{"this year", PeriodYear},
	{"year", PeriodYear},
}

// DetectPeriod scans text for a relative-time phrase and returns the
// normalized tag of the first match.
func DetectPeriod(text string) (Period, bool) {
	lowered := strings.ToLower(text)
	for _, entry := range periodKeywords {
		if strings.Contains(lowered, entry.keyword) {
			return entry.period, true
		}
	}
	return "", false
}
