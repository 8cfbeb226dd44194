package utils

import "time"

const DateLayout = "2006-01-02"

// DateKey formats a time as its UTC calendar date (YYYY-MM-DD). Daily
// windows across the engine key on this string so client clocks and server
// timezones cannot disagree on which day a session belongs to.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// TodayKey returns the current UTC date key.
func TodayKey() string {
	return DateKey(time.Now())
}

// YesterdayKey returns the UTC date key for the day before t.
func YesterdayKey(t time.Time) string {
	return DateKey(t.UTC().AddDate(0, 0, -1))
}

// TruncateToDateUTC truncates the given time to midnight (00:00:00) in UTC,
// matching PostgreSQL's DATE() behavior.
func TruncateToDateUTC(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// PeriodStart returns the start boundary of the leaderboard period containing
// t: UTC midnight for "daily", the most recent Monday 00:00 UTC for "weekly",
// the first of the month for "monthly". Unknown periods get the zero time,
// which selects everything.
func PeriodStart(period string, t time.Time) time.Time {
	t = t.UTC()
	switch period {
	case "daily":
		return TruncateToDateUTC(t)
	case "weekly":
		day := TruncateToDateUTC(t)
		// Weekday() has Sunday = 0; shift so Monday starts the week
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case "monthly":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Time{}
	}
}
