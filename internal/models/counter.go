package models

import "time"

// DateLayout is the calendar-day key used for lazy daily resets.
const DateLayout = "2006-01-02"

// Counter is a user-defined tally. CurrentCount is the all-time total,
// TodayCount the portion accumulated on LastResetDate's calendar day.
type Counter struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	UserID        int    `json:"user_id"`
	CurrentCount  int    `json:"current_count"`
	TodayCount    int    `json:"today_count"`
	LastResetDate string `json:"last_reset_date"`
}

// ApplyDailyReset zeroes TodayCount if the counter's reset day is behind
// today. Returns true if a reset happened. The reset is lazy: callers invoke
// this on the next read or write, there is no background clock.
func (c *Counter) ApplyDailyReset(today string) bool {
	if c.LastResetDate == today {
		return false
	}
	c.TodayCount = 0
	c.LastResetDate = today
	return true
}

// Today returns the current local calendar day in DateLayout.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}

// CounterLogEntry is an audit record for an explicit counter adjustment
// (the exact-set path writes one per adjustment).
type CounterLogEntry struct {
	ID        string    `json:"id"`
	CounterID string    `json:"counter_id"`
	UserID    int       `json:"user_id"`
	Delta     int       `json:"delta"`
	Source    string    `json:"source"`
	LoggedAt  time.Time `json:"logged_at"`
}
