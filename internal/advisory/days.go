package advisory

import (
	"fmt"
	"time"
)

// Urgency is the display class of a date relative to today.
type Urgency string

const (
	UrgencyOverdue Urgency = "overdue"
	UrgencyToday   Urgency = "today"
	UrgencySoon    Urgency = "soon"
	UrgencyFuture  Urgency = "future"
)

// SoonWithinDays is the inclusive upper bound of UrgencySoon.
const SoonWithinDays = 7

// ComputeDaysUntil returns the number of calendar days from now to start, both taken
// in now's location. Negative means start is in the past.
func ComputeDaysUntil(start, now time.Time) int {
	loc := now.Location()
	sy, sm, sd := start.In(loc).Date()
	ny, nm, nd := now.Date()
	a := time.Date(sy, sm, sd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(a.Sub(b).Hours() / 24)
}

// Classify maps a day difference to its urgency class.
func Classify(days int) Urgency {
	switch {
	case days < 0:
		return UrgencyOverdue
	case days == 0:
		return UrgencyToday
	case days <= SoonWithinDays:
		return UrgencySoon
	default:
		return UrgencyFuture
	}
}

// Label renders D-3, D-Day or D+2.
func Label(days int) string {
	switch {
	case days > 0:
		return fmt.Sprintf("D-%d", days)
	case days == 0:
		return "D-Day"
	default:
		return fmt.Sprintf("D+%d", -days)
	}
}
