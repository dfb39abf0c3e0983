package recurring

import "time"

// Horizon limits: occurrences are materialized eagerly, so every series is
// capped at MaxOccurrences rows and HorizonYears into the future regardless
// of its end date. A weekly interval-1 rule over two years already comes
// close to the row ceiling.
const (
	MaxOccurrences = 100
	HorizonYears   = 2
)

// daysInMonth returns the number of days in the given month.
func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// clampDay clamps a day-of-month to what the target month actually has,
// so day 31 in February yields the 28th (or 29th in a leap year).
func clampDay(year int, month time.Month, day int) int {
	if last := daysInMonth(year, month); day > last {
		return last
	}
	return day
}

// addMonths advances a date by n months keeping the day-of-month, clamped to
// the target month's length instead of rolling over into the next month.
func addMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	// Normalize the target year/month without the day so Jan 31 + 1 month
	// lands in February, not March.
	target := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	ty, tm, _ := target.Date()
	return time.Date(ty, tm, clampDay(ty, tm, day), 0, 0, 0, 0, t.Location())
}

// setDay overwrites the day-of-month component, clamped to month length.
func setDay(t time.Time, day int) time.Time {
	year, month, _ := t.Date()
	return time.Date(year, month, clampDay(year, month, day), 0, 0, 0, 0, t.Location())
}

// NextOccurrence computes the next occurrence date strictly after from for
// the given rule. dayOfMonth anchors monthly, quarterly and annual rules;
// it is ignored for weekly rules.
func NextOccurrence(from time.Time, freq Frequency, interval int, dayOfMonth *int) time.Time {
	switch freq {
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7*interval)

	case FrequencyMonthly:
		if dayOfMonth == nil {
			return addMonths(from, interval)
		}
		// Try anchoring within the current month first; if that does not
		// move us forward, advance by the interval and anchor there.
		next := setDay(from, *dayOfMonth)
		if next.After(from) {
			return next
		}
		return setDay(addMonths(from, interval), *dayOfMonth)

	case FrequencyQuarterly:
		next := addMonths(from, 3*interval)
		if dayOfMonth != nil {
			next = setDay(next, *dayOfMonth)
		}
		return next

	case FrequencyAnnual:
		next := addMonths(from, 12*interval)
		if dayOfMonth != nil {
			next = setDay(next, *dayOfMonth)
		}
		return next

	default:
		return from
	}
}

// GenerateSequence produces the ordered occurrence dates for a rule: the
// start date itself, then repeated NextOccurrence steps, stopping at the
// first of end date exceeded, maxOccurrences reached, or horizon exceeded.
func GenerateSequence(start time.Time, freq Frequency, interval int, dayOfMonth *int, endDate *time.Time, maxOccurrences int, horizon time.Time) []time.Time {
	var sequence []time.Time

	d := start
	for len(sequence) < maxOccurrences {
		if endDate != nil && d.After(*endDate) {
			break
		}
		if d.After(horizon) {
			break
		}
		sequence = append(sequence, d)

		next := NextOccurrence(d, freq, interval, dayOfMonth)
		if !next.After(d) {
			// A rule that does not advance would loop forever.
			break
		}
		d = next
	}

	return sequence
}
