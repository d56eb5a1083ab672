package entity

import "time"

// Age returns the number of whole calendar years between dob and now. The
// count is reduced by one when the birth month/day has not yet occurred in
// now's year.
func Age(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

// AgeFromString parses a YYYY-MM-DD birth date and returns the derived age.
func AgeFromString(dob string, now time.Time) (int, error) {
	parsed, err := ParseDate(dob)
	if err != nil {
		return 0, err
	}
	return Age(parsed, now), nil
}

// ParseDate parses a wire date. RFC3339 timestamps are accepted and truncated
// to their date component.
func ParseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// Today formats now as a wire date in UTC.
func Today(now time.Time) string {
	return now.UTC().Format(DateLayout)
}
