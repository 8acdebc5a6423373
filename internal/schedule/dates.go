package schedule

import (
	"regexp"
	"time"
)

// dateLayout is the canonical booking-date form used across the store API.
const dateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidDate reports whether date is a real calendar date in YYYY-MM-DD form.
func ValidDate(date string) bool {
	if !datePattern.MatchString(date) {
		return false
	}
	_, err := time.Parse(dateLayout, date)
	return err == nil
}

// Today formats now in the clinic's timezone as a canonical booking date.
// The appointment list view always shows the clinic-local day regardless of
// where the server runs.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(dateLayout)
}
