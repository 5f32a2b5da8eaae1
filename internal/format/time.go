package format

import (
	"fmt"
	"strings"
	"time"
)

// LocalTime applies the forecast's UTC offset to a unix timestamp. The result
// is expressed in UTC so that its wall clock reads as local time.
func LocalTime(unix, utcOffsetSeconds int64) time.Time {
	return time.Unix(unix+utcOffsetSeconds, 0).UTC()
}

// DateText renders "MONDAY JANUARY 5, 2026".
func DateText(t time.Time) string {
	return fmt.Sprintf("%s %s %d, %d",
		strings.ToUpper(t.Weekday().String()),
		strings.ToUpper(t.Month().String()),
		t.Day(),
		t.Year(),
	)
}

// WeekdayAbbrev renders "MON", "TUE", ...
func WeekdayAbbrev(t time.Time) string {
	return strings.ToUpper(t.Weekday().String()[:3])
}

// SunriseText renders the hour as-is with an AM suffix.
func SunriseText(t time.Time) string {
	return fmt.Sprintf("%2d:%02d AM", t.Hour(), t.Minute())
}

// SunsetText assumes an afternoon sunset: it subtracts 12 from the hour and
// always appends PM. Sunsets before noon render a negative or zero hour.
func SunsetText(t time.Time) string {
	return fmt.Sprintf("%2d:%02d PM", t.Hour()-12, t.Minute())
}
