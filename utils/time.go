// Package utils provides utility functions for the application.
package utils

import (
	"fmt"
	"time"

	"github.com/sosodev/duration"
)

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// UTCNowPtr returns a pointer to the current time in UTC
func UTCNowPtr() *time.Time {
	now := UTCNow()
	return &now
}

// UTCNowAdd returns the current UTC time plus the given duration
func UTCNowAdd(d time.Duration) time.Time {
	return UTCNow().Add(d)
}

// UTCNowAddPtr returns a pointer to the current UTC time plus the given duration
func UTCNowAddPtr(d time.Duration) *time.Time {
	now := UTCNowAdd(d)
	return &now
}

// IsExpired checks if the given time is in the past (expired)
func IsExpired(t time.Time) bool {
	return UTCNow().After(t)
}

// IsExpiredPtr checks if the given time pointer is in the past (expired)
func IsExpiredPtr(t *time.Time) bool {
	if t == nil {
		return false
	}
	return IsExpired(*t)
}

// TimeToUTC converts a time to UTC if it's not already
func TimeToUTC(t time.Time) time.Time {
	return t.UTC()
}

// TimeToUTCPtr converts a time pointer to UTC if it's not already
func TimeToUTCPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := TimeToUTC(*t)
	return &utc
}

// DayStart truncates a time to midnight UTC of the same day.
func DayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseISOPeriod parses an ISO-8601 duration string such as "P30D" or
// "PT12H" into a time.Duration. Calendar units use fixed lengths
// (day = 24h, month = 30d, year = 365d), matching how invitation
// delay and expiry periods are interpreted.
func ParseISOPeriod(s string) (time.Duration, error) {
	d, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid ISO-8601 period %q: %w", s, err)
	}
	return d.ToTimeDuration(), nil
}

// AddISOPeriod returns t shifted forward by the given ISO-8601 period.
func AddISOPeriod(t time.Time, period string) (time.Time, error) {
	d, err := ParseISOPeriod(period)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(d), nil
}
