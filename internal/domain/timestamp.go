package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/tidwall/gjson"
)

// TimestampLayout is how converted epoch timestamps are written.
const TimestampLayout = "2006/01/02 15:04:05"

var timestampLayouts = []string{
	TimestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FormatEpoch renders epoch seconds with TimestampLayout in UTC.
func FormatEpoch(sec float64) string {
	return EpochTime(sec).Format(TimestampLayout)
}

// EpochTime converts fractional epoch seconds to a UTC time.
func EpochTime(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}

// ParseTimestamp reads a timestamp stored either as epoch seconds or as a
// string in one of the known layouts. Strings without a zone are UTC.
func ParseTimestamp(v gjson.Result) (time.Time, error) {
	switch v.Type {
	case gjson.Number:
		return EpochTime(v.Float()), nil
	case gjson.String:
		return ParseTimeString(v.String())
	default:
		return time.Time{}, fmt.Errorf("%w: timestamp %q is not a number or string", ErrMalformedRecord, v.Raw)
	}
}

// ParseTimeString parses s with the known layouts.
func ParseTimeString(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised timestamp %q", ErrMalformedRecord, s)
}
