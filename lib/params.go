package lib

import (
	"strings"
	"time"

	"github.com/warelink/wpmsync/models"
)

// DynamicPrefix marks a parameter value that is computed at run time rather
// than taken literally from the config.
const DynamicPrefix = "DYNAMIC:"

// ResolveParameters expands an endpoint's configured parameters into the
// concrete query values for one call. Comparator objects pass through and
// are JSON-serialized by the request layer; bare strings have any DYNAMIC:
// placeholder resolved against now. A non-zero dateOverride replaces the
// PreviousMondayDate computation with the literal date being processed,
// which is how the incremental driver iterates explicit dates.
func ResolveParameters(params map[string]models.ParamValue, now time.Time, dateOverride time.Time) map[string]interface{} {
	if len(params) == 0 {
		return nil
	}

	resolved := make(map[string]interface{}, len(params))
	for name, value := range params {
		if value.Object {
			resolved[name] = value
			continue
		}
		resolved[name] = ResolveDynamic(value.Raw, now, dateOverride)
	}
	return resolved
}

// ResolveDynamic expands a single DYNAMIC: placeholder. Unrecognized
// keywords pass through as the literal string; config validation rejects
// them up front so one reaching this point at run time is deliberate.
func ResolveDynamic(value string, now time.Time, dateOverride time.Time) string {
	if !strings.HasPrefix(value, DynamicPrefix) {
		return value
	}

	switch strings.TrimPrefix(value, DynamicPrefix) {
	case "PreviousMondayDate":
		if !dateOverride.IsZero() {
			return dateOverride.Format(dateLayout)
		}
		return previousMonday(now).Format(dateLayout)
	default:
		return value
	}
}

// IsKnownDynamic reports whether a bare parameter value is either literal or
// a recognized DYNAMIC: keyword.
func IsKnownDynamic(value string) bool {
	if !strings.HasPrefix(value, DynamicPrefix) {
		return true
	}
	switch strings.TrimPrefix(value, DynamicPrefix) {
	case "PreviousMondayDate":
		return true
	}
	return false
}

// previousMonday returns the Monday of the ISO week immediately preceding
// the ISO week containing now.
func previousMonday(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7
	}

	monday := day.AddDate(0, 0, -(weekday - 1))
	return monday.AddDate(0, 0, -7)
}
