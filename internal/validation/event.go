// Package validation holds the pure input checks applied before anything is
// written to the store.
package validation

import (
	"encoding/json"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Shivanand-hulikatti/event-registration/internal/model"
)

// MaxTextLength bounds title and location.
const MaxTextLength = 200

// datetimeLayouts are tried in order. Values without a zone are read as UTC.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ValidateEvent checks every field of an event and returns all violations.
// An empty result means the input is acceptable.
func ValidateEvent(title, datetime, location string, capacity json.Number) []string {
	return ValidateEventAt(title, datetime, location, capacity, time.Now())
}

// ValidateEventAt is ValidateEvent with an explicit clock.
func ValidateEventAt(title, datetime, location string, capacity json.Number, now time.Time) []string {
	var errs []string

	switch {
	case strings.TrimSpace(title) == "":
		errs = append(errs, "Title is required")
	case utf8.RuneCountInString(title) > MaxTextLength:
		errs = append(errs, "Title must be less than 200 characters")
	}

	if strings.TrimSpace(datetime) == "" {
		errs = append(errs, "Date and time are required")
	} else if at, ok := ParseDatetime(datetime); !ok {
		errs = append(errs, "Invalid date format")
	} else if !at.After(now) {
		errs = append(errs, "Event date must be in the future")
	}

	switch {
	case strings.TrimSpace(location) == "":
		errs = append(errs, "Location is required")
	case utf8.RuneCountInString(location) > MaxTextLength:
		errs = append(errs, "Location must be less than 200 characters")
	}

	if msg := checkCapacity(capacity); msg != "" {
		errs = append(errs, msg)
	}

	return errs
}

func checkCapacity(capacity json.Number) string {
	if capacity == "" {
		return "Capacity is required"
	}
	f, err := capacity.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return "Capacity must be a number"
	}
	if f < 1 || f > model.MaxCapacity {
		return "Capacity must be between 1 and 1000"
	}
	if f != math.Trunc(f) {
		return "Capacity must be a whole number"
	}
	return ""
}

// ParseCapacity converts an already validated capacity.
func ParseCapacity(capacity json.Number) (int, bool) {
	f, err := capacity.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// ParseDatetime accepts RFC 3339 as well as the zone-less forms produced by
// HTML date and datetime-local inputs.
func ParseDatetime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Sanitize trims surrounding whitespace and strips angle brackets so stored
// text cannot open markup when rendered. Nothing else is altered.
func Sanitize(input string) string {
	return strings.Map(func(r rune) rune {
		if r == '<' || r == '>' {
			return -1
		}
		return r
	}, strings.TrimSpace(input))
}
