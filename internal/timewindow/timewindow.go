// Package timewindow turns local calendar input plus a timezone into UTC
// instants used as query window boundaries.
package timewindow

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/marcin-skalski/mngtool/internal/apperrors"
)

// maxIterations bounds the fixed-point search in zone resolution.
const maxIterations = 5

// Kind tags a Spec as an IANA zone or a fixed offset.
type Kind string

const (
	KindIANA   Kind = "iana"
	KindOffset Kind = "offset"
)

// Spec is a resolved timezone. Exactly one of Identifier/OffsetMinutes is
// meaningful, selected by Kind.
type Spec struct {
	Kind          Kind
	Identifier    string
	OffsetMinutes int

	loc *time.Location
}

// LocalDateTime is a wall-clock value with minute precision.
type LocalDateTime struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
}

func (v LocalDateTime) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d", v.Year, v.Month, v.Day, v.Hour, v.Minute)
}

func (v LocalDateTime) utcWall() time.Time {
	return time.Date(v.Year, time.Month(v.Month), v.Day, v.Hour, v.Minute, 0, 0, time.UTC)
}

var offsetPattern = regexp.MustCompile(`^([+-])(\d{2}):?(\d{2})$`)

// ResolveTimeZone parses a --timezone value. Empty or "local" yields the
// process zone; "+HHMM"/"-HH:MM" yields a fixed offset; anything else must be
// an IANA identifier.
func ResolveTimeZone(raw string) (Spec, string, error) {
	if raw == "" || strings.EqualFold(raw, "local") {
		name, loc := systemZone()
		return Spec{Kind: KindIANA, Identifier: name, loc: loc}, name, nil
	}

	if m := offsetPattern.FindStringSubmatch(raw); m != nil {
		hours, _ := strconv.Atoi(m[2])
		minutes, _ := strconv.Atoi(m[3])
		total := hours*60 + minutes
		if m[1] == "-" {
			total = -total
		}
		return Spec{Kind: KindOffset, OffsetMinutes: total}, describeOffset(total), nil
	}

	loc, err := time.LoadLocation(raw)
	if err != nil {
		return Spec{}, "", apperrors.Validation(
			"invalid --timezone value: %s. Use an IANA zone (e.g. Asia/Tokyo) or a numeric offset such as +0900", raw)
	}
	return Spec{Kind: KindIANA, Identifier: raw, loc: loc}, raw, nil
}

func systemZone() (string, *time.Location) {
	if tz := os.Getenv("TZ"); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return tz, loc
		}
	}
	name := time.Local.String()
	if name == "" {
		name = "UTC"
	}
	return name, time.Local
}

func describeOffset(minutes int) string {
	sign := "+"
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, minutes/60, minutes%60)
}

// ParseLocalDateTime accepts YYYYMMDD or YYYYMMDDHHMM. Separators are
// ignored; only the digits are counted.
func ParseLocalDateTime(raw string) (LocalDateTime, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) != 8 && len(digits) != 12 {
		return LocalDateTime{}, apperrors.Validation(
			"invalid --window-boundary %q. Use YYYYMMDD or YYYYMMDDHHMM (digits only)", raw)
	}

	num := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}
	v := LocalDateTime{
		Year:  num(digits[0:4]),
		Month: num(digits[4:6]),
		Day:   num(digits[6:8]),
	}
	if len(digits) == 12 {
		v.Hour = num(digits[8:10])
		v.Minute = num(digits[10:12])
	}

	switch {
	case v.Month < 1 || v.Month > 12:
		return LocalDateTime{}, apperrors.Validation("month must be between 01 and 12 for --window-boundary")
	case v.Day < 1 || v.Day > 31:
		return LocalDateTime{}, apperrors.Validation("day must be between 01 and 31 for --window-boundary")
	case v.Hour > 23:
		return LocalDateTime{}, apperrors.Validation("hour must be between 00 and 23 for --window-boundary")
	case v.Minute > 59:
		return LocalDateTime{}, apperrors.Validation("minute must be between 00 and 59 for --window-boundary")
	}

	// time.Date normalizes out-of-range days, so a changed date means the
	// day does not exist in that month.
	t := v.utcWall()
	if t.Year() != v.Year || int(t.Month()) != v.Month || t.Day() != v.Day {
		return LocalDateTime{}, apperrors.Validation(
			"invalid calendar date for --window-boundary: %04d-%02d-%02d", v.Year, v.Month, v.Day)
	}
	return v, nil
}

// ToUTC converts a wall-clock value in spec's zone to an absolute instant.
func ToUTC(v LocalDateTime, spec Spec) (time.Time, error) {
	if spec.Kind == KindOffset {
		return resolveOffset(v, spec.OffsetMinutes)
	}
	loc := spec.loc
	if loc == nil {
		var err error
		loc, err = time.LoadLocation(spec.Identifier)
		if err != nil {
			return time.Time{}, apperrors.Validation("unknown timezone %q", spec.Identifier)
		}
	}
	return resolveZone(v, loc)
}

func resolveOffset(v LocalDateTime, offsetMinutes int) (time.Time, error) {
	sign := "+"
	abs := offsetMinutes
	if abs < 0 {
		sign = "-"
		abs = -abs
	}
	iso := fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:00%s%02d:%02d",
		v.Year, v.Month, v.Day, v.Hour, v.Minute, sign, abs/60, abs%60)
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return time.Time{}, apperrors.TimeZoneResolution(
			fmt.Sprintf("failed to parse --window-boundary with offset %s", describeOffset(offsetMinutes)))
	}
	return t.UTC(), nil
}

// resolveZone searches for the instant whose wall clock in loc equals v.
// Starting from the UTC instant with the same digits, each step renders the
// guess in loc and shifts it by the wall-clock difference.
func resolveZone(v LocalDateTime, loc *time.Location) (time.Time, error) {
	target := v.utcWall()
	guess := target
	for i := 0; i < maxIterations; i++ {
		r := guess.In(loc)
		rendered := time.Date(r.Year(), r.Month(), r.Day(), r.Hour(), r.Minute(), 0, 0, time.UTC)
		diff := target.Sub(rendered)
		if diff == 0 {
			return guess.UTC(), nil
		}
		guess = guess.Add(diff)
	}
	return time.Time{}, apperrors.TimeZoneResolution(
		fmt.Sprintf("failed to resolve --window-boundary %s for timezone %q", v, loc.String()))
}
