package validate

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/franz/catalog-cleaner/internal/util"
)

// DurationUnit is the unit of plain numeric durations in the raw track data
type DurationUnit string

const (
	// UnitMinutes multiplies plain numbers by 60. "2" is stored as 120 seconds.
	UnitMinutes DurationUnit = "minutes"
	UnitSeconds DurationUnit = "seconds"

	DefaultDurationUnit = UnitMinutes
)

// ParseDurationUnit parses a configured unit name
func ParseDurationUnit(s string) (DurationUnit, error) {
	switch DurationUnit(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultDurationUnit, nil
	case UnitMinutes, "min", "m":
		return UnitMinutes, nil
	case UnitSeconds, "sec", "s":
		return UnitSeconds, nil
	}
	return "", fmt.Errorf("%w: unknown duration unit %q", util.ErrInvalidConfig, s)
}

func (u DurationUnit) factor() int64 {
	if u == UnitSeconds {
		return 1
	}
	return 60
}

var clockPattern = regexp.MustCompile(`^(\d+):([0-5]\d)$`)

// ParseDuration coerces a raw duration to whole seconds. Integers and
// integer-valued strings are scaled by unit; "m:ss" strings are read as
// minutes and seconds regardless of unit. Blank, negative, fractional
// or non-numeric values yield nil.
func ParseDuration(raw *string, unit DurationUnit) *int64 {
	if raw == nil {
		return nil
	}
	s := strings.TrimSpace(*raw)
	if s == "" {
		return nil
	}

	if m := clockPattern.FindStringSubmatch(s); m != nil {
		minutes, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || minutes > math.MaxInt64/60-1 {
			return nil
		}
		seconds, _ := strconv.ParseInt(m[2], 10, 64)
		total := minutes*60 + seconds
		return &total
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64/2 {
			return nil
		}
		n = int64(f)
	}

	if n < 0 || n > math.MaxInt64/unit.factor() {
		return nil
	}

	total := n * unit.factor()
	return &total
}
