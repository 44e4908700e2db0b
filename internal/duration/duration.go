// Package duration converts between human work-duration phrases such as
// "2d 4h 30m" and minute counts. A day is a business day of 8 hours.
package duration

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	MinutesPerHour = 60
	HoursPerDay    = 8
	MinutesPerDay  = HoursPerDay * MinutesPerHour
)

var (
	dayPattern    = regexp.MustCompile(`(\d+)\s*d`)
	hourPattern   = regexp.MustCompile(`(\d+)\s*h`)
	minutePattern = regexp.MustCompile(`(\d+)\s*m`)
)

// ParseToMinutes sums the first day, hour and minute component found in
// input. Input with no recognizable component yields 0. A component that
// does not fit in an int contributes 0, so the result is never negative.
func ParseToMinutes(input string) int {
	value := strings.ToLower(input)
	total := 0
	for _, part := range []int{
		scaled(firstInt(dayPattern, value), MinutesPerDay),
		scaled(firstInt(hourPattern, value), MinutesPerHour),
		firstInt(minutePattern, value),
	} {
		if part > math.MaxInt-total {
			continue
		}
		total += part
	}
	return total
}

func scaled(n, unit int) int {
	if n > math.MaxInt/unit {
		return 0
	}
	return n * unit
}

func firstInt(pattern *regexp.Regexp, value string) int {
	match := pattern.FindStringSubmatch(value)
	if len(match) < 2 {
		return 0
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		// digits that overflow int
		return 0
	}
	return n
}

// FormatMinutes renders minutes greedily as days, hours and minutes, so
// 90 becomes "1h 30m". Non-positive values render as "0m".
func FormatMinutes(minutes int) string {
	if minutes <= 0 {
		return "0m"
	}

	days := minutes / MinutesPerDay
	remainder := minutes % MinutesPerDay
	hours := remainder / MinutesPerHour
	mins := remainder % MinutesPerHour

	var sb strings.Builder
	if days > 0 {
		sb.WriteString(strconv.Itoa(days) + "d ")
	}
	if hours > 0 {
		sb.WriteString(strconv.Itoa(hours) + "h ")
	}
	if mins > 0 {
		sb.WriteString(strconv.Itoa(mins) + "m")
	}

	result := strings.TrimRight(sb.String(), " ")
	if result == "" {
		return "0m"
	}
	return result
}

// Normalize re-renders input in canonical units.
func Normalize(input string) string {
	return FormatMinutes(ParseToMinutes(input))
}

// Sum adds minute counts, ignoring negative values.
func Sum(minutes ...int) int {
	total := 0
	for _, m := range minutes {
		if m > 0 {
			total += m
		}
	}
	return total
}
