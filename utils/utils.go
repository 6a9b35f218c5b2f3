package utils

import (
	"fmt"
	"math"
	"strings"

	"github.com/nijaru/vid-text/models"
)

const (
	microsPerSecond = int64(1_000_000)
	microsPerDay    = 86400 * microsPerSecond
)

// FormatTimestamp renders seconds as an elapsed duration, H:MM:SS with a
// six-digit fraction only when there is one, e.g. 0:00:01.500000 or 1:02:03.
// Durations of a day or more get an "N day(s), " prefix. Values are rounded to
// the nearest microsecond, ties to even.
func FormatTimestamp(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}

	micros := int64(math.RoundToEven(seconds * float64(microsPerSecond)))

	days := micros / microsPerDay
	rem := micros % microsPerDay
	if rem < 0 {
		days--
		rem += microsPerDay
	}

	secs := rem / microsPerSecond
	frac := rem % microsPerSecond

	var b strings.Builder
	if days != 0 {
		plural := "s"
		if days == 1 || days == -1 {
			plural = ""
		}
		fmt.Fprintf(&b, "%d day%s, ", days, plural)
	}
	fmt.Fprintf(&b, "%d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
	if frac != 0 {
		fmt.Fprintf(&b, ".%06d", frac)
	}
	return b.String()
}

// FormatSegment renders one transcript line. Text is kept exactly as produced.
func FormatSegment(seg models.Segment) string {
	return fmt.Sprintf("[%s --> %s]:%s", FormatTimestamp(seg.Start), FormatTimestamp(seg.End), seg.Text)
}

// FormatSegments keeps the model's order; nothing is merged or dropped.
func FormatSegments(segments []models.Segment) []string {
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		lines = append(lines, FormatSegment(seg))
	}
	return lines
}
