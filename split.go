package factextract

import (
	"strings"
	"unicode/utf8"
)

// splitMarkers are the boundaries preferred when bisecting an overflowing
// unit, in priority order.
var splitMarkers = []string{". ", "! ", "? ", "\n\n"}

// splitWindow is the fraction of the unit length searched on each side of
// the midpoint.
const splitWindow = 0.2

// splitPoint returns the byte offset at which text should be bisected: just
// after the last occurrence of the first marker found inside the window
// around the midpoint, or the midpoint itself. Midpoint and window are
// measured in characters.
func splitPoint(text string) int {
	offsets := runeOffsets(text)
	n := len(offsets) - 1
	mid := n / 2
	span := int(float64(n) * splitWindow)
	start := offsets[max(0, mid-span)]
	end := offsets[min(n, mid+span)]

	for _, marker := range splitMarkers {
		// a match must start inside [start, end) and fit within end
		if pos := strings.LastIndex(text[start:end], marker); pos >= 0 {
			return start + pos + len(marker)
		}
	}
	return offsets[mid]
}

// bisect splits text into two trimmed halves. The untrimmed halves
// concatenate to text. ok is false when either half is empty after trimming.
func bisect(text string) (first, second string, ok bool) {
	at := splitPoint(text)
	first = strings.TrimSpace(text[:at])
	second = strings.TrimSpace(text[at:])
	return first, second, first != "" && second != ""
}

// runeOffsets returns the byte offset of every rune in s followed by len(s),
// so offsets[i] is where character i starts.
func runeOffsets(s string) []int {
	offsets := make([]int, 0, utf8.RuneCountInString(s)+1)
	for i := range s {
		offsets = append(offsets, i)
	}
	return append(offsets, len(s))
}
