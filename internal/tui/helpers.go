package tui

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bmbranch/branchdesk/pkg/domain"
)

// truncStr truncates a string to maxLen runes, appending an ellipsis if needed.
func truncStr(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "…"
}

// truncateToHeight limits output to maxLines newline-delimited lines.
// Returns the original string if it fits or maxLines is <= 0.
func truncateToHeight(s string, maxLines int) string {
	if maxLines <= 0 {
		return s
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
			if n >= maxLines {
				return s[:i+1]
			}
		}
	}
	return s
}

// formatDay renders a YYYY-MM-DD day as "Fri, Mar 1, 2024". Unparseable
// input is returned unchanged.
func formatDay(day string) string {
	d, _, _ := strings.Cut(day, "T")
	t, err := time.Parse(domain.SummaryDateLayout, d)
	if err != nil {
		return day
	}
	return t.Format("Mon, Jan 2, 2006")
}

// clampCursor keeps a list cursor inside [0, n).
func clampCursor(cursor, n int) int {
	if n == 0 || cursor < 0 {
		return 0
	}
	if cursor >= n {
		return n - 1
	}
	return cursor
}
