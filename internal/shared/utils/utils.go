package utils

import (
	"fmt"
	"net/url"
	"strconv"
)

// FormatElapsed formats elapsed seconds as H:MM:SS.
func FormatElapsed(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
}

// ParsePaginationParams parses limit and offset from query parameters.
func ParsePaginationParams(query url.Values, defaultLimit int, maxLimit int) (int, int) {
	limit := defaultLimit
	if l := query.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}

	offset := 0
	if o := query.Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	return limit, offset
}
