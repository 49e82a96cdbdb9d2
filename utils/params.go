package utils

import (
	"net/http"
	"strconv"
)

// ParseLimit reads ?limit= from r. Missing or invalid values give def and
// values above max are clamped.
func ParseLimit(r *http.Request, def, max int64) int64 {
	limit, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	if err != nil || limit < 1 {
		return def
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}
