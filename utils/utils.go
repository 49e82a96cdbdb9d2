package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"bookit/apperr"
	"bookit/globals"
)

// NowUTC formats t in UTC using the ISO-8601 layout shared by all documents.
func NowUTC(t time.Time) string {
	return t.UTC().Format(globals.TimeLayout)
}

// DecodeBody decodes a JSON object body into dst. An empty body leaves dst
// untouched.
func DecodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Validation("invalid JSON body")
	}
	return nil
}

// PickFields copies the allowed keys present in payload.
func PickFields(payload map[string]any, allowed ...string) map[string]any {
	out := make(map[string]any)
	for k, v := range payload {
		if slices.Contains(allowed, k) {
			out[k] = v
		}
	}
	return out
}

// SplitList splits a comma separated value, trimming entries and dropping
// empty ones.
func SplitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
