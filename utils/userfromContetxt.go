package utils

import (
	"context"
	"net/http"

	"bookit/globals"
	"bookit/models"
)

// WithSubject stores the authenticated subject on ctx.
func WithSubject(ctx context.Context, s models.Subject) context.Context {
	return context.WithValue(ctx, globals.SubjectKey, s)
}

// SubjectFromRequest returns the subject attached by the auth middleware.
func SubjectFromRequest(r *http.Request) (models.Subject, bool) {
	s, ok := r.Context().Value(globals.SubjectKey).(models.Subject)
	if !ok || s.ID == "" {
		return models.Subject{}, false
	}
	return s, true
}
