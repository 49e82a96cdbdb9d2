package middleware

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"bookit/auth"
	"bookit/models"
	"bookit/utils"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

type SubjectAuthenticator interface {
	Authenticate(ctx context.Context, credential string) (models.Subject, error)
}

type AdminChecker interface {
	IsAdmin(ctx context.Context, s models.Subject) bool
}

type Middleware struct {
	auth   SubjectAuthenticator
	admins AdminChecker
	logger *zap.Logger
}

func New(a SubjectAuthenticator, admins AdminChecker, logger *zap.Logger) *Middleware {
	return &Middleware{auth: a, admins: admins, logger: logger}
}

// credential returns the bearer token of r. Browsers cannot set headers on
// websocket upgrades, so those may pass it as ?token=.
func credential(r *http.Request) (string, bool) {
	if tok, ok := auth.BearerToken(r.Header.Get("Authorization")); ok {
		return tok, true
	}
	if websocket.IsWebSocketUpgrade(r) {
		if tok := r.URL.Query().Get("token"); tok != "" {
			return tok, true
		}
	}
	return "", false
}

// resolve attaches the subject when a credential is present. A present but
// invalid credential is rejected.
func (m *Middleware) resolve(w http.ResponseWriter, r *http.Request) (*http.Request, bool) {
	tok, ok := credential(r)
	if !ok {
		return r, true
	}
	s, err := m.auth.Authenticate(r.Context(), tok)
	if err != nil {
		m.logger.Debug("credential rejected", zap.Error(err))
		utils.RespondWithAppError(w, err)
		return r, false
	}
	return r.WithContext(utils.WithSubject(r.Context(), s)), true
}

// Authenticate requires a verified subject.
func (m *Middleware) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		r, ok := m.resolve(w, r)
		if !ok {
			return
		}
		if _, ok := utils.SubjectFromRequest(r); !ok {
			utils.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next(w, r, ps)
	}
}

// OptionalAuth attaches the subject when there is one and proceeds either way.
func (m *Middleware) OptionalAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		r, ok := m.resolve(w, r)
		if !ok {
			return
		}
		next(w, r, ps)
	}
}

// RequireAdmin requires a verified subject with admin privileges.
func (m *Middleware) RequireAdmin(next httprouter.Handle) httprouter.Handle {
	return m.Authenticate(func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		s, _ := utils.SubjectFromRequest(r)
		if !m.admins.IsAdmin(r.Context(), s) {
			utils.RespondWithError(w, http.StatusForbidden, "Admin privileges required")
			return
		}
		next(w, r, ps)
	})
}

// SecurityHeaders applies a set of recommended HTTP security headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// XSS, content sniffing, framing
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// Hijack keeps websocket upgrades working through the recorder.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Logging logs each request method, path, remote address, status and duration.
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote", r.RemoteAddr),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
