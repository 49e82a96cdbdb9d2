// Package roles decides whether a subject holds admin privileges.
//
// A subject is an admin when any one of these holds, checked in order:
// it is staff or superuser, its id is on the bootstrap allowlist, its
// token claims grant admin, or its stored role record says "admin".
// Lookup failures never escape; they count as "not admin".
package roles

import (
	"context"
	"errors"
	"slices"

	"bookit/db"
	"bookit/models"
	"bookit/utils"

	"go.uber.org/zap"
)

// RoleLookup fetches the stored role record of a subject.
type RoleLookup interface {
	Get(ctx context.Context, id string) (*models.RoleRecord, error)
}

type Resolver struct {
	bootstrap []string
	roles     RoleLookup
	logger    *zap.Logger
}

// NewResolver builds a resolver. bootstrap is the comma separated allowlist
// of subject ids that are admins without a role record.
func NewResolver(bootstrap string, roles RoleLookup, logger *zap.Logger) *Resolver {
	return &Resolver{
		bootstrap: ParseBootstrap(bootstrap),
		roles:     roles,
		logger:    logger,
	}
}

// ParseBootstrap splits the allowlist, trimming entries and dropping empty
// ones.
func ParseBootstrap(raw string) []string {
	return utils.SplitList(raw)
}

func (r *Resolver) IsAdmin(ctx context.Context, s models.Subject) (admin bool) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("admin check panicked", zap.String("uid", s.ID), zap.Any("panic", p))
			admin = false
		}
	}()

	if s.IsSuperuser || s.IsStaff {
		return true
	}
	if s.ID == "" {
		return false
	}
	if slices.Contains(r.bootstrap, s.ID) {
		return true
	}
	if ClaimsGrantAdmin(s.Claims) {
		return true
	}
	return r.Role(ctx, s.ID) == models.RoleAdmin
}

// Role returns the stored role of id, or "" when unset or unreadable.
func (r *Resolver) Role(ctx context.Context, id string) (role string) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("role lookup panicked", zap.String("uid", id), zap.Any("panic", p))
			role = ""
		}
	}()

	if id == "" || r.roles == nil {
		return ""
	}
	rec, err := r.roles.Get(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ""
		}
		r.logger.Warn("role lookup failed", zap.String("uid", id), zap.Error(err))
		return ""
	}
	if rec == nil {
		return ""
	}
	return rec.Role
}

// ClaimsGrantAdmin reports whether token claims carry admin: admin == true,
// role == "admin" or "admin" listed in roles. A roles value that is not a
// list is ignored.
func ClaimsGrantAdmin(claims map[string]any) bool {
	if len(claims) == 0 {
		return false
	}
	if v, ok := claims["admin"].(bool); ok && v {
		return true
	}
	if v, ok := claims["role"].(string); ok && v == models.RoleAdmin {
		return true
	}
	switch roles := claims["roles"].(type) {
	case []string:
		return slices.Contains(roles, models.RoleAdmin)
	case []any:
		for _, v := range roles {
			if name, ok := v.(string); ok && name == models.RoleAdmin {
				return true
			}
		}
	}
	return false
}
