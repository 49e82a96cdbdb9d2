package admin

import (
	"context"
	"net/http"
	"sort"
	"time"

	"bookit/apperr"
	"bookit/db"
	"bookit/models"
	"bookit/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// Roles is the part of the role resolver the admin endpoints need.
type Roles interface {
	IsAdmin(ctx context.Context, s models.Subject) bool
	Role(ctx context.Context, id string) string
}

type Handler struct {
	users    db.Store[models.User]
	profiles db.Store[models.Profile]
	roles    db.Store[models.RoleRecord]
	resolver Roles
	logger   *zap.Logger
	now      func() time.Time
}

func NewHandler(
	users db.Store[models.User],
	profiles db.Store[models.Profile],
	roles db.Store[models.RoleRecord],
	resolver Roles,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		users:    users,
		profiles: profiles,
		roles:    roles,
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
	}
}

// GET /api/admin/users/
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()

	users, err := h.users.List(ctx)
	if err == nil {
		var profiles []models.Profile
		profiles, err = h.profiles.List(ctx)
		if err == nil {
			var records []models.RoleRecord
			records, err = h.roles.List(ctx)
			if err == nil {
				utils.RespondWithJSON(w, http.StatusOK, MergeUsers(users, profiles, records))
				return
			}
		}
	}

	h.logger.Error("list users", zap.Error(err))
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"users": []models.AdminUser{},
		"error": "Failed to load users: " + apperr.KindDependency.String(),
	})
}

// MergeUsers joins identity documents with profiles and role records.
// Profile values win over user values; profiles with no user are listed too.
// The result is ordered by created_at, newest first.
func MergeUsers(users []models.User, profiles []models.Profile, records []models.RoleRecord) []models.AdminUser {
	byProfile := make(map[string]models.Profile, len(profiles))
	for _, p := range profiles {
		byProfile[p.ID] = p
	}
	byRole := make(map[string]string, len(records))
	for _, rec := range records {
		byRole[rec.SubjectID] = rec.Role
	}

	out := make([]models.AdminUser, 0, len(users)+len(profiles))
	seen := make(map[string]bool, len(users))
	for _, u := range users {
		seen[u.ID] = true
		row := models.AdminUser{
			ID:        u.ID,
			Name:      firstNonEmpty(u.Name, u.Username),
			Email:     u.Email,
			CreatedAt: u.CreatedAt,
		}
		if p, ok := byProfile[u.ID]; ok {
			row.Name = firstNonEmpty(p.Name, row.Name)
			row.Email = firstNonEmpty(p.Email, row.Email)
			row.Phone = p.Phone
			row.Address = p.Address
		}
		row.Roles = rolesOf(byRole[u.ID])
		out = append(out, row)
	}

	for _, p := range profiles {
		if seen[p.ID] {
			continue
		}
		out = append(out, models.AdminUser{
			ID:        p.ID,
			Name:      p.Name,
			Email:     p.Email,
			Phone:     p.Phone,
			Address:   p.Address,
			CreatedAt: p.CreatedAt,
			Roles:     rolesOf(byRole[p.ID]),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out
}

type roleRequest struct {
	Role string `json:"role"`
}

// POST /api/admin/users/:id/role/
func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req roleRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	rec, err := h.Assign(r.Context(), ps.ByName("id"), req.Role)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindDependency {
			h.logger.Error("set role", zap.String("uid", ps.ByName("id")), zap.Error(err))
		}
		utils.RespondWithAppError(w, err)
		return
	}

	actor, _ := utils.SubjectFromRequest(r)
	h.logger.Info("role assigned",
		zap.String("uid", rec.SubjectID),
		zap.String("role", rec.Role),
		zap.String("by", actor.ID))
	utils.RespondWithJSON(w, http.StatusOK, rec)
}

// Assign stores role for the subject uid.
func (h *Handler) Assign(ctx context.Context, uid, role string) (*models.RoleRecord, error) {
	if role != models.RoleAdmin && role != models.RoleUser {
		return nil, apperr.Validation("Invalid role")
	}
	if uid == "" {
		return nil, apperr.Validation("Missing user id")
	}

	rec, err := h.roles.Upsert(ctx, uid, map[string]any{
		"role":       role,
		"updated_at": utils.NowUTC(h.now()),
	})
	if err != nil {
		return nil, apperr.Dependency("Failed to save role", err)
	}
	return rec, nil
}

// GET /api/whoami/
func (h *Handler) WhoAmI(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s, ok := utils.SubjectFromRequest(r)
	if !ok {
		utils.RespondWithJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	ctx := r.Context()
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"email":         s.Email,
		"uid":           s.ID,
		"is_staff":      s.IsStaff,
		"is_superuser":  s.IsSuperuser,
		"is_admin":      h.resolver.IsAdmin(ctx, s),
		"role":          h.resolver.Role(ctx, s.ID),
	})
}

// GET /api/status/
func Status(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Hello from the booking backend",
	})
}

// GET /health
func Health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("200"))
}

func rolesOf(role string) []string {
	if role == "" {
		return []string{}
	}
	return []string{role}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
