package profile

import (
	"context"
	"errors"
	"net/http"
	"time"

	"bookit/apperr"
	"bookit/db"
	"bookit/models"
	"bookit/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

var profileFields = []string{"name", "phone", "address", "email"}

type Handler struct {
	profiles db.Store[models.Profile]
	logger   *zap.Logger
	now      func() time.Time
}

func NewHandler(profiles db.Store[models.Profile], logger *zap.Logger) *Handler {
	return &Handler{profiles: profiles, logger: logger, now: time.Now}
}

// GET /api/me/
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s, _ := utils.SubjectFromRequest(r)

	p, err := h.profiles.Get(r.Context(), s.ID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		out := map[string]string{}
		if s.Email != "" {
			out["email"] = s.Email
		}
		utils.RespondWithJSON(w, http.StatusOK, out)
		return
	case err != nil:
		h.logger.Error("load profile", zap.String("uid", s.ID), zap.Error(err))
		utils.RespondWithAppError(w, apperr.Dependency("Failed to load profile", err))
		return
	}

	if p.Email == "" {
		p.Email = s.Email
	}
	utils.RespondWithJSON(w, http.StatusOK, p)
}

// PUT /api/me/
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s, _ := utils.SubjectFromRequest(r)

	payload := map[string]any{}
	if err := utils.DecodeBody(r, &payload); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	p, err := h.Upsert(r.Context(), s.ID, payload)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindDependency {
			h.logger.Error("save profile", zap.String("uid", s.ID), zap.Error(err))
		}
		utils.RespondWithAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, p)
}

// Upsert saves the allowed profile fields of payload for uid.
func (h *Handler) Upsert(ctx context.Context, uid string, payload map[string]any) (*models.Profile, error) {
	update := utils.PickFields(payload, profileFields...)
	if len(update) == 0 {
		return nil, apperr.Validation("No updatable fields provided")
	}
	for k, v := range update {
		if _, ok := v.(string); !ok {
			return nil, apperr.Validation("'" + k + "' must be a string")
		}
	}

	now := utils.NowUTC(h.now())
	update["updated_at"] = now
	if _, err := h.profiles.Get(ctx, uid); errors.Is(err, db.ErrNotFound) {
		update["created_at"] = now
	}

	p, err := h.profiles.Upsert(ctx, uid, update)
	if err != nil {
		return nil, apperr.Dependency("Failed to save profile", err)
	}
	return p, nil
}
