package catalog

import (
	"net/http"

	"bookit/apperr"
	"bookit/models"
	"bookit/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

type Handler struct {
	catalog *Catalog
	logger  *zap.Logger
}

func NewHandler(c *Catalog, logger *zap.Logger) *Handler {
	return &Handler{catalog: c, logger: logger}
}

// GET /api/services/
//
// A failing store degrades to an empty list plus an error hint.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	list, err := h.catalog.ListServices(r.Context())
	if err != nil {
		h.logger.Error("list services", zap.Error(err))
		utils.RespondWithJSON(w, http.StatusOK, map[string]any{
			"services": []models.Service{},
			"error":    "Failed to load services: " + apperr.KindOf(err).String(),
		})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// POST /api/services/
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s, _ := utils.SubjectFromRequest(r)
	payload := map[string]any{}
	if err := utils.DecodeBody(r, &payload); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	created, err := h.catalog.CreateService(r.Context(), s, payload)
	if err != nil {
		h.fail(w, "create service", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, created)
}

// GET /api/services/:id/
func (h *Handler) GetService(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	svc, err := h.catalog.GetService(r.Context(), ps.ByName("id"))
	if err != nil {
		h.fail(w, "get service", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, svc)
}

// PUT /api/services/:id/
func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	payload := map[string]any{}
	if err := utils.DecodeBody(r, &payload); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	updated, err := h.catalog.UpdateService(r.Context(), ps.ByName("id"), payload)
	if err != nil {
		h.fail(w, "update service", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, updated)
}

// DELETE /api/services/:id/
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ok, err := h.catalog.DeleteService(r.Context(), ps.ByName("id"))
	if err != nil {
		h.fail(w, "delete service", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]bool{"success": ok})
}

// GET /api/categories/
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	list, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("list categories", zap.Error(err))
		utils.RespondWithJSON(w, http.StatusOK, map[string]any{
			"categories": []models.Category{},
			"error":      "Failed to load categories: " + apperr.KindOf(err).String(),
		})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// POST /api/categories/
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		Name any `json:"name"`
	}
	if err := utils.DecodeBody(r, &input); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	name, _ := input.Name.(string)
	created, err := h.catalog.CreateCategory(r.Context(), name)
	if err != nil {
		h.fail(w, "create category", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, created)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if k := apperr.KindOf(err); k == apperr.KindDependency || k == apperr.KindInternal {
		h.logger.Error(op, zap.Error(err))
	}
	utils.RespondWithAppError(w, err)
}
