package booking

import (
	"net/http"

	"bookit/apperr"
	"bookit/models"
	"bookit/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

const maxListLimit = 500

type Handler struct {
	svc      *Service
	receipts *Receipts
	logger   *zap.Logger
}

func NewHandler(svc *Service, receipts *Receipts, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, receipts: receipts, logger: logger}
}

// listFailed degrades a failed listing to an empty result with a hint.
func listFailed(w http.ResponseWriter, logger *zap.Logger, err error) {
	logger.Error("list bookings", zap.Error(err))
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"bookings": []models.Booking{},
		"error":    "Failed to load bookings: " + apperr.KindOf(err).String(),
	})
}

// GET /api/bookings/?limit=N
func (h *Handler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s, _ := utils.SubjectFromRequest(r)
	list, err := h.svc.ListForUser(r.Context(), s.ID, utils.ParseLimit(r, 0, maxListLimit))
	if err != nil {
		listFailed(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// POST /api/bookings/
func (h *Handler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s, _ := utils.SubjectFromRequest(r)

	var req models.BookingRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	b, err := h.svc.Create(r.Context(), s, req)
	if err != nil {
		h.fail(w, "create booking", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, b)
}

// PATCH /api/bookings/:id/
func (h *Handler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, _ := utils.SubjectFromRequest(r)

	payload := map[string]any{}
	if err := utils.DecodeBody(r, &payload); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	b, err := h.svc.Update(r.Context(), s, ps.ByName("id"), payload)
	if err != nil {
		h.fail(w, "update booking", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, b)
}

// GET /api/bookings/:id/receipt/
func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s, _ := utils.SubjectFromRequest(r)

	b, err := h.svc.GetForActor(r.Context(), s, ps.ByName("id"))
	if err != nil {
		h.fail(w, "load booking for receipt", err)
		return
	}

	pdf, err := h.receipts.PDF(*b)
	if err != nil {
		h.logger.Error("render receipt", zap.String("booking_id", b.ID), zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate receipt")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=booking-"+b.ID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// GET /api/admin/bookings/
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	list, err := h.svc.ListAll(r.Context())
	if err != nil {
		listFailed(w, h.logger, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// GET /api/me/stats/
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s, _ := utils.SubjectFromRequest(r)
	st, err := h.svc.Stats(r.Context(), s.ID)
	if err != nil {
		h.fail(w, "booking stats", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, st)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if k := apperr.KindOf(err); k == apperr.KindDependency || k == apperr.KindInternal {
		h.logger.Error(op, zap.Error(err))
	}
	utils.RespondWithAppError(w, err)
}
