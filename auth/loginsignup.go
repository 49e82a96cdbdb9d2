package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"bookit/apperr"
	"bookit/db"
	"bookit/models"
	"bookit/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLen = 8

// Handler serves local account registration and token endpoints.
type Handler struct {
	users  db.Store[models.User]
	issuer *Issuer
	logger *zap.Logger
	now    func() time.Time
}

func NewHandler(users db.Store[models.User], issuer *Issuer, logger *zap.Logger) *Handler {
	return &Handler{users: users, issuer: issuer, logger: logger, now: time.Now}
}

// POST /api/register/
func (h *Handler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := utils.DecodeBody(r, &input); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Username = strings.TrimSpace(input.Username)
	switch {
	case input.Email == "" || !strings.Contains(input.Email, "@"):
		utils.RespondWithError(w, http.StatusBadRequest, "A valid email is required")
		return
	case input.Username == "":
		utils.RespondWithError(w, http.StatusBadRequest, "Username is required")
		return
	case len(input.Password) < minPasswordLen:
		utils.RespondWithError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	existing, err := h.users.ListByField(r.Context(), "email", input.Email, 1)
	if err != nil {
		h.logger.Error("register: lookup email", zap.Error(err))
		utils.RespondWithError(w, http.StatusBadGateway, "Failed to register user")
		return
	}
	if len(existing) > 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "A user with that email already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	user, err := h.users.Create(r.Context(), models.User{
		ID:           utils.GetUUID(),
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    utils.NowUTC(h.now()),
	})
	if errors.Is(err, db.ErrDuplicate) {
		utils.RespondWithError(w, http.StatusBadRequest, "A user with that email already exists")
		return
	}
	if err != nil {
		h.logger.Error("register: create user", zap.Error(err))
		utils.RespondWithError(w, http.StatusBadGateway, "Failed to register user")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, map[string]string{
		"id":       user.ID,
		"email":    user.Email,
		"username": user.Username,
	})
}

// POST /api/token/
func (h *Handler) Token(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := utils.DecodeBody(r, &input); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if input.Email == "" || input.Password == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	users, err := h.users.ListByField(r.Context(), "email", strings.ToLower(strings.TrimSpace(input.Email)), 1)
	if err != nil {
		h.logger.Error("token: lookup email", zap.Error(err))
		utils.RespondWithError(w, http.StatusBadGateway, "Failed to issue token")
		return
	}
	if len(users) == 0 || users[0].PasswordHash == "" || !users[0].IsActive {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	user := users[0]
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	access, err := h.issuer.Access(user.ID, user.Email)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	refresh, err := h.issuer.Refresh(user.ID, user.Email)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	if _, err := h.users.Update(r.Context(), user.ID, map[string]any{
		"last_login": utils.NowUTC(h.now()),
	}); err != nil && !errors.Is(err, db.ErrNotFound) {
		h.logger.Warn("token: record last login", zap.String("uid", user.ID), zap.Error(err))
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{
		"access":  access,
		"refresh": refresh,
	})
}

// POST /api/token/refresh/
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input struct {
		Refresh string `json:"refresh"`
	}
	if err := utils.DecodeBody(r, &input); err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if input.Refresh == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Refresh token is required")
		return
	}

	uid, email, err := h.issuer.ParseRefresh(input.Refresh)
	if err != nil {
		utils.RespondWithAppError(w, err)
		return
	}
	if _, err := h.users.Get(r.Context(), uid); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			utils.RespondWithAppError(w, apperr.Authentication("Invalid refresh token"))
			return
		}
		utils.RespondWithError(w, http.StatusBadGateway, "Failed to issue token")
		return
	}

	access, err := h.issuer.Access(uid, email)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"access": access})
}
