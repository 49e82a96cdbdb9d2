package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"bookit/apperr"
	"bookit/db"
	"bookit/models"
	"bookit/utils"

	"go.uber.org/zap"
)

const placeholderDomain = "@identity.local"

// Authenticator turns an Authorization header into a Subject. The backing
// user document is created on the first successful verification.
type Authenticator struct {
	verifier Verifier
	users    db.Store[models.User]
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthenticator(v Verifier, users db.Store[models.User], logger *zap.Logger) *Authenticator {
	return &Authenticator{verifier: v, users: users, logger: logger, now: time.Now}
}

// BearerToken extracts the token from "Bearer <token>". ok is false when the
// header is absent or not a bearer credential.
func BearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// Authenticate verifies credential and resolves the subject it names.
func (a *Authenticator) Authenticate(ctx context.Context, credential string) (models.Subject, error) {
	id, err := a.verifier.Verify(ctx, credential)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			err = &apperr.Error{Kind: apperr.KindAuthentication, Msg: "Invalid identity token", Err: err}
		}
		return models.Subject{}, err
	}

	user, err := a.getOrCreate(ctx, id)
	if err != nil {
		return models.Subject{}, err
	}
	if !user.IsActive {
		return models.Subject{}, apperr.Authentication("User account is disabled")
	}

	s := models.Subject{
		ID:          id.UID,
		Email:       id.Email,
		IsStaff:     user.IsStaff,
		IsSuperuser: user.IsSuperuser,
		Claims:      id.Claims,
	}
	if s.Email == "" && !strings.HasSuffix(user.Email, placeholderDomain) {
		s.Email = user.Email
	}
	return s, nil
}

func (a *Authenticator) getOrCreate(ctx context.Context, id *Identity) (*models.User, error) {
	user, err := a.users.Get(ctx, id.UID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, apperr.Dependency("Failed to load user", err)
	}

	email := id.Email
	username := id.UID
	if email != "" {
		username = strings.SplitN(email, "@", 2)[0]
	} else {
		email = id.UID + placeholderDomain
	}

	doc := models.User{
		ID:        id.UID,
		Email:     email,
		Username:  username,
		IsActive:  true,
		CreatedAt: utils.NowUTC(a.now()),
	}
	created, err := a.users.Create(ctx, doc)
	if err != nil {
		// a concurrent request may have created it first
		if user, getErr := a.users.Get(ctx, id.UID); getErr == nil {
			return user, nil
		}
		if !errors.Is(err, db.ErrDuplicate) || id.Email == "" {
			return nil, apperr.Dependency("Failed to create user", err)
		}

		// the email belongs to another account; keep this subject apart
		a.logger.Warn("email already in use by another user; storing placeholder",
			zap.String("uid", id.UID))
		doc.Email = id.UID + placeholderDomain
		if created, err = a.users.Create(ctx, doc); err != nil {
			return nil, apperr.Dependency("Failed to create user", err)
		}
	}
	a.logger.Info("user created on first sign-in", zap.String("uid", id.UID))
	return created, nil
}
