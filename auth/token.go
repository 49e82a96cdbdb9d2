package auth

import (
	"context"
	"errors"
	"time"

	"bookit/apperr"

	"github.com/golang-jwt/jwt/v5"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour

	tokenTypeRefresh = "refresh"
)

var ErrBadToken = errors.New("invalid token")

// Identity is what a verified credential says about its holder.
type Identity struct {
	UID    string
	Email  string
	Claims map[string]any
}

// Verifier validates a bearer credential.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}

// registered claims never surface as custom claims
var reserved = map[string]bool{
	"iss": true, "sub": true, "aud": true, "exp": true, "nbf": true,
	"iat": true, "jti": true, "uid": true, "email": true, "typ": true,
}

// JWTVerifier checks HMAC signed identity tokens.
type JWTVerifier struct {
	secret []byte
	issuer string
}

func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

func (v *JWTVerifier) parse(raw string) (jwt.MapClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, ErrBadToken
	}
	return claims, nil
}

func (v *JWTVerifier) Verify(_ context.Context, credential string) (*Identity, error) {
	claims, err := v.parse(credential)
	if err != nil {
		return nil, &apperr.Error{Kind: apperr.KindAuthentication, Msg: "Invalid identity token", Err: err}
	}
	if typ, _ := claims["typ"].(string); typ == tokenTypeRefresh {
		return nil, apperr.Authentication("Refresh tokens cannot authenticate requests")
	}

	id := &Identity{}
	if uid, ok := claims["uid"].(string); ok && uid != "" {
		id.UID = uid
	} else if sub, err := claims.GetSubject(); err == nil {
		id.UID = sub
	}
	if id.UID == "" {
		return nil, apperr.Authentication("Invalid identity token")
	}
	id.Email, _ = claims["email"].(string)

	for k, val := range claims {
		if reserved[k] {
			continue
		}
		if id.Claims == nil {
			id.Claims = make(map[string]any)
		}
		id.Claims[k] = val
	}
	return id, nil
}

// Issuer mints tokens for local accounts that JWTVerifier accepts.
type Issuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewIssuer(secret, issuer string) *Issuer {
	return &Issuer{secret: []byte(secret), issuer: issuer, now: time.Now}
}

func (i *Issuer) sign(uid, email, typ string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := jwt.MapClaims{
		"uid": uid,
		"sub": uid,
		"iat": jwt.NewNumericDate(now),
		"exp": jwt.NewNumericDate(now.Add(ttl)),
	}
	if email != "" {
		claims["email"] = email
	}
	if typ != "" {
		claims["typ"] = typ
	}
	if i.issuer != "" {
		claims["iss"] = i.issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// short-lived access token
func (i *Issuer) Access(uid, email string) (string, error) {
	return i.sign(uid, email, "", accessTokenTTL)
}

func (i *Issuer) Refresh(uid, email string) (string, error) {
	return i.sign(uid, email, tokenTypeRefresh, refreshTokenTTL)
}

// ParseRefresh validates a refresh token and returns its subject and email.
func (i *Issuer) ParseRefresh(raw string) (uid, email string, err error) {
	claims, err := (&JWTVerifier{secret: i.secret, issuer: i.issuer}).parse(raw)
	if err != nil {
		return "", "", &apperr.Error{Kind: apperr.KindAuthentication, Msg: "Invalid refresh token", Err: err}
	}
	if typ, _ := claims["typ"].(string); typ != tokenTypeRefresh {
		return "", "", apperr.Authentication("Invalid refresh token")
	}
	uid, _ = claims["uid"].(string)
	email, _ = claims["email"].(string)
	if uid == "" {
		return "", "", apperr.Authentication("Invalid refresh token")
	}
	return uid, email, nil
}
