package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt"
)

const (
	tokenCookieKey   = "token"
	userIdClaim      = "user-id"
	displayNameClaim = "display-name"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated principal the upstream token service
// issued: every handler below the middleware can rely on it being
// present.
type Identity struct {
	UserId      string
	DisplayName string
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// extractIdentity validates the JWT from the token cookie or the
// Authorization header and pulls the identity claims out of it.
func (a *ChatApp) extractIdentity(r *http.Request) (Identity, error) {
	tokenString := ""
	if cookie, err := r.Cookie(tokenCookieKey); err == nil {
		tokenString = cookie.Value
	} else if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		tokenString = strings.TrimPrefix(auth, "Bearer ")
	}
	if tokenString == "" {
		return Identity{}, fmt.Errorf("no token supplied")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return a.signingKey, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("verify token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("invalid token claims")
	}

	userId, ok := claims[userIdClaim].(string)
	if !ok || userId == "" {
		return Identity{}, fmt.Errorf("invalid user id claim")
	}

	displayName, _ := claims[displayNameClaim].(string)

	return Identity{UserId: userId, DisplayName: displayName}, nil
}
