// Package authn verifies bearer access tokens on protected routes. The
// admin variant additionally checks the admin claim carried by the token.
package authn

import (
	"errors"
	"net/http"
	"strings"

	resp "ce_platform/internal/lib/api/response"

	"github.com/go-chi/render"
	"github.com/golang-jwt/jwt/v5"
)

func Require(secret string) func(http.Handler) http.Handler {
	return middleware(secret, false)
}

func RequireAdmin(secret string) func(http.Handler) http.Handler {
	return middleware(secret, true)
}

func middleware(secret string, adminOnly bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := parse(r, secret)
			if err != nil {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Authentication required"))

				return
			}

			if adminOnly {
				if admin, _ := claims["admin"].(bool); !admin {
					render.Status(r, http.StatusForbidden)
					render.JSON(w, r, resp.Error("Admin access required"))

					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func parse(r *http.Request, secret string) (jwt.MapClaims, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return nil, errors.New("missing bearer token")
	}

	token, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
