package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dpetukhov/rosterhub/internal/common"
	"github.com/dpetukhov/rosterhub/internal/server/auth"
)

type contextKey string

const userIDKey contextKey = "userID"

// userID returns the authenticated user's id placed by AuthMiddleware.
func userID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// AuthMiddleware verifies the Bearer access token and stores the user id in
// the request context. Expired tokens get a distinct code so clients know a
// refresh may still succeed.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			h.writeError(w, r, http.StatusUnauthorized, "missing access token", codeUnauthorized)
			return
		}

		uid, err := auth.GetUserIDFromToken(token, h.secretKey)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				h.writeError(w, r, http.StatusUnauthorized, common.ErrTokenExpired.Error(), codeTokenExpired)
				return
			}
			h.writeError(w, r, http.StatusUnauthorized, common.ErrInvalidToken.Error(), codeUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, uid)))
	})
}
