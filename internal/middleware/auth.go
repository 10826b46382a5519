package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/offtimeapp/offtime/internal/auth"
)

// RequireAuth validates the bearer token and populates AuthContext. Failure
// always yields the same 401 envelope so callers cannot probe token state.
func RequireAuth(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w)
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				unauthorized(w)
				return
			}

			claims, err := jwtManager.Validate(parts[1])
			if err != nil {
				unauthorized(w)
				return
			}

			ac := auth.AuthContext{
				UserID:   claims.UserID,
				Username: claims.Username,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(struct {
		Message string `json:"message"`
		Data    any    `json:"data"`
	}{Message: "Unauthorized"})
}
