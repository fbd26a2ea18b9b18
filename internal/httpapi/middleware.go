package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/NematiDev/Zentec/internal/domain"
)

type contextKey string

const callerKey contextKey = "caller"

// AuthMiddleware trusts the identity headers set by the edge gateway and
// turns them into a typed caller. The bearer token is kept verbatim so it
// can be forwarded to the capability services on the user's behalf.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-Id")
		if userID == "" {
			respondError(w, http.StatusUnauthorized, "missing user authentication")
			return
		}

		caller := domain.Caller{
			UserID:      userID,
			Email:       r.Header.Get("X-User-Email"),
			BearerToken: bearerToken(r),
		}

		ctx := context.WithValue(r.Context(), callerKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return token
	}
	return ""
}

func callerFrom(ctx context.Context) domain.Caller {
	caller, _ := ctx.Value(callerKey).(domain.Caller)
	return caller
}
