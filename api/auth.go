/*
auth.go - Token middleware and the login endpoint

PURPOSE:
  Guards the API surface with signed tokens. A request proves identity with
  an Authorization bearer header; browser clients fall back to the cookie
  the login endpoint sets. When no signing secret is configured the
  middleware is a no-op and every request acts as an anonymous user.

FAILURE MODES:
  Missing token, bad signature, expired token and unknown credentials all
  collapse into a 401 that never says which part failed.

SEE ALSO:
  - auth package: hashing and token primitives
  - server.go: where the middleware is mounted
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/budgeteala/budget-engine/auth"
	"github.com/budgeteala/budget-engine/budget"
)

// tokenCookie is the cookie name browser clients authenticate with.
const tokenCookie = "token"

type contextKey string

const userContextKey contextKey = "user"

// userID returns the authenticated user, or zero when authentication is
// disabled.
func userID(ctx context.Context) budget.UserID {
	id, _ := ctx.Value(userContextKey).(budget.UserID)
	return id
}

// RequireAuth rejects requests without a valid token. With no token
// verifier configured it passes everything through.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Tokens == nil {
			next.ServeHTTP(w, r)
			return
		}
		raw := bearerToken(r)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "Missing authentication token", nil)
			return
		}
		id, err := h.Tokens.Parse(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid authentication token", nil)
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if c, err := r.Cookie(tokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// Login exchanges email and password for a signed token. The token is also
// set as a cookie for browser clients.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.Tokens == nil {
		writeError(w, http.StatusNotFound, "Authentication is not enabled", nil)
		return
	}
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, err := h.Store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		h.Log.Error("user lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Error authenticating", nil)
		return
	}
	if user == nil || !auth.CheckPassword(user.Password, req.Password) {
		writeRestError(w, budget.ErrInvalidLogin)
		return
	}

	token, err := h.Tokens.Issue(user.ID)
	if err != nil {
		h.Log.Error("token issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Error authenticating", nil)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.TokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, TokenDTO{Token: token})
}
