package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/omasdev/provider-scheduling/internal/scheduling"
	"github.com/omasdev/provider-scheduling/internal/session"
)

const sessionHeader = "X-Session-Token"

const sessionCtxKey contextKey = "session"

// SessionFrom returns the authenticated session, if any.
func SessionFrom(ctx context.Context) *session.Session {
	if s, ok := ctx.Value(sessionCtxKey).(*session.Session); ok {
		return s
	}
	return nil
}

func requestToken(r *http.Request) string {
	if t := r.Header.Get(sessionHeader); t != "" {
		return t
	}
	return r.URL.Query().Get("session_token")
}

// sessionMiddleware requires a valid session token and attaches the session
// and the audit actor to the request context.
func sessionMiddleware(store session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := store.Get(r.Context(), requestToken(r))
			if err != nil {
				if errors.Is(err, session.ErrSessionNotFound) {
					writeError(w, http.StatusUnauthorized, "authentication_required", "log in to continue")
					return
				}
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
				return
			}

			userID := sess.UserID
			ctx := context.WithValue(r.Context(), sessionCtxKey, sess)
			ctx = scheduling.WithActor(ctx, scheduling.Actor{Type: sess.UserType, ID: &userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func toSessionResponse(s *session.Session) SessionResponse {
	return SessionResponse{
		Token:       s.Token,
		UserType:    s.UserType,
		UserID:      s.UserID,
		DisplayName: s.DisplayName,
		Email:       s.Email,
		ExpiresAt:   s.ExpiresAt,
	}
}

func loginHandler(svc *scheduling.Service, store session.Store, demoPIN string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		userType := strings.ToLower(strings.TrimSpace(req.UserType))
		email := strings.ToLower(strings.TrimSpace(req.Email))
		pin := strings.TrimSpace(req.PIN)

		if userType != session.UserTypePatient && userType != session.UserTypeProvider {
			writeError(w, http.StatusBadRequest, "invalid_user_type", "user_type must be patient or provider")
			return
		}
		if email == "" || pin == "" {
			writeError(w, http.StatusBadRequest, "missing_credentials", "email and pin are required")
			return
		}
		if pin != demoPIN {
			writeError(w, http.StatusUnauthorized, "invalid_pin", "the PIN is not valid")
			return
		}

		var (
			userID      uuid.UUID
			displayName string
			userEmail   string
		)
		if userType == session.UserTypePatient {
			p, err := svc.FindPatientByEmail(r.Context(), email)
			if err != nil {
				handleDomainError(w, err)
				return
			}
			userID = p.ID
			displayName = strings.TrimSpace(p.FirstName + " " + p.LastName)
			userEmail = p.Email
		} else {
			p, err := svc.FindProviderByEmail(r.Context(), email)
			if err != nil {
				handleDomainError(w, err)
				return
			}
			userID = p.ID
			displayName = p.DisplayName
			userEmail = p.Email
		}

		sess, err := store.Create(r.Context(), userType, userID, displayName, userEmail)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"token": sess.Token,
			"user":  toSessionResponse(sess),
		})
	}
}

func sessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFrom(r.Context())
		if sess == nil {
			writeError(w, http.StatusUnauthorized, "authentication_required", "log in to continue")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": toSessionResponse(sess)})
	}
}

func logoutHandler(store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(sessionHeader)
		if token == "" {
			var req LogoutRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
				token = req.Token
			}
		}
		if token == "" {
			writeError(w, http.StatusBadRequest, "missing_token", "a session token is required")
			return
		}
		if err := store.Revoke(r.Context(), token); err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}
