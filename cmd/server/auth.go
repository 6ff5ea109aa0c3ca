package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Simplici0/primeestate/internal/store"
)

const (
	sessionCookieName = "primeestate_session"
	sessionMaxAge     = 7 * 24 * time.Hour
)

type contextKey string

const currentUserKey contextKey = "current_user"

type authService struct {
	store         *store.Store
	sessionSecret []byte
	secureCookie  bool
	now           func() time.Time
}

func newAuthService(st *store.Store, sessionSecret string) *authService {
	return &authService{store: st, sessionSecret: []byte(sessionSecret), now: time.Now}
}

// validateCredentials returns the account for email when password matches.
// Unknown emails and wrong passwords both report ok=false.
func (a *authService) validateCredentials(ctx context.Context, email, password string) (store.User, bool, error) {
	u, hash, err := a.store.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, false, nil
	}
	if err != nil {
		return store.User{}, false, fmt.Errorf("query user credentials: %w", err)
	}
	if !store.CheckPassword(hash, password) {
		return store.User{}, false, nil
	}
	return u, true, nil
}

// createSessionValue signs "<userID>|<issued unix>" with the session secret.
func (a *authService) createSessionValue(userID string) string {
	raw := userID + "|" + strconv.FormatInt(a.now().Unix(), 10)
	payload := base64.RawURLEncoding.EncodeToString([]byte(raw))
	return payload + "." + a.sign(payload)
}

func (a *authService) sign(payload string) string {
	mac := hmac.New(sha256.New, a.sessionSecret)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *authService) verifySessionValue(value string) (string, bool) {
	payload, signature, found := strings.Cut(value, ".")
	if !found {
		return "", false
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return "", false
	}
	expected, _ := hex.DecodeString(a.sign(payload))
	if !hmac.Equal(provided, expected) {
		return "", false
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", false
	}
	userID, issued, found := strings.Cut(string(decoded), "|")
	if !found || userID == "" {
		return "", false
	}
	issuedUnix, err := strconv.ParseInt(issued, 10, 64)
	if err != nil {
		return "", false
	}
	if a.now().Sub(time.Unix(issuedUnix, 0)) > sessionMaxAge {
		return "", false
	}

	return userID, true
}

func (a *authService) setSessionCookie(w http.ResponseWriter, userID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    a.createSessionValue(userID),
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		Secure:   a.secureCookie,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *authService) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   a.secureCookie,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionMiddleware attaches the signed-in user, if any, to the request context.
// It never rejects a request; route guards decide what anonymous visitors may see.
func (s *server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		userID, ok := s.auth.verifySessionValue(cookie.Value)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		u, err := s.store.UserByID(r.Context(), userID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				s.logger.Error("load session user", zap.String("user_id", userID), zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), currentUserKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := currentUser(r)
		if !ok {
			http.Redirect(w, r, "/login?next="+r.URL.Path, http.StatusSeeOther)
			return
		}
		if !u.IsAdmin() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentUser(r *http.Request) (store.User, bool) {
	u, ok := r.Context().Value(currentUserKey).(store.User)
	return u, ok
}
