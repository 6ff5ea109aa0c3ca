package main

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/Simplici0/primeestate/internal/store"
)

const minPasswordLength = 8

type loginViewData struct {
	baseViewData
	Email string
	Next  string
}

type registerViewData struct {
	baseViewData
	Email string
}

func (s *server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.renderTemplate(w, r, http.StatusOK, "login.html", loginViewData{
		baseViewData: s.baseView(r),
		Next:         safeNext(r.URL.Query().Get("next")),
	})
}

func (s *server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	email := store.NormalizeEmail(r.FormValue("email"))
	password := r.FormValue("password")
	next := safeNext(r.FormValue("next"))

	u, valid, err := s.auth.validateCredentials(r.Context(), email, password)
	if err != nil {
		s.logger.Error("validate credentials", zap.Error(err))
		http.Error(w, "authentication error", http.StatusInternalServerError)
		return
	}
	if !valid {
		data := loginViewData{baseViewData: s.baseView(r), Email: email, Next: next}
		data.ErrorMessage = "Invalid email or password."
		s.renderTemplate(w, r, http.StatusUnauthorized, "login.html", data)
		return
	}

	s.auth.setSessionCookie(w, u.ID)
	s.logger.Info("user signed in", zap.String("user_id", u.ID), zap.String("role", u.Role))
	if next == "" {
		next = "/calculator"
		if u.IsAdmin() {
			next = "/admin"
		}
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(r); ok {
		http.Redirect(w, r, "/calculator", http.StatusSeeOther)
		return
	}
	s.renderTemplate(w, r, http.StatusOK, "register.html", registerViewData{baseViewData: s.baseView(r)})
}

func (s *server) handleRegisterSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	email := store.NormalizeEmail(r.FormValue("email"))
	password := r.FormValue("password")
	data := registerViewData{baseViewData: s.baseView(r), Email: email}

	if _, err := mail.ParseAddress(email); err != nil {
		data.ErrorMessage = "Please enter a valid email address."
		s.renderTemplate(w, r, http.StatusBadRequest, "register.html", data)
		return
	}
	if len(password) < minPasswordLength {
		data.ErrorMessage = "Password must be at least 8 characters."
		s.renderTemplate(w, r, http.StatusBadRequest, "register.html", data)
		return
	}

	hash, err := store.HashPassword(password)
	if err != nil {
		s.logger.Error("hash password", zap.Error(err))
		http.Error(w, "registration error", http.StatusInternalServerError)
		return
	}

	u, err := s.store.CreateUser(r.Context(), email, hash, store.RoleUser)
	if errors.Is(err, store.ErrEmailTaken) {
		data.ErrorMessage = "An account with this email already exists."
		s.renderTemplate(w, r, http.StatusConflict, "register.html", data)
		return
	}
	if err != nil {
		s.logger.Error("create user", zap.Error(err))
		http.Error(w, "registration error", http.StatusInternalServerError)
		return
	}

	s.auth.setSessionCookie(w, u.ID)
	s.logger.Info("user registered", zap.String("user_id", u.ID))
	http.Redirect(w, r, "/calculator", http.StatusSeeOther)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// safeNext accepts only same-site absolute paths as a post-login redirect target.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}
