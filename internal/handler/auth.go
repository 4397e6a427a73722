// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/quillcms/quill/internal/auth"
	"github.com/quillcms/quill/internal/middleware"
	"github.com/quillcms/quill/internal/render"
	"github.com/quillcms/quill/internal/store"
)

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	db             *sql.DB
	queries        *store.Queries
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager) *AuthHandler {
	return &AuthHandler{
		db:             db,
		queries:        store.New(db),
		renderer:       renderer,
		sessionManager: sm,
	}
}

// RegisterForm renders the registration page.
// Already-authenticated users are sent back to the feed.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUser(r) != nil {
		http.Redirect(w, r, redirectRoot, http.StatusSeeOther)
		return
	}
	h.renderer.RenderPage(w, r, "register", render.TemplateData{Title: "Register"})
}

// Register handles the registration form submission. The first account ever
// registered becomes the administrator; everyone after that is a reader. The
// count check and the insert run in one transaction so concurrent first
// registrations cannot both claim the admin role.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectRegister) {
		return
	}

	name := r.FormValue("name")
	email := r.FormValue("email")
	password := r.FormValue("password")

	if name == "" || email == "" || password == "" {
		flashError(w, r, h.renderer, redirectRegister, "Name, email and password are required")
		return
	}

	// Duplicate emails also trip the UNIQUE constraint below; checking first
	// gives the friendlier flash for the common case.
	if _, err := h.queries.GetUserByEmail(r.Context(), email); err == nil {
		flashAndRedirect(w, r, h.renderer, redirectLogin,
			"You've already signed up with that email, login instead", "info")
		return
	} else if !errors.Is(err, sql.ErrNoRows) {
		logAndInternalError(w, "database error during registration", "error", err)
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		logAndInternalError(w, "password hashing error", "error", err)
		return
	}

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		logAndInternalError(w, "transaction begin error", "error", err)
		return
	}
	defer func() { _ = tx.Rollback() }()

	qtx := h.queries.WithTx(tx)

	count, err := qtx.CountUsers(r.Context())
	if err != nil {
		logAndInternalError(w, "user count error", "error", err)
		return
	}

	role := store.RoleReader
	if count == 0 {
		role = store.RoleAdmin
	}

	now := time.Now()
	user, err := qtx.CreateUser(r.Context(), store.CreateUserParams{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if isUniqueViolation(err) {
			flashAndRedirect(w, r, h.renderer, redirectLogin,
				"You've already signed up with that email, login instead", "info")
			return
		}
		logAndInternalError(w, "user creation error", "error", err)
		return
	}

	if err := tx.Commit(); err != nil {
		logAndInternalError(w, "transaction commit error", "error", err)
		return
	}

	// Regenerate the session ID before elevating it to an authenticated one.
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), SessionKeyUserID, user.ID)

	slog.Info("user registered", "user_id", user.ID, "email", user.Email, "role", user.Role)
	http.Redirect(w, r, redirectRoot, http.StatusSeeOther)
}

// LoginForm renders the login page.
// Already-authenticated users are sent back to the feed.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUser(r) != nil {
		http.Redirect(w, r, redirectRoot, http.StatusSeeOther)
		return
	}
	h.renderer.RenderPage(w, r, "login", render.TemplateData{Title: "Log In"})
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectLogin) {
		return
	}

	email := r.FormValue("email")
	password := r.FormValue("password")

	if email == "" || password == "" {
		flashError(w, r, h.renderer, redirectLogin, "Email and password are required")
		return
	}

	user, err := h.queries.GetUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Debug("login attempt for unknown email", "email", email)
			flashError(w, r, h.renderer, redirectLogin,
				"Entered email doesn't exists, Try again or register a new account")
			return
		}
		logAndInternalError(w, "database error during login", "error", err)
		return
	}

	valid, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		slog.Error("password check error", "error", err)
		flashError(w, r, h.renderer, redirectLogin, "Incorrect password")
		return
	}
	if !valid {
		slog.Debug("invalid password attempt", "email", email)
		flashError(w, r, h.renderer, redirectLogin, "Incorrect password")
		return
	}

	// Re-hash the credential if the stored hash uses outdated parameters.
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(password); err == nil {
			if err := h.queries.UpdateUserPassword(r.Context(), store.UpdateUserPasswordParams{
				PasswordHash: newHash,
				UpdatedAt:    time.Now(),
				ID:           user.ID,
			}); err != nil {
				slog.Error("failed to re-hash password", "error", err, "user_id", user.ID)
			} else {
				slog.Info("password re-hashed with updated parameters", "user_id", user.ID)
			}
		}
	}

	// Regenerate session ID to prevent session fixation.
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), SessionKeyUserID, user.ID)

	slog.Info("user logged in", "user_id", user.ID, "email", user.Email)
	http.Redirect(w, r, redirectRoot, http.StatusSeeOther)
}

// Logout destroys the session and returns to the feed.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	slog.Info("user logged out", "user_id", userID)
	http.Redirect(w, r, redirectRoot, http.StatusSeeOther)
}
