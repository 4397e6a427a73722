// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/quillcms/quill/internal/mailer"
	"github.com/quillcms/quill/internal/middleware"
	"github.com/quillcms/quill/internal/render"
)

// SiteHandler handles the static site pages and the contact form.
type SiteHandler struct {
	renderer *render.Renderer
	notifier mailer.Notifier
}

// NewSiteHandler creates a new SiteHandler.
func NewSiteHandler(renderer *render.Renderer, notifier mailer.Notifier) *SiteHandler {
	return &SiteHandler{
		renderer: renderer,
		notifier: notifier,
	}
}

// contactData is the payload for the contact page.
type contactData struct {
	Sent bool
}

// About renders the about page.
// GET /about
func (h *SiteHandler) About(w http.ResponseWriter, r *http.Request) {
	h.renderer.RenderPage(w, r, "about", render.TemplateData{
		Title: "About Me",
		User:  middleware.GetUser(r),
	})
}

// ContactForm renders the blank contact form.
// GET /contact
func (h *SiteHandler) ContactForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.RenderPage(w, r, "contact", render.TemplateData{
		Title: "Contact Me",
		User:  middleware.GetUser(r),
		Data:  contactData{Sent: false},
	})
}

// Contact handles the contact form submission and re-renders the page in
// its "message sent" state on success.
// POST /contact
func (h *SiteHandler) Contact(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectContact) {
		return
	}

	msg := mailer.Message{
		Name:  r.FormValue("name"),
		Email: r.FormValue("email"),
		Phone: r.FormValue("phone"),
		Body:  r.FormValue("message"),
	}

	if msg.Name == "" || msg.Email == "" || msg.Body == "" {
		flashError(w, r, h.renderer, redirectContact, "Name, email and message are required")
		return
	}

	if err := h.notifier.Notify(msg); err != nil {
		logAndInternalError(w, "failed to deliver contact message", "error", err)
		return
	}

	slog.Info("contact message delivered", "from", msg.Email)
	h.renderer.RenderPage(w, r, "contact", render.TemplateData{
		Title: "Contact Me",
		User:  middleware.GetUser(r),
		Data:  contactData{Sent: true},
	})
}
