// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillcms/quill/web"
)

func testRenderer(t *testing.T) (*Renderer, *scs.SessionManager) {
	t.Helper()

	templatesFS, err := fs.Sub(web.Templates, "templates")
	require.NoError(t, err)

	sm := scs.New()
	r, err := New(Config{
		TemplatesFS:    templatesFS,
		SessionManager: sm,
		IsDev:          true,
	})
	require.NoError(t, err)
	return r, sm
}

// serveWithSession runs a handler inside the session middleware so that
// flash operations have session data to work with.
func serveWithSession(sm *scs.SessionManager, h http.HandlerFunc) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sm.LoadAndSave(h).ServeHTTP(rec, req)
	return rec
}

func TestNew_ParsesAllPages(t *testing.T) {
	r, _ := testRenderer(t)

	for _, name := range []string{"index", "post", "post_form", "register", "login", "about", "contact"} {
		_, ok := r.templates[name]
		assert.True(t, ok, "template %s should be parsed", name)
	}
}

func TestRenderPage(t *testing.T) {
	r, sm := testRenderer(t)

	t.Run("renders page in base layout", func(t *testing.T) {
		rec := serveWithSession(sm, func(w http.ResponseWriter, req *http.Request) {
			r.RenderPage(w, req, "about", TemplateData{Title: "About Me"})
		})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		body := rec.Body.String()
		assert.Contains(t, body, "<title>About Me — Quill</title>")
		assert.Contains(t, body, "About Me")
	})

	t.Run("unknown template yields 500", func(t *testing.T) {
		rec := serveWithSession(sm, func(w http.ResponseWriter, req *http.Request) {
			r.RenderPage(w, req, "no-such-page", TemplateData{})
		})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("includes pending flash message", func(t *testing.T) {
		rec := serveWithSession(sm, func(w http.ResponseWriter, req *http.Request) {
			r.SetFlash(req, "Welcome back!", "success")
			r.RenderPage(w, req, "about", TemplateData{Title: "About Me"})
		})

		body := rec.Body.String()
		assert.Contains(t, body, "Welcome back!")
		assert.Contains(t, body, "flash-success")
	})
}

func TestFlash(t *testing.T) {
	r, sm := testRenderer(t)

	t.Run("pop returns message once", func(t *testing.T) {
		serveWithSession(sm, func(w http.ResponseWriter, req *http.Request) {
			r.SetFlash(req, "Post created.", "success")

			msg, msgType := r.PopFlash(req)
			assert.Equal(t, "Post created.", msg)
			assert.Equal(t, "success", msgType)

			msg, msgType = r.PopFlash(req)
			assert.Empty(t, msg)
			assert.Empty(t, msgType)
		})
	})

	t.Run("missing type defaults to info", func(t *testing.T) {
		serveWithSession(sm, func(w http.ResponseWriter, req *http.Request) {
			sm.Put(req.Context(), sessionKeyFlash, "Heads up.")

			msg, msgType := r.PopFlash(req)
			assert.Equal(t, "Heads up.", msg)
			assert.Equal(t, "info", msgType)
		})
	})
}

func TestRenderMarkdown(t *testing.T) {
	html := string(renderMarkdown("# Heading\n\nSome **bold** text."))

	assert.Contains(t, html, "<h1>")
	assert.Contains(t, html, "<strong>bold</strong>")
	assert.True(t, strings.Contains(html, "Heading"))
}
