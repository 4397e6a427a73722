// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createPost submits the new-post form with the given fields.
func createPost(t *testing.T, c *http.Client, baseURL, title, subtitle, body string) *http.Response {
	t.Helper()
	return postForm(t, c, baseURL+RouteNewPost, url.Values{
		"title":    {title},
		"subtitle": {subtitle},
		"body":     {body},
		"img_url":  {"https://example.com/cover.jpg"},
	})
}

func TestFeed(t *testing.T) {
	ts, _ := newTestServer(t)

	t.Run("empty feed", func(t *testing.T) {
		c := newTestClient(t)
		status, body := getPage(t, c, ts.URL+RouteRoot)

		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, "No posts yet.")
	})

	t.Run("lists posts with author names and comment counts", func(t *testing.T) {
		admin := newTestClient(t)
		registerUser(t, admin, ts.URL, "Alice", "alice@example.com", "correct horse battery")
		createPost(t, admin, ts.URL, "First Light", "On beginnings", "Hello **world**.")
		createPost(t, admin, ts.URL, "Second Wind", "On persistence", "Still here.")

		reader := newTestClient(t)
		registerUser(t, reader, ts.URL, "Bob", "bob@example.com", "another passphrase")
		postForm(t, reader, ts.URL+"/post/1", url.Values{"comment": {"Nice read!"}})

		_, body := getPage(t, admin, ts.URL+RouteRoot)
		assert.Contains(t, body, "First Light")
		assert.Contains(t, body, "Second Wind")
		assert.Contains(t, body, "Posted by Alice")
		assert.Contains(t, body, "1 comment")
		assert.Contains(t, body, "0 comments")
	})
}

func TestShowPost(t *testing.T) {
	ts, _ := newTestServer(t)

	admin := newTestClient(t)
	registerUser(t, admin, ts.URL, "Alice", "alice@example.com", "correct horse battery")
	createPost(t, admin, ts.URL, "First Light", "On beginnings", "Hello **world**.")

	t.Run("renders post body as markdown", func(t *testing.T) {
		c := newTestClient(t)
		status, body := getPage(t, c, ts.URL+"/post/1")

		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, "First Light")
		assert.Contains(t, body, "<strong>world</strong>")
		assert.Contains(t, body, "No comments yet.")
	})

	t.Run("unknown post returns 404", func(t *testing.T) {
		c := newTestClient(t)
		status, _ := getPage(t, c, ts.URL+"/post/999")
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("non-numeric post ID returns 404", func(t *testing.T) {
		c := newTestClient(t)
		status, _ := getPage(t, c, ts.URL+"/post/abc")
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestComment(t *testing.T) {
	ts, db := newTestServer(t)

	admin := newTestClient(t)
	registerUser(t, admin, ts.URL, "Alice", "alice@example.com", "correct horse battery")
	createPost(t, admin, ts.URL, "First Light", "On beginnings", "Hello.")

	t.Run("anonymous visitor is sent to login", func(t *testing.T) {
		c := newTestClient(t)
		resp := postForm(t, c, ts.URL+"/post/1", url.Values{"comment": {"Nice read!"}})

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, RouteLogin, resp.Header.Get("Location"))

		_, body := getPage(t, c, ts.URL+RouteLogin)
		assert.Contains(t, body, "You need to login or register to comment.")

		assert.Zero(t, commentCount(t, db, 1))
	})

	t.Run("authenticated reader can comment", func(t *testing.T) {
		reader := newTestClient(t)
		registerUser(t, reader, ts.URL, "Bob", "bob@example.com", "another passphrase")

		resp := postForm(t, reader, ts.URL+"/post/1", url.Values{"comment": {"Nice read!"}})
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/post/1", resp.Header.Get("Location"))

		_, body := getPage(t, reader, ts.URL+"/post/1")
		assert.Contains(t, body, "Nice read!")
		assert.Contains(t, body, "Bob")
		assert.Equal(t, int64(1), commentCount(t, db, 1))
	})

	t.Run("commenting on unknown post returns 404", func(t *testing.T) {
		reader := newTestClient(t)
		loginUser(t, reader, ts.URL, "bob@example.com", "another passphrase")

		resp := postForm(t, reader, ts.URL+"/post/999", url.Values{"comment": {"Hello?"}})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("empty comment is rejected", func(t *testing.T) {
		reader := newTestClient(t)
		loginUser(t, reader, ts.URL, "bob@example.com", "another passphrase")

		resp := postForm(t, reader, ts.URL+"/post/1", url.Values{"comment": {"   "}})
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/post/1", resp.Header.Get("Location"))
		assert.Equal(t, int64(1), commentCount(t, db, 1))
	})
}

func TestAdminGate(t *testing.T) {
	ts, _ := newTestServer(t)

	admin := newTestClient(t)
	registerUser(t, admin, ts.URL, "Alice", "alice@example.com", "correct horse battery")
	createPost(t, admin, ts.URL, "First Light", "On beginnings", "Hello.")

	reader := newTestClient(t)
	registerUser(t, reader, ts.URL, "Bob", "bob@example.com", "another passphrase")

	gated := []string{RouteNewPost, "/edit-post/1", "/delete/1"}

	t.Run("anonymous is redirected to login", func(t *testing.T) {
		for _, route := range gated {
			c := newTestClient(t)
			resp, err := c.Get(ts.URL + route)
			require.NoError(t, err)
			_ = resp.Body.Close()

			assert.Equal(t, http.StatusSeeOther, resp.StatusCode, "route %s", route)
			assert.Equal(t, RouteLogin, resp.Header.Get("Location"), "route %s", route)
		}
	})

	t.Run("reader is forbidden", func(t *testing.T) {
		for _, route := range gated {
			status, body := getPage(t, reader, ts.URL+route)

			assert.Equal(t, http.StatusForbidden, status, "route %s", route)
			assert.Contains(t, body, "insufficient permissions", "route %s", route)
		}
	})

	t.Run("admin can open the post form", func(t *testing.T) {
		status, body := getPage(t, admin, ts.URL+RouteNewPost)

		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, "New Post")
	})
}

func TestCreatePost(t *testing.T) {
	ts, db := newTestServer(t)

	admin := newTestClient(t)
	registerUser(t, admin, ts.URL, "Alice", "alice@example.com", "correct horse battery")

	t.Run("creates post and redirects to feed", func(t *testing.T) {
		resp := createPost(t, admin, ts.URL, "First Light", "On beginnings", "Hello.")

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, RouteRoot, resp.Header.Get("Location"))

		_, body := getPage(t, admin, ts.URL+RouteRoot)
		assert.Contains(t, body, "First Light")
		assert.Contains(t, body, "Post created.")

		// The publish date was stamped as a display string.
		var date string
		require.NoError(t, db.QueryRow(`SELECT date FROM blog_posts WHERE id = 1`).Scan(&date))
		assert.Regexp(t, `^[A-Z][a-z]+ \d{1,2}, \d{4}$`, date)
	})

	t.Run("duplicate title flashes an error", func(t *testing.T) {
		resp := createPost(t, admin, ts.URL, "First Light", "Again", "Other body.")

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, RouteNewPost, resp.Header.Get("Location"))

		_, body := getPage(t, admin, ts.URL+RouteNewPost)
		assert.Contains(t, body, "A post with that title already exists")

		var count int64
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM blog_posts`).Scan(&count))
		assert.Equal(t, int64(1), count)
	})

	t.Run("missing fields flash an error", func(t *testing.T) {
		resp := postForm(t, admin, ts.URL+RouteNewPost, url.Values{"title": {"Untitled"}})

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, RouteNewPost, resp.Header.Get("Location"))
	})
}

func TestEditPost(t *testing.T) {
	ts, db := newTestServer(t)

	admin := newTestClient(t)
	registerUser(t, admin, ts.URL, "Alice", "alice@example.com", "correct horse battery")
	createPost(t, admin, ts.URL, "First Light", "On beginnings", "Hello.")

	var originalDate string
	require.NoError(t, db.QueryRow(`SELECT date FROM blog_posts WHERE id = 1`).Scan(&originalDate))

	t.Run("edit form is pre-filled", func(t *testing.T) {
		status, body := getPage(t, admin, ts.URL+"/edit-post/1")

		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, "Edit Post")
		assert.Contains(t, body, "First Light")
	})

	t.Run("update redirects to the post and keeps the date", func(t *testing.T) {
		resp := postForm(t, admin, ts.URL+"/edit-post/1", url.Values{
			"title":    {"First Light, Revisited"},
			"subtitle": {"On second thoughts"},
			"body":     {"Hello again."},
			"img_url":  {""},
		})

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/post/1", resp.Header.Get("Location"))

		_, body := getPage(t, admin, ts.URL+"/post/1")
		assert.Contains(t, body, "First Light, Revisited")
		assert.Contains(t, body, "On second thoughts")

		var date string
		require.NoError(t, db.QueryRow(`SELECT date FROM blog_posts WHERE id = 1`).Scan(&date))
		assert.Equal(t, originalDate, date)
	})

	t.Run("editing unknown post returns 404", func(t *testing.T) {
		status, _ := getPage(t, admin, ts.URL+"/edit-post/999")
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestDeletePost(t *testing.T) {
	ts, db := newTestServer(t)

	admin := newTestClient(t)
	registerUser(t, admin, ts.URL, "Alice", "alice@example.com", "correct horse battery")
	createPost(t, admin, ts.URL, "First Light", "On beginnings", "Hello.")

	reader := newTestClient(t)
	registerUser(t, reader, ts.URL, "Bob", "bob@example.com", "another passphrase")
	postForm(t, reader, ts.URL+"/post/1", url.Values{"comment": {"Nice read!"}})
	require.Equal(t, int64(1), commentCount(t, db, 1))

	t.Run("reader cannot delete", func(t *testing.T) {
		status, _ := getPage(t, reader, ts.URL+"/delete/1")
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("admin delete cascades to comments", func(t *testing.T) {
		resp, err := admin.Get(ts.URL + "/delete/1")
		require.NoError(t, err)
		_ = resp.Body.Close()

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, RouteRoot, resp.Header.Get("Location"))

		_, feed := getPage(t, admin, ts.URL+RouteRoot)
		assert.Contains(t, feed, "Post deleted.")

		status, _ := getPage(t, admin, ts.URL+"/post/1")
		assert.Equal(t, http.StatusNotFound, status)
		assert.Zero(t, commentCount(t, db, 1))
	})

	t.Run("deleting unknown post returns 404", func(t *testing.T) {
		status, _ := getPage(t, admin, ts.URL+"/delete/999")
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	c := newTestClient(t)
	status, body := getPage(t, c, ts.URL+RouteHealth)

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"status":"healthy"`)
	assert.Contains(t, body, `"database"`)
}

func TestSitePages(t *testing.T) {
	ts, _ := newTestServer(t)

	t.Run("about page", func(t *testing.T) {
		c := newTestClient(t)
		status, body := getPage(t, c, ts.URL+RouteAbout)

		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, "About Me")
	})

	t.Run("contact form", func(t *testing.T) {
		c := newTestClient(t)
		status, body := getPage(t, c, ts.URL+RouteContact)

		assert.Equal(t, http.StatusOK, status)
		assert.Contains(t, body, "Contact Me")
	})

	t.Run("contact submission confirms delivery", func(t *testing.T) {
		c := newTestClient(t)
		resp, err := c.PostForm(ts.URL+RouteContact, url.Values{
			"name":    {"Ada"},
			"email":   {"ada@example.com"},
			"phone":   {"555-0100"},
			"message": {"Loved the latest post."},
		})
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "Successfully sent your message")
	})

	t.Run("incomplete contact submission flashes an error", func(t *testing.T) {
		c := newTestClient(t)
		resp := postForm(t, c, ts.URL+RouteContact, url.Values{"name": {"Ada"}})

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, RouteContact, resp.Header.Get("Location"))
	})
}
