package handler

import (
	"database/sql"
	"io"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	_ "modernc.org/sqlite"

	"github.com/quillcms/quill/internal/mailer"
	"github.com/quillcms/quill/internal/middleware"
	"github.com/quillcms/quill/internal/render"
	"github.com/quillcms/quill/web"
)

// testDB creates an in-memory SQLite database with the required schema for testing.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// The in-memory database lives on a single connection.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'reader',
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX idx_users_email ON users(email);

		CREATE TABLE sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		);
		CREATE INDEX idx_sessions_expiry ON sessions(expiry);

		CREATE TABLE blog_posts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL UNIQUE,
			subtitle TEXT NOT NULL,
			date TEXT NOT NULL,
			body TEXT NOT NULL,
			img_url TEXT NOT NULL DEFAULT '',
			author_id INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (author_id) REFERENCES users(id)
		);
		CREATE INDEX idx_blog_posts_author_id ON blog_posts(author_id);

		CREATE TABLE comments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			text TEXT NOT NULL,
			author_id INTEGER NOT NULL,
			post_id INTEGER NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (author_id) REFERENCES users(id),
			FOREIGN KEY (post_id) REFERENCES blog_posts(id) ON DELETE CASCADE
		);
		CREATE INDEX idx_comments_post_id ON comments(post_id);
	`

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// testSessionManager creates a session manager for testing.
func testSessionManager(t *testing.T) *scs.SessionManager {
	t.Helper()
	sm := scs.New()
	sm.Lifetime = 24 * time.Hour
	return sm
}

// testRenderer creates a renderer over the embedded templates.
func testRenderer(t *testing.T, sm *scs.SessionManager) *render.Renderer {
	t.Helper()

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("failed to sub templates FS: %v", err)
	}

	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sm,
		IsDev:          true,
	})
	if err != nil {
		t.Fatalf("failed to create renderer: %v", err)
	}
	return renderer
}

// newTestServer wires the full application router, minus the CSRF layer,
// against an in-memory database and returns the running test server.
func newTestServer(t *testing.T) (*httptest.Server, *sql.DB) {
	t.Helper()

	db := testDB(t)
	sm := testSessionManager(t)
	renderer := testRenderer(t, sm)

	authHandler := NewAuthHandler(db, renderer, sm)
	postsHandler := NewPostsHandler(db, renderer)
	siteHandler := NewSiteHandler(renderer, &mailer.LogNotifier{})
	healthHandler := NewHealthHandler(db)

	r := chi.NewRouter()
	r.Use(sm.LoadAndSave)
	r.Use(middleware.LoadUser(sm, db))

	r.Get(RouteHealth, healthHandler.Health)

	r.Get(RouteRoot, postsHandler.Feed)
	r.Get(RoutePost, postsHandler.Show)
	r.Post(RoutePost, postsHandler.Comment)
	r.Get(RouteAbout, siteHandler.About)
	r.Get(RouteContact, siteHandler.ContactForm)
	r.Post(RouteContact, siteHandler.Contact)

	r.Get(RouteRegister, authHandler.RegisterForm)
	r.Post(RouteRegister, authHandler.Register)
	r.Get(RouteLogin, authHandler.LoginForm)
	r.Post(RouteLogin, authHandler.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth())
		r.Get(RouteLogout, authHandler.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin())
		r.Get(RouteNewPost, postsHandler.NewForm)
		r.Post(RouteNewPost, postsHandler.Create)
		r.Get(RouteEditPost, postsHandler.EditForm)
		r.Post(RouteEditPost, postsHandler.Update)
		r.Get(RouteDeletePost, postsHandler.Delete)
	})

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return ts, db
}

// newTestClient creates an HTTP client with a cookie jar that does not
// follow redirects, so tests can assert on 3xx responses directly.
func newTestClient(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}

	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// getPage fetches a URL and returns the response status and body.
func getPage(t *testing.T, c *http.Client, pageURL string) (int, string) {
	t.Helper()

	resp, err := c.Get(pageURL)
	if err != nil {
		t.Fatalf("GET %s: %v", pageURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return resp.StatusCode, string(body)
}

// postForm submits a form and returns the response with its body drained.
func postForm(t *testing.T, c *http.Client, formURL string, form url.Values) *http.Response {
	t.Helper()

	resp, err := c.PostForm(formURL, form)
	if err != nil {
		t.Fatalf("POST %s: %v", formURL, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp
}

// registerUser submits the registration form for the given account.
func registerUser(t *testing.T, c *http.Client, baseURL, name, email, password string) *http.Response {
	t.Helper()
	return postForm(t, c, baseURL+RouteRegister, url.Values{
		"name":     {name},
		"email":    {email},
		"password": {password},
	})
}

// loginUser submits the login form for the given credentials.
func loginUser(t *testing.T, c *http.Client, baseURL, email, password string) *http.Response {
	t.Helper()
	return postForm(t, c, baseURL+RouteLogin, url.Values{
		"email":    {email},
		"password": {password},
	})
}

// userRole reads a user's role column directly.
func userRole(t *testing.T, db *sql.DB, email string) string {
	t.Helper()

	var role string
	if err := db.QueryRow(`SELECT role FROM users WHERE email = ?`, email).Scan(&role); err != nil {
		t.Fatalf("reading role for %s: %v", email, err)
	}
	return role
}

// commentCount counts the comments on a post directly.
func commentCount(t *testing.T, db *sql.DB, postID int64) int64 {
	t.Helper()

	var count int64
	if err := db.QueryRow(`SELECT COUNT(*) FROM comments WHERE post_id = ?`, postID).Scan(&count); err != nil {
		t.Fatalf("counting comments: %v", err)
	}
	return count
}
