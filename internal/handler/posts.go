// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/quillcms/quill/internal/middleware"
	"github.com/quillcms/quill/internal/render"
	"github.com/quillcms/quill/internal/store"
)

// displayDateFormat is the human-readable publish date stamped on new posts.
const displayDateFormat = "January 2, 2006"

// PostsHandler handles the post feed, single posts, comments and the
// admin-only post CRUD routes.
type PostsHandler struct {
	queries  *store.Queries
	renderer *render.Renderer
}

// NewPostsHandler creates a new PostsHandler.
func NewPostsHandler(db *sql.DB, renderer *render.Renderer) *PostsHandler {
	return &PostsHandler{
		queries:  store.New(db),
		renderer: renderer,
	}
}

// feedPost is a feed entry with its comment count.
type feedPost struct {
	store.ListPostsRow
	CommentCount int64
}

// feedData is the payload for the index page.
type feedData struct {
	Posts []feedPost
}

// postData is the payload for the single post page.
type postData struct {
	Post     store.GetPostByIDRow
	Comments []store.ListCommentsForPostRow
}

// postFormData is the payload for the shared new/edit post form.
type postFormData struct {
	Heading string
	Action  string
	Post    store.GetPostByIDRow
}

// Feed renders every post, oldest first.
// GET /
func (h *PostsHandler) Feed(w http.ResponseWriter, r *http.Request) {
	posts, err := h.queries.ListPosts(r.Context())
	if err != nil {
		logAndInternalError(w, "failed to list posts", "error", err)
		return
	}

	feed := make([]feedPost, 0, len(posts))
	for _, post := range posts {
		count, err := h.queries.CountCommentsForPost(r.Context(), post.ID)
		if err != nil {
			logAndInternalError(w, "failed to count comments", "error", err, "post_id", post.ID)
			return
		}
		feed = append(feed, feedPost{ListPostsRow: post, CommentCount: count})
	}

	h.renderer.RenderPage(w, r, "index", render.TemplateData{
		Title: "Home",
		User:  middleware.GetUser(r),
		Data:  feedData{Posts: feed},
	})
}

// Show renders a single post with its comments.
// GET /post/{postID}
func (h *PostsHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "postID")
	if err != nil {
		http.Error(w, "post not found", http.StatusNotFound)
		return
	}

	post, ok := requireEntityWithError(w, "post", id, func(id int64) (store.GetPostByIDRow, error) {
		return h.queries.GetPostByID(r.Context(), id)
	})
	if !ok {
		return
	}

	comments, err := h.queries.ListCommentsForPost(r.Context(), id)
	if err != nil {
		logAndInternalError(w, "failed to list comments", "error", err, "post_id", id)
		return
	}

	h.renderer.RenderPage(w, r, "post", render.TemplateData{
		Title: post.Title,
		User:  middleware.GetUser(r),
		Data:  postData{Post: post, Comments: comments},
	})
}

// Comment handles a comment form submission on a post. Anonymous visitors
// are flashed toward the login page; the comment itself is attributed to
// the current principal.
// POST /post/{postID}
func (h *PostsHandler) Comment(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	if user == nil {
		flashAndRedirect(w, r, h.renderer, redirectLogin,
			"You need to login or register to comment.", "info")
		return
	}

	id, err := parseIDParam(r, "postID")
	if err != nil {
		http.Error(w, "post not found", http.StatusNotFound)
		return
	}

	post, ok := requireEntityWithError(w, "post", id, func(id int64) (store.GetPostByIDRow, error) {
		return h.queries.GetPostByID(r.Context(), id)
	})
	if !ok {
		return
	}

	postURL := fmt.Sprintf(redirectPostID, post.ID)

	if !parseFormOrRedirect(w, r, h.renderer, postURL) {
		return
	}

	text := strings.TrimSpace(r.FormValue("comment"))
	if text == "" {
		flashError(w, r, h.renderer, postURL, "Comment text is required")
		return
	}

	if _, err := h.queries.CreateComment(r.Context(), store.CreateCommentParams{
		Text:      text,
		AuthorID:  user.ID,
		PostID:    post.ID,
		CreatedAt: time.Now(),
	}); err != nil {
		logAndInternalError(w, "failed to create comment", "error", err, "post_id", post.ID)
		return
	}

	slog.Info("comment created", "post_id", post.ID, "user_id", user.ID)
	http.Redirect(w, r, postURL, http.StatusSeeOther)
}

// NewForm renders the empty post creation form.
// GET /new-post
func (h *PostsHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.renderer.RenderPage(w, r, "post_form", render.TemplateData{
		Title: "New Post",
		User:  middleware.GetUser(r),
		Data:  postFormData{Heading: "New Post", Action: RouteNewPost},
	})
}

// Create handles the post creation form submission. The publish date is
// stamped once, at creation time, as a display string.
// POST /new-post
func (h *PostsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectNewPost) {
		return
	}

	title := r.FormValue("title")
	subtitle := r.FormValue("subtitle")
	body := r.FormValue("body")
	imgURL := r.FormValue("img_url")

	if title == "" || subtitle == "" || body == "" {
		flashError(w, r, h.renderer, redirectNewPost, "Title, subtitle and body are required")
		return
	}

	now := time.Now()
	post, err := h.queries.CreatePost(r.Context(), store.CreatePostParams{
		Title:     title,
		Subtitle:  subtitle,
		Date:      now.Format(displayDateFormat),
		Body:      body,
		ImgURL:    imgURL,
		AuthorID:  middleware.GetUserID(r),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if isUniqueViolation(err) {
			flashError(w, r, h.renderer, redirectNewPost, "A post with that title already exists")
			return
		}
		logAndInternalError(w, "failed to create post", "error", err)
		return
	}

	slog.Info("post created", "post_id", post.ID, "title", post.Title)
	flashSuccess(w, r, h.renderer, redirectRoot, "Post created.")
}

// EditForm renders the post form pre-filled with an existing post.
// GET /edit-post/{postID}
func (h *PostsHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "postID")
	if err != nil {
		http.Error(w, "post not found", http.StatusNotFound)
		return
	}

	post, ok := requireEntityWithError(w, "post", id, func(id int64) (store.GetPostByIDRow, error) {
		return h.queries.GetPostByID(r.Context(), id)
	})
	if !ok {
		return
	}

	h.renderer.RenderPage(w, r, "post_form", render.TemplateData{
		Title: "Edit Post",
		User:  middleware.GetUser(r),
		Data: postFormData{
			Heading: "Edit Post",
			Action:  fmt.Sprintf(redirectEditID, post.ID),
			Post:    post,
		},
	})
}

// Update handles the post edit form submission. The post is reattributed to
// the editing principal; the original publish date string is left untouched.
// POST /edit-post/{postID}
func (h *PostsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "postID")
	if err != nil {
		http.Error(w, "post not found", http.StatusNotFound)
		return
	}

	post, ok := requireEntityWithError(w, "post", id, func(id int64) (store.GetPostByIDRow, error) {
		return h.queries.GetPostByID(r.Context(), id)
	})
	if !ok {
		return
	}

	editURL := fmt.Sprintf(redirectEditID, post.ID)

	if !parseFormOrRedirect(w, r, h.renderer, editURL) {
		return
	}

	title := r.FormValue("title")
	subtitle := r.FormValue("subtitle")
	body := r.FormValue("body")
	imgURL := r.FormValue("img_url")

	if title == "" || subtitle == "" || body == "" {
		flashError(w, r, h.renderer, editURL, "Title, subtitle and body are required")
		return
	}

	if err := h.queries.UpdatePost(r.Context(), store.UpdatePostParams{
		Title:     title,
		Subtitle:  subtitle,
		Body:      body,
		ImgURL:    imgURL,
		AuthorID:  middleware.GetUserID(r),
		UpdatedAt: time.Now(),
		ID:        post.ID,
	}); err != nil {
		if isUniqueViolation(err) {
			flashError(w, r, h.renderer, editURL, "A post with that title already exists")
			return
		}
		logAndInternalError(w, "failed to update post", "error", err, "post_id", post.ID)
		return
	}

	slog.Info("post updated", "post_id", post.ID)
	http.Redirect(w, r, fmt.Sprintf(redirectPostID, post.ID), http.StatusSeeOther)
}

// Delete removes a post and, through the foreign key cascade, its comments.
// GET /delete/{postID}
func (h *PostsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "postID")
	if err != nil {
		http.Error(w, "post not found", http.StatusNotFound)
		return
	}

	post, ok := requireEntityWithError(w, "post", id, func(id int64) (store.GetPostByIDRow, error) {
		return h.queries.GetPostByID(r.Context(), id)
	})
	if !ok {
		return
	}

	if err := h.queries.DeletePost(r.Context(), post.ID); err != nil {
		logAndInternalError(w, "failed to delete post", "error", err, "post_id", post.ID)
		return
	}

	slog.Info("post deleted", "post_id", post.ID, "title", post.Title)
	flashSuccess(w, r, h.renderer, redirectRoot, "Post deleted.")
}
