// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is the common interface of *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries wraps a database handle with typed query methods.
type Queries struct {
	db DBTX
}

// New creates a Queries instance for the given database handle.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries instance bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const createUser = `
INSERT INTO users (email, password_hash, role, name, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, email, password_hash, role, name, created_at, updated_at
`

// CreateUserParams holds the parameters for CreateUser.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Role         string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateUser inserts a new user and returns the created row.
// Fails with a UNIQUE constraint error if the email is already registered.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Email, arg.PasswordHash, arg.Role, arg.Name, arg.CreatedAt, arg.UpdatedAt)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

const getUserByID = `
SELECT id, email, password_hash, role, name, created_at, updated_at
FROM users WHERE id = ?
`

// GetUserByID fetches a user by primary key. Returns sql.ErrNoRows if absent.
func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

const getUserByEmail = `
SELECT id, email, password_hash, role, name, created_at, updated_at
FROM users WHERE email = ?
`

// GetUserByEmail fetches a user by login email. Returns sql.ErrNoRows if absent.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.Name, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

const countUsers = `SELECT COUNT(*) FROM users`

// CountUsers returns the total number of registered users.
func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countUsers).Scan(&count)
	return count, err
}

const updateUserPassword = `
UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?
`

// UpdateUserPasswordParams holds the parameters for UpdateUserPassword.
type UpdateUserPasswordParams struct {
	PasswordHash string
	UpdatedAt    time.Time
	ID           int64
}

// UpdateUserPassword replaces the stored credential hash for a user.
func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx, updateUserPassword, arg.PasswordHash, arg.UpdatedAt, arg.ID)
	return err
}

const createPost = `
INSERT INTO blog_posts (title, subtitle, date, body, img_url, author_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, title, subtitle, date, body, img_url, author_id, created_at, updated_at
`

// CreatePostParams holds the parameters for CreatePost.
type CreatePostParams struct {
	Title     string
	Subtitle  string
	Date      string
	Body      string
	ImgURL    string
	AuthorID  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreatePost inserts a new blog post and returns the created row.
// Fails with a UNIQUE constraint error if the title already exists.
func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) (BlogPost, error) {
	row := q.db.QueryRowContext(ctx, createPost,
		arg.Title, arg.Subtitle, arg.Date, arg.Body, arg.ImgURL, arg.AuthorID, arg.CreatedAt, arg.UpdatedAt)
	var p BlogPost
	err := row.Scan(&p.ID, &p.Title, &p.Subtitle, &p.Date, &p.Body, &p.ImgURL, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const getPostByID = `
SELECT p.id, p.title, p.subtitle, p.date, p.body, p.img_url, p.author_id,
       p.created_at, p.updated_at, u.name AS author_name
FROM blog_posts p
JOIN users u ON u.id = p.author_id
WHERE p.id = ?
`

// GetPostByIDRow is a blog post joined with its author's display name.
type GetPostByIDRow struct {
	ID         int64
	Title      string
	Subtitle   string
	Date       string
	Body       string
	ImgURL     string
	AuthorID   int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
	AuthorName string
}

// GetPostByID fetches a post with its author name. Returns sql.ErrNoRows if absent.
func (q *Queries) GetPostByID(ctx context.Context, id int64) (GetPostByIDRow, error) {
	row := q.db.QueryRowContext(ctx, getPostByID, id)
	var p GetPostByIDRow
	err := row.Scan(&p.ID, &p.Title, &p.Subtitle, &p.Date, &p.Body, &p.ImgURL, &p.AuthorID,
		&p.CreatedAt, &p.UpdatedAt, &p.AuthorName)
	return p, err
}

const listPosts = `
SELECT p.id, p.title, p.subtitle, p.date, p.body, p.img_url, p.author_id,
       p.created_at, p.updated_at, u.name AS author_name
FROM blog_posts p
JOIN users u ON u.id = p.author_id
ORDER BY p.id
`

// ListPostsRow is a blog post joined with its author's display name.
type ListPostsRow struct {
	ID         int64
	Title      string
	Subtitle   string
	Date       string
	Body       string
	ImgURL     string
	AuthorID   int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
	AuthorName string
}

// ListPosts returns every post in insertion order for the feed.
func (q *Queries) ListPosts(ctx context.Context) ([]ListPostsRow, error) {
	rows, err := q.db.QueryContext(ctx, listPosts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListPostsRow
	for rows.Next() {
		var p ListPostsRow
		if err := rows.Scan(&p.ID, &p.Title, &p.Subtitle, &p.Date, &p.Body, &p.ImgURL, &p.AuthorID,
			&p.CreatedAt, &p.UpdatedAt, &p.AuthorName); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const updatePost = `
UPDATE blog_posts
SET title = ?, subtitle = ?, body = ?, img_url = ?, author_id = ?, updated_at = ?
WHERE id = ?
`

// UpdatePostParams holds the parameters for UpdatePost.
// The publish date string is immutable; only created_at keeps the insertion order.
type UpdatePostParams struct {
	Title     string
	Subtitle  string
	Body      string
	ImgURL    string
	AuthorID  int64
	UpdatedAt time.Time
	ID        int64
}

// UpdatePost overwrites the mutable fields of a post, including the author reference.
func (q *Queries) UpdatePost(ctx context.Context, arg UpdatePostParams) error {
	_, err := q.db.ExecContext(ctx, updatePost,
		arg.Title, arg.Subtitle, arg.Body, arg.ImgURL, arg.AuthorID, arg.UpdatedAt, arg.ID)
	return err
}

const deletePost = `DELETE FROM blog_posts WHERE id = ?`

// DeletePost removes a post. Comments referencing it are cascade-deleted
// by the foreign key constraint.
func (q *Queries) DeletePost(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deletePost, id)
	return err
}

const createComment = `
INSERT INTO comments (text, author_id, post_id, created_at)
VALUES (?, ?, ?, ?)
RETURNING id, text, author_id, post_id, created_at
`

// CreateCommentParams holds the parameters for CreateComment.
type CreateCommentParams struct {
	Text      string
	AuthorID  int64
	PostID    int64
	CreatedAt time.Time
}

// CreateComment inserts a comment bound to an existing user and post.
// Fails with a foreign key error if either reference does not resolve.
func (q *Queries) CreateComment(ctx context.Context, arg CreateCommentParams) (Comment, error) {
	row := q.db.QueryRowContext(ctx, createComment, arg.Text, arg.AuthorID, arg.PostID, arg.CreatedAt)
	var c Comment
	err := row.Scan(&c.ID, &c.Text, &c.AuthorID, &c.PostID, &c.CreatedAt)
	return c, err
}

const listCommentsForPost = `
SELECT c.id, c.text, c.author_id, c.post_id, c.created_at,
       u.name AS author_name, u.email AS author_email
FROM comments c
JOIN users u ON u.id = c.author_id
WHERE c.post_id = ?
ORDER BY c.id
`

// ListCommentsForPostRow is a comment joined with its author's name and email.
type ListCommentsForPostRow struct {
	ID          int64
	Text        string
	AuthorID    int64
	PostID      int64
	CreatedAt   time.Time
	AuthorName  string
	AuthorEmail string
}

// ListCommentsForPost returns all comments on a post in insertion order.
func (q *Queries) ListCommentsForPost(ctx context.Context, postID int64) ([]ListCommentsForPostRow, error) {
	rows, err := q.db.QueryContext(ctx, listCommentsForPost, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListCommentsForPostRow
	for rows.Next() {
		var c ListCommentsForPostRow
		if err := rows.Scan(&c.ID, &c.Text, &c.AuthorID, &c.PostID, &c.CreatedAt,
			&c.AuthorName, &c.AuthorEmail); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const countCommentsForPost = `SELECT COUNT(*) FROM comments WHERE post_id = ?`

// CountCommentsForPost returns the number of comments on a post.
func (q *Queries) CountCommentsForPost(ctx context.Context, postID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countCommentsForPost, postID).Scan(&count)
	return count, err
}
