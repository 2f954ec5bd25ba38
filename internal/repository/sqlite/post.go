package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

var _ repository.PostRepository = (*PostDB)(nil)

// PostDB stores posts and their embedded comments.
type PostDB struct {
	conn *sql.DB
}

// postSelect populates author (username, email) and category (name) with LEFT
// JOINs so a dangling or null reference simply comes back as nil.
const postSelect = `
	SELECT p.id, p.title, p.content, p.excerpt, p.featured_image, p.tags, p.slug,
	       p.created_at, p.updated_at,
	       c.id, c.name,
	       u.id, u.username, u.email
	FROM posts p
	LEFT JOIN categories c ON c.id = p.category_id
	LEFT JOIN users u ON u.id = p.author_id`

// Create inserts a new post and fills in ID and timestamps.
// Only post.Category.ID and post.Author.ID are read from the references.
func (p *PostDB) Create(ctx context.Context, post *model.Post) error {
	now := time.Now().UTC()
	post.ID = xid.New().String()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Tags == nil {
		post.Tags = []string{}
	}
	if post.Comments == nil {
		post.Comments = []model.Comment{}
	}

	tags, err := json.Marshal(post.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tags: %w", err)
	}

	_, err = p.conn.ExecContext(ctx,
		`INSERT INTO posts (id, title, content, excerpt, featured_image, tags, slug,
		                    category_id, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.Title,
		post.Content,
		post.Excerpt,
		post.FeaturedImage,
		string(tags),
		nullString(post.Slug),
		nullString(post.CategoryID()),
		nullString(post.AuthorID()),
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConflictMessage("Slug already in use")
		}
		return fmt.Errorf("sqlite: creating post: %w", err)
	}
	return nil
}

// GetByID retrieves a post with references and comments populated.
func (p *PostDB) GetByID(ctx context.Context, id string) (*model.Post, error) {
	return p.getOne(ctx, `p.id = ?`, id)
}

// GetBySlug retrieves a post by its slug.
func (p *PostDB) GetBySlug(ctx context.Context, slug string) (*model.Post, error) {
	return p.getOne(ctx, `p.slug = ?`, slug)
}

func (p *PostDB) getOne(ctx context.Context, where, arg string) (*model.Post, error) {
	row := p.conn.QueryRowContext(ctx, postSelect+` WHERE `+where, arg)
	post, err := scanPost(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFoundMessage("Post not found")
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", arg, err)
	}

	posts := []model.Post{*post}
	if err := p.loadComments(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// SlugExists reports whether a post other than exceptID uses slug.
func (p *PostDB) SlugExists(ctx context.Context, slug, exceptID string) (bool, error) {
	var count int
	err := p.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE slug = ? AND id <> ?`, slug, exceptID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking slug %q: %w", slug, err)
	}
	return count > 0, nil
}

// List returns a page of posts, newest first, and the total number matching
// the same filter.
//
// Query is a literal substring matched against the case-folded title,
// content and excerpt, so "über" finds "ÜBER" as well as "Über".
func (p *PostDB) List(ctx context.Context, opts repository.ListOptions) ([]model.Post, int, error) {
	var (
		conds []string
		args  []any
	)
	if opts.CategoryID != "" {
		conds = append(conds, `p.category_id = ?`)
		args = append(args, opts.CategoryID)
	}
	if opts.Query != "" {
		needle := foldCase(opts.Query)
		conds = append(conds,
			`(instr(casefold(p.title), ?) > 0 OR instr(casefold(p.content), ?) > 0 OR instr(casefold(p.excerpt), ?) > 0)`)
		args = append(args, needle, needle, needle)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := p.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts p`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlite: counting posts: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	// xid ids grow with creation time, so id breaks created_at ties.
	rows, err := p.conn.QueryContext(ctx,
		postSelect+where+` ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: listing posts: %w", err)
	}

	posts := make([]model.Post, 0, limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, fmt.Errorf("sqlite: iterating posts: %w", err)
	}
	// Close before loading comments: an in-memory database has a single connection.
	rows.Close()

	if err := p.loadComments(ctx, posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// Update overwrites the mutable fields of an existing post and bumps UpdatedAt.
// There is no version check: concurrent writers are last-write-wins.
func (p *PostDB) Update(ctx context.Context, post *model.Post) error {
	post.UpdatedAt = time.Now().UTC()
	if post.Tags == nil {
		post.Tags = []string{}
	}
	tags, err := json.Marshal(post.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tags: %w", err)
	}

	result, err := p.conn.ExecContext(ctx,
		`UPDATE posts
		 SET title = ?, content = ?, excerpt = ?, featured_image = ?, tags = ?, slug = ?,
		     category_id = ?, updated_at = ?
		 WHERE id = ?`,
		post.Title,
		post.Content,
		post.Excerpt,
		post.FeaturedImage,
		string(tags),
		nullString(post.Slug),
		nullString(post.CategoryID()),
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConflictMessage("Slug already in use")
		}
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFoundMessage("Post not found")
	}
	return nil
}

// Delete removes a post together with its comments.
func (p *PostDB) Delete(ctx context.Context, id string) error {
	tx, err := p.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: starting delete transaction: %w", err)
	}
	defer tx.Rollback()

	// ON DELETE CASCADE covers this too; the explicit delete keeps the
	// result independent of the connection's foreign_keys setting.
	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE post_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting comments of post %s: %w", id, err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFoundMessage("Post not found")
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing delete of post %s: %w", id, err)
	}
	return nil
}

// AddComment appends a comment to the post and touches the post's UpdatedAt.
// comment.User.ID must be set; on return the comment has its ID, CreatedAt
// and a populated user reference.
func (p *PostDB) AddComment(ctx context.Context, postID string, comment *model.Comment) error {
	tx, err := p.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: starting comment transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE posts SET updated_at = ? WHERE id = ?`, now, postID)
	if err != nil {
		return fmt.Errorf("sqlite: touching post %s: %w", postID, err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	} else if n == 0 {
		return apperror.NotFoundMessage("Post not found")
	}

	userID := ""
	if comment.User != nil {
		userID = comment.User.ID
	}
	comment.ID = xid.New().String()
	comment.CreatedAt = now

	_, err = tx.ExecContext(ctx,
		`INSERT INTO comments (id, post_id, user_id, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		comment.ID, postID, nullString(userID), comment.Content, comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting comment on post %s: %w", postID, err)
	}

	if userID != "" {
		var ref model.UserRef
		err = tx.QueryRowContext(ctx,
			`SELECT id, username, email FROM users WHERE id = ?`, userID,
		).Scan(&ref.ID, &ref.Username, &ref.Email)
		switch {
		case err == sql.ErrNoRows:
			comment.User = nil
		case err != nil:
			return fmt.Errorf("sqlite: populating comment user: %w", err)
		default:
			comment.User = &ref
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing comment: %w", err)
	}
	return nil
}

// loadComments fills Comments on every post in one query, in insertion order.
func (p *PostDB) loadComments(ctx context.Context, posts []model.Post) error {
	if len(posts) == 0 {
		return nil
	}

	index := make(map[string]int, len(posts))
	args := make([]any, 0, len(posts))
	for i := range posts {
		posts[i].Comments = []model.Comment{}
		index[posts[i].ID] = i
		args = append(args, posts[i].ID)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(posts)), ",")

	rows, err := p.conn.QueryContext(ctx,
		`SELECT cm.post_id, cm.id, cm.content, cm.created_at, u.id, u.username, u.email
		 FROM comments cm
		 LEFT JOIN users u ON u.id = cm.user_id
		 WHERE cm.post_id IN (`+placeholders+`)
		 ORDER BY cm.seq ASC`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			postID                      string
			c                           model.Comment
			userID, username, userEmail sql.NullString
		)
		if err := rows.Scan(&postID, &c.ID, &c.Content, &c.CreatedAt, &userID, &username, &userEmail); err != nil {
			return fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		if userID.Valid {
			c.User = &model.UserRef{ID: userID.String, Username: username.String, Email: userEmail.String}
		}
		i := index[postID]
		posts[i].Comments = append(posts[i].Comments, c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*model.Post, error) {
	var (
		post                          model.Post
		tags                          string
		slug                          sql.NullString
		catID, catName                sql.NullString
		authorID, username, userEmail sql.NullString
	)
	err := row.Scan(
		&post.ID, &post.Title, &post.Content, &post.Excerpt, &post.FeaturedImage, &tags, &slug,
		&post.CreatedAt, &post.UpdatedAt,
		&catID, &catName,
		&authorID, &username, &userEmail,
	)
	if err != nil {
		return nil, err
	}

	post.Slug = slug.String
	if err := json.Unmarshal([]byte(tags), &post.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags of post %s: %w", post.ID, err)
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}
	if catID.Valid {
		post.Category = &model.CategoryRef{ID: catID.String, Name: catName.String}
	}
	if authorID.Valid {
		post.Author = &model.UserRef{ID: authorID.String, Username: username.String, Email: userEmail.String}
	}
	return &post, nil
}
