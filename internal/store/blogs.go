package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/rakib/go-commerce-store/internal/database"
	"github.com/rakib/go-commerce-store/internal/models"
)

type CreateBlogRequest struct {
	Title       string
	Slug        string
	Content     string
	Author      string
	Tags        []string
	IsPublished bool
}

type UpdateBlogRequest struct {
	Title       *string
	Content     *string
	Tags        []string
	IsPublished *bool
}

const blogColumns = `id, title, slug, content, author, tags, is_published,
	is_deleted, created_at, updated_at`

func CreateBlog(ctx context.Context, db *sql.DB, req CreateBlogRequest) (*models.Blog, error) {
	blog := &models.Blog{
		Title:       req.Title,
		Slug:        req.Slug,
		Content:     req.Content,
		Author:      req.Author,
		Tags:        req.Tags,
		IsPublished: req.IsPublished,
	}

	err := db.QueryRowContext(ctx,
		`INSERT INTO blogs (title, slug, content, author, tags, is_published,
		     is_deleted, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		req.Title, req.Slug, req.Content, req.Author,
		pq.Array(req.Tags), req.IsPublished,
	).Scan(&blog.ID, &blog.CreatedAt, &blog.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "blogs_slug_key") {
			return nil, fmt.Errorf("%w: %s", database.ErrSlugConflict, req.Slug)
		}
		return nil, fmt.Errorf("create blog: %w", err)
	}

	return blog, nil
}

func GetBlog(ctx context.Context, db *sql.DB, id int64) (*models.Blog, error) {
	blog := &models.Blog{}

	err := db.QueryRowContext(ctx,
		`SELECT `+blogColumns+` FROM blogs WHERE id = $1 AND is_deleted = FALSE`, id).Scan(
		&blog.ID,
		&blog.Title,
		&blog.Slug,
		&blog.Content,
		&blog.Author,
		&blog.Tags,
		&blog.IsPublished,
		&blog.IsDeleted,
		&blog.CreatedAt,
		&blog.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrBlogNotFound
		}
		return nil, fmt.Errorf("get blog: %w", err)
	}

	return blog, nil
}

func ListBlogs(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM blogs WHERE is_deleted = FALSE`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count blogs: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := db.QueryContext(ctx,
		`SELECT `+blogColumns+` FROM blogs
		 WHERE is_deleted = FALSE
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list blogs: %w", err)
	}
	defer rows.Close()

	var blogs []models.Blog
	for rows.Next() {
		var blog models.Blog
		err := rows.Scan(
			&blog.ID,
			&blog.Title,
			&blog.Slug,
			&blog.Content,
			&blog.Author,
			&blog.Tags,
			&blog.IsPublished,
			&blog.IsDeleted,
			&blog.CreatedAt,
			&blog.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan blog: %w", err)
		}
		blogs = append(blogs, blog)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &OffsetPage{
		Items:      blogs,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

func UpdateBlog(ctx context.Context, db *sql.DB, id int64, req UpdateBlogRequest) (*models.Blog, error) {
	existing, err := GetBlog(ctx, db, id)
	if err != nil {
		return nil, err
	}

	title := existing.Title
	if req.Title != nil {
		title = *req.Title
	}
	content := existing.Content
	if req.Content != nil {
		content = *req.Content
	}
	tags := []string(existing.Tags)
	if req.Tags != nil {
		tags = req.Tags
	}
	published := existing.IsPublished
	if req.IsPublished != nil {
		published = *req.IsPublished
	}

	_, err = db.ExecContext(ctx,
		`UPDATE blogs
		 SET title = $1, content = $2, tags = $3, is_published = $4, updated_at = NOW()
		 WHERE id = $5 AND is_deleted = FALSE`,
		title, content, pq.Array(tags), published, id)
	if err != nil {
		return nil, fmt.Errorf("update blog: %w", err)
	}

	return GetBlog(ctx, db, id)
}

func DeleteBlog(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE blogs SET is_deleted = TRUE, updated_at = NOW()
		 WHERE id = $1 AND is_deleted = FALSE`,
		id)
	if err != nil {
		return fmt.Errorf("delete blog: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrBlogNotFound
	}

	return nil
}
