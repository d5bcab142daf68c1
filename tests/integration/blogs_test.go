package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/rakib/go-commerce-store/internal/database"
	"github.com/rakib/go-commerce-store/internal/models"
	"github.com/rakib/go-commerce-store/internal/store"
)

func TestBlogLifecycle(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	blog, err := store.CreateBlog(ctx, db, store.CreateBlogRequest{
		Title:       "Sizing Guide",
		Slug:        "sizing-guide",
		Content:     "How to pick the right size.",
		Author:      "admin",
		Tags:        []string{"guide"},
		IsPublished: true,
	})
	if err != nil {
		t.Fatalf("Create blog: %v", err)
	}

	_, err = store.CreateBlog(ctx, db, store.CreateBlogRequest{
		Title:   "Another",
		Slug:    "sizing-guide",
		Content: "Duplicate",
	})
	if !errors.Is(err, database.ErrSlugConflict) {
		t.Errorf("Expected slug conflict, got: %v", err)
	}

	title := "Sizing Guide 2024"
	updated, err := store.UpdateBlog(ctx, db, blog.ID, store.UpdateBlogRequest{Title: &title})
	if err != nil {
		t.Fatalf("Update blog: %v", err)
	}
	if updated.Title != title {
		t.Errorf("Expected updated title, got %s", updated.Title)
	}

	result, err := store.ListBlogs(ctx, db, 1, 10)
	if err != nil {
		t.Fatalf("List blogs: %v", err)
	}
	if result.Total != 1 {
		t.Errorf("Expected 1 blog, got %d", result.Total)
	}
	if _, ok := result.Items.([]models.Blog); !ok {
		t.Fatalf("Unexpected items type %T", result.Items)
	}

	if err := store.DeleteBlog(ctx, db, blog.ID); err != nil {
		t.Fatalf("Delete blog: %v", err)
	}
	if _, err := store.GetBlog(ctx, db, blog.ID); !errors.Is(err, database.ErrBlogNotFound) {
		t.Errorf("Expected blog not found after delete, got: %v", err)
	}
	if err := store.DeleteBlog(ctx, db, blog.ID); !errors.Is(err, database.ErrBlogNotFound) {
		t.Errorf("Expected blog not found on second delete, got: %v", err)
	}
}
