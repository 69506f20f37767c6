package services

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/minilink/backend/internal/models"
	"gorm.io/gorm"
)

func setupLinkTestDB(t *testing.T) (*gorm.DB, *models.User) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Link{},
		&models.PageView{},
		&models.Click{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	owner := &models.User{
		SubjectID:    "test:owner",
		Email:        "owner@example.com",
		Username:     "owner",
		AuthProvider: models.AuthProviderLocal,
	}
	if err := db.Create(owner).Error; err != nil {
		t.Fatalf("failed creating owner: %v", err)
	}

	return db, owner
}

func TestLinkService_Create(t *testing.T) {
	db, owner := setupLinkTestDB(t)
	service := NewLinkService(db)

	t.Run("first link starts at position zero", func(t *testing.T) {
		link, err := service.Create(context.TODO(), owner.ID, "Blog", "https://example.com/blog", nil)
		if err != nil {
			t.Fatalf("failed creating link: %v", err)
		}
		if link.Position != 0 {
			t.Errorf("expected position 0, got %d", link.Position)
		}
		if !link.IsActive {
			t.Error("expected new link to be active")
		}
	})

	t.Run("subsequent links append after the current maximum", func(t *testing.T) {
		second, err := service.Create(context.TODO(), owner.ID, "Shop", "https://example.com/shop", nil)
		if err != nil {
			t.Fatalf("failed creating second link: %v", err)
		}
		if second.Position != 1 {
			t.Errorf("expected position 1, got %d", second.Position)
		}

		third, err := service.Create(context.TODO(), owner.ID, "Contact", "https://example.com/contact", nil)
		if err != nil {
			t.Fatalf("failed creating third link: %v", err)
		}
		if third.Position != 2 {
			t.Errorf("expected position 2, got %d", third.Position)
		}
	})

	t.Run("blank icon is stored as null", func(t *testing.T) {
		blank := "   "
		link, err := service.Create(context.TODO(), owner.ID, "Plain", "https://example.com/plain", &blank)
		if err != nil {
			t.Fatalf("failed creating link: %v", err)
		}
		if link.Icon != nil {
			t.Errorf("expected nil icon, got %q", *link.Icon)
		}
	})

	t.Run("missing title is rejected", func(t *testing.T) {
		_, err := service.Create(context.TODO(), owner.ID, "  ", "https://example.com", nil)
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("expected a validation error, got %v", err)
		}
	})

	t.Run("relative url is rejected", func(t *testing.T) {
		_, err := service.Create(context.TODO(), owner.ID, "Bad", "/just/a/path", nil)
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("expected a validation error, got %v", err)
		}
	})
}

func TestLinkService_List(t *testing.T) {
	db, owner := setupLinkTestDB(t)
	service := NewLinkService(db)

	titles := []string{"First", "Second", "Third"}
	for _, title := range titles {
		if _, err := service.Create(context.TODO(), owner.ID, title, "https://example.com", nil); err != nil {
			t.Fatalf("failed creating link %s: %v", title, err)
		}
	}

	links, err := service.List(context.TODO(), owner.ID)
	if err != nil {
		t.Fatalf("failed listing links: %v", err)
	}
	if len(links) != 3 {
		t.Fatalf("expected 3 links, got %d", len(links))
	}
	for i, link := range links {
		if link.Title != titles[i] {
			t.Errorf("position %d: expected %s, got %s", i, titles[i], link.Title)
		}
	}
}

func TestLinkService_ListActive(t *testing.T) {
	db, owner := setupLinkTestDB(t)
	service := NewLinkService(db)

	visible, err := service.Create(context.TODO(), owner.ID, "Visible", "https://example.com/v", nil)
	if err != nil {
		t.Fatalf("failed creating visible link: %v", err)
	}
	hidden, err := service.Create(context.TODO(), owner.ID, "Hidden", "https://example.com/h", nil)
	if err != nil {
		t.Fatalf("failed creating hidden link: %v", err)
	}

	inactive := false
	if _, err := service.Update(context.TODO(), owner.ID, hidden.ID, LinkUpdate{IsActive: &inactive}); err != nil {
		t.Fatalf("failed deactivating link: %v", err)
	}

	links, err := service.ListActive(context.TODO(), owner.ID)
	if err != nil {
		t.Fatalf("failed listing active links: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("expected 1 active link, got %d", len(links))
	}
	if links[0].ID != visible.ID {
		t.Errorf("expected the visible link, got %s", links[0].Title)
	}
}

func TestLinkService_Update(t *testing.T) {
	db, owner := setupLinkTestDB(t)
	service := NewLinkService(db)

	link, err := service.Create(context.TODO(), owner.ID, "Original", "https://example.com/original", nil)
	if err != nil {
		t.Fatalf("failed creating link: %v", err)
	}

	t.Run("partial update touches only the given fields", func(t *testing.T) {
		title := "Renamed"
		updated, err := service.Update(context.TODO(), owner.ID, link.ID, LinkUpdate{Title: &title})
		if err != nil {
			t.Fatalf("failed updating link: %v", err)
		}
		if updated.Title != "Renamed" {
			t.Errorf("expected title Renamed, got %s", updated.Title)
		}
		if updated.URL != "https://example.com/original" {
			t.Errorf("expected url untouched, got %s", updated.URL)
		}
	})

	t.Run("empty icon clears the stored icon", func(t *testing.T) {
		icon := "star"
		if _, err := service.Update(context.TODO(), owner.ID, link.ID, LinkUpdate{Icon: &icon}); err != nil {
			t.Fatalf("failed setting icon: %v", err)
		}

		empty := ""
		updated, err := service.Update(context.TODO(), owner.ID, link.ID, LinkUpdate{Icon: &empty})
		if err != nil {
			t.Fatalf("failed clearing icon: %v", err)
		}
		if updated.Icon != nil {
			t.Errorf("expected icon cleared, got %q", *updated.Icon)
		}
	})

	t.Run("invalid url is rejected", func(t *testing.T) {
		bad := "not a url"
		_, err := service.Update(context.TODO(), owner.ID, link.ID, LinkUpdate{URL: &bad})
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("expected a validation error, got %v", err)
		}
	})

	t.Run("foreign link reports ErrNotFound", func(t *testing.T) {
		stranger := &models.User{
			SubjectID:    "test:stranger",
			Email:        "stranger@example.com",
			Username:     "stranger",
			AuthProvider: models.AuthProviderLocal,
		}
		if err := db.Create(stranger).Error; err != nil {
			t.Fatalf("failed creating stranger: %v", err)
		}

		title := "Hijacked"
		_, err := service.Update(context.TODO(), stranger.ID, link.ID, LinkUpdate{Title: &title})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("empty update is rejected", func(t *testing.T) {
		_, err := service.Update(context.TODO(), owner.ID, link.ID, LinkUpdate{})
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("expected a validation error, got %v", err)
		}
	})
}

func TestLinkService_Delete(t *testing.T) {
	db, owner := setupLinkTestDB(t)
	service := NewLinkService(db)

	link, err := service.Create(context.TODO(), owner.ID, "Doomed", "https://example.com/doomed", nil)
	if err != nil {
		t.Fatalf("failed creating link: %v", err)
	}

	if err := service.Delete(context.TODO(), owner.ID, link.ID); err != nil {
		t.Fatalf("failed deleting link: %v", err)
	}

	if err := service.Delete(context.TODO(), owner.ID, link.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on repeat delete, got %v", err)
	}

	var count int64
	if err := db.Model(&models.Link{}).Count(&count).Error; err != nil {
		t.Fatalf("failed counting links: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no links left, got %d", count)
	}
}

func TestLinkService_Reorder(t *testing.T) {
	db, owner := setupLinkTestDB(t)
	service := NewLinkService(db)

	first, err := service.Create(context.TODO(), owner.ID, "A", "https://example.com/a", nil)
	if err != nil {
		t.Fatalf("failed creating link A: %v", err)
	}
	second, err := service.Create(context.TODO(), owner.ID, "B", "https://example.com/b", nil)
	if err != nil {
		t.Fatalf("failed creating link B: %v", err)
	}

	t.Run("swap reverses the listing order", func(t *testing.T) {
		err := service.Reorder(context.TODO(), owner.ID, []LinkPosition{
			{ID: second.ID, Position: 0},
			{ID: first.ID, Position: 1},
		})
		if err != nil {
			t.Fatalf("failed reordering: %v", err)
		}

		links, err := service.List(context.TODO(), owner.ID)
		if err != nil {
			t.Fatalf("failed listing links: %v", err)
		}
		if links[0].Title != "B" || links[1].Title != "A" {
			t.Errorf("expected order B, A; got %s, %s", links[0].Title, links[1].Title)
		}
	})

	t.Run("foreign ids are skipped without error", func(t *testing.T) {
		err := service.Reorder(context.TODO(), owner.ID, []LinkPosition{
			{ID: uuid.New(), Position: 99},
			{ID: first.ID, Position: 0},
			{ID: second.ID, Position: 1},
		})
		if err != nil {
			t.Fatalf("expected foreign ids to be skipped, got %v", err)
		}

		links, err := service.List(context.TODO(), owner.ID)
		if err != nil {
			t.Fatalf("failed listing links: %v", err)
		}
		if links[0].Title != "A" || links[1].Title != "B" {
			t.Errorf("expected order A, B; got %s, %s", links[0].Title, links[1].Title)
		}
	})

	t.Run("empty permutation is a no-op", func(t *testing.T) {
		if err := service.Reorder(context.TODO(), owner.ID, nil); err != nil {
			t.Fatalf("expected nil for empty permutation, got %v", err)
		}
	})
}
