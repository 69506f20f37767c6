package services

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/minilink/backend/internal/models"
	"gorm.io/gorm"
)

// LinkService manages the ordered link collection of a user. Every
// mutation is scoped to the owning user id; a missing or foreign link
// uniformly reports ErrNotFound.
type LinkService struct {
	DB *gorm.DB
}

func NewLinkService(db *gorm.DB) *LinkService {
	return &LinkService{DB: db}
}

func (s *LinkService) List(ctx context.Context, userID uuid.UUID) ([]models.Link, error) {
	var links []models.Link
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("position ASC, created_at ASC").
		Find(&links).Error
	return links, err
}

// ListActive returns the visible links for the public profile page.
func (s *LinkService) ListActive(ctx context.Context, userID uuid.UUID) ([]models.Link, error) {
	var links []models.Link
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("position ASC, created_at ASC").
		Find(&links).Error
	return links, err
}

func (s *LinkService) Create(ctx context.Context, userID uuid.UUID, title, rawURL string, icon *string) (*models.Link, error) {
	title = strings.TrimSpace(title)
	rawURL = strings.TrimSpace(rawURL)

	if title == "" {
		return nil, newValidationError("title", "title is required")
	}
	if rawURL == "" {
		return nil, newValidationError("url", "url is required")
	}
	if parsed, err := url.ParseRequestURI(rawURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, newValidationError("url", "url must be absolute")
	}

	link := models.Link{
		UserID:   userID,
		Title:    title,
		URL:      rawURL,
		Icon:     normalizeIcon(icon),
		IsActive: true,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPosition sql.NullInt64
		if err := tx.Model(&models.Link{}).
			Where("user_id = ?", userID).
			Select("MAX(position)").
			Scan(&maxPosition).Error; err != nil {
			return err
		}
		if maxPosition.Valid {
			link.Position = int(maxPosition.Int64) + 1
		}
		return tx.Create(&link).Error
	})
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// LinkUpdate carries the patchable link fields; nil leaves a field
// untouched. An Icon pointing at the empty string clears the icon.
type LinkUpdate struct {
	Title    *string
	URL      *string
	Icon     *string
	IsActive *bool
	Position *int
}

func (s *LinkService) Update(ctx context.Context, userID, linkID uuid.UUID, update LinkUpdate) (*models.Link, error) {
	link, err := s.getOwned(ctx, userID, linkID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, newValidationError("title", "title cannot be empty")
		}
		updates["title"] = title
	}
	if update.URL != nil {
		rawURL := strings.TrimSpace(*update.URL)
		if parsed, err := url.ParseRequestURI(rawURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return nil, newValidationError("url", "url must be absolute")
		}
		updates["url"] = rawURL
	}
	if update.Icon != nil {
		if icon := normalizeIcon(update.Icon); icon == nil {
			updates["icon"] = nil
		} else {
			updates["icon"] = *icon
		}
	}
	if update.IsActive != nil {
		updates["is_active"] = *update.IsActive
	}
	if update.Position != nil {
		updates["position"] = *update.Position
	}

	if len(updates) == 0 {
		return nil, newValidationError("", "no valid fields to update")
	}

	if err := s.DB.WithContext(ctx).Model(link).Updates(updates).Error; err != nil {
		return nil, err
	}

	return s.getOwned(ctx, userID, linkID)
}

func (s *LinkService) Delete(ctx context.Context, userID, linkID uuid.UUID) error {
	result := s.DB.WithContext(ctx).Delete(&models.Link{}, "id = ? AND user_id = ?", linkID, userID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// LinkPosition is one entry of a client-computed reorder permutation.
type LinkPosition struct {
	ID       uuid.UUID
	Position int
}

// Reorder applies the permutation in one transaction so a concurrent
// List sees either the old or the new full ordering. Each update is
// scoped by (id, user_id): ids the caller does not own affect no rows
// and are skipped without error.
func (s *LinkService) Reorder(ctx context.Context, userID uuid.UUID, items []LinkPosition) error {
	if len(items) == 0 {
		return nil
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			if err := tx.Model(&models.Link{}).
				Where("id = ? AND user_id = ?", item.ID, userID).
				Update("position", item.Position).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *LinkService) getOwned(ctx context.Context, userID, linkID uuid.UUID) (*models.Link, error) {
	var link models.Link
	err := s.DB.WithContext(ctx).First(&link, "id = ? AND user_id = ?", linkID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func normalizeIcon(icon *string) *string {
	if icon == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*icon)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
