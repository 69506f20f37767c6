package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/minilink/backend/internal/models"
	"github.com/minilink/backend/pkg/logger"
	"gorm.io/gorm"
)

type trackingEvent struct {
	view  *models.PageView
	click *models.Click
}

// TrackingService records analytics events off the request path. The
// handlers enqueue and return immediately; a background worker drains
// the queue into the store. A full queue drops the event with a warning
// rather than blocking a user-facing request.
type TrackingService struct {
	DB    *gorm.DB
	queue chan trackingEvent
	done  chan struct{}
}

func NewTrackingService(db *gorm.DB, queueBufferSize int) *TrackingService {
	if queueBufferSize <= 0 {
		queueBufferSize = 1000
	}
	s := &TrackingService{
		DB:    db,
		queue: make(chan trackingEvent, queueBufferSize),
		done:  make(chan struct{}),
	}
	go s.processQueue()
	return s
}

// RecordView enqueues a page view for the given profile owner.
func (s *TrackingService) RecordView(userID uuid.UUID, userAgent, referer string) {
	s.enqueue(trackingEvent{view: &models.PageView{
		UserID:    userID,
		UserAgent: truncate(userAgent, 255),
		Referer:   truncate(referer, 255),
	}})
}

// RecordClick enqueues a click event; the worker inserts the Click row
// and bumps the link's denormalized counter in one transaction.
func (s *TrackingService) RecordClick(linkID uuid.UUID, userAgent, referer string) {
	s.enqueue(trackingEvent{click: &models.Click{
		LinkID:    linkID,
		UserAgent: truncate(userAgent, 255),
		Referer:   truncate(referer, 255),
	}})
}

func (s *TrackingService) enqueue(event trackingEvent) {
	select {
	case s.queue <- event:
	default:
		logger.Warn("tracking_queue_full", map[string]interface{}{
			"dropped": true,
		})
	}
}

func (s *TrackingService) processQueue() {
	for event := range s.queue {
		switch {
		case event.view != nil:
			s.applyView(event.view)
		case event.click != nil:
			s.applyClick(event.click)
		}
	}
	close(s.done)
}

// Close drains remaining events and stops the worker. Used on shutdown
// and by tests that need deterministic counts.
func (s *TrackingService) Close() {
	close(s.queue)
	<-s.done
}

func (s *TrackingService) applyView(view *models.PageView) {
	if err := s.DB.Create(view).Error; err != nil {
		logger.Error("page_view_insert_failed", err, map[string]interface{}{
			"user_id": view.UserID.String(),
		})
	}
}

func (s *TrackingService) applyClick(click *models.Click) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(click).Error; err != nil {
			return err
		}
		return tx.Model(&models.Link{}).
			Where("id = ?", click.LinkID).
			UpdateColumn("clicks", gorm.Expr("clicks + ?", 1)).Error
	})
	if err != nil {
		logger.Error("click_insert_failed", err, map[string]interface{}{
			"link_id": click.LinkID.String(),
		})
	}
}

// LinkStats is the per-link analytics row for the dashboard.
type LinkStats struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	URL      string    `json:"url"`
	IsActive bool      `json:"isActive"`
	Clicks   int64     `json:"clicks"`
}

type AnalyticsSummary struct {
	TotalViews  int64       `json:"totalViews"`
	TotalClicks int64       `json:"totalClicks"`
	Links       []LinkStats `json:"links"`
}

// Summary aggregates the dashboard counters for one user: page view
// total, click total across links, and per-link click counts.
func (s *TrackingService) Summary(ctx context.Context, userID uuid.UUID) (*AnalyticsSummary, error) {
	summary := &AnalyticsSummary{Links: []LinkStats{}}

	if err := s.DB.WithContext(ctx).Model(&models.PageView{}).
		Where("user_id = ?", userID).
		Count(&summary.TotalViews).Error; err != nil {
		return nil, err
	}

	var links []models.Link
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("clicks DESC, created_at ASC").
		Find(&links).Error; err != nil {
		return nil, err
	}

	for _, link := range links {
		summary.TotalClicks += link.Clicks
		summary.Links = append(summary.Links, LinkStats{
			ID:       link.ID,
			Title:    link.Title,
			URL:      link.URL,
			IsActive: link.IsActive,
			Clicks:   link.Clicks,
		})
	}

	return summary, nil
}

func truncate(value string, limit int) string {
	if len(value) > limit {
		return value[:limit]
	}
	return value
}
