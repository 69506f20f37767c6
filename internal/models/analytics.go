package models

import "github.com/google/uuid"

// PageView is one rendered public profile view. Append-only.
type PageView struct {
	BaseModel
	UserID    uuid.UUID `json:"userID" gorm:"type:uuid;not null;index"`
	UserAgent string    `json:"userAgent" gorm:"type:varchar(255)"`
	Referer   string    `json:"referer" gorm:"type:varchar(255)"`
}

// Click is one visitor activation of a link. Append-only; the owning
// Link carries a denormalized clicks counter kept in step with these rows.
// Clicks deliberately do not cascade when a link is deleted.
type Click struct {
	BaseModel
	LinkID    uuid.UUID `json:"linkID" gorm:"type:uuid;not null;index"`
	UserAgent string    `json:"userAgent" gorm:"type:varchar(255)"`
	Referer   string    `json:"referer" gorm:"type:varchar(255)"`
}
