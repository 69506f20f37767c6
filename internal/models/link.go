package models

import "github.com/google/uuid"

type Link struct {
	BaseModel
	UserID uuid.UUID `json:"userID" gorm:"type:uuid;not null;index"`
	Title  string    `json:"title" gorm:"type:varchar(255);not null"`
	URL    string    `json:"url" gorm:"type:text;not null"`
	Icon   *string   `json:"icon,omitempty" gorm:"type:varchar(255)"`
	// Position defines the display order within a user's link set.
	// Ties are broken by creation time.
	Position int   `json:"order" gorm:"not null;default:0;index"`
	IsActive bool  `json:"isActive" gorm:"not null;default:true"`
	Clicks   int64 `json:"clicks" gorm:"not null;default:0"`

	User User `json:"-" gorm:"foreignKey:UserID"`
}
