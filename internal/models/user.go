package models

import (
	"strings"

	"gorm.io/gorm"
)

type AuthProvider string

const (
	AuthProviderLocal  AuthProvider = "local"
	AuthProviderGoogle AuthProvider = "google"
	AuthProviderGitHub AuthProvider = "github"
)

type User struct {
	BaseModel
	// SubjectID is the stable identifier handed out by the identity
	// provider. Local accounts get a synthetic "local:<uuid>" subject.
	SubjectID    string  `json:"-" gorm:"type:varchar(255);uniqueIndex;not null"`
	Email        string  `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Username     string  `json:"username" gorm:"type:varchar(64);not null"`
	// UsernameLower backs the case-insensitive uniqueness constraint.
	UsernameLower string       `json:"-" gorm:"type:varchar(64);uniqueIndex;not null"`
	Name          string       `json:"name" gorm:"type:varchar(150)"`
	Bio           string       `json:"bio" gorm:"type:text"`
	AvatarURL     *string      `json:"avatarURL,omitempty" gorm:"type:text"`
	PasswordHash  *string      `json:"-" gorm:"type:text"`
	AuthProvider  AuthProvider `json:"authProvider" gorm:"type:varchar(20);not null;default:'local'"`

	Theme           string  `json:"theme" gorm:"type:varchar(30);not null;default:'classic'"`
	ThemeBackground *string `json:"themeBackground,omitempty" gorm:"type:varchar(30)"`
	ThemeCard       *string `json:"themeCard,omitempty" gorm:"type:varchar(30)"`
	ThemeText       *string `json:"themeText,omitempty" gorm:"type:varchar(30)"`

	Links     []Link     `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	PageViews []PageView `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (u *User) BeforeSave(tx *gorm.DB) error {
	if u.Username != "" {
		u.UsernameLower = strings.ToLower(u.Username)
	}
	return nil
}

// PublicProfile is the subset of User rendered on the public page.
type PublicProfile struct {
	Username        string  `json:"username"`
	Name            string  `json:"name"`
	Bio             string  `json:"bio"`
	AvatarURL       *string `json:"avatarURL,omitempty"`
	Theme           string  `json:"theme"`
	ThemeBackground *string `json:"themeBackground,omitempty"`
	ThemeCard       *string `json:"themeCard,omitempty"`
	ThemeText       *string `json:"themeText,omitempty"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{
		Username:        u.Username,
		Name:            u.Name,
		Bio:             u.Bio,
		AvatarURL:       u.AvatarURL,
		Theme:           u.Theme,
		ThemeBackground: u.ThemeBackground,
		ThemeCard:       u.ThemeCard,
		ThemeText:       u.ThemeText,
	}
}
