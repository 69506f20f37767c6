package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestBaseModel_BeforeCreate(t *testing.T) {
	t.Run("generates UUID if not set", func(t *testing.T) {
		model := &BaseModel{}
		err := model.BeforeCreate(nil)
		if err != nil {
			t.Fatalf("BeforeCreate returned error: %v", err)
		}
		if model.ID == uuid.Nil {
			t.Error("expected ID to be generated, got nil UUID")
		}
	})

	t.Run("preserves existing UUID", func(t *testing.T) {
		existingID := uuid.New()
		model := &BaseModel{ID: existingID}
		err := model.BeforeCreate(nil)
		if err != nil {
			t.Fatalf("BeforeCreate returned error: %v", err)
		}
		if model.ID != existingID {
			t.Errorf("expected ID to remain %s, got %s", existingID, model.ID)
		}
	})
}

func TestUser_BeforeSave(t *testing.T) {
	user := &User{Username: "MixedCase_99"}
	if err := user.BeforeSave(nil); err != nil {
		t.Fatalf("BeforeSave returned error: %v", err)
	}
	if user.UsernameLower != "mixedcase_99" {
		t.Errorf("expected username_lower %q, got %q", "mixedcase_99", user.UsernameLower)
	}
}

func TestUser_Public(t *testing.T) {
	avatar := "https://cdn.example.com/a.png"
	user := &User{
		Email:     "alice@example.com",
		Username:  "alice",
		Name:      "Alice",
		Bio:       "hello",
		AvatarURL: &avatar,
		Theme:     "midnight",
	}

	public := user.Public()
	if public.Username != "alice" || public.Name != "Alice" || public.Bio != "hello" {
		t.Errorf("unexpected public profile: %+v", public)
	}
	if public.AvatarURL == nil || *public.AvatarURL != avatar {
		t.Errorf("expected avatar %q, got %v", avatar, public.AvatarURL)
	}
	if public.Theme != "midnight" {
		t.Errorf("expected theme %q, got %q", "midnight", public.Theme)
	}
}
