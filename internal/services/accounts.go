package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minilink/backend/internal/models"
	"github.com/minilink/backend/pkg/logger"
	"gorm.io/gorm"
)

// AccountService owns user identity: reconciling external identities
// into local users, username availability, and profile updates.
type AccountService struct {
	DB *gorm.DB
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{DB: db}
}

// ExternalIdentity is what the identity provider hands us after a
// successful authentication.
type ExternalIdentity struct {
	SubjectID string
	Email     string
	Name      string
	AvatarURL *string
	Provider  models.AuthProvider

	// UsernameHint is the provider-side handle (e.g. the GitHub login).
	UsernameHint string
	// ClaimedUsername is a handle reserved pre-signup via a claim token.
	ClaimedUsername string
	// PasswordHash is set for local registrations only.
	PasswordHash *string
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateUsername enforces the handle rules: at least 3 characters,
// letters, digits and underscore only.
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return newValidationError("username", "username must be at least 3 characters")
	}
	if !usernamePattern.MatchString(username) {
		return newValidationError("username", "username may only contain letters, digits and underscore")
	}
	return nil
}

// ResolveUser guarantees a user row addressable by the identity's
// subject id. Data accumulated under an older account sharing the same
// email (links, page views) survives via an in-transaction migration.
func (s *AccountService) ResolveUser(ctx context.Context, identity ExternalIdentity) (*models.User, error) {
	if strings.TrimSpace(identity.SubjectID) == "" {
		return nil, newValidationError("subjectId", "subject id is required")
	}

	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" {
		return nil, ErrMissingEmail
	}
	identity.Email = email

	var user models.User
	err := s.DB.WithContext(ctx).First(&user, "subject_id = ?", identity.SubjectID).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var legacy models.User
	err = s.DB.WithContext(ctx).First(&legacy, "email = ?", email).Error
	switch {
	case err == nil:
		return s.migrateLegacyUser(ctx, &legacy, identity)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.createUser(ctx, identity)
	default:
		return nil, err
	}
}

// migrateLegacyUser moves an account registered under an older identity
// (matched by email) onto the new subject id. The four steps — park the
// legacy unique values, create the replacement row, reassign links and
// page views, delete the legacy row — commit as one transaction so
// concurrent readers observe either the old or the new state.
func (s *AccountService) migrateLegacyUser(ctx context.Context, legacy *models.User, identity ExternalIdentity) (*models.User, error) {
	stamp := time.Now().Unix()
	parkedEmail := fmt.Sprintf("%s.migrated.%d", legacy.Email, stamp)
	parkedUsername := fmt.Sprintf("%s_migrated_%d", legacy.Username, stamp)

	migrated := models.User{
		SubjectID:    identity.SubjectID,
		Email:        legacy.Email,
		Username:     legacy.Username,
		Name:         identity.Name,
		AvatarURL:    identity.AvatarURL,
		AuthProvider: identity.Provider,
		PasswordHash: identity.PasswordHash,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", legacy.ID).Updates(map[string]interface{}{
			"email":          parkedEmail,
			"username":       parkedUsername,
			"username_lower": strings.ToLower(parkedUsername),
		}).Error; err != nil {
			return err
		}

		if err := tx.Create(&migrated).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Link{}).Where("user_id = ?", legacy.ID).
			Update("user_id", migrated.ID).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.PageView{}).Where("user_id = ?", legacy.ID).
			Update("user_id", migrated.ID).Error; err != nil {
			return err
		}

		return tx.Delete(&models.User{}, "id = ?", legacy.ID).Error
	})
	if err != nil {
		if isDuplicateKey(err) {
			// A concurrent request won the migration; the row keyed by
			// this subject is authoritative now.
			var existing models.User
			if lookupErr := s.DB.WithContext(ctx).First(&existing, "subject_id = ?", identity.SubjectID).Error; lookupErr == nil {
				return &existing, nil
			}
		}
		return nil, err
	}

	logger.Info("account_migrated", map[string]interface{}{
		"legacy_user_id": legacy.ID.String(),
		"user_id":        migrated.ID.String(),
		"username":       migrated.Username,
	})

	return &migrated, nil
}

func (s *AccountService) createUser(ctx context.Context, identity ExternalIdentity) (*models.User, error) {
	username, usedClaim, err := s.pickUsername(ctx, identity)
	if err != nil {
		return nil, err
	}

	user := models.User{
		SubjectID:    identity.SubjectID,
		Email:        identity.Email,
		Username:     username,
		Name:         identity.Name,
		AvatarURL:    identity.AvatarURL,
		AuthProvider: identity.Provider,
		PasswordHash: identity.PasswordHash,
	}

	err = s.DB.WithContext(ctx).Create(&user).Error
	if err == nil {
		logger.Info("account_created", map[string]interface{}{
			"user_id":  user.ID.String(),
			"username": user.Username,
			"provider": string(user.AuthProvider),
		})
		return &user, nil
	}
	if !isDuplicateKey(err) {
		return nil, err
	}

	// Duplicate subject means a concurrent request already created the
	// row; fall back to returning it.
	var existing models.User
	if lookupErr := s.DB.WithContext(ctx).First(&existing, "subject_id = ?", identity.SubjectID).Error; lookupErr == nil {
		return &existing, nil
	}

	// Claimed username lost its race between check and create: retry
	// once with a derived handle instead of failing the signup.
	if usedClaim {
		identity.ClaimedUsername = ""
		return s.createUser(ctx, identity)
	}

	return nil, ErrEmailTaken
}

// RegisterLocal creates a password-backed account. Local subjects are
// synthetic ("local:<uuid>"): when the same email later signs in
// through an identity provider, the standard migration moves the
// account onto the provider subject and its links come along.
func (s *AccountService) RegisterLocal(ctx context.Context, email, passwordHash, name, requestedUsername, claimedUsername string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrMissingEmail
	}

	var existing models.User
	err := s.DB.WithContext(ctx).First(&existing, "email = ?", email).Error
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if requestedUsername != "" {
		if err := ValidateUsername(requestedUsername); err != nil {
			return nil, err
		}
		taken, err := s.usernameTaken(ctx, requestedUsername)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrUsernameTaken
		}
		// Carry the explicit handle through the claimed slot so the
		// create uses it verbatim.
		claimedUsername = requestedUsername
	}

	identity := ExternalIdentity{
		SubjectID:       "local:" + uuid.NewString(),
		Email:           email,
		Name:            strings.TrimSpace(name),
		Provider:        models.AuthProviderLocal,
		ClaimedUsername: claimedUsername,
		PasswordHash:    &passwordHash,
	}
	return s.createUser(ctx, identity)
}

// pickUsername resolves the handle for a brand-new account: a valid,
// still-free claimed username wins; otherwise the provider hint, then
// the email local-part, disambiguated with a numeric suffix.
func (s *AccountService) pickUsername(ctx context.Context, identity ExternalIdentity) (string, bool, error) {
	if claimed := sanitizeUsername(identity.ClaimedUsername); claimed != "" {
		taken, err := s.usernameTaken(ctx, claimed)
		if err != nil {
			return "", false, err
		}
		if !taken {
			return claimed, true, nil
		}
	}

	base := sanitizeUsername(identity.UsernameHint)
	if base == "" {
		local := identity.Email
		if at := strings.Index(local, "@"); at >= 0 {
			local = local[:at]
		}
		base = sanitizeUsername(local)
	}
	if base == "" {
		base = "user"
	}

	username, err := s.disambiguate(ctx, base)
	return username, false, err
}

func (s *AccountService) disambiguate(ctx context.Context, base string) (string, error) {
	candidate := base
	for i := 1; ; i++ {
		taken, err := s.usernameTaken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
}

func (s *AccountService) usernameTaken(ctx context.Context, username string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("username_lower = ?", strings.ToLower(username)).
		Count(&count).Error
	return count > 0, err
}

// sanitizeUsername strips characters outside the allowed charset and
// pads short results; returns "" when nothing usable remains.
func sanitizeUsername(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '-' || r == '.' || r == ' ':
			b.WriteRune('_')
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return ""
	}
	for len(cleaned) < 3 {
		cleaned += "_"
	}
	if len(cleaned) > 30 {
		cleaned = cleaned[:30]
	}
	return cleaned
}

// CheckUsernameAvailable reports whether the candidate can be taken by
// the requesting user. The requester already holding the handle counts
// as available; this read is advisory only, the write path re-checks
// under the unique constraint.
func (s *AccountService) CheckUsernameAvailable(ctx context.Context, candidate string, requestingUserID uuid.UUID) (bool, error) {
	if err := ValidateUsername(candidate); err != nil {
		return false, err
	}

	var holder models.User
	err := s.DB.WithContext(ctx).First(&holder, "username_lower = ?", strings.ToLower(candidate)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return holder.ID == requestingUserID, nil
}

// ProfileUpdate carries the writable user fields; nil means "leave
// untouched", a pointer to the zero value means "clear".
type ProfileUpdate struct {
	Username        *string
	Name            *string
	Bio             *string
	AvatarURL       *string
	Theme           *string
	ThemeBackground *string
	ThemeCard       *string
	ThemeText       *string
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*models.User, error) {
	updates := map[string]interface{}{}

	if update.Username != nil {
		username := strings.TrimSpace(*update.Username)
		if err := ValidateUsername(username); err != nil {
			return nil, err
		}
		updates["username"] = username
		updates["username_lower"] = strings.ToLower(username)
	}
	if update.Name != nil {
		updates["name"] = strings.TrimSpace(*update.Name)
	}
	if update.Bio != nil {
		updates["bio"] = strings.TrimSpace(*update.Bio)
	}
	if update.AvatarURL != nil {
		trimmed := strings.TrimSpace(*update.AvatarURL)
		if trimmed == "" {
			updates["avatar_url"] = nil
		} else {
			updates["avatar_url"] = trimmed
		}
	}
	if update.Theme != nil {
		theme := strings.TrimSpace(*update.Theme)
		if theme == "" {
			return nil, newValidationError("theme", "theme cannot be empty")
		}
		updates["theme"] = theme
	}
	if update.ThemeBackground != nil {
		updates["theme_background"] = nullableColor(*update.ThemeBackground)
	}
	if update.ThemeCard != nil {
		updates["theme_card"] = nullableColor(*update.ThemeCard)
	}
	if update.ThemeText != nil {
		updates["theme_text"] = nullableColor(*update.ThemeText)
	}

	if len(updates) == 0 {
		return nil, newValidationError("", "no valid fields to update")
	}

	result := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(updates)
	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return nil, ErrUsernameTaken
		}
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func nullableColor(value string) interface{} {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return trimmed
}

// GetByUsername is the public profile lookup, case-insensitive.
func (s *AccountService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, "username_lower = ?", strings.ToLower(strings.TrimSpace(username))).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID loads a user or reports ErrNotFound.
func (s *AccountService) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindBySubject is the fast-path lookup used by tests and callers that
// only need the identity mapping.
func (s *AccountService) FindBySubject(ctx context.Context, subjectID string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, "subject_id = ?", subjectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
