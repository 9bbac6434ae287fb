package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openfellowship/commons/backend/internal/auth"
	"github.com/openfellowship/commons/backend/internal/ident"
	"gorm.io/gorm"
)

var (
	// ErrAccountDeactivated indicates the matched account has been disabled.
	ErrAccountDeactivated = errors.New("users: account is deactivated")
	// ErrUserNotFound indicates no account matches the identifier.
	ErrUserNotFound = errors.New("users: user not found")
)

// ServiceConfig describes the dependencies required for account management.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider ident.Provider
}

// Service manages community member accounts.
type Service struct {
	db         *gorm.DB
	now        func() time.Time
	idProvider ident.Provider
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	if cfg.IDProvider == nil {
		return nil, fmt.Errorf("users: id provider required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		db:         cfg.Database,
		now:        clock,
		idProvider: cfg.IDProvider,
	}, nil
}

// LoginWithTelegram resolves a verified Telegram profile to an account,
// registering a new member when the Telegram id has not been seen before.
// The profile snapshot is refreshed on every login.
func (s *Service) LoginWithTelegram(ctx context.Context, profile auth.TelegramProfile) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("telegram_id = ?", profile.ID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.registerFromTelegram(ctx, profile)
	}
	if err != nil {
		return User{}, err
	}
	if !user.IsActive {
		return User{}, ErrAccountDeactivated
	}

	now := s.now().UTC()
	user.TelegramUsername = optionalString(profile.Username)
	user.TelegramFirstName = optionalString(profile.FirstName)
	user.TelegramLastName = optionalString(profile.LastName)
	user.TelegramPhotoURL = optionalString(profile.PhotoURL)
	user.UpdatedAt = now
	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *Service) registerFromTelegram(ctx context.Context, profile auth.TelegramProfile) (User, error) {
	username, err := s.availableUsername(ctx, profile)
	if err != nil {
		return User{}, err
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return User{}, err
	}

	now := s.now().UTC()
	telegramID := profile.ID
	user := User{
		ID:                id,
		Username:          username,
		IsVerified:        true,
		IsActive:          true,
		TelegramID:        &telegramID,
		TelegramUsername:  optionalString(profile.Username),
		TelegramFirstName: optionalString(profile.FirstName),
		TelegramLastName:  optionalString(profile.LastName),
		TelegramPhotoURL:  optionalString(profile.PhotoURL),
		TelegramLinkedAt:  &now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return User{}, err
	}
	return user, nil
}

// availableUsername derives a unique username from the Telegram profile,
// appending a numeric suffix until the name is free.
func (s *Service) availableUsername(ctx context.Context, profile auth.TelegramProfile) (string, error) {
	base := normalize(profile.Username)
	if base == "" {
		base = fmt.Sprintf("user_%d", profile.ID)
	}

	candidate := base
	for counter := 1; ; counter++ {
		var count int64
		if err := s.db.WithContext(ctx).Model(&User{}).
			Where("username = ?", candidate).
			Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, counter)
	}
}

// GetByID returns the account for the given identifier.
func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// Exists reports whether an active account with the given id exists.
func (s *Service) Exists(ctx context.Context, userID string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).
		Where("id = ? AND is_active = ?", userID, true).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountUsers returns the total number of accounts.
func (s *Service) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&User{}).Count(&count).Error
	return count, err
}

// Usernames maps user ids to usernames. Unknown ids are simply absent from
// the result.
func (s *Service) Usernames(ctx context.Context, userIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return names, nil
	}

	var rows []User
	if err := s.db.WithContext(ctx).
		Select("id", "username").
		Where("id IN ?", userIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		names[row.ID] = row.Username
	}
	return names, nil
}

// SetAdmin toggles the admin flag on an account.
func (s *Service) SetAdmin(ctx context.Context, userID string, isAdmin bool) (User, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	user.IsAdmin = isAdmin
	user.UpdatedAt = s.now().UTC()
	if err := s.db.WithContext(ctx).Save(&user).Error; err != nil {
		return User{}, err
	}
	return user, nil
}

func optionalString(value string) *string {
	trimmed := normalize(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
