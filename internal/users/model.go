// Package users manages community member accounts and the Telegram identity
// mapping used for login.
package users

import (
	"strings"
	"time"
)

// User is a community member. Telegram is the only login provider; accounts
// created through the login widget are pre-verified.
type User struct {
	ID                string     `gorm:"column:id;primaryKey;size:36;not null"`
	Username          string     `gorm:"column:username;size:50;uniqueIndex;not null"`
	Email             *string    `gorm:"column:email;size:255;index"`
	IsAdmin           bool       `gorm:"column:is_admin;not null;default:false"`
	IsVerified        bool       `gorm:"column:is_verified;not null;default:false"`
	IsActive          bool       `gorm:"column:is_active;not null;default:true"`
	TelegramID        *int64     `gorm:"column:telegram_id;uniqueIndex"`
	TelegramUsername  *string    `gorm:"column:telegram_username;size:64"`
	TelegramFirstName *string    `gorm:"column:telegram_first_name;size:128"`
	TelegramLastName  *string    `gorm:"column:telegram_last_name;size:128"`
	TelegramPhotoURL  *string    `gorm:"column:telegram_photo_url;size:512"`
	TelegramLinkedAt  *time.Time `gorm:"column:telegram_linked_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (User) TableName() string {
	return "users"
}

// normalize value helper used across service implementation.
func normalize(value string) string {
	return strings.TrimSpace(value)
}
