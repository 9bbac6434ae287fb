// Package messaging implements direct messages between members.
package messaging

import "time"

// Message is one direct message from sender to recipient.
type Message struct {
	ID          string    `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	SenderID    string    `gorm:"column:sender_id;size:36;not null;index" json:"sender_id"`
	RecipientID string    `gorm:"column:recipient_id;size:36;not null;index" json:"recipient_id"`
	Body        string    `gorm:"column:content;type:text;not null" json:"content"`
	IsRead      bool      `gorm:"column:is_read;not null;default:false" json:"is_read"`
	CreatedAt   time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (Message) TableName() string {
	return "direct_messages"
}
