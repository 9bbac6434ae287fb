// Package forum implements discussion categories, threads and nested replies
// with simple up/down voting.
package forum

import "time"

// VoteType is the direction of a thread or reply vote.
type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

// Category groups threads on the forum index.
type Category struct {
	ID           string    `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	Name         string    `gorm:"column:name;size:100;not null" json:"name"`
	Description  string    `gorm:"column:description;type:text" json:"description"`
	DisplayOrder int       `gorm:"column:display_order;not null;default:0" json:"display_order"`
	CreatedAt    time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (Category) TableName() string {
	return "forum_categories"
}

// Thread is a top-level discussion inside a category.
type Thread struct {
	ID         string    `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	CategoryID string    `gorm:"column:category_id;size:36;not null;index" json:"category_id"`
	AuthorID   string    `gorm:"column:author_id;size:36;not null" json:"author_id"`
	Title      string    `gorm:"column:title;size:255;not null" json:"title"`
	Content    string    `gorm:"column:content;type:text;not null" json:"content"`
	Upvotes    int       `gorm:"column:upvotes;not null;default:0" json:"upvotes"`
	Downvotes  int       `gorm:"column:downvotes;not null;default:0" json:"downvotes"`
	IsPinned   bool      `gorm:"column:is_pinned;not null;default:false" json:"is_pinned"`
	CreatedAt  time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (Thread) TableName() string {
	return "forum_threads"
}

// Reply belongs to one thread and may reference a parent reply for shallow
// nesting.
type Reply struct {
	ID            string    `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	ThreadID      string    `gorm:"column:thread_id;size:36;not null;index" json:"thread_id"`
	AuthorID      string    `gorm:"column:author_id;size:36;not null" json:"author_id"`
	Content       string    `gorm:"column:content;type:text;not null" json:"content"`
	ParentReplyID *string   `gorm:"column:parent_reply_id;size:36" json:"parent_reply_id,omitempty"`
	Upvotes       int       `gorm:"column:upvotes;not null;default:0" json:"upvotes"`
	Downvotes     int       `gorm:"column:downvotes;not null;default:0" json:"downvotes"`
	CreatedAt     time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (Reply) TableName() string {
	return "forum_replies"
}
