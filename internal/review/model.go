// Package review implements the collaborative content-review engine for the
// About page: block-anchored comments, edit suggestions with an admin
// accept/reject workflow, and an append-only history of content changes.
package review

import "time"

// BlockType enumerates the kinds of content blocks a page is composed of.
type BlockType string

const (
	BlockTypeHeader    BlockType = "header"
	BlockTypeSection   BlockType = "section"
	BlockTypeQuote     BlockType = "quote"
	BlockTypeParagraph BlockType = "paragraph"
	BlockTypeFooter    BlockType = "footer"
	BlockTypeList      BlockType = "list"
)

// ValidBlockType reports whether value names a known block type.
func ValidBlockType(value BlockType) bool {
	switch value {
	case BlockTypeHeader, BlockTypeSection, BlockTypeQuote, BlockTypeParagraph, BlockTypeFooter, BlockTypeList:
		return true
	}
	return false
}

// SuggestionStatus tracks the review lifecycle of an edit suggestion.
// Accepted and rejected are terminal.
type SuggestionStatus string

const (
	SuggestionStatusPending  SuggestionStatus = "pending"
	SuggestionStatusAccepted SuggestionStatus = "accepted"
	SuggestionStatusRejected SuggestionStatus = "rejected"
)

// ChangeType labels the event that produced a history record.
type ChangeType string

const (
	ChangeTypeSuggestionAccepted ChangeType = "suggestion_accepted"
	ChangeTypeDirectEdit         ChangeType = "direct_edit"
	ChangeTypeContentCreated     ChangeType = "content_created"
)

// ContentBlock is a unit of page content. Blocks form a shallow tree via
// ParentBlockID; the reference is an id lookup, not an owning pointer.
type ContentBlock struct {
	ID            string    `gorm:"column:id;primaryKey;size:36;not null"`
	BlockType     BlockType `gorm:"column:block_type;size:50;not null"`
	BlockKey      string    `gorm:"column:block_key;size:100;uniqueIndex;not null"`
	DisplayOrder  int       `gorm:"column:display_order;not null;index"`
	Content       string    `gorm:"column:content;type:text;not null"`
	ParentBlockID *string   `gorm:"column:parent_block_id;size:36;index"`
	IsActive      bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (ContentBlock) TableName() string {
	return "about_content_blocks"
}

// Comment is an annotation anchored to a plain-text range of one block.
type Comment struct {
	ID           string     `gorm:"column:id;primaryKey;size:36;not null"`
	BlockID      string     `gorm:"column:block_id;size:36;not null;index"`
	AuthorID     string     `gorm:"column:author_id;size:36;not null;index"`
	StartOffset  int        `gorm:"column:start_offset;not null"`
	EndOffset    int        `gorm:"column:end_offset;not null"`
	SelectedText string     `gorm:"column:selected_text;type:text;not null"`
	Body         string     `gorm:"column:content;type:text;not null"`
	IsResolved   bool       `gorm:"column:is_resolved;not null;default:false"`
	ResolvedBy   *string    `gorm:"column:resolved_by;size:36"`
	ResolvedAt   *time.Time `gorm:"column:resolved_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Comment) TableName() string {
	return "about_comments"
}

// CommentReply is a flat child of one comment; replies do not nest further.
type CommentReply struct {
	ID        string    `gorm:"column:id;primaryKey;size:36;not null"`
	CommentID string    `gorm:"column:comment_id;size:36;not null;index"`
	AuthorID  string    `gorm:"column:author_id;size:36;not null"`
	Body      string    `gorm:"column:content;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (CommentReply) TableName() string {
	return "about_comment_replies"
}

// EditSuggestion is a proposed replacement for a plain-text range of a block,
// awaiting an admin decision while pending.
type EditSuggestion struct {
	ID            string           `gorm:"column:id;primaryKey;size:36;not null"`
	BlockID       string           `gorm:"column:block_id;size:36;not null;index"`
	AuthorID      string           `gorm:"column:author_id;size:36;not null"`
	StartOffset   int              `gorm:"column:start_offset;not null"`
	EndOffset     int              `gorm:"column:end_offset;not null"`
	OriginalText  string           `gorm:"column:original_text;type:text;not null"`
	SuggestedText string           `gorm:"column:suggested_text;type:text;not null"`
	Status        SuggestionStatus `gorm:"column:status;size:20;not null;default:pending;index"`
	ReviewedBy    *string          `gorm:"column:reviewed_by;size:36"`
	ReviewedAt    *time.Time       `gorm:"column:reviewed_at"`
	ReviewNote    *string          `gorm:"column:review_note;type:text"`
	CreatedAt     time.Time        `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (EditSuggestion) TableName() string {
	return "about_edit_suggestions"
}

// ContentHistory is an append-only audit record of one content-changing
// event. Rows are never updated or deleted; BlockID outlives its block as a
// nullable reference so the audit trail survives block removal.
type ContentHistory struct {
	ID            string     `gorm:"column:id;primaryKey;size:36;not null"`
	BlockID       *string    `gorm:"column:block_id;size:36;index"`
	BlockKey      string     `gorm:"column:block_key;size:100;not null"`
	ChangeType    ChangeType `gorm:"column:change_type;size:50;not null"`
	ChangedBy     *string    `gorm:"column:changed_by;size:36;index"`
	SuggestionID  *string    `gorm:"column:suggestion_id;size:36"`
	OriginalText  string     `gorm:"column:original_text;type:text"`
	NewText       string     `gorm:"column:new_text;type:text"`
	ContentBefore string     `gorm:"column:full_content_before;type:text"`
	ContentAfter  string     `gorm:"column:full_content_after;type:text"`
	Note          *string    `gorm:"column:note;type:text"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (ContentHistory) TableName() string {
	return "about_content_history"
}
