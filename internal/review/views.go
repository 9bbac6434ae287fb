package review

import "time"

// ReplyView is a comment reply with its author name resolved.
type ReplyView struct {
	ID             string    `json:"id"`
	CommentID      string    `json:"comment_id"`
	AuthorID       string    `json:"author_id"`
	AuthorUsername string    `json:"author_username,omitempty"`
	Body           string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// CommentView is a comment with replies and author names resolved.
type CommentView struct {
	ID             string      `json:"id"`
	BlockID        string      `json:"block_id"`
	AuthorID       string      `json:"author_id"`
	AuthorUsername string      `json:"author_username,omitempty"`
	StartOffset    int         `json:"start_offset"`
	EndOffset      int         `json:"end_offset"`
	SelectedText   string      `json:"selected_text"`
	Body           string      `json:"content"`
	IsResolved     bool        `json:"is_resolved"`
	ResolvedBy     *string     `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time  `json:"resolved_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	Replies        []ReplyView `json:"replies"`
}

// SuggestionView is an edit suggestion with its author name resolved.
type SuggestionView struct {
	ID             string           `json:"id"`
	BlockID        string           `json:"block_id"`
	AuthorID       string           `json:"author_id"`
	AuthorUsername string           `json:"author_username,omitempty"`
	StartOffset    int              `json:"start_offset"`
	EndOffset      int              `json:"end_offset"`
	OriginalText   string           `json:"original_text"`
	SuggestedText  string           `json:"suggested_text"`
	Status         SuggestionStatus `json:"status"`
	ReviewedBy     *string          `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time       `json:"reviewed_at,omitempty"`
	ReviewNote     *string          `json:"review_note,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// BlockView is a content block annotated with the comments and suggestions
// the viewer is allowed to see.
type BlockView struct {
	ID            string           `json:"id"`
	BlockType     BlockType        `json:"block_type"`
	BlockKey      string           `json:"block_key"`
	DisplayOrder  int              `json:"display_order"`
	Content       string           `json:"content"`
	ParentBlockID *string          `json:"parent_block_id,omitempty"`
	IsActive      bool             `json:"is_active"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	Comments      []CommentView    `json:"comments"`
	Suggestions   []SuggestionView `json:"suggestions"`
}

// ContentPage is the full annotated About page for one viewer.
type ContentPage struct {
	Blocks  []BlockView `json:"blocks"`
	CanEdit bool        `json:"can_edit"`
}

// PendingReviewPage lists everything awaiting an admin decision. The total is
// derived from the listed rows rather than a maintained counter.
type PendingReviewPage struct {
	Comments     []CommentView    `json:"comments"`
	Suggestions  []SuggestionView `json:"suggestions"`
	TotalPending int              `json:"total_pending"`
}

func commentView(comment Comment, replies []CommentReply, names map[string]string) CommentView {
	view := CommentView{
		ID:             comment.ID,
		BlockID:        comment.BlockID,
		AuthorID:       comment.AuthorID,
		AuthorUsername: names[comment.AuthorID],
		StartOffset:    comment.StartOffset,
		EndOffset:      comment.EndOffset,
		SelectedText:   comment.SelectedText,
		Body:           comment.Body,
		IsResolved:     comment.IsResolved,
		ResolvedBy:     comment.ResolvedBy,
		ResolvedAt:     comment.ResolvedAt,
		CreatedAt:      comment.CreatedAt,
		UpdatedAt:      comment.UpdatedAt,
		Replies:        make([]ReplyView, 0, len(replies)),
	}
	for _, reply := range replies {
		view.Replies = append(view.Replies, replyView(reply, names))
	}
	return view
}

func replyView(reply CommentReply, names map[string]string) ReplyView {
	return ReplyView{
		ID:             reply.ID,
		CommentID:      reply.CommentID,
		AuthorID:       reply.AuthorID,
		AuthorUsername: names[reply.AuthorID],
		Body:           reply.Body,
		CreatedAt:      reply.CreatedAt,
	}
}

func suggestionView(suggestion EditSuggestion, names map[string]string) SuggestionView {
	return SuggestionView{
		ID:             suggestion.ID,
		BlockID:        suggestion.BlockID,
		AuthorID:       suggestion.AuthorID,
		AuthorUsername: names[suggestion.AuthorID],
		StartOffset:    suggestion.StartOffset,
		EndOffset:      suggestion.EndOffset,
		OriginalText:   suggestion.OriginalText,
		SuggestedText:  suggestion.SuggestedText,
		Status:         suggestion.Status,
		ReviewedBy:     suggestion.ReviewedBy,
		ReviewedAt:     suggestion.ReviewedAt,
		ReviewNote:     suggestion.ReviewNote,
		CreatedAt:      suggestion.CreatedAt,
	}
}
