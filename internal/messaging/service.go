package messaging

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/openfellowship/commons/backend/internal/ident"
	"gorm.io/gorm"
)

const maxMessageLength = 4000

var (
	ErrMessageNotFound   = errors.New("messaging: message not found")
	ErrRecipientNotFound = errors.New("messaging: recipient not found")
	ErrSelfMessage       = errors.New("messaging: cannot message yourself")
	ErrEmptyBody         = errors.New("messaging: message body cannot be empty")
	ErrBodyTooLong       = errors.New("messaging: message body exceeds the limit")
	ErrNotRecipient      = errors.New("messaging: only the recipient may mark a message read")
	errMissingDependency = errors.New("messaging: database, id provider and recipient checker required")
)

// RecipientChecker reports whether an active account exists for the id.
type RecipientChecker interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// ServiceConfig describes the messaging service dependencies.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider ident.Provider
	Recipients RecipientChecker
}

// Service owns direct messages between members.
type Service struct {
	db         *gorm.DB
	now        func() time.Time
	idProvider ident.Provider
	recipients RecipientChecker
}

// NewService constructs the messaging service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil || cfg.IDProvider == nil || cfg.Recipients == nil {
		return nil, errMissingDependency
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		db:         cfg.Database,
		now:        clock,
		idProvider: cfg.IDProvider,
		recipients: cfg.Recipients,
	}, nil
}

// Send delivers a message after checking the recipient account is active.
func (s *Service) Send(ctx context.Context, senderID, recipientID, body string) (Message, error) {
	if senderID == recipientID {
		return Message{}, ErrSelfMessage
	}
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return Message{}, ErrEmptyBody
	}
	if len([]rune(trimmed)) > maxMessageLength {
		return Message{}, ErrBodyTooLong
	}

	exists, err := s.recipients.Exists(ctx, recipientID)
	if err != nil {
		return Message{}, err
	}
	if !exists {
		return Message{}, ErrRecipientNotFound
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return Message{}, err
	}
	message := Message{
		ID:          id,
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        trimmed,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&message).Error; err != nil {
		return Message{}, err
	}
	return message, nil
}

// Conversation summarizes one peer's thread for the inbox listing.
type Conversation struct {
	PeerID      string  `json:"peer_id"`
	LastMessage Message `json:"last_message"`
	UnreadCount int     `json:"unread_count"`
}

// Conversations lists the viewer's threads, most recent activity first. The
// unread count only covers messages addressed to the viewer.
func (s *Service) Conversations(ctx context.Context, viewerID string) ([]Conversation, error) {
	var messages []Message
	if err := s.db.WithContext(ctx).
		Where("sender_id = ? OR recipient_id = ?", viewerID, viewerID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}

	byPeer := make(map[string]*Conversation)
	for _, message := range messages {
		peer := message.SenderID
		if peer == viewerID {
			peer = message.RecipientID
		}
		conversation, ok := byPeer[peer]
		if !ok {
			conversation = &Conversation{PeerID: peer}
			byPeer[peer] = conversation
		}
		conversation.LastMessage = message
		if message.RecipientID == viewerID && !message.IsRead {
			conversation.UnreadCount++
		}
	}

	conversations := make([]Conversation, 0, len(byPeer))
	for _, conversation := range byPeer {
		conversations = append(conversations, *conversation)
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].LastMessage.CreatedAt.After(conversations[j].LastMessage.CreatedAt)
	})
	return conversations, nil
}

// Thread returns the full exchange between the viewer and one peer, oldest
// first.
func (s *Service) Thread(ctx context.Context, viewerID, peerID string) ([]Message, error) {
	var messages []Message
	err := s.db.WithContext(ctx).
		Where(
			"(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			viewerID, peerID, peerID, viewerID,
		).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

// MarkRead flags one message as read. Only the recipient may do so.
func (s *Service) MarkRead(ctx context.Context, messageID, requesterID string) (Message, error) {
	var message Message
	err := s.db.WithContext(ctx).Where("id = ?", messageID).Take(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Message{}, ErrMessageNotFound
	}
	if err != nil {
		return Message{}, err
	}
	if message.RecipientID != requesterID {
		return Message{}, ErrNotRecipient
	}
	if message.IsRead {
		return message, nil
	}
	message.IsRead = true
	if err := s.db.WithContext(ctx).Save(&message).Error; err != nil {
		return Message{}, err
	}
	return message, nil
}

// MarkThreadRead flags every unread message from the peer as read and returns
// how many rows changed.
func (s *Service) MarkThreadRead(ctx context.Context, viewerID, peerID string) (int64, error) {
	result := s.db.WithContext(ctx).Model(&Message{}).
		Where("sender_id = ? AND recipient_id = ? AND is_read = ?", peerID, viewerID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

// UnreadCount returns the viewer's total unread messages across all threads.
func (s *Service) UnreadCount(ctx context.Context, viewerID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Message{}).
		Where("recipient_id = ? AND is_read = ?", viewerID, false).
		Count(&count).Error
	return count, err
}
