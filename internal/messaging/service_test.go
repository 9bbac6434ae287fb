package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var databaseSequence atomic.Int64

type sequentialIDProvider struct {
	counter atomic.Int64
}

func (p *sequentialIDProvider) NewID() (string, error) {
	return fmt.Sprintf("message-id-%04d", p.counter.Add(1)), nil
}

type recipientSet map[string]bool

func (r recipientSet) Exists(_ context.Context, userID string) (bool, error) {
	return r[userID], nil
}

// steppingClock advances one second per reading so ordering is deterministic.
type steppingClock struct {
	ticks atomic.Int64
}

func (c *steppingClock) Now() time.Time {
	return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(c.ticks.Add(1)) * time.Second)
}

func newTestService(testContext *testing.T, recipients recipientSet) *Service {
	testContext.Helper()

	dsn := fmt.Sprintf("file:messaging_test_%d?mode=memory&cache=shared", databaseSequence.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		testContext.Fatalf("failed to access sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	testContext.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&Message{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	clock := &steppingClock{}
	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      clock.Now,
		IDProvider: &sequentialIDProvider{},
		Recipients: recipients,
	})
	if err != nil {
		testContext.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func mustSend(testContext *testing.T, service *Service, senderID, recipientID, body string) Message {
	testContext.Helper()
	message, err := service.Send(context.Background(), senderID, recipientID, body)
	if err != nil {
		testContext.Fatalf("failed to send message: %v", err)
	}
	return message
}

func TestSendValidatesRecipientAndBody(testContext *testing.T) {
	service := newTestService(testContext, recipientSet{"bob": true})

	if _, err := service.Send(context.Background(), "alice", "alice", "hi"); !errors.Is(err, ErrSelfMessage) {
		testContext.Fatalf("expected self message to be rejected, got %v", err)
	}
	if _, err := service.Send(context.Background(), "alice", "bob", "   "); !errors.Is(err, ErrEmptyBody) {
		testContext.Fatalf("expected empty body to be rejected, got %v", err)
	}
	if _, err := service.Send(context.Background(), "alice", "bob", strings.Repeat("a", maxMessageLength+1)); !errors.Is(err, ErrBodyTooLong) {
		testContext.Fatalf("expected oversized body to be rejected, got %v", err)
	}
	if _, err := service.Send(context.Background(), "alice", "ghost", "hello?"); !errors.Is(err, ErrRecipientNotFound) {
		testContext.Fatalf("expected unknown recipient to be rejected, got %v", err)
	}

	message := mustSend(testContext, service, "alice", "bob", "  hello bob  ")
	if message.Body != "hello bob" {
		testContext.Fatalf("expected body to be trimmed, got %q", message.Body)
	}
	if message.IsRead {
		testContext.Fatalf("expected new message to start unread")
	}
}

func TestConversationsGroupsByPeer(testContext *testing.T) {
	service := newTestService(testContext, recipientSet{"alice": true, "bob": true, "carol": true})

	mustSend(testContext, service, "alice", "bob", "first to bob")
	mustSend(testContext, service, "bob", "alice", "reply from bob")
	mustSend(testContext, service, "carol", "alice", "hello from carol")
	latest := mustSend(testContext, service, "carol", "alice", "still there?")

	conversations, err := service.Conversations(context.Background(), "alice")
	if err != nil {
		testContext.Fatalf("conversations failed: %v", err)
	}
	if len(conversations) != 2 {
		testContext.Fatalf("expected two threads, got %d", len(conversations))
	}
	if conversations[0].PeerID != "carol" || conversations[0].LastMessage.ID != latest.ID {
		testContext.Fatalf("expected carol thread first with latest message, got %+v", conversations[0])
	}
	if conversations[0].UnreadCount != 2 {
		testContext.Fatalf("expected two unread from carol, got %d", conversations[0].UnreadCount)
	}
	if conversations[1].PeerID != "bob" || conversations[1].UnreadCount != 1 {
		testContext.Fatalf("expected one unread from bob, got %+v", conversations[1])
	}
}

func TestThreadReturnsBothDirectionsOldestFirst(testContext *testing.T) {
	service := newTestService(testContext, recipientSet{"alice": true, "bob": true, "carol": true})

	first := mustSend(testContext, service, "alice", "bob", "one")
	second := mustSend(testContext, service, "bob", "alice", "two")
	mustSend(testContext, service, "alice", "carol", "unrelated")

	thread, err := service.Thread(context.Background(), "alice", "bob")
	if err != nil {
		testContext.Fatalf("thread failed: %v", err)
	}
	if len(thread) != 2 || thread[0].ID != first.ID || thread[1].ID != second.ID {
		testContext.Fatalf("expected the two-way exchange oldest first, got %+v", thread)
	}
}

func TestMarkReadIsRecipientOnlyAndIdempotent(testContext *testing.T) {
	service := newTestService(testContext, recipientSet{"bob": true})

	message := mustSend(testContext, service, "alice", "bob", "hello")

	if _, err := service.MarkRead(context.Background(), message.ID, "alice"); !errors.Is(err, ErrNotRecipient) {
		testContext.Fatalf("expected sender mark-read to be rejected, got %v", err)
	}
	if _, err := service.MarkRead(context.Background(), "missing", "bob"); !errors.Is(err, ErrMessageNotFound) {
		testContext.Fatalf("expected not found for unknown message, got %v", err)
	}

	read, err := service.MarkRead(context.Background(), message.ID, "bob")
	if err != nil || !read.IsRead {
		testContext.Fatalf("expected message to be marked read, got %+v %v", read, err)
	}
	again, err := service.MarkRead(context.Background(), message.ID, "bob")
	if err != nil || !again.IsRead {
		testContext.Fatalf("expected repeat mark-read to be a no-op, got %+v %v", again, err)
	}
}

func TestMarkThreadReadAndUnreadCount(testContext *testing.T) {
	service := newTestService(testContext, recipientSet{"alice": true, "bob": true, "carol": true})

	mustSend(testContext, service, "bob", "alice", "one")
	mustSend(testContext, service, "bob", "alice", "two")
	mustSend(testContext, service, "carol", "alice", "three")

	count, err := service.UnreadCount(context.Background(), "alice")
	if err != nil || count != 3 {
		testContext.Fatalf("expected three unread, got %d %v", count, err)
	}

	changed, err := service.MarkThreadRead(context.Background(), "alice", "bob")
	if err != nil || changed != 2 {
		testContext.Fatalf("expected two rows marked read, got %d %v", changed, err)
	}

	count, err = service.UnreadCount(context.Background(), "alice")
	if err != nil || count != 1 {
		testContext.Fatalf("expected one unread left, got %d %v", count, err)
	}

	changed, err = service.MarkThreadRead(context.Background(), "alice", "bob")
	if err != nil || changed != 0 {
		testContext.Fatalf("expected no further changes, got %d %v", changed, err)
	}
}
