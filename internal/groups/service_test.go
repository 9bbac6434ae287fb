package groups

import (
	"context"
	"errors"
	"fmt"
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
	return fmt.Sprintf("group-id-%04d", p.counter.Add(1)), nil
}

func newTestService(testContext *testing.T) *Service {
	testContext.Helper()

	dsn := fmt.Sprintf("file:groups_test_%d?mode=memory&cache=shared", databaseSequence.Add(1))
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

	if err := db.AutoMigrate(&StudyGroup{}, &Member{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) },
		IDProvider: &sequentialIDProvider{},
	})
	if err != nil {
		testContext.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func mustCreateGroup(testContext *testing.T, service *Service, creatorID string, maxMembers int) StudyGroup {
	testContext.Helper()
	group, err := service.CreateGroup(context.Background(), GroupInput{
		Name:       "gospel study",
		CreatorID:  creatorID,
		MaxMembers: maxMembers,
	})
	if err != nil {
		testContext.Fatalf("failed to create group: %v", err)
	}
	return group
}

func TestCreateGroupEnrollsCreatorAsAdmin(testContext *testing.T) {
	service := newTestService(testContext)
	group := mustCreateGroup(testContext, service, "creator-1", 10)

	members, err := service.Members(context.Background(), group.ID)
	if err != nil {
		testContext.Fatalf("failed to list members: %v", err)
	}
	if len(members) != 1 || members[0].UserID != "creator-1" || members[0].Role != RoleAdmin {
		testContext.Fatalf("expected creator to be the admin member, got %+v", members)
	}
}

func TestJoinEnforcesCapacityAndUniqueness(testContext *testing.T) {
	service := newTestService(testContext)
	group := mustCreateGroup(testContext, service, "creator-1", 2)

	if _, err := service.Join(context.Background(), group.ID, "member-1"); err != nil {
		testContext.Fatalf("join failed: %v", err)
	}
	if _, err := service.Join(context.Background(), group.ID, "member-1"); !errors.Is(err, ErrAlreadyMember) {
		testContext.Fatalf("expected duplicate join to fail, got %v", err)
	}
	if _, err := service.Join(context.Background(), group.ID, "member-2"); !errors.Is(err, ErrGroupFull) {
		testContext.Fatalf("expected capacity check, got %v", err)
	}
	if _, err := service.Join(context.Background(), "missing", "member-3"); !errors.Is(err, ErrGroupNotFound) {
		testContext.Fatalf("expected not found for unknown group, got %v", err)
	}
}

func TestUpdateGroupRequiresModeratorRole(testContext *testing.T) {
	service := newTestService(testContext)
	group := mustCreateGroup(testContext, service, "creator-1", 10)

	if _, err := service.Join(context.Background(), group.ID, "member-1"); err != nil {
		testContext.Fatalf("join failed: %v", err)
	}

	newName := "gnostic texts"
	if _, err := service.UpdateGroup(context.Background(), group.ID, "member-1", GroupUpdate{Name: &newName}); !errors.Is(err, ErrNotPermitted) {
		testContext.Fatalf("expected plain member edit to be rejected, got %v", err)
	}

	if _, err := service.SetMemberRole(context.Background(), group.ID, "creator-1", "member-1", RoleModerator); err != nil {
		testContext.Fatalf("failed to promote member: %v", err)
	}
	updated, err := service.UpdateGroup(context.Background(), group.ID, "member-1", GroupUpdate{Name: &newName})
	if err != nil {
		testContext.Fatalf("moderator edit failed: %v", err)
	}
	if updated.Name != newName {
		testContext.Fatalf("expected name change, got %q", updated.Name)
	}
}

func TestSetMemberRoleRules(testContext *testing.T) {
	service := newTestService(testContext)
	group := mustCreateGroup(testContext, service, "creator-1", 10)

	if _, err := service.Join(context.Background(), group.ID, "member-1"); err != nil {
		testContext.Fatalf("join failed: %v", err)
	}

	if _, err := service.SetMemberRole(context.Background(), group.ID, "creator-1", "creator-1", RoleMember); !errors.Is(err, ErrSelfRoleChange) {
		testContext.Fatalf("expected self role change to be rejected, got %v", err)
	}
	if _, err := service.SetMemberRole(context.Background(), group.ID, "member-1", "creator-1", RoleMember); !errors.Is(err, ErrNotPermitted) {
		testContext.Fatalf("expected non-admin role change to be rejected, got %v", err)
	}
	if _, err := service.SetMemberRole(context.Background(), group.ID, "creator-1", "member-1", MemberRole("owner")); !errors.Is(err, ErrInvalidRole) {
		testContext.Fatalf("expected unknown role to be rejected, got %v", err)
	}

	member, err := service.SetMemberRole(context.Background(), group.ID, "creator-1", "member-1", RoleModerator)
	if err != nil {
		testContext.Fatalf("promotion failed: %v", err)
	}
	if member.Role != RoleModerator {
		testContext.Fatalf("expected moderator role, got %s", member.Role)
	}
}

func TestRemoveMemberAllowsLeavingAndModeration(testContext *testing.T) {
	service := newTestService(testContext)
	group := mustCreateGroup(testContext, service, "creator-1", 10)

	for _, userID := range []string{"member-1", "member-2"} {
		if _, err := service.Join(context.Background(), group.ID, userID); err != nil {
			testContext.Fatalf("join failed: %v", err)
		}
	}

	// A member may leave on their own.
	if err := service.RemoveMember(context.Background(), group.ID, "member-1", "member-1"); err != nil {
		testContext.Fatalf("self removal failed: %v", err)
	}
	// But may not remove someone else.
	if err := service.RemoveMember(context.Background(), group.ID, "member-2", "creator-1"); !errors.Is(err, ErrNotPermitted) {
		testContext.Fatalf("expected removal by plain member to be rejected, got %v", err)
	}
	// Admins may.
	if err := service.RemoveMember(context.Background(), group.ID, "creator-1", "member-2"); err != nil {
		testContext.Fatalf("admin removal failed: %v", err)
	}
	if err := service.RemoveMember(context.Background(), group.ID, "creator-1", "member-2"); !errors.Is(err, ErrMemberNotFound) {
		testContext.Fatalf("expected missing member error, got %v", err)
	}
}

func TestDeleteGroupRequiresCreator(testContext *testing.T) {
	service := newTestService(testContext)
	group := mustCreateGroup(testContext, service, "creator-1", 10)

	if err := service.DeleteGroup(context.Background(), group.ID, "someone-else"); !errors.Is(err, ErrNotCreator) {
		testContext.Fatalf("expected creator check, got %v", err)
	}
	if err := service.DeleteGroup(context.Background(), group.ID, "creator-1"); err != nil {
		testContext.Fatalf("creator delete failed: %v", err)
	}
	if _, err := service.GetGroup(context.Background(), group.ID); !errors.Is(err, ErrGroupNotFound) {
		testContext.Fatalf("expected group to be gone, got %v", err)
	}
}

func TestListGroupsHidesForeignPrivateGroups(testContext *testing.T) {
	service := newTestService(testContext)

	if _, err := service.CreateGroup(context.Background(), GroupInput{
		Name: "open circle", CreatorID: "creator-1", MaxMembers: 10,
	}); err != nil {
		testContext.Fatalf("failed to create public group: %v", err)
	}
	private, err := service.CreateGroup(context.Background(), GroupInput{
		Name: "inner circle", CreatorID: "creator-2", MaxMembers: 10, IsPrivate: true,
	})
	if err != nil {
		testContext.Fatalf("failed to create private group: %v", err)
	}

	anonymous, err := service.ListGroups(context.Background(), "")
	if err != nil {
		testContext.Fatalf("anonymous list failed: %v", err)
	}
	if len(anonymous) != 1 {
		testContext.Fatalf("expected anonymous viewer to see only public groups, got %d", len(anonymous))
	}

	memberView, err := service.ListGroups(context.Background(), "creator-2")
	if err != nil {
		testContext.Fatalf("member list failed: %v", err)
	}
	if len(memberView) != 2 {
		testContext.Fatalf("expected member to see their private group too, got %d", len(memberView))
	}
	found := false
	for _, group := range memberView {
		if group.ID == private.ID {
			found = true
		}
	}
	if !found {
		testContext.Fatalf("expected private group in member listing")
	}
}
