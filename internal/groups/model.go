// Package groups implements study groups with membership roles and capacity
// limits.
package groups

import "time"

// MemberRole is the permission level of a group member.
type MemberRole string

const (
	RoleAdmin     MemberRole = "admin"
	RoleModerator MemberRole = "moderator"
	RoleMember    MemberRole = "member"
)

// ValidRole reports whether the value is a known member role.
func ValidRole(role MemberRole) bool {
	switch role {
	case RoleAdmin, RoleModerator, RoleMember:
		return true
	}
	return false
}

// StudyGroup is a member-run study circle.
type StudyGroup struct {
	ID          string    `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	Name        string    `gorm:"column:name;size:100;not null" json:"name"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	CreatorID   string    `gorm:"column:creator_id;size:36;not null" json:"creator_id"`
	MaxMembers  int       `gorm:"column:max_members;not null;default:20" json:"max_members"`
	IsPrivate   bool      `gorm:"column:is_private;not null;default:false" json:"is_private"`
	CreatedAt   time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (StudyGroup) TableName() string {
	return "study_groups"
}

// Member ties a user to a group with a role.
type Member struct {
	ID       string     `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	GroupID  string     `gorm:"column:group_id;size:36;not null;index:idx_group_member,unique" json:"group_id"`
	UserID   string     `gorm:"column:user_id;size:36;not null;index:idx_group_member,unique" json:"user_id"`
	Role     MemberRole `gorm:"column:role;size:16;not null;default:member" json:"role"`
	JoinedAt time.Time  `gorm:"column:joined_at;not null" json:"joined_at"`
}

// TableName provides the explicit table binding for GORM.
func (Member) TableName() string {
	return "study_group_members"
}
