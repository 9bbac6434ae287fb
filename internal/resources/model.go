// Package resources implements the shared resource library: links and
// documents submitted by members, gated by admin approval.
package resources

import "time"

// ResourceType categorizes a shared resource.
type ResourceType string

const (
	TypeLink     ResourceType = "link"
	TypeDocument ResourceType = "document"
	TypeVideo    ResourceType = "video"
	TypeAudio    ResourceType = "audio"
)

// ValidResourceType reports whether the value is a known resource type.
func ValidResourceType(value ResourceType) bool {
	switch value {
	case TypeLink, TypeDocument, TypeVideo, TypeAudio:
		return true
	}
	return false
}

// SharedResource is one library entry. Entries stay hidden from regular
// members until an admin approves them.
type SharedResource struct {
	ID           string       `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	SubmitterID  string       `gorm:"column:submitter_id;size:36;not null;index" json:"submitter_id"`
	Title        string       `gorm:"column:title;size:255;not null" json:"title"`
	Description  string       `gorm:"column:description;type:text" json:"description"`
	URL          string       `gorm:"column:url;size:1024;not null" json:"url"`
	ResourceType ResourceType `gorm:"column:resource_type;size:16;not null" json:"resource_type"`
	Upvotes      int          `gorm:"column:upvotes;not null;default:0" json:"upvotes"`
	IsApproved   bool         `gorm:"column:is_approved;not null;default:false;index" json:"is_approved"`
	CreatedAt    time.Time    `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (SharedResource) TableName() string {
	return "shared_resources"
}
