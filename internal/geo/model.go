// Package geo implements the community map: member locations, proximity
// search and aggregate statistics with a short-lived Redis cache in front of
// the read-heavy endpoints.
package geo

import "time"

// LocationStatus describes how settled a member is at their pin.
type LocationStatus string

const (
	StatusPermanent LocationStatus = "permanent"
	StatusTraveling LocationStatus = "traveling"
	StatusNomadic   LocationStatus = "nomadic"
)

// ValidLocationStatus reports whether the value is a known status.
func ValidLocationStatus(value LocationStatus) bool {
	switch value {
	case StatusPermanent, StatusTraveling, StatusNomadic:
		return true
	}
	return false
}

// UserLocation is one member's pin on the community map.
type UserLocation struct {
	ID        string         `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	UserID    string         `gorm:"column:user_id;size:36;not null;uniqueIndex" json:"user_id"`
	Latitude  float64        `gorm:"column:latitude;not null" json:"latitude"`
	Longitude float64        `gorm:"column:longitude;not null" json:"longitude"`
	IsPublic  bool           `gorm:"column:is_public;not null;default:true" json:"is_public"`
	Status    LocationStatus `gorm:"column:status;size:20;not null;default:permanent" json:"status"`
	CreatedAt time.Time      `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (UserLocation) TableName() string {
	return "user_locations"
}

// Stats summarizes map adoption across the community.
type Stats struct {
	TotalUsers          int64   `json:"total_users"`
	UsersWithLocations  int64   `json:"users_with_locations"`
	PublicLocations     int64   `json:"public_locations"`
	LocationSharingRate float64 `json:"location_sharing_rate"`
}
