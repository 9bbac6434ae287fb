package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/openfellowship/commons/backend/internal/ident"
	"gorm.io/gorm"
)

const (
	earthRadiusKm   = 6371.0
	kmPerDegreeLat  = 111.0
	defaultRadiusKm = 50.0
)

var (
	ErrLocationNotFound  = errors.New("geo: location not found")
	ErrInvalidCoordinate = errors.New("geo: coordinates out of range")
	ErrInvalidStatus     = errors.New("geo: unknown location status")
)

// UserCounter reports the total number of accounts, used for the sharing
// rate statistic.
type UserCounter interface {
	CountUsers(ctx context.Context) (int64, error)
}

// ServiceConfig describes the map service dependencies. Cache is optional;
// without it every read hits the database.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider ident.Provider
	Cache      *Cache
	Users      UserCounter
}

// Service owns member map pins and proximity queries.
type Service struct {
	db         *gorm.DB
	now        func() time.Time
	idProvider ident.Provider
	cache      *Cache
	users      UserCounter
}

// NewService constructs the map service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("geo: database connection required")
	}
	if cfg.IDProvider == nil {
		return nil, fmt.Errorf("geo: id provider required")
	}
	if cfg.Users == nil {
		return nil, fmt.Errorf("geo: user counter required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		db:         cfg.Database,
		now:        clock,
		idProvider: cfg.IDProvider,
		cache:      cfg.Cache,
		users:      cfg.Users,
	}, nil
}

// LocationInput describes a member's map pin.
type LocationInput struct {
	Latitude  float64
	Longitude float64
	IsPublic  bool
	Status    LocationStatus
}

// UpsertLocation creates or replaces the member's single map pin and drops
// the cached map views.
func (s *Service) UpsertLocation(ctx context.Context, userID string, input LocationInput) (UserLocation, error) {
	if input.Latitude < -90 || input.Latitude > 90 || input.Longitude < -180 || input.Longitude > 180 {
		return UserLocation{}, ErrInvalidCoordinate
	}
	status := input.Status
	if status == "" {
		status = StatusPermanent
	}
	if !ValidLocationStatus(status) {
		return UserLocation{}, ErrInvalidStatus
	}

	now := s.now().UTC()
	var location UserLocation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", userID).Take(&location).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			id, idErr := s.idProvider.NewID()
			if idErr != nil {
				return idErr
			}
			location = UserLocation{
				ID:        id,
				UserID:    userID,
				Latitude:  input.Latitude,
				Longitude: input.Longitude,
				IsPublic:  input.IsPublic,
				Status:    status,
				CreatedAt: now,
				UpdatedAt: now,
			}
			return tx.Create(&location).Error
		}
		if err != nil {
			return err
		}
		location.Latitude = input.Latitude
		location.Longitude = input.Longitude
		location.IsPublic = input.IsPublic
		location.Status = status
		location.UpdatedAt = now
		return tx.Save(&location).Error
	})
	if err != nil {
		return UserLocation{}, err
	}
	if s.cache != nil {
		s.cache.invalidate(ctx)
	}
	return location, nil
}

// OwnLocation returns the member's pin.
func (s *Service) OwnLocation(ctx context.Context, userID string) (UserLocation, error) {
	var location UserLocation
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&location).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return UserLocation{}, ErrLocationNotFound
	}
	return location, err
}

// DeleteLocation removes the member's pin and drops the cached map views.
func (s *Service) DeleteLocation(ctx context.Context, userID string) error {
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&UserLocation{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLocationNotFound
	}
	if s.cache != nil {
		s.cache.invalidate(ctx)
	}
	return nil
}

// Nearby returns public pins within radiusKm of the viewer's own pin. The
// query prefilters with a bounding box and refines with the haversine
// distance. A viewer without a pin sees an empty list.
func (s *Service) Nearby(ctx context.Context, viewerID string, radiusKm float64) ([]UserLocation, error) {
	if radiusKm <= 0 {
		radiusKm = defaultRadiusKm
	}

	origin, err := s.OwnLocation(ctx, viewerID)
	if errors.Is(err, ErrLocationNotFound) {
		return []UserLocation{}, nil
	}
	if err != nil {
		return nil, err
	}

	latDelta := radiusKm / kmPerDegreeLat
	lngScale := math.Cos(origin.Latitude * math.Pi / 180)
	if lngScale < 0.01 {
		lngScale = 0.01
	}
	lngDelta := radiusKm / (kmPerDegreeLat * lngScale)

	var candidates []UserLocation
	if err := s.db.WithContext(ctx).
		Where("is_public = ? AND user_id <> ?", true, viewerID).
		Where("latitude BETWEEN ? AND ?", origin.Latitude-latDelta, origin.Latitude+latDelta).
		Where("longitude BETWEEN ? AND ?", origin.Longitude-lngDelta, origin.Longitude+lngDelta).
		Find(&candidates).Error; err != nil {
		return nil, err
	}

	nearby := make([]UserLocation, 0, len(candidates))
	for _, candidate := range candidates {
		distance := HaversineKm(origin.Latitude, origin.Longitude, candidate.Latitude, candidate.Longitude)
		if distance <= radiusKm {
			nearby = append(nearby, candidate)
		}
	}
	return nearby, nil
}

// PublicLocations returns every public pin, served from cache when fresh.
func (s *Service) PublicLocations(ctx context.Context) ([]UserLocation, error) {
	if s.cache != nil {
		if cached, ok := s.cache.getPublicLocations(ctx); ok {
			return cached, nil
		}
	}

	var locations []UserLocation
	if err := s.db.WithContext(ctx).
		Where("is_public = ?", true).
		Order("updated_at DESC").
		Find(&locations).Error; err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.setPublicLocations(ctx, locations)
	}
	return locations, nil
}

// MapStats returns adoption statistics, served from cache when fresh.
func (s *Service) MapStats(ctx context.Context) (Stats, error) {
	if s.cache != nil {
		if cached, ok := s.cache.getStats(ctx); ok {
			return cached, nil
		}
	}

	totalUsers, err := s.users.CountUsers(ctx)
	if err != nil {
		return Stats{}, err
	}
	var withLocations int64
	if err := s.db.WithContext(ctx).Model(&UserLocation{}).Count(&withLocations).Error; err != nil {
		return Stats{}, err
	}
	var publicCount int64
	if err := s.db.WithContext(ctx).Model(&UserLocation{}).
		Where("is_public = ?", true).
		Count(&publicCount).Error; err != nil {
		return Stats{}, err
	}

	denominator := totalUsers
	if denominator < 1 {
		denominator = 1
	}
	stats := Stats{
		TotalUsers:          totalUsers,
		UsersWithLocations:  withLocations,
		PublicLocations:     publicCount,
		LocationSharingRate: math.Round(float64(withLocations)/float64(denominator)*10000) / 100,
	}
	if s.cache != nil {
		s.cache.setStats(ctx, stats)
	}
	return stats, nil
}

// HaversineKm returns the great circle distance between two coordinates in
// kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	rlat1, rlon1 := toRad(lat1), toRad(lon1)
	rlat2, rlon2 := toRad(lat2), toRad(lon2)

	dlat := rlat2 - rlat1
	dlon := rlon2 - rlon1
	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
