package database

import (
	"fmt"

	"github.com/openfellowship/commons/backend/internal/forum"
	"github.com/openfellowship/commons/backend/internal/geo"
	"github.com/openfellowship/commons/backend/internal/groups"
	"github.com/openfellowship/commons/backend/internal/messaging"
	"github.com/openfellowship/commons/backend/internal/resources"
	"github.com/openfellowship/commons/backend/internal/review"
	"github.com/openfellowship/commons/backend/internal/users"
	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OpenSQLite establishes a SQLite connection and performs schema migrations.
func OpenSQLite(path string, logger *zap.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&users.User{},
		&review.ContentBlock{},
		&review.Comment{},
		&review.CommentReply{},
		&review.EditSuggestion{},
		&review.ContentHistory{},
		&forum.Category{},
		&forum.Thread{},
		&forum.Reply{},
		&groups.StudyGroup{},
		&groups.Member{},
		&resources.SharedResource{},
		&messaging.Message{},
		&geo.UserLocation{},
		&migrationRecord{},
	); err != nil {
		return nil, err
	}

	if err := applyMigrations(db, logger); err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("database initialized", zap.String("path", path))
	}

	return db, nil
}
