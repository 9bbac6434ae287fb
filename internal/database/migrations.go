package database

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/openfellowship/commons/backend/internal/review"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationSeedAboutContent = "2026-06-14_seed_about_content"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationSeedAboutContent, apply: seedAboutContent},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// seedAboutContent installs the initial About page blocks so the review
// surface has content to annotate on a fresh database. Existing rows are
// left alone.
func seedAboutContent(db *gorm.DB) error {
	var existing int64
	if err := db.Model(&review.ContentBlock{}).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	seeds := []struct {
		blockType review.BlockType
		blockKey  string
		content   string
	}{
		{review.BlockTypeHeader, "about-title", "<h1>About the Fellowship</h1>"},
		{review.BlockTypeSection, "about-mission", "<p>We are a community dedicated to shared study, open discussion and mutual aid. Everyone is welcome to read, comment and propose improvements to these pages.</p>"},
		{review.BlockTypeQuote, "about-quote", "<blockquote>Knowledge grows when it is shared.</blockquote>"},
		{review.BlockTypeParagraph, "about-participation", "<p>Members can annotate any passage on this page and suggest edits. Accepted suggestions become part of the page, with full history preserved.</p>"},
		{review.BlockTypeFooter, "about-contact", "<p>Questions? Reach the stewards through the community forum.</p>"},
	}

	now := time.Now().UTC()
	return db.Transaction(func(tx *gorm.DB) error {
		for order, seed := range seeds {
			block := review.ContentBlock{
				ID:           uuid.NewString(),
				BlockType:    seed.blockType,
				BlockKey:     seed.blockKey,
				Content:      seed.content,
				DisplayOrder: order,
				IsActive:     true,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := tx.Create(&block).Error; err != nil {
				return err
			}
			note := "created by content seeding"
			history := review.ContentHistory{
				ID:           uuid.NewString(),
				BlockID:      &block.ID,
				BlockKey:     block.BlockKey,
				ChangeType:   review.ChangeTypeContentCreated,
				NewText:      block.Content,
				ContentAfter: block.Content,
				Note:         &note,
				CreatedAt:    now,
			}
			if err := tx.Create(&history).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
