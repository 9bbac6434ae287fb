package database

import (
	"path/filepath"
	"testing"

	"github.com/openfellowship/commons/backend/internal/review"
	"go.uber.org/zap"
)

func TestOpenSQLiteSeedsAboutContent(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "seed.db")

	database, err := OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	var blocks []review.ContentBlock
	if err := database.Order("display_order ASC").Find(&blocks).Error; err != nil {
		testContext.Fatalf("failed to load seeded blocks: %v", err)
	}
	if len(blocks) == 0 {
		testContext.Fatalf("expected seeded content blocks")
	}
	for index, block := range blocks {
		if block.DisplayOrder != index {
			testContext.Fatalf("expected contiguous display order, got %d at position %d", block.DisplayOrder, index)
		}
		if !block.IsActive {
			testContext.Fatalf("expected seeded block %s to be active", block.BlockKey)
		}
	}

	var history []review.ContentHistory
	if err := database.Where("change_type = ?", review.ChangeTypeContentCreated).Find(&history).Error; err != nil {
		testContext.Fatalf("failed to load history: %v", err)
	}
	if len(history) != len(blocks) {
		testContext.Fatalf("expected one creation history row per block, got %d for %d blocks", len(history), len(blocks))
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationSeedAboutContent).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}
}

func TestApplyMigrationsIsIdempotent(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "idempotent.db")

	database, err := OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	var before int64
	if err := database.Model(&review.ContentBlock{}).Count(&before).Error; err != nil {
		testContext.Fatalf("failed to count blocks: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to reapply migrations: %v", err)
	}

	var after int64
	if err := database.Model(&review.ContentBlock{}).Count(&after).Error; err != nil {
		testContext.Fatalf("failed to recount blocks: %v", err)
	}
	if before != after {
		testContext.Fatalf("expected block count to stay %d, got %d", before, after)
	}
}
