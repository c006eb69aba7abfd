package db

import (
	"fmt"

	types "github.com/pedrohsmesquita/Lectria/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return err
	}
	return EnsureBookIndexes(db)
}

// EnsureBookIndexes adds the ordering indexes used by the orchestrator's
// next-pending query and the chapter listing.
func EnsureBookIndexes(db *gorm.DB) error {
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_chapter_book_order ON chapter(book_id, sort_order);`).Error; err != nil {
		return fmt.Errorf("create idx_chapter_book_order: %w", err)
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_section_chapter_order ON section(chapter_id, sort_order);`).Error; err != nil {
		return fmt.Errorf("create idx_section_chapter_order: %w", err)
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_section_book_status ON section(book_id, status);`).Error; err != nil {
		return fmt.Errorf("create idx_section_book_status: %w", err)
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_job_run_status_created ON job_run(status, created_at);`).Error; err != nil {
		return fmt.Errorf("create idx_job_run_status_created: %w", err)
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...", "driver", s.driver)
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}
