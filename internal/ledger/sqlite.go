package ledger

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/docmill/docmill/internal/models"
)

// SQLite persists usage records in a local database. The increment is an
// upsert whose update expression runs inside the store
// (total_count = total_count + ?), so concurrent calls serialize on the
// database write lock instead of racing a client-side read.
type SQLite struct {
	db *gorm.DB
}

func NewSQLite(path string) (*SQLite, error) {
	// The busy timeout makes concurrent increments queue on the write lock
	// instead of failing with SQLITE_BUSY.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open usage database at %s: %w", path, err)
	}
	if err := db.AutoMigrate(&models.UsageRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate usage schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (l *SQLite) Increment(ctx context.Context, userID string, delta int64) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: empty user id", ErrUnavailable)
	}
	if delta <= 0 {
		return 0, fmt.Errorf("%w: delta must be positive, got %d", ErrUnavailable, delta)
	}

	var total int64
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec := models.UsageRecord{UserID: userID, TotalCount: delta, UpdatedAt: time.Now()}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"total_count": gorm.Expr("total_count + ?", delta),
				"updated_at":  time.Now(),
			}),
		}).Create(&rec).Error; err != nil {
			return err
		}

		var stored models.UsageRecord
		if err := tx.Where("user_id = ?", userID).First(&stored).Error; err != nil {
			return err
		}
		total = stored.TotalCount
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return total, nil
}
