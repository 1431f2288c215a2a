package models

import "time"

// UsageRecord is the per-user count of document operations. It is created
// lazily on a user's first operation and only ever incremented; deletion is
// not a concern of this system. The same struct backs the Firestore and
// SQLite ledgers.
type UsageRecord struct {
	UserID     string    `firestore:"userId" gorm:"primaryKey;column:user_id" json:"userId"`
	TotalCount int64     `firestore:"totalCount" gorm:"column:total_count" json:"totalCount"`
	UpdatedAt  time.Time `firestore:"updatedAt" gorm:"column:updated_at" json:"updatedAt"`
}

// TableName fixes the SQLite table name regardless of GORM's pluralization.
func (UsageRecord) TableName() string {
	return "usage_records"
}
