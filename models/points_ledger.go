package models

import "time"

// PointsLedgerEntry is one grant in the append-only points ledger. The unique
// (user_id, source_tag) index enforces at-most-once awarding: a retried grant
// for the same source inserts nothing.
type PointsLedgerEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_source,priority:1" json:"user_id"`
	Amount    int       `gorm:"not null" json:"amount"`
	SourceTag string    `gorm:"size:191;not null;uniqueIndex:idx_user_source,priority:2" json:"source_tag"`
	CreatedAt time.Time `json:"created_at"`
}

func (PointsLedgerEntry) TableName() string {
	return "points_ledger"
}
