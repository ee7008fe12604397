package models

import "time"

// OutreachActivityRecord is a logged unit of outreach activity (calls made,
// messages sent, ...). Rows are produced by the manual-logging endpoint and
// other application features; the reconciliation engine only ever reads them,
// aggregated as counts per (type, date).
type OutreachActivityRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_outreach_user_date,priority:1" json:"user_id"`
	Type      string    `gorm:"size:50;not null" json:"type"`
	Count     int       `gorm:"not null;default:1" json:"count"`
	Date      time.Time `gorm:"not null;index:idx_outreach_user_date,priority:2" json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

func (OutreachActivityRecord) TableName() string {
	return "outreach_activity_records"
}
