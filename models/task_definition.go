package models

import (
	"strconv"
	"strings"
	"time"
)

// TaskDefinition is an admin-configured task template. The catalog is
// administered elsewhere; the challenge engine treats these rows as read-only.
type TaskDefinition struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:150;not null" json:"name"`
	Category      string    `gorm:"size:50;index" json:"category"`
	SortOrder     int       `gorm:"not null;default:0" json:"sort_order"`
	IsActive      bool      `gorm:"not null;default:true;index" json:"is_active"`
	CountRequired int       `gorm:"not null;default:0" json:"count_required"`
	OutreachType  string    `gorm:"size:50;index" json:"outreach_type"`
	ResourceID    *uint     `json:"resource_id,omitempty"`
	ExternalLink  *string   `gorm:"size:255" json:"external_link,omitempty"`
	WeekNumbers   string    `gorm:"size:100" json:"week_numbers"` // comma-separated weeks, empty = every week
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (TaskDefinition) TableName() string {
	return "task_definitions"
}

// AppliesToDay reports whether this definition is in scope for the given
// challenge day, honoring the optional week restriction.
func (d *TaskDefinition) AppliesToDay(day int) bool {
	if strings.TrimSpace(d.WeekNumbers) == "" {
		return true
	}
	week := WeekOfDay(day)
	for _, part := range strings.Split(d.WeekNumbers, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err == nil && n == week {
			return true
		}
	}
	return false
}

// IsOutreach reports whether completion of this task is derived from logged
// outreach activity counts.
func (d *TaskDefinition) IsOutreach() bool {
	return d.OutreachType != "" && d.CountRequired > 0
}
