package models

import "time"

// TaskInstance is the per-user, per-day materialization of a TaskDefinition.
// The composite unique index is the correctness backbone: concurrent
// materialization attempts for the same (user, definition, day) resolve at
// the storage layer, never in application code.
type TaskInstance struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           uint       `gorm:"not null;uniqueIndex:idx_user_def_day,priority:1" json:"user_id"`
	TaskDefinitionID uint       `gorm:"not null;uniqueIndex:idx_user_def_day,priority:2" json:"task_definition_id"`
	ChallengeDay     int        `gorm:"not null;uniqueIndex:idx_user_def_day,priority:3" json:"challenge_day"`
	Completed        bool       `gorm:"not null;default:false" json:"completed"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	Notes            *string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt        time.Time  `json:"-"`
	UpdatedAt        time.Time  `json:"-"`
}

func (TaskInstance) TableName() string {
	return "task_instances"
}
