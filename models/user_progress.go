package models

import "time"

// UserChallengeProgress is a denormalized cache rebuilt by the aggregator.
// Never hand-edited; the instance history is the source of truth.
type UserChallengeProgress struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	TotalDaysCompleted int       `gorm:"not null;default:0" json:"total_days_completed"`
	CurrentStreak      int       `gorm:"not null;default:0" json:"current_streak"`
	IsActive           bool      `gorm:"not null;default:true;index" json:"is_active"`
	JoinedAt           time.Time `gorm:"not null" json:"joined_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (UserChallengeProgress) TableName() string {
	return "user_challenge_progress"
}
