package models

import "time"

// ChallengeConfig is the singleton program configuration. current_day is
// advanced by an administrator; callers must read this row fresh on every
// engine invocation and never cache it across a run.
type ChallengeConfig struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TotalDays  int       `gorm:"not null;default:75" json:"total_days"`
	StartDate  time.Time `gorm:"not null" json:"start_date"`
	EndDate    time.Time `gorm:"not null" json:"end_date"`
	CurrentDay int       `gorm:"not null;default:1" json:"current_day"`
	IsActive   bool      `gorm:"not null;default:true" json:"is_active"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (ChallengeConfig) TableName() string {
	return "challenge_configs"
}

// DayDate returns the calendar date (midnight, local) of the given challenge day.
func (c *ChallengeConfig) DayDate(day int) time.Time {
	start := time.Date(c.StartDate.Year(), c.StartDate.Month(), c.StartDate.Day(), 0, 0, 0, 0, c.StartDate.Location())
	return start.AddDate(0, 0, day-1)
}

// DayOfDate maps a timestamp back to its challenge day (1-based). Returns 0
// for dates before the start of the program. Both calendar dates are pinned
// to UTC midnight before subtracting, so the span is an exact multiple of
// 24h even when the local zone has a DST transition in between.
func (c *ChallengeConfig) DayOfDate(t time.Time) int {
	start := time.Date(c.StartDate.Year(), c.StartDate.Month(), c.StartDate.Day(), 0, 0, 0, 0, time.UTC)
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	days := int(d.Sub(start).Hours()/24) + 1
	if days < 1 {
		return 0
	}
	return days
}

// WeekOfDay returns the 1-based challenge week containing the given day.
func WeekOfDay(day int) int {
	if day < 1 {
		return 0
	}
	return (day-1)/7 + 1
}
