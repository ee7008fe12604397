package utils

import (
	"fmt"
	"strings"
)

// Source tags identify the origin of a points grant. Together with user_id
// they form the ledger's natural key, so tag construction must be stable
// across retries: no timestamps, no randomness.

// TaskSourceTag tags a grant caused by completing one TaskInstance.
func TaskSourceTag(instanceID uint) string {
	return fmt.Sprintf("task:%d", instanceID)
}

// WeeklyBonusTag tags the cohort bonus for completing a full challenge week.
func WeeklyBonusTag(week int) string {
	return fmt.Sprintf("bonus:week%d", week)
}

// IsBonusTag reports whether a source tag was produced by a bonus rule rather
// than a task completion.
func IsBonusTag(tag string) bool {
	return strings.HasPrefix(tag, "bonus:")
}
