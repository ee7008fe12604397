package challenge

import (
	"errors"
	"time"

	"challenge/models"
	"challenge/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ToggleResult reports whether this toggle actually granted points.
type ToggleResult struct {
	PointsAwarded bool `json:"points_awarded"`
}

// ToggleTask sets the completion state of an existing TaskInstance and, on a
// false→true transition, appends exactly one points grant inside the same
// transaction. The instance must already exist (run EnsureDailyTasksExist
// first); an implicit create here would make the prior state ambiguous and
// break award accounting.
//
// Awarding is idempotent: the grant is keyed on the instance id, so a retried
// request or a true→false→true sequence inserts the ledger row at most once.
// Unchecking never retracts points — it is a correction affordance, not a
// penalty. Both writes commit or roll back together.
func (s *Service) ToggleTask(userID, taskDefinitionID uint, day int, desired bool) (*ToggleResult, error) {
	cfg, err := s.Config()
	if err != nil {
		return nil, err
	}
	if err := s.validDay(cfg, day); err != nil {
		return nil, err
	}

	result := &ToggleResult{}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var inst models.TaskInstance
		if err := tx.Where("user_id = ? AND task_definition_id = ? AND challenge_day = ?",
			userID, taskDefinitionID, day).First(&inst).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &ValidationError{Reason: "task instance does not exist for this day"}
			}
			return err
		}

		wasCompleted := inst.Completed
		updates := map[string]interface{}{"completed": desired}
		if desired {
			now := time.Now()
			updates["completed_at"] = &now
		} else {
			updates["completed_at"] = nil
		}
		if err := tx.Model(&inst).Updates(updates).Error; err != nil {
			return err
		}

		if desired && !wasCompleted {
			entry := models.PointsLedgerEntry{
				UserID:    userID,
				Amount:    s.taskPoints,
				SourceTag: utils.TaskSourceTag(inst.ID),
			}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
			if res.Error != nil {
				return res.Error
			}
			// RowsAffected == 0 means a prior toggle already granted for this
			// instance; treat as success without a second award.
			result.PointsAwarded = res.RowsAffected > 0
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
