package users

import (
	"net/http"

	"challenge/challenge"
	"challenge/database"
	"challenge/utils"
)

// GET /v1/users/progress
// Recomputes the snapshot from instance history before returning it, so the
// response never serves a stale cache row.
func ProgressHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	svc := challenge.NewService(database.DB)
	cfg, err := svc.Config()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	progress, err := svc.UpdateProgress(uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	points, bonus, err := svc.PointsBreakdown(uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"current_day":          cfg.CurrentDay,
		"total_days":           cfg.TotalDays,
		"total_days_completed": progress.TotalDaysCompleted,
		"current_streak":       progress.CurrentStreak,
		"points_total":         points,
		"bonus_points":         bonus,
		"percent_complete":     utils.Percent(progress.TotalDaysCompleted, cfg.TotalDays),
		"joined_at":            progress.JoinedAt,
	}})
}
