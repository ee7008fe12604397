package admins

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"challenge/challenge"
	"challenge/database"
	"challenge/models"
	"challenge/utils"
)

type rebuildRequest struct {
	UserID uint `json:"user_id,omitempty"` // 0 = rebuild all active participants
}

// POST /v1/admins/progress/rebuild
// Recomputes the progress cache from instance history for one user or the
// whole active cohort.
func RebuildProgressHandler(w http.ResponseWriter, r *http.Request) {
	var req rebuildRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	svc := challenge.NewService(database.DB)

	if req.UserID != 0 {
		progress, err := svc.UpdateProgress(req.UserID)
		if err != nil {
			if challenge.IsValidation(err) {
				utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: err.Error()})
				return
			}
			utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Rebuild failed"})
			return
		}
		utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Progress rebuilt", Data: progress})
		return
	}

	var participants []models.UserChallengeProgress
	if err := database.DB.Where("is_active = ?", true).Find(&participants).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "DB error"})
		return
	}

	rebuilt := 0
	errs := []string{}
	for i := range participants {
		if _, err := svc.UpdateProgress(participants[i].UserID); err != nil {
			log.Printf("[progress] rebuild user=%d: %v", participants[i].UserID, err)
			errs = append(errs, fmt.Sprintf("user %d: %v", participants[i].UserID, err))
			continue
		}
		rebuilt++
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Progress rebuilt", Data: map[string]interface{}{
		"rebuilt": rebuilt,
		"errors":  errs,
	}})
}
