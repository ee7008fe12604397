package admins

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"challenge/database"
	"challenge/models"
	"challenge/utils"

	"gorm.io/gorm"
)

// GET /v1/admins/challenge-config
func GetChallengeConfigHandler(w http.ResponseWriter, r *http.Request) {
	var cfg models.ChallengeConfig
	if err := database.DB.First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Challenge is not configured"})
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "DB error"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: cfg})
}

type configUpdateRequest struct {
	TotalDays  *int    `json:"total_days,omitempty"`
	StartDate  *string `json:"start_date,omitempty"` // YYYY-MM-DD
	CurrentDay *int    `json:"current_day,omitempty"`
	IsActive   *bool   `json:"is_active,omitempty"`
}

// PUT /v1/admins/challenge-config
// Creates the singleton row on first call; subsequent calls update fields,
// most commonly advancing current_day.
func UpdateChallengeConfigHandler(w http.ResponseWriter, r *http.Request) {
	var req configUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid JSON body"})
		return
	}

	db := database.DB
	var cfg models.ChallengeConfig
	err := db.First(&cfg).Error
	creating := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !creating {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "DB error"})
		return
	}
	if creating {
		cfg = models.ChallengeConfig{TotalDays: 75, CurrentDay: 1, IsActive: true, StartDate: time.Now()}
	}

	if req.TotalDays != nil {
		if *req.TotalDays < 1 {
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "total_days must be positive"})
			return
		}
		cfg.TotalDays = *req.TotalDays
	}
	if req.StartDate != nil {
		parsed, perr := time.ParseInLocation("2006-01-02", *req.StartDate, time.Local)
		if perr != nil {
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "start_date must be YYYY-MM-DD"})
			return
		}
		cfg.StartDate = parsed
	}
	if req.CurrentDay != nil {
		if *req.CurrentDay < 1 || *req.CurrentDay > cfg.TotalDays {
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "current_day out of range"})
			return
		}
		cfg.CurrentDay = *req.CurrentDay
	}
	if req.IsActive != nil {
		cfg.IsActive = *req.IsActive
	}
	cfg.EndDate = cfg.DayDate(cfg.TotalDays)

	if creating {
		err = db.Create(&cfg).Error
	} else {
		err = db.Save(&cfg).Error
	}
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to save config"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Config saved", Data: cfg})
}
