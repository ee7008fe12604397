package users

import (
	"log"
	"net/http"
	"strings"
	"time"

	"challenge/challenge"
	"challenge/database"
	"challenge/models"
	"challenge/utils"
)

type outreachLogRequest struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
	Date  string `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
}

// POST /v1/users/outreach
// Records a manual outreach log entry and immediately reconciles the user's
// count-based tasks so a threshold crossed by this entry shows up right away.
func LogOutreachHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	var req outreachLogRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	req.Type = strings.TrimSpace(req.Type)
	if req.Type == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "type is required"})
		return
	}
	if req.Count <= 0 {
		req.Count = 1
	}

	date := time.Now()
	if req.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
		if err != nil {
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "date must be YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	record := models.OutreachActivityRecord{
		UserID: uid,
		Type:   req.Type,
		Count:  req.Count,
		Date:   date,
	}
	if err := database.DB.Create(&record).Error; err != nil {
		log.Printf("[outreach] create record user=%d: %v", uid, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	svc := challenge.NewService(database.DB)
	day := 0
	if cfg, err := svc.Config(); err == nil {
		if d := cfg.DayOfDate(date); d >= 1 && d <= cfg.TotalDays {
			day = d
		}
	}
	if err := svc.ReconcileOutreach(uid, day); err != nil && !challenge.IsValidation(err) {
		log.Printf("[outreach] reconcile user=%d day=%d: %v", uid, day, err)
	}

	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Activity logged", Data: record})
}

// GET /v1/users/outreach
func OutreachListHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	var records []models.OutreachActivityRecord
	if err := database.DB.Where("user_id = ?", uid).
		Order("date DESC, id DESC").Limit(100).Find(&records).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "DB error"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: records})
}
