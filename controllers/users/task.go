package users

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"challenge/challenge"
	"challenge/database"
	"challenge/models"
	"challenge/utils"

	"github.com/gorilla/mux"
)

// taskView is one row of the day's checklist as returned to the client.
type taskView struct {
	TaskDefinitionID uint    `json:"task_definition_id"`
	Name             string  `json:"name"`
	Category         string  `json:"category"`
	ChallengeDay     int     `json:"challenge_day"`
	Completed        bool    `json:"completed"`
	CompletedAt      *string `json:"completed_at,omitempty"`
	CountRequired    int     `json:"count_required,omitempty"`
	OutreachType     string  `json:"outreach_type,omitempty"`
	ExternalLink     *string `json:"external_link,omitempty"`
}

// taskListForDay materializes the day's instances and returns the
// authoritative checklist, ordered by catalog sort order.
func taskListForDay(svc *challenge.Service, userID uint, day int) ([]taskView, error) {
	if _, err := svc.EnsureDailyTasksExist(userID, day); err != nil {
		return nil, err
	}

	db := database.DB
	var defs []models.TaskDefinition
	if err := db.Where("is_active = ?", true).Order("sort_order ASC, id ASC").Find(&defs).Error; err != nil {
		return nil, err
	}
	var instances []models.TaskInstance
	if err := db.Where("user_id = ? AND challenge_day = ?", userID, day).Find(&instances).Error; err != nil {
		return nil, err
	}
	byDef := make(map[uint]models.TaskInstance, len(instances))
	for i := range instances {
		byDef[instances[i].TaskDefinitionID] = instances[i]
	}

	list := make([]taskView, 0, len(defs))
	for i := range defs {
		def := defs[i]
		inst, ok := byDef[def.ID]
		if !ok {
			// not applicable this day (week restriction) or insert failed
			continue
		}
		view := taskView{
			TaskDefinitionID: def.ID,
			Name:             def.Name,
			Category:         def.Category,
			ChallengeDay:     day,
			Completed:        inst.Completed,
			CountRequired:    def.CountRequired,
			OutreachType:     def.OutreachType,
			ExternalLink:     def.ExternalLink,
		}
		if inst.CompletedAt != nil {
			s := inst.CompletedAt.UTC().Format(time.RFC3339)
			view.CompletedAt = &s
		}
		list = append(list, view)
	}
	return list, nil
}

// GET /v1/users/tasks
// GET /v1/users/tasks/{day}
func TaskListHandler(w http.ResponseWriter, r *http.Request) {
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

	day := cfg.CurrentDay
	if raw, present := mux.Vars(r)["day"]; present {
		day, err = strconv.Atoi(raw)
		if err != nil || day < 1 {
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid challenge day"})
			return
		}
	}

	// Reconciliation before listing keeps outreach-derived completions visible
	// without waiting for the next manual log entry.
	if err := svc.ReconcileOutreach(uid, day); err != nil && !challenge.IsValidation(err) {
		log.Printf("[tasks] reconcile user=%d day=%d: %v", uid, day, err)
	}

	list, err := taskListForDay(svc, uid, day)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"challenge_day": day,
		"current_day":   cfg.CurrentDay,
		"tasks":         list,
	}})
}

type toggleRequest struct {
	TaskDefinitionID uint `json:"task_definition_id"`
	ChallengeDay     int  `json:"challenge_day"`
	Completed        bool `json:"completed"`
}

// POST /v1/users/tasks/toggle
func ToggleTaskHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	var req toggleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if req.TaskDefinitionID == 0 || req.ChallengeDay < 1 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "task_definition_id and challenge_day are required"})
		return
	}

	svc := challenge.NewService(database.DB)

	// Materialize first so a toggle straight off a stale page still targets an
	// existing row.
	if _, err := svc.EnsureDailyTasksExist(uid, req.ChallengeDay); err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := svc.ToggleTask(uid, req.TaskDefinitionID, req.ChallengeDay, req.Completed)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if _, err := svc.UpdateProgress(uid); err != nil {
		log.Printf("[tasks] progress refresh user=%d: %v", uid, err)
	}

	list, err := taskListForDay(svc, uid, req.ChallengeDay)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: map[string]interface{}{
		"points_awarded": result.PointsAwarded,
		"challenge_day":  req.ChallengeDay,
		"tasks":          list,
	}})
}
