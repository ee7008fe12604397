package admins

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"challenge/challenge"
	"challenge/database"
	"challenge/utils"
)

type auditApplyRequest struct {
	EnrollMissing bool `json:"enroll_missing"`
}

// POST /v1/admins/audit/dry-run
// Analysis only: computes the report without any writes.
func AuditDryRunHandler(w http.ResponseWriter, r *http.Request) {
	svc := challenge.NewService(database.DB)
	report, err := svc.RunAudit(true, false)
	if err != nil {
		writeAuditError(w, err)
		return
	}
	archiveReport("dry-run", report)
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Audit analysis complete", Data: report})
}

// POST /v1/admins/audit/apply
// Backfill + update across the active cohort. A run that finished with
// per-participant errors still returns 200; the report carries the detail.
func AuditApplyHandler(w http.ResponseWriter, r *http.Request) {
	var req auditApplyRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req) // empty body means defaults
	}

	svc := challenge.NewService(database.DB)
	report, err := svc.RunAudit(false, req.EnrollMissing)
	if err != nil {
		writeAuditError(w, err)
		return
	}

	reportURL := archiveReport("apply", report)
	summary := fmt.Sprintf(
		"Audit apply finished: day %d, %d participants, %d backfilled, %d created, %d completed, %d bonuses, %d errors",
		report.CurrentDay, report.ActiveParticipants, report.TasksBackfilled,
		report.TasksCreated, report.TasksCompleted, report.BonusesAwarded, len(report.Errors))
	if reportURL != "" {
		summary += "\nReport: " + reportURL
	}
	utils.NotifyOperators(summary)

	msg := "Audit apply complete"
	if !report.Success {
		msg = "Audit apply completed with errors"
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: msg, Data: report})
}

// POST /v1/cron/audit
// Scheduler entry point, protected by a shared key instead of an admin JWT.
func CronAuditHandler(w http.ResponseWriter, r *http.Request) {
	key := os.Getenv("CRON_KEY")
	if key == "" || r.Header.Get("X-CRON-KEY") != key {
		utils.WriteError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	svc := challenge.NewService(database.DB)
	report, err := svc.RunAudit(false, false)
	if err != nil {
		writeAuditError(w, err)
		return
	}
	archiveReport("cron", report)
	log.Printf("[cron] audit finished: backfilled=%d created=%d completed=%d errors=%d",
		report.TasksBackfilled, report.TasksCreated, report.TasksCompleted, len(report.Errors))
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Audit complete", Data: report})
}

// archiveReport uploads the serialized report to R2 when configured and
// returns a presigned URL for it, "" when archiving is off or failed.
// Best-effort: an archive failure never fails the request.
func archiveReport(mode string, report *challenge.AuditReport) string {
	if !utils.ArchiveConfigured() {
		return ""
	}
	body, err := json.Marshal(report)
	if err != nil {
		return ""
	}
	key, err := utils.ArchiveAuditReport(mode, body)
	if err != nil {
		log.Printf("[audit] archive failed: %v", err)
		return ""
	}
	log.Printf("[audit] report archived at %s", key)
	url, err := utils.PresignAuditReport(key, 86400)
	if err != nil {
		log.Printf("[audit] presign failed for %s: %v", key, err)
		return ""
	}
	return url
}

func writeAuditError(w http.ResponseWriter, err error) {
	if challenge.IsValidation(err) {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: err.Error()})
		return
	}
	log.Printf("[audit] run failed: %v", err)
	utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Audit failed"})
}
