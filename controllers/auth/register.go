package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"challenge/challenge"
	"challenge/database"
	"challenge/middleware"
	"challenge/models"
	"challenge/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Name                 string `json:"name" validate:"required,nameok"`
	Email                string `json:"email" validate:"required,email"`
	Password             string `json:"password" validate:"required,pwdmin"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required"`
}

func RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Password != req.PasswordConfirmation {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Passwords do not match"})
		return
	}

	db := database.DB

	var existing models.User
	if err := db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "Email is already registered"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[register] DB error checking email: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	newUser := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
		Status:   "Active",
	}
	if err := db.Create(&newUser).Error; err != nil {
		log.Printf("[register] DB Create user error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Registration failed, please try again"})
		return
	}

	// Enroll into the running program and materialize today's tasks. Both are
	// best-effort here: the audit engine repairs any miss on its next pass.
	svc := challenge.NewService(db)
	if _, err := svc.UpdateProgress(newUser.ID); err != nil && !challenge.IsValidation(err) {
		log.Printf("[register] enroll user %d: %v", newUser.ID, err)
	}
	if cfg, err := svc.Config(); err == nil {
		if _, err := svc.EnsureDailyTasksExist(newUser.ID, cfg.CurrentDay); err != nil {
			log.Printf("[register] materialize day %d for user %d: %v", cfg.CurrentDay, newUser.ID, err)
		}
	}

	accessToken, err := utils.GenerateAccessToken(newUser.ID, "user", accessTokenTTL())
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to create token"})
		return
	}
	refreshToken, err := utils.GenerateRefreshToken(newUser.ID)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to store refresh token"})
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Registration successful, welcome!",
		Data: map[string]interface{}{
			"access_token":  accessToken,
			"access_expire": time.Now().Add(accessTokenTTL()).UTC().Format(time.RFC3339),
			"refresh_token": refreshToken,
			"user": map[string]interface{}{
				"id":    newUser.ID,
				"name":  newUser.Name,
				"email": newUser.Email,
			},
		},
	})
}

// accessTokenTTL reads ACCESS_TOKEN_TTL_MIN, default 15 minutes.
func accessTokenTTL() time.Duration {
	return time.Duration(utils.EnvInt("ACCESS_TOKEN_TTL_MIN", 15)) * time.Minute
}
