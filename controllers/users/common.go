package users

import (
	"encoding/json"
	"net/http"

	"challenge/challenge"
	"challenge/utils"
)

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid JSON body"})
		return err
	}
	return nil
}

// writeServiceError maps engine errors onto HTTP responses: validation errors
// are the caller's fault, everything else is a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	if challenge.IsValidation(err) {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: err.Error()})
		return
	}
	utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
}
