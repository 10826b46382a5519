// Package handler implements the HTTP resource surface. Every response uses
// the same envelope: {"message": string, "data": T | null}.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/offtimeapp/offtime/internal/model"
)

// Envelope is the uniform response body shape.
type Envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, message, nil)
}

// userView is the public shape of a user in responses.
type userView struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	ProfileImage string `json:"profile_image,omitempty"`
}

func newUserView(u model.User) userView {
	return userView{
		ID:           u.ID,
		Username:     u.Username,
		ProfileImage: u.ProfileImage,
	}
}

func parsePathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}
