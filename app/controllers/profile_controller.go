package controllers

import (
	"io"
	"net/http"

	"forumhub/app/auth"
	"forumhub/app/models"
	"forumhub/app/services"
	"forumhub/app/storage"

	"github.com/gorilla/mux"
)

// multipartOverhead leaves room for form boundaries and headers around the file
const multipartOverhead = 64 << 10

// ProfileController handles the caller's biodata, avatar, settings and devices
type ProfileController struct {
	profileService *services.ProfileService
	maxAvatarBytes int64
}

// NewProfileController creates a new ProfileController
func NewProfileController(profileService *services.ProfileService, maxAvatarBytes int64) *ProfileController {
	return &ProfileController{profileService: profileService, maxAvatarBytes: maxAvatarBytes}
}

// Show returns another user's public profile
func (pc *ProfileController) Show(w http.ResponseWriter, r *http.Request) {
	user, err := pc.profileService.Get(mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, "load user", err)
		return
	}
	sendJSON(w, http.StatusOK, user)
}

// Update replaces the caller's biodata
func (pc *ProfileController) Update(w http.ResponseWriter, r *http.Request) {
	var bio models.Biodata
	if err := decodeJSON(w, r, &bio); err != nil {
		handleError(w, r, "update profile", err)
		return
	}
	user, err := pc.profileService.Update(auth.UserID(r.Context()), bio)
	if err != nil {
		handleError(w, r, "update profile", err)
		return
	}
	sendJSON(w, http.StatusOK, user)
}

// SetNickname changes the caller's display name
func (pc *ProfileController) SetNickname(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Nickname string `json:"nickname"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		handleError(w, r, "set nickname", err)
		return
	}
	user, err := pc.profileService.SetNickname(auth.UserID(r.Context()), body.Nickname)
	if err != nil {
		handleError(w, r, "set nickname", err)
		return
	}
	sendJSON(w, http.StatusOK, user)
}

// UploadAvatar stores the "avatar" file of a multipart form as the
// caller's avatar
func (pc *ProfileController) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, pc.maxAvatarBytes+multipartOverhead)
	file, _, err := r.FormFile("avatar")
	if err != nil {
		if statusFor(err) == http.StatusRequestEntityTooLarge {
			handleError(w, r, "upload avatar", storage.ErrTooLarge)
			return
		}
		handleError(w, r, "upload avatar", &services.InputError{Reason: "missing avatar file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, pc.maxAvatarBytes+1))
	if err != nil {
		handleError(w, r, "upload avatar", err)
		return
	}

	user, err := pc.profileService.UploadAvatar(r.Context(), auth.UserID(r.Context()), data)
	if err != nil {
		handleError(w, r, "upload avatar", err)
		return
	}
	sendJSON(w, http.StatusOK, user)
}

// Settings returns the caller's preferences
func (pc *ProfileController) Settings(w http.ResponseWriter, r *http.Request) {
	settings, err := pc.profileService.Settings(auth.UserID(r.Context()))
	if err != nil {
		handleError(w, r, "load settings", err)
		return
	}
	sendJSON(w, http.StatusOK, settings)
}

// UpdateSettings replaces the caller's preferences
func (pc *ProfileController) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.Settings
	if err := decodeJSON(w, r, &settings); err != nil {
		handleError(w, r, "update settings", err)
		return
	}
	settings, err := pc.profileService.UpdateSettings(auth.UserID(r.Context()), settings)
	if err != nil {
		handleError(w, r, "update settings", err)
		return
	}
	sendJSON(w, http.StatusOK, settings)
}

// RegisterDevice records a push notification token
func (pc *ProfileController) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var device models.Device
	if err := decodeJSON(w, r, &device); err != nil {
		handleError(w, r, "register device", err)
		return
	}
	registered, err := pc.profileService.RegisterDevice(auth.UserID(r.Context()), device)
	if err != nil {
		handleError(w, r, "register device", err)
		return
	}
	sendJSON(w, http.StatusCreated, registered)
}

// RemoveDevice forgets a push notification token
func (pc *ProfileController) RemoveDevice(w http.ResponseWriter, r *http.Request) {
	if err := pc.profileService.RemoveDevice(auth.UserID(r.Context()), mux.Vars(r)["token"]); err != nil {
		handleError(w, r, "remove device", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
