package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/clinicdesk/dashboard/internal/auth"
	"github.com/clinicdesk/dashboard/internal/http/middleware"
	"github.com/clinicdesk/dashboard/internal/images"
	"github.com/clinicdesk/dashboard/pkg/logging"
)

// Uploader pushes an image to the external host and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, filename string, content io.Reader) (string, error)
}

// Profile serves session and account endpoints.
type Profile struct {
	manager  *auth.Manager
	sessions *middleware.Sessions
	uploader Uploader
	logger   *logging.Logger
}

// NewProfile creates the session/profile handler. The uploader may be nil
// when no image host is configured; photo uploads then answer 503.
func NewProfile(manager *auth.Manager, sessions *middleware.Sessions, uploader Uploader, logger *logging.Logger) *Profile {
	if manager == nil || sessions == nil {
		panic("handlers: auth manager and sessions are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Profile{manager: manager, sessions: sessions, uploader: uploader, logger: logger}
}

// PublicRoutes mounts the endpoints reachable without a session.
func (h *Profile) PublicRoutes(r chi.Router) {
	r.Post("/session", h.SignIn)
}

// Routes mounts the session-protected endpoints.
func (h *Profile) Routes(r chi.Router) {
	r.Get("/session", h.CurrentUser)
	r.Delete("/session", h.SignOut)
	r.Patch("/profile", h.UpdateProfile)
	r.Post("/profile/photo", h.UploadPhoto)
	r.Post("/profile/password", h.ChangePassword)
}

func userPayload(session *auth.Session) map[string]any {
	return map[string]any{
		"userId":      session.UserID,
		"email":       session.Email,
		"displayName": session.DisplayName,
		"photoUrl":    session.PhotoURL,
	}
}

// SignIn authenticates with the provider and sets the session cookie.
func (h *Profile) SignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "The sign-in payload could not be read.")
		return
	}

	session, err := h.manager.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondAuthError(w, err, http.StatusUnauthorized, "Sign-in failed. Check your email and password.")
		return
	}
	if err := h.sessions.Issue(w, session); err != nil {
		h.logger.Error("failed to issue session cookie", "error", err)
		respondMessage(w, http.StatusInternalServerError, "Could not establish a session.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": userPayload(session)})
}

// SignOut clears the session on both sides.
func (h *Profile) SignOut(w http.ResponseWriter, r *http.Request) {
	h.manager.SignOut()
	h.sessions.Clear(w)
	respondJSON(w, http.StatusOK, map[string]any{"signedOut": true})
}

// CurrentUser returns the signed-in account.
func (h *Profile) CurrentUser(w http.ResponseWriter, r *http.Request) {
	session := middleware.SessionFromContext(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{"user": userPayload(session)})
}

// UpdateProfile changes the display name and/or photo URL.
func (h *Profile) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName string `json:"displayName"`
		PhotoURL    string `json:"photoUrl"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "The profile payload could not be read.")
		return
	}
	if strings.TrimSpace(req.DisplayName) == "" && strings.TrimSpace(req.PhotoURL) == "" {
		respondMessage(w, http.StatusUnprocessableEntity, "Nothing to update.")
		return
	}

	if err := h.manager.UpdateProfile(r.Context(), req.DisplayName, req.PhotoURL); err != nil {
		h.respondAuthError(w, err, http.StatusBadGateway, "The profile could not be updated.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": userPayload(h.manager.Current())})
}

// UploadPhoto accepts a multipart photo, pushes it to the image host, and
// points the profile at the hosted copy.
func (h *Profile) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		respondMessage(w, http.StatusServiceUnavailable, "Image uploads are not configured.")
		return
	}

	if err := r.ParseMultipartForm(images.MaxUploadSize); err != nil {
		respondMessage(w, http.StatusBadRequest, "The upload could not be read.")
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "A photo file is required.")
		return
	}
	defer file.Close()

	if err := images.ValidateFilename(header.Filename); err != nil {
		respondMessage(w, http.StatusUnprocessableEntity, "Only jpg, jpeg, png, gif and webp images are accepted.")
		return
	}

	url, err := h.uploader.Upload(r.Context(), header.Filename, file)
	if err != nil {
		h.logger.Error("photo upload failed", "error", err)
		respondMessage(w, http.StatusBadGateway, "The photo could not be uploaded.")
		return
	}

	if err := h.manager.UpdateProfile(r.Context(), "", url); err != nil {
		h.respondAuthError(w, err, http.StatusBadGateway, "The photo was uploaded but the profile could not be updated.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"photoUrl": url, "user": userPayload(h.manager.Current())})
}

// ChangePassword reauthenticates with the current password and sets a new
// one.
func (h *Profile) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondMessage(w, http.StatusBadRequest, "The password payload could not be read.")
		return
	}
	if len(req.NewPassword) < 6 {
		respondMessage(w, http.StatusUnprocessableEntity, "The new password must be at least 6 characters.")
		return
	}

	if err := h.manager.ChangePassword(r.Context(), req.CurrentPassword, req.NewPassword); err != nil {
		h.respondAuthError(w, err, http.StatusUnprocessableEntity, "The current password is incorrect.")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"passwordChanged": true})
}

// respondAuthError distinguishes provider rejections (the caller's fault)
// from transport failures.
func (h *Profile) respondAuthError(w http.ResponseWriter, err error, rejectedStatus int, rejectedMessage string) {
	var perr *auth.ProviderError
	if errors.As(err, &perr) && perr.StatusCode < http.StatusInternalServerError {
		h.logger.Warn("auth provider rejected request", "status", perr.StatusCode, "message", perr.Message)
		respondMessage(w, rejectedStatus, rejectedMessage)
		return
	}
	h.logger.Error("auth provider request failed", "error", err)
	respondMessage(w, http.StatusBadGateway, "The authentication service is unavailable. Try again shortly.")
}
