package handler

import (
	"net/http"
	"strconv"

	"github.com/msomdec/profiles-api/internal/domain"
	"github.com/msomdec/profiles-api/internal/service"
)

// ProfileDTO is the public representation of a profile. The password hash
// and account flags are never serialized.
type ProfileDTO struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func toProfileDTO(p *domain.Profile) ProfileDTO {
	return ProfileDTO{ID: p.ID, Email: p.Email, Name: p.Name}
}

// ProfileHandler serves the /profiles/ collection.
type ProfileHandler struct {
	profiles *service.ProfileService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// HandleList returns all profiles, filtered by the search query parameter.
// GET /profiles/?search=...
func (h *ProfileHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeServiceError(w, r, "list profiles", err)
		return
	}

	dtos := make([]ProfileDTO, 0, len(profiles))
	for i := range profiles {
		dtos = append(dtos, toProfileDTO(&profiles[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// HandleCreate registers a new profile.
// POST /profiles/
// Request:  {"email":"...","name":"...","password":"..."}
// Response: 201 {"id":1,"email":"...","name":"..."}
func (h *ProfileHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.ProfileInput
	if err := readJSON(w, r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}

	p, err := h.profiles.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, "create profile", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProfileDTO(p))
}

// HandleRetrieve returns a single profile.
// GET /profiles/{id}/
func (h *ProfileHandler) HandleRetrieve(w http.ResponseWriter, r *http.Request) {
	id, ok := profileID(w, r)
	if !ok {
		return
	}

	p, err := h.profiles.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileDTO(p))
}

// HandleUpdate replaces name, email and password of the caller's profile.
// PUT /profiles/{id}/
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := profileID(w, r)
	if !ok {
		return
	}

	if err := h.profiles.Authorize(r.Context(), CallerID(r.Context()), id); err != nil {
		writeServiceError(w, r, "authorize profile write", err)
		return
	}

	var in service.ProfileInput
	if err := readJSON(w, r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}

	p, err := h.profiles.Update(r.Context(), CallerID(r.Context()), id, in)
	if err != nil {
		writeServiceError(w, r, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileDTO(p))
}

// HandlePartialUpdate changes only the fields present in the body.
// PATCH /profiles/{id}/
func (h *ProfileHandler) HandlePartialUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := profileID(w, r)
	if !ok {
		return
	}

	if err := h.profiles.Authorize(r.Context(), CallerID(r.Context()), id); err != nil {
		writeServiceError(w, r, "authorize profile write", err)
		return
	}

	var patch service.ProfilePatch
	if err := readJSON(w, r, &patch); err != nil {
		writeDecodeError(w, err)
		return
	}

	p, err := h.profiles.PartialUpdate(r.Context(), CallerID(r.Context()), id, patch)
	if err != nil {
		writeServiceError(w, r, "partial update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileDTO(p))
}

// HandleDestroy deletes the caller's profile.
// DELETE /profiles/{id}/
func (h *ProfileHandler) HandleDestroy(w http.ResponseWriter, r *http.Request) {
	id, ok := profileID(w, r)
	if !ok {
		return
	}

	if err := h.profiles.Delete(r.Context(), CallerID(r.Context()), id); err != nil {
		writeServiceError(w, r, "delete profile", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// profileID parses the {id} path value. A non-numeric id cannot name a
// profile, so it is reported as 404.
func profileID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return id, true
}
