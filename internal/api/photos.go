package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/erazemk/lotbook/internal/category"
	"github.com/erazemk/lotbook/internal/media"
	"github.com/erazemk/lotbook/internal/store"
)

// PhotosHandler handles the photo folder of a record.
type PhotosHandler struct {
	DB             *sql.DB
	Media          *media.Store
	MaxUploadBytes int64
}

type photosResponse struct {
	FolderRef string   `json:"folder_ref"`
	Photos    []string `json:"photos"`
}

// List handles GET /api/{category}/records/{id}/photos.
func (h *PhotosHandler) List(w http.ResponseWriter, r *http.Request) {
	s, id, ok := h.target(w, r)
	if !ok {
		return
	}
	rec, err := store.GetRecord(r.Context(), h.DB, s, id)
	if err != nil {
		writeError(w, err, "get record")
		return
	}
	if rec == nil || rec.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "record not found")
		return
	}

	resp := photosResponse{FolderRef: rec.ExternalFolderRef, Photos: []string{}}
	if rec.ExternalFolderRef != "" {
		names, err := h.Media.Photos(rec.ExternalFolderRef)
		switch {
		case errors.Is(err, media.ErrNoFolder):
			// Archived after a sale; nothing left to show.
		case err != nil:
			writeError(w, err, "list photos")
			return
		case names != nil:
			resp.Photos = names
		}
	}
	jsonResponse(w, http.StatusOK, resp)
}

// Upload handles POST /api/{category}/records/{id}/photos. The record gets a
// folder on its first upload, and a fresh one when its folder was archived
// by an earlier sale.
func (h *PhotosHandler) Upload(w http.ResponseWriter, r *http.Request) {
	s, id, ok := h.target(w, r)
	if !ok {
		return
	}
	rec, err := store.GetRecord(r.Context(), h.DB, s, id)
	if err != nil {
		writeError(w, err, "get record")
		return
	}
	if rec == nil || rec.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "record not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	file, _, err := r.FormFile("photo")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "photo file required")
		return
	}
	defer file.Close()

	ref := rec.ExternalFolderRef
	if ref == "" || !h.Media.HasFolder(ref) {
		if ref, err = h.Media.EnsureFolder(s.Key, id, rec.VIN); err != nil {
			writeError(w, err, "create photo folder")
			return
		}
		if ref != rec.ExternalFolderRef {
			if err := store.SetFolderRef(r.Context(), h.DB, s, id, ref); err != nil {
				writeError(w, err, "save photo folder")
				return
			}
		}
	}

	name, err := h.Media.AddPhoto(ref, file)
	switch {
	case errors.Is(err, media.ErrBadPhoto):
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, err, "store photo")
		return
	}

	jsonResponse(w, http.StatusCreated, map[string]string{"folder_ref": ref, "photo": name})
}

func (h *PhotosHandler) target(w http.ResponseWriter, r *http.Request) (category.Schema, int64, bool) {
	key, ok := categoryKey(w, r)
	if !ok {
		return category.Schema{}, 0, false
	}
	id, ok := recordID(w, r)
	if !ok {
		return category.Schema{}, 0, false
	}
	s, err := category.Lookup(key)
	if err != nil {
		writeError(w, err, "resolve category")
		return category.Schema{}, 0, false
	}
	return s, id, true
}
