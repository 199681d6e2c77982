package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coredock/coredock/pkg/dump"
)

// DumpsHandler serves the dump store endpoints.
type DumpsHandler struct {
	store *dump.Store
}

// NewDumpsHandler creates the handler backed by the given store.
func NewDumpsHandler(store *dump.Store) *DumpsHandler {
	return &DumpsHandler{store: store}
}

// Upload handles POST /api/dumps/upload. Multipart fields: file (the
// dump), userId, and an optional description.
func (h *DumpsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := openMultipartFile(r, "file")
	if err != nil {
		Error(w, r, err)
		return
	}
	defer file.Close()

	userID, err := requireForm(r, "userId")
	if err != nil {
		Error(w, r, err)
		return
	}
	description := r.FormValue("description")

	info, err := h.store.Put(r.Context(), userID, header.Filename, file, description)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, info)
}

// Get handles GET /api/dumps/{userId}/{dumpId}.
func (h *DumpsHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, err := h.store.Get(chi.URLParam(r, "userId"), chi.URLParam(r, "dumpId"))
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, info)
}

// List handles GET /api/dumps/user/{userId}.
func (h *DumpsHandler) List(w http.ResponseWriter, r *http.Request) {
	infos, err := h.store.List(chi.URLParam(r, "userId"))
	if err != nil {
		Error(w, r, err)
		return
	}
	if infos == nil {
		infos = []*dump.Info{}
	}
	JSON(w, http.StatusOK, map[string]any{
		"dumps": infos,
		"count": len(infos),
	})
}

// Delete handles DELETE /api/dumps/{userId}/{dumpId}. Fails 409 while a
// live session has the dump open.
func (h *DumpsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	dumpID := chi.URLParam(r, "dumpId")
	if err := h.store.Delete(chi.URLParam(r, "userId"), dumpID); err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"deleted": true,
		"dumpId":  dumpID,
	})
}

// UploadBinary handles POST /api/dumps/{userId}/{dumpId}/binary,
// attaching a companion executable to an existing dump.
func (h *DumpsHandler) UploadBinary(w http.ResponseWriter, r *http.Request) {
	file, header, err := openMultipartFile(r, "file")
	if err != nil {
		Error(w, r, err)
		return
	}
	defer file.Close()

	info, err := h.store.PutExecutable(r.Context(),
		chi.URLParam(r, "userId"), chi.URLParam(r, "dumpId"),
		header.Filename, file)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, info)
}

// Stats handles GET /api/dumps/stats.
func (h *DumpsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats()
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, stats)
}
