package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coredock/coredock/pkg/symbols"
)

// SymbolServers is the static list served by GET /api/symbols/servers.
var SymbolServers = []string{
	"https://msdl.microsoft.com/download/symbols",
	"https://symbols.nuget.org/download/symbols",
	"https://chromium-browser-symsrv.commondatastorage.googleapis.com",
}

// SymbolsHandler serves the symbol store endpoints.
type SymbolsHandler struct {
	store *symbols.Store
}

// NewSymbolsHandler creates the handler backed by the given store.
func NewSymbolsHandler(store *symbols.Store) *SymbolsHandler {
	return &SymbolsHandler{store: store}
}

// Upload handles POST /api/symbols/upload. Multipart fields: file and
// dumpId.
func (h *SymbolsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := openMultipartFile(r, "file")
	if err != nil {
		Error(w, r, err)
		return
	}
	defer file.Close()

	dumpID, err := requireForm(r, "dumpId")
	if err != nil {
		Error(w, r, err)
		return
	}

	info, err := h.store.Put(r.Context(), dumpID, header.Filename, file)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, info)
}

// UploadBatch handles POST /api/symbols/upload-batch. Multipart fields:
// files[] (repeated) and dumpId. Files failing the format sniff are
// skipped, not fatal, matching ZIP extraction.
func (h *SymbolsHandler) UploadBatch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		Error(w, r, fmt.Errorf("%w: parsing multipart form: %v", errValidation, err))
		return
	}
	dumpID, err := requireForm(r, "dumpId")
	if err != nil {
		Error(w, r, err)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["files[]"]
	}
	if len(headers) == 0 {
		Error(w, r, fmt.Errorf("%w: missing %q file parts", errValidation, "files"))
		return
	}

	var uploaded []*symbols.Info
	var skipped []string
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			Error(w, r, fmt.Errorf("%w: reading %q", errValidation, header.Filename))
			return
		}
		info, err := h.store.Put(r.Context(), dumpID, header.Filename, f)
		f.Close()
		if err != nil {
			if errors.Is(err, symbols.ErrInvalidFormat) {
				skipped = append(skipped, header.Filename)
				continue
			}
			Error(w, r, err)
			return
		}
		uploaded = append(uploaded, info)
	}
	if uploaded == nil {
		uploaded = []*symbols.Info{}
	}
	JSON(w, http.StatusOK, map[string]any{
		"uploaded": uploaded,
		"skipped":  skipped,
	})
}

// UploadZip handles POST /api/symbols/upload-zip. Multipart fields: file
// (the archive) and dumpId.
func (h *SymbolsHandler) UploadZip(w http.ResponseWriter, r *http.Request) {
	file, _, err := openMultipartFile(r, "file")
	if err != nil {
		Error(w, r, err)
		return
	}
	defer file.Close()

	dumpID, err := requireForm(r, "dumpId")
	if err != nil {
		Error(w, r, err)
		return
	}

	info, err := h.store.PutZip(r.Context(), dumpID, file)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, info)
}

// List handles GET /api/symbols/dump/{dumpId}.
func (h *SymbolsHandler) List(w http.ResponseWriter, r *http.Request) {
	files, err := h.store.List(chi.URLParam(r, "dumpId"))
	if err != nil {
		Error(w, r, err)
		return
	}
	if files == nil {
		files = []string{}
	}
	JSON(w, http.StatusOK, map[string]any{
		"files": files,
		"count": len(files),
	})
}

// Exists handles GET /api/symbols/dump/{dumpId}/exists.
func (h *SymbolsHandler) Exists(w http.ResponseWriter, r *http.Request) {
	has, err := h.store.Has(chi.URLParam(r, "dumpId"))
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"hasSymbols": has})
}

// Clear handles DELETE /api/symbols/dump/{dumpId}.
func (h *SymbolsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	dumpID := chi.URLParam(r, "dumpId")
	if err := h.store.Clear(dumpID); err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"cleared": true,
		"dumpId":  dumpID,
	})
}

// Servers handles GET /api/symbols/servers.
func (h *SymbolsHandler) Servers(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"servers": SymbolServers})
}
