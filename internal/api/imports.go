package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/erazemk/lotbook/internal/importer"
	"github.com/erazemk/lotbook/internal/model"
	"github.com/erazemk/lotbook/internal/store"
)

// ImportsHandler handles spreadsheet imports and the import log.
type ImportsHandler struct {
	DB             *sql.DB
	Importer       *importer.Importer
	MaxUploadBytes int64
}

// Import handles POST /api/{category}/import with a multipart "file".
func (h *ImportsHandler) Import(w http.ResponseWriter, r *http.Request) {
	key, ok := categoryKey(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	res, err := h.Importer.ImportFile(r.Context(), file, header.Filename, key)
	if err != nil {
		writeError(w, err, "import file")
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

// List handles GET /api/imports. ?limit= caps the number of batches,
// newest first.
func (h *ImportsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	batches, err := store.ListImportBatches(r.Context(), h.DB, limit)
	if err != nil {
		writeError(w, err, "list imports")
		return
	}
	if batches == nil {
		batches = []model.ImportBatch{}
	}
	jsonResponse(w, http.StatusOK, batches)
}
