package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/lotbook/internal/category"
	"github.com/erazemk/lotbook/internal/model"
	"github.com/erazemk/lotbook/internal/reconcile"
	"github.com/erazemk/lotbook/internal/store"
	"github.com/erazemk/lotbook/internal/xerrors"
)

// RecordsHandler handles record CRUD and bulk status endpoints.
type RecordsHandler struct {
	DB      *sql.DB
	Records *reconcile.Reconciler
}

type bulkRequest struct {
	IDs      []int64 `json:"ids"`
	SoldDate string  `json:"sold_date"`
}

type bulkResult struct {
	Updated int64  `json:"updated"`
	Failed  string `json:"failed,omitempty"`
}

// List handles GET /api/{category}/records.
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	key, ok := categoryKey(w, r)
	if !ok {
		return
	}
	filter, err := store.ParseSoldFilter(r.URL.Query().Get("sold"))
	if err != nil {
		writeError(w, err, "list records")
		return
	}

	s, _ := category.Lookup(key)
	records, err := store.ListRecords(r.Context(), h.DB, s, filter)
	if err != nil {
		writeError(w, err, "list records")
		return
	}
	if records == nil {
		records = []model.Record{}
	}
	jsonResponse(w, http.StatusOK, records)
}

// Get handles GET /api/{category}/records/{id}.
func (h *RecordsHandler) Get(w http.ResponseWriter, r *http.Request) {
	key, ok := categoryKey(w, r)
	if !ok {
		return
	}
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	rec, err := h.live(r, key, id)
	if err != nil {
		writeError(w, err, "get record")
		return
	}
	jsonResponse(w, http.StatusOK, rec)
}

// Create handles POST /api/{category}/records.
func (h *RecordsHandler) Create(w http.ResponseWriter, r *http.Request) {
	key, ok := categoryKey(w, r)
	if !ok {
		return
	}

	var rec model.Record
	if err := decodeJSON(r, &rec); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec.ID = 0
	rec.CreatedAt = time.Time{}
	rec.DeletedAt = nil

	id, err := h.Records.Create(r.Context(), key, &rec)
	if err != nil {
		writeError(w, err, "create record")
		return
	}

	created, err := h.live(r, key, id)
	if err != nil {
		writeError(w, err, "get record")
		return
	}
	jsonResponse(w, http.StatusCreated, created)
}

// Update handles PUT /api/{category}/records/{id}.
func (h *RecordsHandler) Update(w http.ResponseWriter, r *http.Request) {
	key, ok := categoryKey(w, r)
	if !ok {
		return
	}
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	var rec model.Record
	if err := decodeJSON(r, &rec); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Records.Update(r.Context(), key, id, &rec); err != nil {
		writeError(w, err, "update record")
		return
	}

	updated, err := h.live(r, key, id)
	if err != nil {
		writeError(w, err, "get record")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/{category}/records/{id}.
func (h *RecordsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key, ok := categoryKey(w, r)
	if !ok {
		return
	}
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	n, err := h.Records.Delete(r.Context(), key, []int64{id})
	if err != nil {
		writeError(w, err, "delete record")
		return
	}
	if n == 0 {
		jsonError(w, http.StatusNotFound, "record not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BulkSold handles POST /api/{category}/records/bulk-sold.
func (h *RecordsHandler) BulkSold(w http.ResponseWriter, r *http.Request) {
	key, req, ok := bulk(w, r)
	if !ok {
		return
	}
	n, err := h.Records.MarkSold(r.Context(), key, req.IDs, req.SoldDate)
	respondBulk(w, int64(n), err, "mark records sold")
}

// BulkUnsold handles POST /api/{category}/records/bulk-unsold.
func (h *RecordsHandler) BulkUnsold(w http.ResponseWriter, r *http.Request) {
	key, req, ok := bulk(w, r)
	if !ok {
		return
	}
	n, err := h.Records.MarkUnsold(r.Context(), key, req.IDs)
	respondBulk(w, int64(n), err, "mark records unsold")
}

// BulkDelete handles POST /api/{category}/records/bulk-delete.
func (h *RecordsHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	key, req, ok := bulk(w, r)
	if !ok {
		return
	}
	n, err := h.Records.Delete(r.Context(), key, req.IDs)
	respondBulk(w, n, err, "delete records")
}

// live returns the record with id unless it is missing or soft-deleted.
func (h *RecordsHandler) live(r *http.Request, key category.Key, id int64) (*model.Record, error) {
	s, err := category.Lookup(key)
	if err != nil {
		return nil, err
	}
	rec, err := store.GetRecord(r.Context(), h.DB, s, id)
	if err != nil {
		return nil, xerrors.Mark(xerrors.ErrPersistence, err, "getting record")
	}
	if rec == nil || rec.DeletedAt != nil {
		return nil, xerrors.ErrNotFound
	}
	return rec, nil
}

func bulk(w http.ResponseWriter, r *http.Request) (category.Key, bulkRequest, bool) {
	var req bulkRequest
	key, ok := categoryKey(w, r)
	if !ok {
		return "", req, false
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return "", req, false
	}
	if len(req.IDs) == 0 {
		jsonError(w, http.StatusBadRequest, "ids required")
		return "", req, false
	}
	return key, req, true
}

// respondBulk reports partial success as 200 with the failures attached;
// only a request where nothing changed maps the error to a status code.
func respondBulk(w http.ResponseWriter, n int64, err error, action string) {
	if err != nil && n == 0 {
		writeError(w, err, action)
		return
	}
	res := bulkResult{Updated: n}
	if err != nil {
		res.Failed = err.Error()
	}
	jsonResponse(w, http.StatusOK, res)
}
