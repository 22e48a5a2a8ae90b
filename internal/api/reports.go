package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/lotbook/internal/category"
	"github.com/erazemk/lotbook/internal/model"
	"github.com/erazemk/lotbook/internal/report"
)

// ReportsHandler handles chart and summary endpoints.
type ReportsHandler struct {
	DB *sql.DB
}

// Categories handles GET /api/categories.
func (h *ReportsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Key     category.Key `json:"key"`
		Columns []string     `json:"columns"`
	}
	var out []entry
	for _, key := range category.Keys() {
		s, _ := category.Lookup(key)
		out = append(out, entry{Key: key, Columns: s.Columns()})
	}
	jsonResponse(w, http.StatusOK, out)
}

// Chart handles GET /api/{category}/chart/{status}. Either ?period= picks a
// fixed trailing window, or ?start_date=&end_date= an inclusive range.
func (h *ReportsHandler) Chart(w http.ResponseWriter, r *http.Request) {
	key, ok := categoryKey(w, r)
	if !ok {
		return
	}
	status, err := report.ParseStatus(r.PathValue("status"))
	if err != nil {
		writeError(w, err, "build chart")
		return
	}

	q := report.Query{Category: key, Status: status}
	params := r.URL.Query()
	start, end := params.Get("start_date"), params.Get("end_date")
	switch {
	case start != "" && end != "":
		from, err1 := time.Parse(model.DateLayout, start)
		to, err2 := time.Parse(model.DateLayout, end)
		if err1 != nil || err2 != nil {
			jsonError(w, http.StatusBadRequest, "dates must be YYYY-MM-DD")
			return
		}
		q.Start, q.End = &from, &to
	case start != "" || end != "":
		jsonError(w, http.StatusBadRequest, "start_date and end_date go together")
		return
	default:
		g, err := report.ParseGranularity(params.Get("period"))
		if err != nil {
			writeError(w, err, "build chart")
			return
		}
		q.Granularity = g
	}

	buckets, err := report.Aggregate(r.Context(), h.DB, q)
	if err != nil {
		writeError(w, err, "build chart")
		return
	}
	jsonResponse(w, http.StatusOK, buckets)
}

// Summary handles GET /api/{category}/summary.
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	key, ok := categoryKey(w, r)
	if !ok {
		return
	}
	sum, err := report.Summarize(r.Context(), h.DB, key)
	if err != nil {
		writeError(w, err, "summarize")
		return
	}
	jsonResponse(w, http.StatusOK, sum)
}
