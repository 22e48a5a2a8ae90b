package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/lotbook/internal/importer"
	"github.com/erazemk/lotbook/internal/media"
	"github.com/erazemk/lotbook/internal/reconcile"
)

// Deps are the collaborators the handlers share.
type Deps struct {
	DB       *sql.DB
	Records  *reconcile.Reconciler
	Importer *importer.Importer
	Media    *media.Store

	// MaxUploadBytes caps import and photo uploads. Zero means 32 MiB.
	MaxUploadBytes int64
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	limit := d.MaxUploadBytes
	if limit <= 0 {
		limit = 32 << 20
	}

	recordsHandler := &RecordsHandler{DB: d.DB, Records: d.Records}
	importsHandler := &ImportsHandler{DB: d.DB, Importer: d.Importer, MaxUploadBytes: limit}
	photosHandler := &PhotosHandler{DB: d.DB, Media: d.Media, MaxUploadBytes: limit}
	reportsHandler := &ReportsHandler{DB: d.DB}

	mux.HandleFunc("GET /api/categories", reportsHandler.Categories)
	mux.HandleFunc("GET /api/imports", importsHandler.List)

	// Records.
	mux.HandleFunc("GET /api/{category}/records", recordsHandler.List)
	mux.HandleFunc("POST /api/{category}/records", recordsHandler.Create)
	mux.HandleFunc("GET /api/{category}/records/{id}", recordsHandler.Get)
	mux.HandleFunc("PUT /api/{category}/records/{id}", recordsHandler.Update)
	mux.HandleFunc("DELETE /api/{category}/records/{id}", recordsHandler.Delete)
	mux.HandleFunc("POST /api/{category}/records/bulk-sold", recordsHandler.BulkSold)
	mux.HandleFunc("POST /api/{category}/records/bulk-unsold", recordsHandler.BulkUnsold)
	mux.HandleFunc("POST /api/{category}/records/bulk-delete", recordsHandler.BulkDelete)

	// Photos.
	mux.HandleFunc("GET /api/{category}/records/{id}/photos", photosHandler.List)
	mux.HandleFunc("POST /api/{category}/records/{id}/photos", photosHandler.Upload)

	// Imports.
	mux.HandleFunc("POST /api/{category}/import", importsHandler.Import)

	// Reports.
	mux.HandleFunc("GET /api/{category}/chart/{status}", reportsHandler.Chart)
	mux.HandleFunc("GET /api/{category}/summary", reportsHandler.Summary)

	return mux
}
