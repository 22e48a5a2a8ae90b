package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/erazemk/lotbook/internal/db"
	"github.com/erazemk/lotbook/internal/importer"
	"github.com/erazemk/lotbook/internal/media"
	"github.com/erazemk/lotbook/internal/model"
	"github.com/erazemk/lotbook/internal/notify"
	"github.com/erazemk/lotbook/internal/reconcile"
	"github.com/erazemk/lotbook/internal/report"
)

type testEnv struct {
	server *httptest.Server
	db     *sql.DB
	root   string
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)
	root := t.TempDir()

	photos, err := media.New(root, nil)
	if err != nil {
		t.Fatalf("media.New: %v", err)
	}
	records := reconcile.New(database, notify.NewSaleNotifier(photos, nil), notify.NewLogAlerter(nil), nil)
	router := NewRouter(Deps{
		DB:       database,
		Records:  records,
		Importer: importer.New(database, records, nil),
		Media:    photos,
	})
	server := httptest.NewServer(LoggingMiddleware(nil)(router))
	t.Cleanup(server.Close)

	return &testEnv{server: server, db: database, root: root}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) upload(t *testing.T, path, field, filename string, content []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	part.Write(content)
	mw.Close()

	resp, err := http.Post(e.server.URL+path, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func trailer(vin string) map[string]any {
	return map[string]any{
		"make":           "acme",
		"model":          "cargo",
		"vin":            vin,
		"purchase_price": 3000,
		"attributes":     map[string]string{"length": "20"},
	}
}

func testPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func TestRecordsAPIFlow(t *testing.T) {
	env := setupTestServer(t)

	resp := env.do(t, "POST", "/api/trailers/records", trailer("T1"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	created := decode[model.Record](t, resp)
	if created.ID == 0 || created.VIN != "T1" {
		t.Fatalf("unexpected record %+v", created)
	}
	if created.Sold != model.SoldNo {
		t.Errorf("expected sold No, got %q", created.Sold)
	}

	resp = env.do(t, "GET", "/api/trailers/records", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if list := decode[[]model.Record](t, resp); len(list) != 1 {
		t.Errorf("expected 1 record, got %d", len(list))
	}

	update := trailer("T1")
	sell := 4500.0
	update["sell_price"] = sell
	resp = env.do(t, "PUT", "/api/trailers/records/1", update)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := decode[model.Record](t, resp); got.Profit != 1500 {
		t.Errorf("expected profit 1500, got %v", got.Profit)
	}

	resp = env.do(t, "DELETE", "/api/trailers/records/1", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp = env.do(t, "GET", "/api/trailers/records/1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
	resp = env.do(t, "DELETE", "/api/trailers/records/1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for second delete, got %d", resp.StatusCode)
	}
}

func TestRecordsAPIErrors(t *testing.T) {
	env := setupTestServer(t)
	env.do(t, "POST", "/api/trailers/records", trailer("T1"))

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown category", "GET", "/api/boats/records", nil, http.StatusNotFound},
		{"bad id", "GET", "/api/trailers/records/abc", nil, http.StatusBadRequest},
		{"missing record", "GET", "/api/trailers/records/99", nil, http.StatusNotFound},
		{"bad sold filter", "GET", "/api/trailers/records?sold=maybe", nil, http.StatusBadRequest},
		{"duplicate vin", "POST", "/api/trailers/records", trailer("T1"), http.StatusBadRequest},
		{"missing vin", "POST", "/api/trailers/records", trailer(""), http.StatusBadRequest},
		{"update missing", "PUT", "/api/trailers/records/99", trailer("T9"), http.StatusNotFound},
		{"empty bulk", "POST", "/api/trailers/records/bulk-sold", map[string]any{"ids": []int64{}}, http.StatusBadRequest},
		{"bad bulk date", "POST", "/api/trailers/records/bulk-sold", map[string]any{"ids": []int64{1}, "sold_date": "03/01/2024"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		resp := env.do(t, tt.method, tt.path, tt.body)
		if resp.StatusCode != tt.status {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.status, resp.StatusCode)
		}
	}
}

func TestBulkEndpoints(t *testing.T) {
	env := setupTestServer(t)
	for _, vin := range []string{"T1", "T2", "T3"} {
		if resp := env.do(t, "POST", "/api/trailers/records", trailer(vin)); resp.StatusCode != http.StatusCreated {
			t.Fatalf("creating %s: expected 201, got %d", vin, resp.StatusCode)
		}
	}

	resp := env.do(t, "POST", "/api/trailers/records/bulk-sold", map[string]any{"ids": []int64{1, 2}, "sold_date": "2024-03-01"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if res := decode[bulkResult](t, resp); res.Updated != 2 || res.Failed != "" {
		t.Errorf("unexpected bulk result %+v", res)
	}

	resp = env.do(t, "GET", "/api/trailers/records?sold=sold", nil)
	sold := decode[[]model.Record](t, resp)
	if len(sold) != 2 {
		t.Fatalf("expected 2 sold, got %d", len(sold))
	}
	if sold[0].SoldDate == nil || *sold[0].SoldDate != "2024-03-01" {
		t.Errorf("expected sold date 2024-03-01, got %v", sold[0].SoldDate)
	}

	// One good id and one missing id: partial success.
	resp = env.do(t, "POST", "/api/trailers/records/bulk-unsold", map[string]any{"ids": []int64{2, 42}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if res := decode[bulkResult](t, resp); res.Updated != 1 || res.Failed == "" {
		t.Errorf("expected 1 updated with a failure, got %+v", res)
	}

	resp = env.do(t, "POST", "/api/trailers/records/bulk-delete", map[string]any{"ids": []int64{1, 3}})
	if res := decode[bulkResult](t, resp); res.Updated != 2 {
		t.Errorf("expected 2 deleted, got %+v", res)
	}

	resp = env.do(t, "GET", "/api/trailers/records?sold=unsold", nil)
	if left := decode[[]model.Record](t, resp); len(left) != 1 || left[0].VIN != "T2" {
		t.Errorf("expected only T2 left unsold, got %+v", left)
	}
}

func TestImportEndpoint(t *testing.T) {
	env := setupTestServer(t)

	csv := "LENGTH,MAKE,VIN,TYPE,SELL,PURCHASE\n20,acme,V1,cargo trailer,5000,3000\n18,acme,,flatbed,,\n"
	resp := env.upload(t, "/api/trailers/import", "file", "trailers.csv", []byte(csv))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	res := decode[importer.Result](t, resp)
	if res.Imported != 1 || res.Skipped != 1 {
		t.Errorf("expected 1 imported 1 skipped, got %+v", res)
	}

	resp = env.do(t, "GET", "/api/imports", nil)
	batches := decode[[]model.ImportBatch](t, resp)
	if len(batches) != 1 || batches[0].ID != res.BatchID {
		t.Errorf("expected the batch in the import log, got %+v", batches)
	}

	resp = env.upload(t, "/api/trailers/import", "file", "trailers.pdf", []byte("%PDF"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unreadable source, got %d", resp.StatusCode)
	}
	resp = env.upload(t, "/api/trailers/import", "other", "trailers.csv", []byte(csv))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 without file field, got %d", resp.StatusCode)
	}
	resp = env.do(t, "GET", "/api/imports?limit=-1", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", resp.StatusCode)
	}
}

func TestChartAndSummary(t *testing.T) {
	env := setupTestServer(t)
	for _, vin := range []string{"T1", "T2"} {
		rec := trailer(vin)
		rec["sell_price"] = 4000
		env.do(t, "POST", "/api/trailers/records", rec)
	}
	env.do(t, "POST", "/api/trailers/records/bulk-sold", map[string]any{"ids": []int64{1}, "sold_date": "2024-03-01"})

	resp := env.do(t, "GET", "/api/trailers/chart/sold?start_date=2024-03-01&end_date=2024-03-10", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	buckets := decode[[]report.BucketTotal](t, resp)
	if len(buckets) != 1 || buckets[0].Period != "2024-03-01" || buckets[0].ProfitTotal != 1000 {
		t.Errorf("unexpected sold buckets %+v", buckets)
	}

	resp = env.do(t, "GET", "/api/trailers/chart/unsold?period=monthly", nil)
	buckets = decode[[]report.BucketTotal](t, resp)
	if len(buckets) != 1 || buckets[0].Period != report.CurrentLabel || buckets[0].PurchaseTotal != 3000 {
		t.Errorf("unexpected unsold snapshot %+v", buckets)
	}

	for path, status := range map[string]int{
		"/api/trailers/chart/pending":                                        http.StatusBadRequest,
		"/api/trailers/chart/sold?period=hourly":                             http.StatusBadRequest,
		"/api/trailers/chart/sold?start_date=2024-03-01":                     http.StatusBadRequest,
		"/api/trailers/chart/sold?start_date=x&end_date=y":                   http.StatusBadRequest,
		"/api/boats/chart/sold":                                              http.StatusNotFound,
		"/api/trailers/chart/sold?start_date=2024-03-10&end_date=2024-03-01": http.StatusBadRequest,
	} {
		if resp := env.do(t, "GET", path, nil); resp.StatusCode != status {
			t.Errorf("%s: expected %d, got %d", path, status, resp.StatusCode)
		}
	}

	resp = env.do(t, "GET", "/api/trailers/summary", nil)
	sum := decode[report.Summary](t, resp)
	if sum.Sold.Count != 1 || sum.Unsold.Count != 1 {
		t.Errorf("unexpected summary %+v", sum)
	}
}

func TestPhotosArchivedOnSale(t *testing.T) {
	env := setupTestServer(t)
	env.do(t, "POST", "/api/trailers/records", trailer("T1"))

	resp := env.upload(t, "/api/trailers/records/1/photos", "photo", "front.png", testPNG())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	uploaded := decode[map[string]string](t, resp)
	ref := uploaded["folder_ref"]
	if ref == "" {
		t.Fatal("expected a folder ref")
	}

	resp = env.do(t, "GET", "/api/trailers/records/1/photos", nil)
	if got := decode[photosResponse](t, resp); len(got.Photos) != 1 || got.FolderRef != ref {
		t.Errorf("unexpected photo listing %+v", got)
	}

	resp = env.upload(t, "/api/trailers/records/1/photos", "photo", "notes.txt", []byte("not an image"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for non-image, got %d", resp.StatusCode)
	}

	env.do(t, "POST", "/api/trailers/records/bulk-sold", map[string]any{"ids": []int64{1}})

	if _, err := os.Stat(filepath.Join(env.root, "archive", ref)); err != nil {
		t.Errorf("expected folder in archive: %v", err)
	}
	resp = env.do(t, "GET", "/api/trailers/records/1/photos", nil)
	if got := decode[photosResponse](t, resp); len(got.Photos) != 0 {
		t.Errorf("expected no active photos after sale, got %v", got.Photos)
	}

	resp = env.upload(t, "/api/trailers/records/9/photos", "photo", "front.png", testPNG())
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for missing record, got %d", resp.StatusCode)
	}
}

func TestCategories(t *testing.T) {
	env := setupTestServer(t)
	resp := env.do(t, "GET", "/api/categories", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := decode[[]struct {
		Key string `json:"key"`
	}](t, resp)
	if len(got) != 3 || got[0].Key != "trailers" {
		t.Errorf("unexpected categories %+v", got)
	}
}

func TestPhotoFoldersPerRecord(t *testing.T) {
	env := setupTestServer(t)
	env.do(t, "POST", "/api/trailers/records", trailer("SHARED1"))
	car := map[string]any{"make": "ford", "model": "mustang", "vin": "SHARED1", "purchase_price": 20000}
	if resp := env.do(t, "POST", "/api/classic_cars/records", car); resp.StatusCode != http.StatusCreated {
		t.Fatalf("creating car: expected 201, got %d", resp.StatusCode)
	}

	for _, path := range []string{"/api/trailers/records/1/photos", "/api/classic_cars/records/1/photos"} {
		if resp := env.upload(t, path, "photo", "front.png", testPNG()); resp.StatusCode != http.StatusCreated {
			t.Fatalf("%s: expected 201, got %d", path, resp.StatusCode)
		}
	}

	resp := env.do(t, "GET", "/api/classic_cars/records/1/photos", nil)
	before := decode[photosResponse](t, resp)
	if len(before.Photos) != 1 {
		t.Errorf("expected 1 car photo, got %d in %q", len(before.Photos), before.FolderRef)
	}

	env.do(t, "POST", "/api/trailers/records/bulk-sold", map[string]any{"ids": []int64{1}})

	resp = env.do(t, "GET", "/api/classic_cars/records/1/photos", nil)
	after := decode[photosResponse](t, resp)
	if len(after.Photos) != 1 || after.FolderRef != before.FolderRef {
		t.Errorf("expected car photos untouched by trailer sale, got %+v", after)
	}
	if resp := env.upload(t, "/api/classic_cars/records/1/photos", "photo", "back.png", testPNG()); resp.StatusCode != http.StatusCreated {
		t.Errorf("expected 201 for unsold car upload, got %d", resp.StatusCode)
	}
}

func TestPhotoUploadAfterUnsold(t *testing.T) {
	env := setupTestServer(t)
	env.do(t, "POST", "/api/trailers/records", trailer("T1"))
	env.upload(t, "/api/trailers/records/1/photos", "photo", "front.png", testPNG())

	env.do(t, "POST", "/api/trailers/records/bulk-sold", map[string]any{"ids": []int64{1}})
	env.do(t, "POST", "/api/trailers/records/bulk-unsold", map[string]any{"ids": []int64{1}})

	resp := env.upload(t, "/api/trailers/records/1/photos", "photo", "again.png", testPNG())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 after unsold, got %d", resp.StatusCode)
	}
	uploaded := decode[map[string]string](t, resp)

	resp = env.do(t, "GET", "/api/trailers/records/1/photos", nil)
	got := decode[photosResponse](t, resp)
	if got.FolderRef != uploaded["folder_ref"] || len(got.Photos) != 1 {
		t.Errorf("expected one photo in the new active folder, got %+v", got)
	}
}
