package media

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/erazemk/lotbook/internal/category"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestFolderRef(t *testing.T) {
	tests := []struct {
		key  category.Key
		id   int64
		vin  string
		want string
	}{
		{category.Trailers, 1, "ABC123", "trailers-1-ABC123"},
		{category.Trucks, 7, " 1HGCM82633A ", "trucks-7-1HGCM82633A"},
		{category.Trailers, 2, "AB/12..34", "trailers-2-AB_12_34"},
		{category.ClassicCars, 3, "../..", "classic_cars-3"},
	}
	for _, tt := range tests {
		if got := FolderRef(tt.key, tt.id, tt.vin); got != tt.want {
			t.Errorf("FolderRef(%q, %d, %q) = %q, want %q", tt.key, tt.id, tt.vin, got, tt.want)
		}
	}
}

func TestFolderRefUnique(t *testing.T) {
	// Same VIN in two categories, and two VINs that sanitize alike.
	refs := []string{
		FolderRef(category.Trailers, 1, "SHARED1"),
		FolderRef(category.ClassicCars, 1, "SHARED1"),
		FolderRef(category.Trailers, 2, "AB/C"),
		FolderRef(category.Trailers, 3, "AB_C"),
	}
	seen := make(map[string]bool)
	for _, ref := range refs {
		if seen[ref] {
			t.Errorf("duplicate folder ref %q", ref)
		}
		seen[ref] = true
	}
}

func TestEnsureFolderAndAddPhoto(t *testing.T) {
	s := newStore(t)

	ref, err := s.EnsureFolder(category.Trailers, 1, "ABC123")
	if err != nil {
		t.Fatalf("EnsureFolder: %v", err)
	}
	again, _ := s.EnsureFolder(category.Trailers, 1, "ABC123")
	if again != ref {
		t.Errorf("expected same ref, got %q and %q", ref, again)
	}

	name, err := s.AddPhoto(ref, bytes.NewReader(createTestPNG(20, 20)))
	if err != nil {
		t.Fatalf("AddPhoto: %v", err)
	}
	photos, _ := s.Photos(ref)
	if len(photos) != 1 || photos[0] != name {
		t.Errorf("expected [%s], got %v", name, photos)
	}

	if _, err := s.AddPhoto(ref, bytes.NewReader([]byte("not an image"))); !errors.Is(err, ErrBadPhoto) {
		t.Errorf("expected ErrBadPhoto, got %v", err)
	}

	if _, err := s.EnsureFolder(category.Trailers, 0, "ABC123"); err == nil {
		t.Error("expected error for record without id")
	}
	if !s.HasFolder(ref) {
		t.Error("expected active folder")
	}
	if s.HasFolder("trailers-99") || s.HasFolder("../escape") {
		t.Error("expected no folder for unknown or unsafe ref")
	}
}

func TestAddPhotoMissingFolder(t *testing.T) {
	s := newStore(t)

	_, err := s.AddPhoto("nope", bytes.NewReader(createTestPNG(20, 20)))
	if !errors.Is(err, ErrNoFolder) {
		t.Errorf("expected ErrNoFolder, got %v", err)
	}
	if _, err := s.AddPhoto("../escape", bytes.NewReader(nil)); err == nil {
		t.Error("expected error for path ref")
	}
}

func TestMoveToArchive(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	ref, _ := s.EnsureFolder(category.Trailers, 1, "V1")

	ok, err := s.MoveToArchive(ctx, ref)
	if err != nil || !ok {
		t.Fatalf("MoveToArchive: ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(filepath.Join(s.root, archiveDir, ref)); err != nil {
		t.Errorf("expected archived folder: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.root, activeDir, ref)); !os.IsNotExist(err) {
		t.Errorf("expected active folder gone, got %v", err)
	}

	// Moving again is harmless.
	ok, err = s.MoveToArchive(ctx, ref)
	if err != nil || !ok {
		t.Errorf("expected repeat move to succeed, got ok=%v err=%v", ok, err)
	}
}

func TestMoveToArchiveKeepsOlderArchive(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	ref, _ := s.EnsureFolder(category.Trailers, 1, "V1")
	s.MoveToArchive(ctx, ref)
	s.EnsureFolder(category.Trailers, 1, "V1")

	if ok, err := s.MoveToArchive(ctx, ref); err != nil || !ok {
		t.Fatalf("MoveToArchive: ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(filepath.Join(s.root, archiveDir, ref+"-1700000000")); err != nil {
		t.Errorf("expected second archive beside the first: %v", err)
	}
}

func TestMoveToArchiveMissing(t *testing.T) {
	s := newStore(t)

	ok, err := s.MoveToArchive(context.Background(), "ghost")
	if ok || !errors.Is(err, ErrNoFolder) {
		t.Errorf("expected ErrNoFolder, got ok=%v err=%v", ok, err)
	}
}

func TestPurgeArchive(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	s.now = func() time.Time { return now.Add(-15 * 24 * time.Hour) }
	old, _ := s.EnsureFolder(category.Trailers, 1, "OLD")
	s.MoveToArchive(ctx, old)

	s.now = func() time.Time { return now.Add(-2 * 24 * time.Hour) }
	recent, _ := s.EnsureFolder(category.Trailers, 2, "RECENT")
	s.MoveToArchive(ctx, recent)

	s.now = func() time.Time { return now }
	removed, err := s.PurgeArchive(ctx, DefaultRetention)
	if err != nil {
		t.Fatalf("PurgeArchive: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 purged, got %d", removed)
	}
	if _, err := os.Stat(filepath.Join(s.root, archiveDir, old)); !os.IsNotExist(err) {
		t.Error("expected old archive purged")
	}
	if _, err := os.Stat(filepath.Join(s.root, archiveDir, recent)); err != nil {
		t.Errorf("expected recent archive kept: %v", err)
	}
}
