// Package media keeps the photo folder of every unit on local disk. Live
// units have a folder under active/; sold units are moved to archive/ and
// purged once the retention window has passed.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erazemk/lotbook/internal/category"
)

// DefaultRetention is how long archived folders are kept.
const DefaultRetention = 14 * 24 * time.Hour

const (
	activeDir  = "active"
	archiveDir = "archive"
)

var (
	// ErrNoFolder is returned for a folder ref with no folder behind it.
	ErrNoFolder = errors.New("photo folder not found")

	// ErrBadPhoto marks an upload that is not a usable JPEG or PNG.
	ErrBadPhoto = errors.New("unusable photo")
)

var unsafeRef = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Store manages photo folders below a root directory.
type Store struct {
	root string
	log  *zap.Logger
	now  func() time.Time
}

// New returns a store rooted at root, creating its directories.
func New(root string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	for _, dir := range []string{activeDir, archiveDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("creating media directory: %w", err)
		}
	}
	return &Store{root: root, log: log, now: time.Now}, nil
}

// FolderRef derives the folder ref of a record: category, id and, for
// readability, the VIN. Category and id alone make it unique.
func FolderRef(key category.Key, id int64, vin string) string {
	ref := fmt.Sprintf("%s-%d", key, id)
	if v := strings.Trim(unsafeRef.ReplaceAllString(strings.TrimSpace(vin), "_"), "_"); v != "" {
		ref += "-" + v
	}
	return ref
}

// EnsureFolder returns the folder ref of record id in category key,
// creating the active folder when it does not exist yet.
func (s *Store) EnsureFolder(key category.Key, id int64, vin string) (string, error) {
	if key == "" || id <= 0 {
		return "", fmt.Errorf("no folder for record %q/%d", key, id)
	}
	ref := FolderRef(key, id, vin)
	if err := checkRef(ref); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.activePath(ref), 0o755); err != nil {
		return "", fmt.Errorf("creating photo folder: %w", err)
	}
	return ref, nil
}

// AddPhoto stores an uploaded JPEG or PNG in the active folder ref and
// returns the stored file name.
func (s *Store) AddPhoto(ref string, r io.Reader) (string, error) {
	if err := checkRef(ref); err != nil {
		return "", err
	}
	dir := s.activePath(ref)
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoFolder, ref)
	}

	data, err := processPhoto(r)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadPhoto, err)
	}

	name := uuid.NewString() + ".jpg"
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("writing photo: %w", err)
	}
	return name, nil
}

// HasFolder reports whether ref names an active folder.
func (s *Store) HasFolder(ref string) bool {
	if checkRef(ref) != nil {
		return false
	}
	info, err := os.Stat(s.activePath(ref))
	return err == nil && info.IsDir()
}

// Photos lists the photo files of an active folder.
func (s *Store) Photos(ref string) ([]string, error) {
	if err := checkRef(ref); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.activePath(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoFolder, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("listing photos: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

// MoveToArchive moves the active folder ref into the archive. A folder
// that is already archived counts as moved.
func (s *Store) MoveToArchive(ctx context.Context, ref string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := checkRef(ref); err != nil {
		return false, err
	}

	src := s.activePath(ref)
	dst := filepath.Join(s.root, archiveDir, ref)

	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		if _, err := os.Stat(dst); err == nil {
			return true, nil
		}
		return false, fmt.Errorf("%w: %s", ErrNoFolder, ref)
	}

	// A unit sold, unsold and sold again leaves an older archive behind.
	if _, err := os.Stat(dst); err == nil {
		dst = fmt.Sprintf("%s-%d", dst, s.now().Unix())
	}

	if err := os.Rename(src, dst); err != nil {
		return false, fmt.Errorf("archiving photo folder: %w", err)
	}

	// Retention counts from the move, not from the last photo.
	now := s.now()
	if err := os.Chtimes(dst, now, now); err != nil {
		s.log.Warn("stamping archived folder", zap.String("folder_ref", ref), zap.Error(err))
	}

	s.log.Info("photo folder archived", zap.String("folder_ref", ref), zap.String("path", dst))
	return true, nil
}

// PurgeArchive deletes archived folders older than retention and returns
// how many were removed.
func (s *Store) PurgeArchive(ctx context.Context, retention time.Duration) (int, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, archiveDir))
	if err != nil {
		return 0, fmt.Errorf("reading archive: %w", err)
	}

	cutoff := s.now().Add(-retention)
	removed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return removed, fmt.Errorf("inspecting %s: %w", e.Name(), err)
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, archiveDir, e.Name())); err != nil {
			return removed, fmt.Errorf("removing %s: %w", e.Name(), err)
		}
		removed++
		s.log.Info("archived folder purged", zap.String("folder", e.Name()), zap.Time("archived_at", info.ModTime()))
	}
	return removed, nil
}

func (s *Store) activePath(ref string) string {
	return filepath.Join(s.root, activeDir, ref)
}

// checkRef rejects refs that are not a single plain path element.
func checkRef(ref string) error {
	if ref == "" || ref == "." || ref == ".." || strings.ContainsAny(ref, `/\`) {
		return fmt.Errorf("invalid folder ref %q", ref)
	}
	return nil
}
