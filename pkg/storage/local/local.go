package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/gyoansoft/gyoan-backend/pkg/logger"
)

var (
	// ErrInvalidPath marks a relative path that escapes or never belonged
	// to the storage root.
	ErrInvalidPath = errors.New("storage: path outside storage root")
	// ErrNotFound marks a blob that does not exist on disk.
	ErrNotFound = errors.New("storage: blob not found")
)

// Blob describes a stored object by its root-relative path.
type Blob struct {
	Path      string
	Name      string
	Size      int64
	Extension string
}

// Store persists blobs under a single root directory. Every path it hands
// out is relative to that root and is re-validated before any read or delete.
type Store struct {
	root string
	logg *logger.Logger
	now  func() time.Time
}

// New validates the root directory and returns a store rooted there.
func New(rootDir string, logg *logger.Logger) (*Store, error) {
	if strings.TrimSpace(rootDir) == "" {
		return nil, errors.New("storage root is required")
	}
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolving storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}
	return &Store{root: abs, logg: logg, now: time.Now}, nil
}

// Save streams r to disk and returns the stored blob metadata. The persisted
// path is /{category}/{ownerID}/{yyyyMM}/{uuid}_{name}, leading slash
// included, so records stay compatible with paths issued by earlier systems.
func (s *Store) Save(ctx context.Context, category, ownerID, fileName string, r io.Reader) (*Blob, error) {
	if err := validateSegment(category); err != nil {
		return nil, err
	}
	if err := validateSegment(ownerID); err != nil {
		return nil, err
	}

	cleanName := sanitizeFileName(fileName)
	id := uuid.New()
	if cleanName == "" {
		cleanName = id.String()
	}

	relPath := "/" + path.Join(category, ownerID, s.now().UTC().Format("200601"), fmt.Sprintf("%s_%s", id, cleanName))
	absPath, err := s.abs(relPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}

	f, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating blob file: %w", err)
	}

	size, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("writing blob: %w", err)
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"blob_path": relPath,
			"size":      size,
		}), "blob stored")
	}

	return &Blob{
		Path:      relPath,
		Name:      cleanName,
		Size:      size,
		Extension: Extension(cleanName),
	}, nil
}

// Resolve validates a stored relative path and returns the absolute path of
// an existing blob.
func (s *Store) Resolve(relPath string) (string, error) {
	absPath, err := s.abs(relPath)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("stat blob: %w", err)
	}
	if info.IsDir() {
		return "", ErrInvalidPath
	}
	return absPath, nil
}

// Open returns a reader over the stored blob.
func (s *Store) Open(relPath string) (io.ReadCloser, error) {
	absPath, err := s.Resolve(relPath)
	if err != nil {
		return nil, err
	}
	return os.Open(absPath)
}

// Delete removes a stored blob. Deleting an absent blob is a no-op, so
// retries and double deletes always succeed.
func (s *Store) Delete(ctx context.Context, relPath string) error {
	absPath, err := s.Resolve(relPath)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	if err := os.Remove(absPath); err != nil {
		return fmt.Errorf("removing blob: %w", err)
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "blob_path", relPath), "blob deleted")
	}
	return nil
}

// abs joins relPath against the root and rejects anything that resolves
// outside it. Persisted paths carry a leading slash; it is stripped before
// the join so both rooted and bare forms resolve.
func (s *Store) abs(relPath string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(relPath), "/")
	if trimmed == "" {
		return "", ErrInvalidPath
	}
	if path.IsAbs(trimmed) || filepath.IsAbs(trimmed) {
		return "", ErrInvalidPath
	}
	joined := filepath.Join(s.root, filepath.FromSlash(trimmed))
	cleaned := filepath.Clean(joined)
	if cleaned != s.root && !strings.HasPrefix(cleaned, s.root+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	if cleaned == s.root {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

// Extension returns the lowercased extension of a file name without the dot.
func Extension(fileName string) string {
	ext := strings.TrimPrefix(path.Ext(fileName), ".")
	return strings.ToLower(ext)
}

func validateSegment(segment string) error {
	if segment == "" {
		return ErrInvalidPath
	}
	if strings.ContainsAny(segment, "/\\") || segment == "." || segment == ".." {
		return ErrInvalidPath
	}
	return nil
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.TrimSpace(name))
	if clean == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
