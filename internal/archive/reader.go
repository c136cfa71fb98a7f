package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"
	"unicode/utf8"
)

// ManifestName is the only supported course manifest
const ManifestName = "course.json"

// Reserved top-level name prefixes (macOS resource forks, dotfiles)
var reservedPrefixes = []string{"__", "."}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Archive is an open course zip file
type Archive struct {
	path string
	zr   *zip.ReadCloser
	root Root
}

// Option configures how an archive is opened
type Option func(*Root)

// WithLogger sets the logger for archive diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(r *Root) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Open opens the zip at path and resolves its logical root
func Open(archivePath string, opts ...Option) (*Archive, error) {
	if _, err := os.Stat(archivePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, archivePath)
		}
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, structuref(err, "failed to read zip archive %s", archivePath)
	}

	dir, err := ResolveRoot(zr)
	if err != nil {
		zr.Close()
		return nil, err
	}

	root := NewRoot(zr, dir)
	for _, opt := range opts {
		opt(&root)
	}
	root.logger.Debug("archive opened", "path", archivePath, "entries", len(zr.File), "root", dir)

	return &Archive{
		path: archivePath,
		zr:   zr,
		root: root,
	}, nil
}

// Root returns the logical root of the archive
func (a *Archive) Root() Root {
	return a.root
}

// Path returns the archive file path
func (a *Archive) Path() string {
	return a.path
}

// Close releases the underlying file handle
func (a *Archive) Close() error {
	return a.zr.Close()
}

// ResolveRoot picks the directory content paths are relative to.
// A single top-level directory (reserved names aside) wraps the course;
// anything else means the course sits at the top level.
func ResolveRoot(fsys fs.FS) (string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return "", structuref(err, "failed to list archive")
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() || isReserved(entry.Name()) {
			continue
		}
		dirs = append(dirs, entry.Name())
	}

	if len(dirs) == 1 {
		return dirs[0], nil
	}
	return ".", nil
}

func isReserved(name string) bool {
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Root is a directory inside an archive that relative paths resolve against
type Root struct {
	fsys   fs.FS
	dir    string
	logger *slog.Logger
}

// NewRoot builds a Root over any filesystem, e.g. fstest.MapFS in tests
func NewRoot(fsys fs.FS, dir string) Root {
	if dir == "" {
		dir = "."
	}
	return Root{fsys: fsys, dir: dir, logger: slog.Default()}
}

// Dir returns the root directory within the archive
func (r Root) Dir() string {
	return r.dir
}

// ReadText returns the UTF-8 text of the file at relativePath.
// Absent entries, directories and paths escaping the root are a *MissingFileError.
func (r Root) ReadText(relativePath string) (string, error) {
	name, ok := r.resolve(relativePath)
	if !ok {
		return "", &MissingFileError{Path: relativePath}
	}

	info, err := fs.Stat(r.fsys, name)
	if err != nil || info.IsDir() {
		return "", &MissingFileError{Path: relativePath}
	}

	data, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", relativePath, err)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		r.logger.Warn("content file is not valid UTF-8, replacing invalid bytes", "path", relativePath)
		return strings.ToValidUTF8(string(data), "\uFFFD"), nil
	}

	return string(data), nil
}

// resolve turns a manifest reference into an fs.FS name under the root
func (r Root) resolve(relativePath string) (string, bool) {
	p := strings.ReplaceAll(strings.TrimSpace(relativePath), "\\", "/")
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return "", false
	}

	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", false
	}

	name := path.Join(r.dir, p)
	if !fs.ValidPath(name) {
		return "", false
	}
	return name, true
}

// LocateManifest reads course.json directly under the root
func LocateManifest(root Root) ([]byte, error) {
	name := path.Join(root.dir, ManifestName)

	data, err := fs.ReadFile(root.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, structuref(nil, "%s not found in %s: only the %s format is supported", ManifestName, root.dir, ManifestName)
		}
		return nil, structuref(err, "failed to read %s", ManifestName)
	}

	root.logger.Debug("manifest found", "root", root.dir, "bytes", len(data))
	return bytes.TrimPrefix(data, utf8BOM), nil
}
