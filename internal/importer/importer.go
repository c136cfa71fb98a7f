// Package importer turns a course archive into the normalized course
// document accepted by the LMS import endpoint.
//
// Only structural failures are fatal: a missing archive, an unreadable zip,
// a missing or invalid course.json. Everything below the manifest degrades
// gracefully (unknown item types are ignored, missing description files
// become placeholders, modules without content are dropped with a warning).
package importer

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"

	"github.com/terra-clan/course-importer/internal/archive"
	"github.com/terra-clan/course-importer/internal/models"
)

// ParseArchive opens the zip at path, reads its manifest and transforms it.
// The archive is closed before ParseArchive returns.
func ParseArchive(path string, opts ...Option) (*models.Course, error) {
	t := NewTransformer(opts...)

	a, err := archive.Open(path, archive.WithLogger(t.logger))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := a.Close(); err != nil {
			t.logger.Warn("failed to close archive", "path", path, "error", err)
		}
	}()

	root := a.Root()
	data, err := archive.LocateManifest(root)
	if err != nil {
		return nil, err
	}
	t.logger.Info("found course manifest", "root", root.Dir(), "manifest", archive.ManifestName)

	manifest, err := DecodeManifest(data)
	if err != nil {
		t.logger.Error("failed to parse course manifest", "error", err)
		return nil, err
	}

	return t.Transform(root, manifest), nil
}

// Encode writes the course as JSON. Non-ASCII and HTML characters are kept
// literally; indent selects the 2-space pretty form.
func Encode(w io.Writer, course *models.Course, indent bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(course); err != nil {
		return fmt.Errorf("failed to encode course: %w", err)
	}
	return nil
}
