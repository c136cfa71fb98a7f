package importer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/terra-clan/course-importer/internal/archive"
	"github.com/terra-clan/course-importer/internal/models"
)

// Transformer maps a decoded manifest onto the course model.
// Malformed items never abort the import: they fall back to defaults or are skipped.
type Transformer struct {
	logger *slog.Logger
}

// Option configures the transformer
type Option func(*Transformer)

// WithLogger sets the logger that receives skipped-module warnings
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transformer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTransformer creates a new transformer
func NewTransformer(opts ...Option) *Transformer {
	t := &Transformer{logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transform converts the manifest into a course, reading content
// references from root
func Transform(root archive.Root, manifest Manifest, opts ...Option) *models.Course {
	return NewTransformer(opts...).Transform(root, manifest)
}

// Transform converts the manifest into a course, reading content
// references from root
func (t *Transformer) Transform(root archive.Root, manifest Manifest) *models.Course {
	var modules []models.Module

	for i, entry := range objectList(manifest[keyModules]) {
		mod, ok := entry.(map[string]any)
		if !ok {
			t.logger.Warn("module skipped (not an object)", "index", i)
			continue
		}

		name := stringField(mod, keyTitle, models.DefaultModuleName)
		tasks := t.transformContent(root, name, objectList(mod[keyContent]))

		module, ok := models.NewMaterialsModule(name, tasks)
		if !ok {
			t.logger.Warn("module skipped (no content found)", "module", name, "index", i)
			continue
		}
		modules = append(modules, module)
	}

	course := models.NewCourse(
		stringField(manifest, keyTitle, models.DefaultCourseName),
		optionalString(manifest, keyDescription),
		modules,
	)

	t.logger.Debug("course transformed",
		"course", course.Name,
		"modules", len(course.Modules),
		"tasks", course.TaskCount(),
	)
	return course
}

// transformContent turns the recognized items of one module into tasks, in order
func (t *Transformer) transformContent(root archive.Root, moduleName string, content []any) []models.Task {
	var tasks []models.Task

	for i, entry := range content {
		item, ok := entry.(map[string]any)
		if !ok {
			t.logger.Debug("content item ignored (not an object)", "module", moduleName, "index", i)
			continue
		}

		itemType, _ := item[keyType].(string)
		switch itemType {
		case itemTypeSubmodule:
			tasks = append(tasks, models.NewTheory(
				stringField(item, keyTitle, models.DefaultTaskName),
				t.resolveDescription(root, item),
				optionalNumber(item, keyTimeLimit),
				optionalNumber(item, keyMemoryLimit),
			))
		case itemTypeTask:
			tasks = append(tasks, models.NewGradedTask(
				stringField(item, keyTitle, models.DefaultTaskName),
				t.resolveDescription(root, item),
				models.ParseDifficulty(stringField(item, keyDifficulty, string(models.DifficultyMedium))),
				t.maxScore(moduleName, item),
				optionalNumber(item, keyTimeLimit),
				optionalNumber(item, keyMemoryLimit),
			))
		default:
			t.logger.Debug("content item ignored", "module", moduleName, "index", i, "type", itemType)
		}
	}

	return tasks
}

func (t *Transformer) maxScore(moduleName string, item map[string]any) int {
	raw, present := item[keyMaxScore]
	if !present || raw == nil {
		return models.DefaultTaskMaxScore
	}
	score, ok := intField(item, keyMaxScore)
	if !ok {
		t.logger.Warn("invalid max_score, using default",
			"module", moduleName,
			"value", fmt.Sprint(raw),
			"default", models.DefaultTaskMaxScore,
		)
		return models.DefaultTaskMaxScore
	}
	return score
}

// resolveDescription reads the item's content reference. A missing file
// becomes a placeholder naming the reference.
func (t *Transformer) resolveDescription(root archive.Root, item map[string]any) string {
	ref := stringField(item, keyContentURL, "")
	if ref == "" {
		return ""
	}

	text, err := root.ReadText(ref)
	if err == nil {
		return text
	}

	var missing *archive.MissingFileError
	if errors.As(err, &missing) {
		t.logger.Debug("description file missing", "path", ref)
		return MissingDescription(ref)
	}

	t.logger.Warn("failed to read description file", "path", ref, "error", err)
	return MissingDescription(ref)
}

// MissingDescription is the placeholder used when a content reference
// cannot be read
func MissingDescription(ref string) string {
	return "Description file missing: " + ref
}
