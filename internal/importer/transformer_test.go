package importer

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/terra-clan/course-importer/internal/archive"
	"github.com/terra-clan/course-importer/internal/models"
)

func mustManifest(t *testing.T, data string) Manifest {
	t.Helper()
	m, err := DecodeManifest([]byte(data))
	if err != nil {
		t.Fatalf("DecodeManifest() error = %v", err)
	}
	return m
}

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})), &buf
}

func emptyRoot() archive.Root {
	return archive.NewRoot(fstest.MapFS{}, ".")
}

func TestTransform_NoModules(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		wantName string
	}{
		{"missing modules", `{}`, models.DefaultCourseName},
		{"null modules", `{"modules": null}`, models.DefaultCourseName},
		{"empty modules", `{"title": "Go", "modules": []}`, "Go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			course := Transform(emptyRoot(), mustManifest(t, tt.manifest))
			if course.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", course.Name, tt.wantName)
			}
			if course.Modules == nil || len(course.Modules) != 0 {
				t.Errorf("Modules = %#v, want empty", course.Modules)
			}
			if course.Description != nil {
				t.Errorf("Description = %q, want nil", *course.Description)
			}
		})
	}
}

func TestTransform_UnrecognizedTypesDropModule(t *testing.T) {
	logger, logs := captureLogger()

	course := Transform(emptyRoot(), mustManifest(t,
		`{"modules":[{"title":"M1","content":[{"type":"quiz"},{"type":"video","title":"V"},"oops",{}]}]}`,
	), WithLogger(logger))

	if len(course.Modules) != 0 {
		t.Fatalf("Modules = %#v, want none", course.Modules)
	}

	out := logs.String()
	if !strings.Contains(out, "module skipped") || !strings.Contains(out, "module=M1") {
		t.Errorf("expected skipped-module warning for M1, got logs:\n%s", out)
	}
	if strings.Contains(out, "quiz") {
		t.Errorf("unrecognized item types must not be warned about, got logs:\n%s", out)
	}
}

func TestTransform_UnrecognizedTypesContributeNothing(t *testing.T) {
	base := `{"modules":[{"title":"M","content":[{"type":"task","title":"T"}]}]}`
	extended := `{"modules":[{"title":"M","content":[{"type":"quiz"},{"type":"task","title":"T"},{"type":"poll"}]}]}`

	want := Transform(emptyRoot(), mustManifest(t, base))
	got := Transform(emptyRoot(), mustManifest(t, extended))

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unrecognized items changed the output (-want +got):\n%s", diff)
	}
}

func TestTransform_MaterialsOrder(t *testing.T) {
	root := archive.NewRoot(fstest.MapFS{
		"theory/intro.md": {Data: []byte("# Введение")},
		"tasks/sum.md":    {Data: []byte("Sum two numbers")},
	}, ".")

	course := Transform(root, mustManifest(t, `{
		"title": "Go Basics",
		"description": "Первый курс",
		"modules": [{
			"title": "Week 1",
			"content": [
				{"type": "submodule", "title": "Intro", "contentUrl": "theory/intro.md"},
				{"type": "task", "title": "Sum", "contentUrl": "tasks/sum.md", "difficulty": "Hard",
				 "max_score": 50, "time_limit": 1.5, "memory_limit": 256}
			]
		}]
	}`))

	hard := models.DifficultyHard
	timeLimit := 1.5
	memoryLimit := 256.0
	desc := "Первый курс"
	want := &models.Course{
		Name:        "Go Basics",
		Description: &desc,
		Modules: []models.Module{{
			Name: "Week 1",
			Submodules: []models.Submodule{{
				Name: models.MaterialsSubmodule,
				Tasks: []models.Task{
					{
						Name:        "Intro",
						Type:        models.ElementTheory,
						Description: "# Введение",
						MaxScore:    0,
					},
					{
						Name:        "Sum",
						Type:        models.ElementTask,
						Description: "Sum two numbers",
						Difficulty:  &hard,
						MaxScore:    50,
						TimeLimit:   &timeLimit,
						MemoryLimit: &memoryLimit,
					},
				},
			}},
		}},
	}

	if diff := cmp.Diff(want, course); diff != "" {
		t.Errorf("Transform() mismatch (-want +got):\n%s", diff)
	}
}

func TestTransform_TaskDefaults(t *testing.T) {
	course := Transform(emptyRoot(), mustManifest(t, `{"modules":[{"content":[
		{"type":"task"},
		{"type":"task","difficulty":"Impossible"},
		{"type":"task","difficulty":7,"max_score":"high","title":12},
		{"type":"task","max_score":12.5},
		{"type":"task","max_score":0},
		{"type":"submodule","difficulty":"Hard","max_score":40}
	]}]}`))

	if len(course.Modules) != 1 {
		t.Fatalf("Modules = %d, want 1", len(course.Modules))
	}
	mod := course.Modules[0]
	if mod.Name != models.DefaultModuleName {
		t.Errorf("module Name = %q, want %q", mod.Name, models.DefaultModuleName)
	}

	tasks := mod.Submodules[0].Tasks
	if len(tasks) != 6 {
		t.Fatalf("tasks = %d, want 6", len(tasks))
	}

	wantScores := []int{100, 100, 100, 100, 0, 0}
	for i, task := range tasks[:5] {
		if task.Name != models.DefaultTaskName {
			t.Errorf("tasks[%d].Name = %q, want %q", i, task.Name, models.DefaultTaskName)
		}
		if task.Difficulty == nil || *task.Difficulty != models.DifficultyMedium {
			t.Errorf("tasks[%d].Difficulty = %v, want Medium", i, task.Difficulty)
		}
		if task.MaxScore != wantScores[i] {
			t.Errorf("tasks[%d].MaxScore = %d, want %d", i, task.MaxScore, wantScores[i])
		}
		if task.Description != "" {
			t.Errorf("tasks[%d].Description = %q, want empty", i, task.Description)
		}
	}

	theory := tasks[5]
	if theory.Type != models.ElementTheory || theory.Difficulty != nil || theory.MaxScore != 0 {
		t.Errorf("theory = %#v, want Theory with nil difficulty and zero score", theory)
	}
}

func TestTransform_MissingContentFile(t *testing.T) {
	root := archive.NewRoot(fstest.MapFS{"c/present.md": {Data: []byte("here")}}, "c")

	course := Transform(root, mustManifest(t, `{"modules":[{"title":"M","content":[
		{"type":"task","title":"Gone","contentUrl":"tasks/gone.md"},
		{"type":"task","title":"Here","contentUrl":"present.md"}
	]}]}`))

	tasks := course.Modules[0].Submodules[0].Tasks
	if !strings.Contains(tasks[0].Description, "tasks/gone.md") {
		t.Errorf("Description = %q, want placeholder naming tasks/gone.md", tasks[0].Description)
	}
	if tasks[0].Description != MissingDescription("tasks/gone.md") {
		t.Errorf("Description = %q, want %q", tasks[0].Description, MissingDescription("tasks/gone.md"))
	}
	if tasks[1].Description != "here" {
		t.Errorf("Description = %q, want %q", tasks[1].Description, "here")
	}
}

func TestTransform_KeepsModuleOrderAndDropsEmpty(t *testing.T) {
	logger, logs := captureLogger()

	course := Transform(emptyRoot(), mustManifest(t, `{"modules":[
		{"title":"A","content":[{"type":"task"}]},
		{"title":"Empty"},
		{"title":"B","content":[{"type":"submodule"}]},
		42
	]}`), WithLogger(logger))

	var names []string
	for _, m := range course.Modules {
		names = append(names, m.Name)
	}
	if diff := cmp.Diff([]string{"A", "B"}, names); diff != "" {
		t.Errorf("module names mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(logs.String(), "module=Empty") {
		t.Errorf("expected warning for module Empty, got:\n%s", logs.String())
	}
}

func TestDecodeManifest_Errors(t *testing.T) {
	for _, data := range []string{
		`{not json`, `[]`, `"course"`, `{"modules": {"a": 1}}`, `{"modules": "abc"}`,
		`{"title":"X","modules":[]} this is not json`,
		`{"title":"X"}{"title":"Y"}`,
		`{"title":"X"} []`,
	} {
		_, err := DecodeManifest([]byte(data))

		var structErr *archive.StructureError
		if !errors.As(err, &structErr) {
			t.Errorf("DecodeManifest(%s) error = %v, want *StructureError", data, err)
			continue
		}
		if !strings.Contains(err.Error(), "invalid course.json") {
			t.Errorf("DecodeManifest(%s) error = %q, want it to name course.json", data, err)
		}
	}
}

func TestDecodeManifest_TrailingWhitespace(t *testing.T) {
	manifest, err := DecodeManifest([]byte("{\"title\":\"X\"}\n\t \r\n"))
	if err != nil {
		t.Fatalf("DecodeManifest() error = %v", err)
	}
	if manifest["title"] != "X" {
		t.Errorf("title = %v, want X", manifest["title"])
	}
}

func TestTransform_ExplicitEmptyTitles(t *testing.T) {
	course := Transform(emptyRoot(), mustManifest(t, `{"title":"","modules":[{"title":"","content":[
		{"type":"task","title":""},
		{"type":"submodule","title":""}
	]}]}`))

	if course.Name != "" {
		t.Errorf("course Name = %q, want empty", course.Name)
	}
	if len(course.Modules) != 1 {
		t.Fatalf("Modules = %d, want 1", len(course.Modules))
	}
	mod := course.Modules[0]
	if mod.Name != "" {
		t.Errorf("module Name = %q, want empty", mod.Name)
	}
	for i, task := range mod.Submodules[0].Tasks {
		if task.Name != "" {
			t.Errorf("tasks[%d].Name = %q, want empty", i, task.Name)
		}
	}
}
