package importer

import (
	"bytes"
	"errors"
	"io"
	"math"

	json "github.com/goccy/go-json"

	"github.com/terra-clan/course-importer/internal/archive"
)

// Manifest item types that become course elements
const (
	itemTypeTask      = "task"
	itemTypeSubmodule = "submodule"
)

// Manifest keys
const (
	keyTitle       = "title"
	keyDescription = "description"
	keyModules     = "modules"
	keyContent     = "content"
	keyType        = "type"
	keyContentURL  = "contentUrl"
	keyDifficulty  = "difficulty"
	keyMaxScore    = "max_score"
	keyTimeLimit   = "time_limit"
	keyMemoryLimit = "memory_limit"
)

// Manifest is a decoded course.json. Values keep their loose JSON shape;
// numbers are json.Number.
type Manifest map[string]any

// DecodeManifest parses course.json. Invalid JSON, a non-object root or a
// non-array "modules" makes the whole archive unusable.
func DecodeManifest(data []byte) (Manifest, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &archive.StructureError{Msg: "invalid " + archive.ManifestName, Err: err}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return nil, &archive.StructureError{Msg: "invalid " + archive.ManifestName, Err: err}
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &archive.StructureError{Msg: "invalid " + archive.ManifestName + ": top level must be an object"}
	}

	if modules, present := obj[keyModules]; present && modules != nil {
		if _, ok := modules.([]any); !ok {
			return nil, &archive.StructureError{Msg: "invalid " + archive.ManifestName + ": \"modules\" must be an array"}
		}
	}

	return Manifest(obj), nil
}

// --- loose field accessors ---

func objectList(v any) []any {
	list, _ := v.([]any)
	return list
}

func stringField(obj map[string]any, key, fallback string) string {
	if s, ok := obj[key].(string); ok {
		return s
	}
	return fallback
}

func optionalString(obj map[string]any, key string) *string {
	if s, ok := obj[key].(string); ok {
		return &s
	}
	return nil
}

func optionalNumber(obj map[string]any, key string) *float64 {
	n, ok := obj[key].(json.Number)
	if !ok {
		return nil
	}
	f, err := n.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return &f
}

// intField returns an integral number, or false when the value is absent
// or has a fractional part
func intField(obj map[string]any, key string) (int, bool) {
	n, ok := obj[key].(json.Number)
	if !ok {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return int(i), true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
