package archive

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrArchiveNotFound = errors.New("archive not found")
	ErrMissingFile     = errors.New("file not found in archive")
	ErrStructure       = errors.New("invalid archive structure")
)

// MissingFileError reports a content reference with no matching archive entry
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("%s not found in archive", e.Path)
}

func (e *MissingFileError) Unwrap() error { return ErrMissingFile }

// StructureError reports an archive or manifest that cannot be imported at all
type StructureError struct {
	Msg string
	Err error
}

func (e *StructureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

// Unwrap exposes both the sentinel kind and the underlying cause
func (e *StructureError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrStructure, e.Err}
	}
	return []error{ErrStructure}
}

func structuref(err error, format string, args ...any) error {
	return &StructureError{Msg: fmt.Sprintf(format, args...), Err: err}
}
