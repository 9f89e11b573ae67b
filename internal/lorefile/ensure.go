package lorefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/singleflight"

	"github.com/starford/laguz/internal/models"
)

// Initializer creates the lore file on first use. Concurrent Ensure calls
// for the same root within the process are collapsed into one filesystem
// check-and-create; singleflight forgets the key once the flight lands, so
// a failed create is retried by the next caller. Cross-process
// coordination is out of scope.
type Initializer struct {
	writer *Writer
	name   string
	group  singleflight.Group
}

// NewInitializer creates an Initializer writing files named name (the
// zero value "" means DefaultName) via writer.
func NewInitializer(writer *Writer, name string) *Initializer {
	if name == "" {
		name = DefaultName
	}
	return &Initializer{writer: writer, name: name}
}

// Ensure makes sure root contains a lore file and returns its path. An
// existing file is returned unchanged; a missing one is created as an
// empty, schema-valid document via the atomic writer.
func (i *Initializer) Ensure(root string) (string, error) {
	path := filepath.Join(root, i.name)

	v, err, _ := i.group.Do(path, func() (any, error) {
		if _, statErr := os.Stat(path); statErr == nil {
			return path, nil
		} else if !errors.Is(statErr, os.ErrNotExist) {
			return nil, fmt.Errorf("lorefile: stat %s: %w", path, statErr)
		}

		doc := models.NewDocument(workspaceName(root))
		if writeErr := i.writer.WriteDocument(path, doc); writeErr != nil {
			return nil, writeErr
		}
		return path, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// workspaceName derives a display name for the project from its root dir.
func workspaceName(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return filepath.Base(root)
	}
	return filepath.Base(abs)
}
