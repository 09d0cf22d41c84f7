// Package workspace allocates the per-invocation scratch directory.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	gonanoid "github.com/matoous/go-nanoid/v2"

	appErr "gavel/pkg/errors"
)

// Workspace is a uniquely named scratch directory exclusively owned by one
// judge invocation. Concurrent judges sharing a filesystem never collide
// because the name embeds a fresh random id.
type Workspace struct {
	root string
}

// New creates the scratch directory under workRoot. An empty workRoot
// falls back to the system temporary directory.
func New(workRoot string) (*Workspace, error) {
	if workRoot == "" {
		workRoot = os.TempDir()
	}
	id, err := gonanoid.New(12)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.WorkspaceFailed, "generate workspace id failed")
	}
	root := filepath.Join(workRoot, fmt.Sprintf("gavel-%s", id))
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, appErr.Wrapf(err, appErr.WorkspaceFailed, "create workspace failed")
	}
	return &Workspace{root: root}, nil
}

// Root returns the scratch directory path.
func (w *Workspace) Root() string {
	return w.root
}

// Close removes the scratch directory and everything in it, including the
// compiled artifact. Safe to call on every exit path.
func (w *Workspace) Close() error {
	if w == nil || w.root == "" {
		return nil
	}
	return os.RemoveAll(w.root)
}
