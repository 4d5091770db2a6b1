package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local is a filesystem-backed Store rooted at a directory on disk.
type Local struct {
	root string
}

// NewLocal returns a Local store rooted at root. root need not exist yet;
// it is created lazily by Mkdir on the root handle.
func NewLocal(root string) *Local {
	return &Local{root: root}
}

// Root implements Store.
func (l *Local) Root() Handle {
	return localHandle{path: l.root}
}

type localHandle struct {
	path string
}

func (h localHandle) Exists(_ context.Context) (bool, error) {
	_, err := os.Stat(h.path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (h localHandle) Mkdir(_ context.Context) error {
	exists, err := h.Exists(context.Background())
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, h.path)
	}
	return os.MkdirAll(h.path, 0o755)
}

func (h localHandle) Child(name string) Handle {
	return localHandle{path: filepath.Join(h.path, name)}
}

func (h localHandle) WriteAll(_ context.Context, src io.Reader) (int64, error) {
	f, err := os.Create(h.path)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", h.path, err)
	}
	defer f.Close()

	n, err := io.Copy(f, src)
	if err != nil {
		return n, fmt.Errorf("writing %s: %w", h.path, err)
	}
	return n, nil
}

func (h localHandle) URI() string {
	abs, err := filepath.Abs(h.path)
	if err != nil {
		return "file://" + h.path
	}
	return "file://" + abs
}
