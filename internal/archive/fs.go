package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FSProvider implements Provider on the local filesystem, for development
// and tests.
type FSProvider struct {
	root string
}

// NewFSProvider creates the archive root directory if needed.
func NewFSProvider(root string) (*FSProvider, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create archive dir %s: %w", root, err)
	}
	return &FSProvider{root: root}, nil
}

// Save writes the payload under root/objectName.
func (p *FSProvider) Save(ctx context.Context, objectName string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("archive save canceled: %w", err)
	}
	target := filepath.Join(p.root, filepath.FromSlash(objectName))
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("create archive subdir for %s: %w", target, err)
	}
	if err := os.WriteFile(target, data, 0o600); err != nil {
		return fmt.Errorf("write archive object %s: %w", target, err)
	}
	return nil
}
