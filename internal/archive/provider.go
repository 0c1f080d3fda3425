// Package archive persists raw upstream response bodies so a run can be
// reprocessed without re-fetching. The abstraction keeps the crawler
// independent of a specific blob backend.
package archive

import "context"

// Provider defines the common interface for a raw payload archive.
type Provider interface {
	// Save uploads data under a specified object path/key.
	Save(ctx context.Context, objectName string, data []byte) error
}

// NoOpProvider discards payloads. Useful for dry runs where records are
// wanted but raw bodies are not.
type NoOpProvider struct{}

// Save for NoOpProvider does nothing and always returns nil.
func (NoOpProvider) Save(context.Context, string, []byte) error {
	return nil
}
