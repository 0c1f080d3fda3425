// Package jsonl writes product records to a newline-delimited JSON file.
package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/mkraev/alkoteka-crawler/internal/catalog"
)

// Sink appends one JSON object per record to a single file. It is safe for
// concurrent use by the worker pool.
type Sink struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	logger *zap.Logger
}

// New opens (or creates) the output file, creating parent directories as
// needed. Existing content is truncated; each run produces a fresh export.
func New(path string, logger *zap.Logger) (*Sink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open output file %s: %w", path, err)
	}
	return &Sink{
		file:   f,
		writer: bufio.NewWriter(f),
		logger: logger,
	}, nil
}

// Emit writes one record as a single JSON line.
func (s *Sink) Emit(ctx context.Context, record catalog.ProductRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("emit canceled: %w", err)
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.writer.Write(payload); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write record delimiter: %w", err)
	}
	return nil
}

// Close flushes buffered records and closes the file.
func (s *Sink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("flush output file: %w", err)
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	return nil
}
