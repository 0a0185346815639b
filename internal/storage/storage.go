// Package storage resolves product image references and removes image files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore is the file-storage collaborator of the catalog
type FileStore interface {
	// URL returns the public address of ref, or "" for an empty ref
	URL(ref string) string
	// Delete removes the file behind ref. Callers treat failures as best-effort.
	Delete(ctx context.Context, ref string) error
}

// Config holds the local file store settings
type Config struct {
	Dir       string
	BaseURL   string
	PublicDir string
}

// Local keeps uploads in a directory served under BaseURL + PublicDir
type Local struct {
	dir    string
	prefix string
}

var _ FileStore = (*Local)(nil)

// NewLocal returns a Local store for cfg
func NewLocal(cfg Config) *Local {
	public := "/" + strings.Trim(cfg.PublicDir, "/") + "/"
	if public == "//" {
		public = "/"
	}
	return &Local{
		dir:    cfg.Dir,
		prefix: strings.TrimRight(cfg.BaseURL, "/") + public,
	}
}

func (l *Local) URL(ref string) string {
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return l.prefix + strings.TrimLeft(filepath.ToSlash(ref), "/")
}

func (l *Local) path(ref string) (string, error) {
	name := filepath.Base(filepath.Clean("/" + ref))
	if name == "/" || name == "." {
		return "", fmt.Errorf("invalid file reference %q", ref)
	}
	return filepath.Join(l.dir, name), nil
}

// Delete is a no-op for an empty ref or a file that is already gone
func (l *Local) Delete(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := l.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", ref, err)
	}
	return nil
}

// Nop resolves refs unchanged and never deletes
type Nop struct{}

func (Nop) URL(ref string) string                        { return ref }
func (Nop) Delete(ctx context.Context, ref string) error { return nil }
