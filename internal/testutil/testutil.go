// Package testutil provides shared test fixtures.
//
// Template builds an expensive fixture file once per test binary, usually a
// migrated SQLite database, and Clone hands each test its own copy.
package testutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// Template is a fixture file built once and copied per test.
type Template struct {
	dir  string
	path string
}

// NewTemplate creates a temporary directory matching pattern and calls
// build with the path of the file to create inside it.
func NewTemplate(pattern, name string, build func(path string) error) (*Template, error) {
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create template directory: %w", err)
	}
	t := &Template{dir: dir, path: filepath.Join(dir, name)}
	if err := build(t.path); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to build template %s: %w", name, err)
	}
	return t, nil
}

// Path returns the template file.
func (t *Template) Path() string { return t.path }

// Remove deletes the template directory.
func (t *Template) Remove() error { return os.RemoveAll(t.dir) }

// Clone copies the template into the test's temporary directory and returns
// the copy's path.
func (t *Template) Clone(tb testing.TB) string {
	tb.Helper()
	if t == nil {
		tb.Fatal("test template not initialised")
	}
	dst := filepath.Join(tb.TempDir(), filepath.Base(t.path))
	if err := CopyFile(t.path, dst); err != nil {
		tb.Fatalf("failed to clone test template: %v", err)
	}
	return dst
}

// CopyFile copies src to dst, truncating dst.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}
