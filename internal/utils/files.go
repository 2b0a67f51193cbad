package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// EnsureDir ensures the provided directory exists.
func EnsureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// SafeWriteFile writes data to a temp file and atomically renames it into place.
func SafeWriteFile(path string, data []byte) error {
	return WriteAtomic(path, func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader(data))
		return err
	})
}

// WriteAtomic streams the output of fn into a sibling temp file and renames it
// over path only when fn succeeds. On any failure the temp file is removed and
// path is left untouched.
func WriteAtomic(path string, fn func(w io.Writer) error) error {
	tmp, err := writeTemp(path, fn)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

func writeTemp(path string, fn func(w io.Writer) error) (string, error) {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return "", fmt.Errorf("ensure dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return tmp, nil
}

// Staged groups several outputs of one run. Each Write lands in a temp file;
// Commit renames them all into place, Abort removes them. A run that fails
// before Commit leaves none of its outputs behind.
type Staged struct {
	paths []string
	tmps  []string
	done  bool
}

// Write stages the output of fn for path.
func (s *Staged) Write(path string, fn func(w io.Writer) error) error {
	tmp, err := writeTemp(path, fn)
	if err != nil {
		return err
	}
	s.paths = append(s.paths, path)
	s.tmps = append(s.tmps, tmp)
	return nil
}

// WriteFile stages data for path.
func (s *Staged) WriteFile(path string, data []byte) error {
	return s.Write(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// Paths lists the staged destinations in write order.
func (s *Staged) Paths() []string { return append([]string(nil), s.paths...) }

// Commit renames every staged file into place. If a rename fails, files
// already renamed by this commit are removed along with the remaining temps.
func (s *Staged) Commit() error {
	if s.done {
		return nil
	}
	s.done = true
	for i, tmp := range s.tmps {
		if err := os.Rename(tmp, s.paths[i]); err != nil {
			for _, p := range s.paths[:i] {
				_ = os.Remove(p)
			}
			for _, t := range s.tmps[i:] {
				_ = os.Remove(t)
			}
			return fmt.Errorf("commit %s: %w", s.paths[i], err)
		}
	}
	return nil
}

// Abort discards staged files. It is a no-op after Commit.
func (s *Staged) Abort() {
	if s.done {
		return
	}
	s.done = true
	for _, t := range s.tmps {
		_ = os.Remove(t)
	}
}

// PrettyJSON marshals a value as indented JSON.
func PrettyJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return b, nil
}

// SiblingPath returns path with its extension replaced by suffix,
// e.g. SiblingPath("out/clean.parquet", ".manifest.json") = "out/clean.manifest.json".
func SiblingPath(path, suffix string) string {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)] + suffix
}
