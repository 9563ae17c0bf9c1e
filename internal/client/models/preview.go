package models

import (
	"os"
	"sync"
)

// Preview is an ephemeral display handle backed by a temporary file (a copy
// of the original for images, an extracted still frame for videos).
//
// Whoever owns the asset must call Release exactly once when the asset
// leaves the registry; a preview that is never released leaks a file.
type Preview struct {
	// Path of the temporary preview file.
	Path string

	once sync.Once
	err  error
}

// NewPreview wraps an already-created preview file.
func NewPreview(path string) *Preview {
	return &Preview{Path: path}
}

// Release removes the backing file. Safe to call more than once and on a
// nil receiver; only the first call touches the filesystem.
func (p *Preview) Release() error {
	if p == nil {
		return nil
	}
	p.once.Do(func() {
		if err := os.Remove(p.Path); err != nil && !os.IsNotExist(err) {
			p.err = err
		}
	})
	return p.err
}

// Released reports whether the backing file is gone.
func (p *Preview) Released() bool {
	if p == nil {
		return true
	}
	_, err := os.Stat(p.Path)
	return os.IsNotExist(err)
}
