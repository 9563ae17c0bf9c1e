// Package scan walks local directories and produces upload candidates
// filtered by a media allow-list. It is the file source feeding ingestion;
// MIME filtering happens here, not in the ingest stage.
package scan

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
)

// Candidate is one file accepted by the allow-list, with its declared MIME
// type derived from the extension.
type Candidate struct {
	Path string
	MIME string
}

// supportedTypes maps lowercase extensions to declared MIME types. Only
// formats the ingest stage can handle are listed.
var supportedTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".m4v":  "video/x-m4v",
}

// SupportedMIME returns the declared MIME type for the file path and
// whether the file is accepted by the allow-list.
func SupportedMIME(path string) (string, bool) {
	mime, ok := supportedTypes[strings.ToLower(filepath.Ext(path))]
	return mime, ok
}

// Walk recursively collects candidates under root. Hidden directories
// (dot-prefixed) are skipped. The walk honors ctx cancellation between
// entries.
func Walk(ctx context.Context, root string) ([]Candidate, error) {
	var out []Candidate

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if mime, ok := SupportedMIME(path); ok {
			out = append(out, Candidate{Path: path, MIME: mime})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
