// Package storage writes uploaded files under a local directory and hands out
// relative URLs for them.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const sniffLen = 3072

// Upload is an incoming file.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// Local stores files on disk below Dir and serves them under URLPrefix.
type Local struct {
	Dir       string
	URLPrefix string
	Now       func() time.Time
}

func NewLocal(dir string) *Local {
	return &Local{Dir: dir, URLPrefix: "/uploads", Now: time.Now}
}

// Save writes up to category/<timestamp>-<id><ext> and returns its URL.
func (s *Local) Save(category string, up Upload) (string, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	ext := strings.ToLower(filepath.Ext(up.Filename))
	name := fmt.Sprintf("%s-%s%s", now().Format("20060102-150405"), uuid.NewString()[:8], ext)

	dir := filepath.Join(s.Dir, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, up.Content); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path.Join(s.URLPrefix, category, name), nil
}

// Delete removes the file behind ref. A missing file is not an error.
func (s *Local) Delete(ref string) error {
	p, err := s.pathFor(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Local) pathFor(ref string) (string, error) {
	rel := strings.TrimPrefix(ref, s.URLPrefix)
	rel = path.Clean("/" + rel)
	if rel == "/" {
		return "", fmt.Errorf("invalid file reference %q", ref)
	}
	return filepath.Join(s.Dir, filepath.FromSlash(rel)), nil
}

// Sniff detects the content type of r and returns a reader that still yields
// the whole stream.
func Sniff(r io.Reader) (*mimetype.MIME, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, nil, err
	}
	head = head[:n]
	return mimetype.Detect(head), io.MultiReader(bytes.NewReader(head), r), nil
}

// extensions lists the file extensions accepted for each stored content type.
// The first entry is used when an upload has no extension.
var extensions = map[string][]string{
	"image/jpeg":      {".jpg", ".jpeg"},
	"image/png":       {".png"},
	"image/webp":      {".webp"},
	"application/pdf": {".pdf"},
}

// MatchExtension returns the extension to store filename under given its
// detected type mt. It fails when the extension names a different format.
func MatchExtension(mt *mimetype.MIME, filename string) (string, bool) {
	if mt == nil {
		return "", false
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for typ, allowed := range extensions {
		if !mt.Is(typ) {
			continue
		}
		if ext == "" {
			return allowed[0], true
		}
		for _, a := range allowed {
			if ext == a {
				return ext, true
			}
		}
		return "", false
	}
	return "", false
}

// IsImage reports whether mt is one of the accepted photo formats.
func IsImage(mt *mimetype.MIME) bool {
	return mt != nil && (mt.Is("image/jpeg") || mt.Is("image/png") || mt.Is("image/webp"))
}

// IsDocument reports whether mt is accepted as a supporting document.
func IsDocument(mt *mimetype.MIME) bool {
	return IsImage(mt) || (mt != nil && mt.Is("application/pdf"))
}
