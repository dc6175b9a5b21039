package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

func TestLocalSaveAndDelete(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewLocal(dir)
	s.Now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }

	ref, err := s.Save("reports", Upload{Filename: "Bukti.JPG", Content: bytes.NewReader(jpegHeader)})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(ref, "/uploads/reports/20260301-093000-") || !strings.HasSuffix(ref, ".jpg") {
		t.Fatalf("unexpected reference %q", ref)
	}

	onDisk := filepath.Join(dir, "reports", filepath.Base(ref))
	data, err := os.ReadFile(onDisk)
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(data, jpegHeader) {
		t.Fatal("stored bytes differ from upload")
	}

	if err := s.Delete(ref); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(onDisk); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err %v", err)
	}
	if err := s.Delete(ref); err != nil {
		t.Fatalf("deleting a missing file should be tolerated: %v", err)
	}
}

func TestLocalDeleteStaysInsideDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewLocal(filepath.Join(dir, "uploads"))

	outside := filepath.Join(dir, "secret.txt")
	if err := os.WriteFile(outside, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	_ = s.Delete("/uploads/../secret.txt")
	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("file outside upload dir must survive: %v", err)
	}
	if err := s.Delete("/uploads/"); err == nil {
		t.Fatal("expected error for empty reference")
	}
}

func TestSniffKeepsStream(t *testing.T) {
	t.Parallel()

	payload := append(append([]byte{}, jpegHeader...), bytes.Repeat([]byte{0x01}, 5000)...)
	mt, r, err := Sniff(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("sniff: %v", err)
	}
	if !IsImage(mt) {
		t.Fatalf("expected jpeg, got %s", mt.String())
	}
	all, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(all, payload) {
		t.Fatal("sniffed reader must replay the full payload")
	}

	mt, _, err = Sniff(strings.NewReader("hello, plain text"))
	if err != nil {
		t.Fatal(err)
	}
	if IsImage(mt) || IsDocument(mt) {
		t.Fatalf("text should not be accepted, got %s", mt.String())
	}
}

func TestMatchExtension(t *testing.T) {
	t.Parallel()

	jpeg, _, err := Sniff(bytes.NewReader(jpegHeader))
	if err != nil {
		t.Fatal(err)
	}
	pdf, _, err := Sniff(strings.NewReader("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		sniffed  string
		filename string
		ext      string
		ok       bool
	}{
		{"jpeg as jpg", "jpeg", "bukti.jpg", ".jpg", true},
		{"jpeg as upper JPEG", "jpeg", "Bukti.JPEG", ".jpeg", true},
		{"jpeg without extension", "jpeg", "bukti", ".jpg", true},
		{"jpeg named html", "jpeg", "evidence.html", "", false},
		{"jpeg named svg", "jpeg", "logo.svg", "", false},
		{"jpeg named pdf", "jpeg", "ktp.pdf", "", false},
		{"pdf as pdf", "pdf", "ktp.pdf", ".pdf", true},
		{"pdf named png", "pdf", "ktp.png", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mt := jpeg
			if tc.sniffed == "pdf" {
				mt = pdf
			}
			ext, ok := MatchExtension(mt, tc.filename)
			if ok != tc.ok || ext != tc.ext {
				t.Fatalf("MatchExtension(%s, %q) = %q, %v; want %q, %v", mt.String(), tc.filename, ext, ok, tc.ext, tc.ok)
			}
		})
	}

	if _, ok := MatchExtension(nil, "a.jpg"); ok {
		t.Fatal("nil type must not match")
	}
}
