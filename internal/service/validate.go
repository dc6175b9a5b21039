package service

import (
	"errors"
	"fmt"
	"io"
	"net/mail"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"lokasi-umkm-backend/internal/domain"
	"lokasi-umkm-backend/internal/repository"
	"lokasi-umkm-backend/internal/storage"
)

const minPasswordLen = 6

var (
	nikPattern   = regexp.MustCompile(`^\d{16}$`)
	phonePattern = regexp.MustCompile(`^\+?\d{8,15}$`)
)

func validateEmail(email string) error {
	if email == "" {
		return domain.Validation("Email wajib diisi")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return domain.Validation("Format email tidak valid")
	}
	return nil
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLen {
		return domain.Validation(fmt.Sprintf("Password minimal %d karakter", minPasswordLen))
	}
	return nil
}

func validateNIK(nik string) error {
	if !nikPattern.MatchString(nik) {
		return domain.Validation("NIK harus 16 digit angka")
	}
	return nil
}

// normalizePhone trims p and returns nil for a blank value.
func normalizePhone(p *string) (*string, error) {
	if p == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil, nil
	}
	if !phonePattern.MatchString(v) {
		return nil, domain.Validation("Nomor telepon tidak valid")
	}
	return &v, nil
}

func validateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return domain.Validation("Koordinat tidak valid")
	}
	return nil
}

func required(v, msg string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", domain.Validation(msg)
	}
	return v, nil
}

// optionalText trims v and returns nil for a blank value.
func optionalText(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

// checkUpload enforces the size limit and returns the upload with its content
// type verified by accept. label names the file in messages ("foto", "dokumen").
func checkUpload(up *storage.Upload, maxSize int64, accept func(*storage.Upload) error, label, missing string) (storage.Upload, error) {
	if up == nil || up.Content == nil {
		return storage.Upload{}, domain.Validation(missing)
	}
	if maxSize > 0 && up.Size > maxSize {
		return storage.Upload{}, domain.Validation(fmt.Sprintf("Ukuran %s maksimal %dMB", label, maxSize>>20))
	}
	checked := *up
	if err := accept(&checked); err != nil {
		return storage.Upload{}, err
	}
	return checked, nil
}

func acceptImage(up *storage.Upload) error {
	mt, r, err := storage.Sniff(up.Content)
	if err != nil {
		return domain.Storage("read upload", err)
	}
	if !storage.IsImage(mt) {
		return domain.Validation("Format foto harus JPG, PNG, atau WEBP")
	}
	return withExtension(up, mt, r)
}

func acceptDocument(up *storage.Upload) error {
	mt, r, err := storage.Sniff(up.Content)
	if err != nil {
		return domain.Storage("read upload", err)
	}
	if !storage.IsDocument(mt) {
		return domain.Validation("Format dokumen harus PDF, JPG, PNG, atau WEBP")
	}
	return withExtension(up, mt, r)
}

// withExtension rejects uploads whose file extension disagrees with the
// sniffed content and fills in the extension when the name has none.
func withExtension(up *storage.Upload, mt *mimetype.MIME, r io.Reader) error {
	ext, ok := storage.MatchExtension(mt, up.Filename)
	if !ok {
		return domain.Validation("Ekstensi file tidak sesuai dengan isi file")
	}
	up.Filename = strings.TrimSuffix(up.Filename, filepath.Ext(up.Filename)) + ext
	up.Content = r
	return nil
}

// storeErr maps a repository failure to a domain error. Domain errors pass
// through, a missing row becomes NotFound with msg.
func storeErr(op string, err error, notFoundMsg string) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if notFoundMsg != "" && errors.Is(err, repository.ErrNotFound) {
		return domain.NotFound(notFoundMsg)
	}
	return domain.Storage(op, err)
}

func clockOrNow(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now()
	}
	return clock()
}
