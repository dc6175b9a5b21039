package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"lokasi-umkm-backend/internal/storage"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

// parseMultipart caps the body at twice maxFile (plus form overhead) so the
// service can still answer an oversized file with its own message.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxFile int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 2*maxFile+(1<<20))
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Ukuran file terlalu besar")
			return false
		}
		writeError(w, http.StatusBadRequest, "Format data tidak valid")
		return false
	}
	return true
}

// formUpload returns the file in field, or nil when the field is empty. The
// returned close func is always safe to call.
func formUpload(r *http.Request, field string) (*storage.Upload, func()) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, func() {}
	}
	return uploadFrom(file, header), func() { _ = file.Close() }
}

func uploadFrom(file multipart.File, header *multipart.FileHeader) *storage.Upload {
	return &storage.Upload{Filename: header.Filename, Size: header.Size, Content: file}
}
