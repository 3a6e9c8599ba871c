package models

import (
	"io"
	"mime/multipart"

	"printforge-backend/internal/apperr"
)

// UploadedFile is the in-memory form of one multipart file part.
type UploadedFile struct {
	OriginalName string
	MimeType     string
	SizeBytes    int64
	Buffer       []byte
}

// FromMultipart reads a multipart part fully into memory.
func FromMultipart(fh *multipart.FileHeader) (UploadedFile, error) {
	src, err := fh.Open()
	if err != nil {
		return UploadedFile{}, apperr.Wrap(apperr.Validation, "failed to open uploaded file "+fh.Filename, err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return UploadedFile{}, apperr.Wrap(apperr.Validation, "failed to read uploaded file "+fh.Filename, err)
	}

	return UploadedFile{
		OriginalName: fh.Filename,
		MimeType:     fh.Header.Get("Content-Type"),
		SizeBytes:    fh.Size,
		Buffer:       data,
	}, nil
}

// FromMultipartAll converts a slice of file headers, aborting on the first
// unreadable part.
func FromMultipartAll(fhs []*multipart.FileHeader) ([]UploadedFile, error) {
	files := make([]UploadedFile, 0, len(fhs))
	for _, fh := range fhs {
		f, err := FromMultipart(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}
