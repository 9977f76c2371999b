package binding

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// UploadedFile is a multipart file read into memory.
type UploadedFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Reader returns a fresh reader over the file content.
func (f *UploadedFile) Reader() io.Reader {
	return bytes.NewReader(f.Data)
}

// ErrFileTooLarge is returned by File when the part exceeds maxBytes.
type ErrFileTooLarge struct {
	Field string
	Limit int64
}

func (e *ErrFileTooLarge) Error() string {
	return fmt.Sprintf("file %s exceeds %d bytes", e.Field, e.Limit)
}

// File reads the multipart file in field. A missing field returns
// (nil, nil) unless required. maxBytes <= 0 disables the size check.
func File(r *http.Request, field string, required bool, maxBytes int64) (*UploadedFile, error) {
	f, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		if required {
			return nil, ValidationErrors{{Type: "validation_error", Field: field, Message: "is required"}}
		}
		return nil, nil
	}
	if err != nil {
		return nil, &BindError{Type: "bind_error", Field: field, Message: err.Error()}
	}
	defer f.Close()

	reader := io.Reader(f)
	if maxBytes > 0 {
		reader = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, &BindError{Type: "bind_error", Field: field, Message: "failed to read file: " + err.Error()}
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, &ErrFileTooLarge{Field: field, Limit: maxBytes}
	}
	if len(data) == 0 {
		return nil, ValidationErrors{{Type: "validation_error", Field: field, Message: "is empty"}}
	}

	return &UploadedFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
