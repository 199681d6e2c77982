// Package handlers implements the REST endpoints of the Coredock API.
package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
)

// multipartMemory is how much of a multipart body is held in memory
// before spilling to temp files. Dump uploads stream from disk anyway.
const multipartMemory = 32 << 20

// openMultipartFile parses the multipart form (bounded upstream by
// MaxBytesReader) and opens the named file part.
func openMultipartFile(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, nil, fmt.Errorf("%w: parsing multipart form: %v", errValidation, err)
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: missing %q file part", errValidation, field)
	}
	return file, header, nil
}

// requireForm returns the named form value or an error naming the field.
func requireForm(r *http.Request, field string) (string, error) {
	v := r.FormValue(field)
	if v == "" {
		return "", fmt.Errorf("%w: missing required field %q", errValidation, field)
	}
	return v, nil
}
