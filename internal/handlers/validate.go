package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

var errUnsupportedMediaType = errors.New("Content-Type must be application/json")

func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == target
}

// decodeJSON reads a single JSON object from the body. Unknown keys are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if !checkContentType(r, "application/json") {
		return errUnsupportedMediaType
	}

	var raw json.RawMessage
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&raw); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return errors.New("decode body: trailing data after JSON object")
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '{' {
		return errors.New("decode body: expected a JSON object")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

// parseTaskID parses the untrusted {id} path segment. Only positive integers
// are valid task ids.
func parseTaskID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse task id %q: %w", raw, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("task id %d must be positive", id)
	}
	return id, nil
}
