package jsonapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/zerlake/thesisai/internal/app/system/limits"
)

// Decode reads a single JSON object from r into dst. On failure it writes a
// 400 envelope and returns false; the handler should simply return.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	return DecodeLimit(w, r, dst, limits.MaxJSONBody)
}

// DecodeLimit is Decode with a body cap of maxBytes.
func DecodeLimit(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) bool {
	if err := decode(w, r, dst, maxBytes); err != nil {
		BadRequest(w, err.Error())
		return false
	}
	return true
}

func decode(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return errors.New("content type must be application/json")
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errors.New("request body is required")
		case errors.As(err, &syntaxErr):
			return fmt.Errorf("malformed JSON at offset %d", syntaxErr.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("malformed JSON")
		case errors.As(err, &typeErr):
			if typeErr.Field != "" {
				return fmt.Errorf("field %q has the wrong type", typeErr.Field)
			}
			return errors.New("request body has the wrong shape")
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body must not exceed %d bytes", maxErr.Limit)
		default:
			return err
		}
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
