/*
Package req provides helpers for binding and validating HTTP request bodies.

Bodies are decoded strictly (unknown fields and trailing data are rejected) and
then checked against the struct's `validate` tags with go-playground/validator.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
)

// MaxJSONBodySize caps the size of JSON request bodies.
const MaxJSONBodySize int64 = 64 << 10 // 64 KB

var validate = validator.New(validator.WithRequiredStructEnabled())

// BindJSON decodes the JSON body of r into dst and validates it.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return Validate(dst)
}

// Validate runs struct-tag validation on v.
func Validate(v any) *errs.CustomError {
	if err := validate.Struct(v); err != nil {
		logx.Debug("Request validation failed", "error", err.Error())
		return errs.NewError(errs.ErrInvalidParams)
	}
	return nil
}
