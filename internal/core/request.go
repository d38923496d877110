// AngelaMos | 2026
// request.go

package core

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
)

const maxJSONBody = 1 << 20

// DecodeAndValidate reads a JSON body into dst and validates it. On failure
// it writes the error response and returns false.
func DecodeAndValidate(
	w http.ResponseWriter,
	r *http.Request,
	v *validator.Validate,
	dst any,
) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		BadRequest(w, "invalid request body")
		return false
	}

	if err := v.Struct(dst); err != nil {
		WriteValidationError(w, err)
		return false
	}

	return true
}
